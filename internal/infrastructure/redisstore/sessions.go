// Package redisstore keeps verification sessions in Redis so several API
// instances can share them. Values are JSON with a TTL matching the session
// expiry; consume and attempt counting run as Lua scripts over that JSON.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-phone-verify/internal/domain"
	"github.com/redis/go-redis/v9"
)

// consumeSessionLua deletes a session that still holds the matched code hash.
// KEYS[1] = session key
// ARGV[1] = security code hash the caller matched against
// ARGV[2] = current unix timestamp
//
// Returns 1 when this caller deleted the session, 0 when it was already gone.
var consumeSessionLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return 0
end
local sess = cjson.decode(data)
if sess.security_code_hash ~= ARGV[1] then
  return 0
end
if tonumber(sess.expires_at) <= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
  return 0
end
redis.call('DEL', KEYS[1])
return 1
`)

// failedAttemptLua counts a wrong code against a session.
// KEYS[1] = session key
// ARGV[1] = security code hash the caller matched against
// ARGV[2] = max attempts
//
// Returns the new attempt count, or -1 when the session is gone. The session
// is deleted once the count reaches max attempts.
var failedAttemptLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return -1
end
local sess = cjson.decode(data)
if sess.security_code_hash ~= ARGV[1] then
  return -1
end
sess.attempts = (tonumber(sess.attempts) or 0) + 1
if sess.attempts >= tonumber(ARGV[2]) then
  redis.call('DEL', KEYS[1])
  return sess.attempts
end
local ttlMs = redis.call('PTTL', KEYS[1])
if ttlMs <= 0 then
  redis.call('DEL', KEYS[1])
  return -1
end
redis.call('SET', KEYS[1], cjson.encode(sess), 'PX', ttlMs)
return sess.attempts
`)

// SessionStore is the Redis-backed verification session store.
type SessionStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewSessionStore(client redis.UniversalClient, prefix string) *SessionStore {
	if prefix == "" {
		prefix = "phv"
	}
	return &SessionStore{redis: client, prefix: prefix, now: time.Now}
}

// NewClient parses a redis:// URL into a client.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (s *SessionStore) key(tokenHash string) string {
	return s.prefix + ":session:" + tokenHash
}

func (s *SessionStore) Create(ctx context.Context, sess *domain.VerificationSession) error {
	if sess.TokenHash == "" {
		return errors.New("redis: empty token hash")
	}
	ttl := sess.TTL(s.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal verification session: %w", err)
	}
	return s.redis.Set(ctx, s.key(sess.TokenHash), data, ttl).Err()
}

func (s *SessionStore) Find(ctx context.Context, tokenHash string) (*domain.VerificationSession, error) {
	data, err := s.redis.Get(ctx, s.key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.decode(data)
}

func (s *SessionStore) Invalidate(ctx context.Context, tokenHash string) error {
	return s.redis.Del(ctx, s.key(tokenHash)).Err()
}

// Consume runs match outside Redis, then commits the outcome with a script
// that re-checks the code hash, so of several matching callers only the one
// whose DEL lands gets the session. Wrong codes write nothing unless
// maxAttempts bounds them.
func (s *SessionStore) Consume(ctx context.Context, tokenHash string, maxAttempts int, match domain.MatchFunc) (*domain.VerificationSession, error) {
	sess, err := s.Find(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	key := s.key(tokenHash)

	if matchErr := match(sess); matchErr != nil {
		if errors.Is(matchErr, domain.ErrMismatch) && maxAttempts > 0 {
			err := failedAttemptLua.Run(ctx, s.redis, []string{key}, sess.SecurityCodeHash, maxAttempts).Err()
			if err != nil {
				return nil, fmt.Errorf("record failed attempt: %w", err)
			}
		}
		return nil, matchErr
	}

	deleted, err := consumeSessionLua.Run(ctx, s.redis, []string{key}, sess.SecurityCodeHash, s.now().Unix()).Int()
	if err != nil {
		return nil, fmt.Errorf("consume verification session: %w", err)
	}
	if deleted == 0 {
		return nil, fmt.Errorf("verification session already consumed: %w", domain.ErrNotFound)
	}
	return sess, nil
}

// decode applies lazy expiry on top of the Redis TTL.
func (s *SessionStore) decode(data []byte) (*domain.VerificationSession, error) {
	var sess domain.VerificationSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal verification session: %w", err)
	}
	if sess.IsExpired(s.now()) {
		return nil, domain.ErrNotFound
	}
	return &sess, nil
}
