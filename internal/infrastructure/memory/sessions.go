// Package memory is the single-process session store. Sessions live in a map
// guarded by a mutex; expired entries are hidden on read and swept by a janitor.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-phone-verify/internal/domain"
)

// SessionStore keeps verification sessions in memory.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.VerificationSession // key: token hash
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewSessionStore starts a store whose janitor evicts expired sessions every
// interval. A non-positive interval disables the janitor (lazy expiry only).
func NewSessionStore(interval time.Duration) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]domain.VerificationSession),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if interval > 0 {
		go s.cleanupExpired(interval)
	}
	return s
}

func (s *SessionStore) Create(_ context.Context, sess *domain.VerificationSession) error {
	if sess.TokenHash == "" {
		return errors.New("memory: empty token hash")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.TokenHash] = *sess
	return nil
}

func (s *SessionStore) Find(_ context.Context, tokenHash string) (*domain.VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.lookup(tokenHash)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sess, nil
}

func (s *SessionStore) Invalidate(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

// Consume runs match on a copy with the lock released, then re-locks and
// applies the outcome only if the session still holds the same code hash.
// A caller that finds it gone lost the race and gets ErrNotFound.
func (s *SessionStore) Consume(_ context.Context, tokenHash string, maxAttempts int, match domain.MatchFunc) (*domain.VerificationSession, error) {
	s.mu.Lock()
	sess, ok := s.lookup(tokenHash)
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}

	matchErr := match(&sess)

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.lookup(tokenHash)
	if !ok || current.SecurityCodeHash != sess.SecurityCodeHash {
		if matchErr != nil {
			return nil, matchErr
		}
		return nil, domain.ErrNotFound
	}
	if matchErr != nil {
		if errors.Is(matchErr, domain.ErrMismatch) {
			current.Attempts++
			if maxAttempts > 0 && current.Attempts >= maxAttempts {
				delete(s.sessions, tokenHash)
			} else {
				s.sessions[tokenHash] = current
			}
		}
		return nil, matchErr
	}
	delete(s.sessions, tokenHash)
	return &current, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the janitor.
func (s *SessionStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// lookup must be called with mu held. Expired sessions are dropped on sight.
func (s *SessionStore) lookup(tokenHash string) (domain.VerificationSession, bool) {
	sess, ok := s.sessions[tokenHash]
	if !ok {
		return domain.VerificationSession{}, false
	}
	if sess.IsExpired(s.now()) {
		delete(s.sessions, tokenHash)
		return domain.VerificationSession{}, false
	}
	return sess, true
}

func (s *SessionStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, sess := range s.sessions {
		if sess.IsExpired(now) {
			delete(s.sessions, k)
		}
	}
}

func (s *SessionStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stop:
			return
		}
	}
}
