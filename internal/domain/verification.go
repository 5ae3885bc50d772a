package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// VerificationSession is a pending phone verification.
// PK: token_hash. ExpiresAt is a Unix timestamp used as DynamoDB TTL and Redis EXPIREAT.
// Neither the session token nor the security code is stored in plain text.
type VerificationSession struct {
	ID               string `json:"id" dynamodbav:"id"`
	TokenHash        string `json:"token_hash" dynamodbav:"token_hash"`
	PhoneNumber      string `json:"phone_number" dynamodbav:"phone_number"`
	SecurityCodeHash string `json:"security_code_hash" dynamodbav:"security_code_hash"`
	Attempts         int    `json:"attempts" dynamodbav:"attempts"`
	CreatedAt        int64  `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt        int64  `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
}

// IsExpired reports whether the session can no longer be matched at now.
func (s *VerificationSession) IsExpired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}

// TTL returns the remaining lifetime at now, or zero when expired.
func (s *VerificationSession) TTL(now time.Time) time.Duration {
	d := time.Unix(s.ExpiresAt, 0).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// HashSessionToken derives the store key for a session token.
func HashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MatchFunc decides whether a stored session accepts a verification attempt.
// It returns nil to consume the session or ErrMismatch to count a failed attempt.
type MatchFunc func(s *VerificationSession) error
