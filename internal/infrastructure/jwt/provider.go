package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-phone-verify/internal/pkg/token"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the session token payload fields.
type Claims struct {
	PhoneNumber string `json:"phone_number"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 session tokens. The token is opaque to
// clients; the session store stays authoritative for validity.
type Provider struct {
	key         []byte
	nonceLength int
	expiry      time.Duration
	now         func() time.Time
}

// NewProvider builds a Provider. An empty secret yields a random per-process key.
func NewProvider(secret string, nonceLength int, expiry time.Duration) (*Provider, error) {
	if nonceLength <= 0 {
		return nil, errors.New("nonce length must be positive")
	}
	key := []byte(secret)
	if len(key) == 0 {
		b, err := token.RandomBytes(32)
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		key = b
	}
	return &Provider{key: key, nonceLength: nonceLength, expiry: expiry, now: time.Now}, nil
}

// Sign issues a fresh session token bound to phoneNumber. Every call embeds a
// new random jti so two tokens for the same number never collide.
func (p *Provider) Sign(phoneNumber string) (string, error) {
	nonce, err := token.Random(p.nonceLength)
	if err != nil {
		return "", err
	}
	now := p.now()
	claims := Claims{
		PhoneNumber: phoneNumber,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        nonce,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
}

// Verify parses a token signed by this provider.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.key, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
