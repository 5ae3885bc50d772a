package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-phone-verify/internal/backend"
	"github.com/go-phone-verify/internal/config"
	"github.com/go-phone-verify/internal/domain"
	"github.com/go-phone-verify/internal/infrastructure/sms"
	"github.com/go-phone-verify/internal/pkg/id"
	"github.com/go-phone-verify/internal/pkg/phone"
	"github.com/go-phone-verify/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
}

type VerifyRequest struct {
	PhoneNumber  string `json:"phone_number" validate:"required"`
	SessionToken string `json:"session_token" validate:"required"`
	SecurityCode string `json:"security_code" validate:"required"`
}

// SessionStore persists verification sessions keyed by the session token hash.
// Consume must be atomic: of any number of concurrent callers whose match
// succeeds, at most one gets the session back.
type SessionStore interface {
	Create(ctx context.Context, s *domain.VerificationSession) error
	Find(ctx context.Context, tokenHash string) (*domain.VerificationSession, error)
	Invalidate(ctx context.Context, tokenHash string) error
	Consume(ctx context.Context, tokenHash string, maxAttempts int, match domain.MatchFunc) (*domain.VerificationSession, error)
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (sessionToken string, err error)
	Verify(ctx context.Context, req VerifyRequest) error
}

// ServiceDeps groups the constructor inputs. Now and Logger are optional.
type ServiceDeps struct {
	Backend backend.Backend
	Store   SessionStore
	Options config.Options
	Logger  *slog.Logger
	Now     func() time.Time
}

type service struct {
	backend     backend.Backend
	store       SessionStore
	ttl         time.Duration
	maxAttempts int
	hashCost    int
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(d ServiceDeps) Service {
	s := &service{
		backend:     d.Backend,
		store:       d.Store,
		ttl:         d.Options.TTL,
		maxAttempts: d.Options.MaxAttempts,
		hashCost:    d.Options.CodeHashCost,
		logger:      d.Logger,
		now:         d.Now,
	}
	if s.ttl <= 0 {
		s.ttl = config.DefaultTTL
	}
	if s.hashCost < bcrypt.MinCost || s.hashCost > bcrypt.MaxCost {
		s.hashCost = bcrypt.DefaultCost
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (string, error) {
	if err := validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	number, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	code, err := s.backend.GenerateSecurityCode()
	if err != nil {
		return "", fmt.Errorf("generate security code: %w", err)
	}
	sessionToken, err := s.backend.GenerateSessionToken(number)
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash security code: %w", err)
	}

	now := s.now()
	sess := &domain.VerificationSession{
		ID:               id.New(),
		TokenHash:        domain.HashSessionToken(sessionToken),
		PhoneNumber:      number,
		SecurityCodeHash: string(codeHash),
		CreatedAt:        now.Unix(),
		ExpiresAt:        now.Add(s.ttl).Unix(),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return "", fmt.Errorf("store verification session: %w", err)
	}

	log := s.logger.With("session_id", sess.ID, "phone", phone.Mask(number), "region", phone.Region(number), "backend", s.backend.Name())
	if s.backend.Sandbox() {
		log.Info("sandbox backend: skipping delivery")
		return sessionToken, nil
	}

	res, err := s.backend.SendSMS(ctx, number, s.backend.FormatMessage(code))
	if err != nil {
		// Roll back so the token can never be verified.
		if invErr := s.store.Invalidate(ctx, sess.TokenHash); invErr != nil {
			log.Warn("failed to discard undelivered verification session", "err", invErr)
		}
		attrs := []any{"err", err}
		var pe *sms.ProviderError
		if errors.As(err, &pe) {
			attrs = append(attrs, "provider_code", pe.Code, "provider_rejected", pe.Rejected())
		}
		log.Warn("security code delivery failed", attrs...)
		if !errors.Is(err, domain.ErrDelivery) {
			err = fmt.Errorf("%w: %w", domain.ErrDelivery, err)
		}
		return "", err
	}
	log.Info("security code sent", "message_id", res.MessageID, "status", res.Status)
	return sessionToken, nil
}

func (s *service) Verify(ctx context.Context, req VerifyRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	number, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.backend.CheckSessionToken(req.SessionToken, number); err != nil {
		s.logger.Info("verification rejected", "phone", phone.Mask(number), "reason", err)
		return err
	}

	sess, err := s.store.Consume(ctx, domain.HashSessionToken(req.SessionToken), s.maxAttempts,
		func(sess *domain.VerificationSession) error {
			phoneOK := subtle.ConstantTimeCompare([]byte(sess.PhoneNumber), []byte(number)) == 1
			codeErr := bcrypt.CompareHashAndPassword([]byte(sess.SecurityCodeHash), []byte(req.SecurityCode))
			if !phoneOK || codeErr != nil {
				return domain.ErrMismatch
			}
			return nil
		})
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrMismatch):
		s.logger.Info("verification rejected", "phone", phone.Mask(number), "reason", err)
		return err
	case err != nil:
		return fmt.Errorf("consume verification session: %w", err)
	}
	s.logger.Info("phone number verified", "session_id", sess.ID, "phone", phone.Mask(number))
	return nil
}
