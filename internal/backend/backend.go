// Package backend defines the SMS verification backend contract and the
// registry of provider-specific and sandbox implementations.
//
// A backend generates the security code and session token for a
// registration and delivers the code. The flows in the verification service
// only see the Backend interface; the concrete variant is chosen once at
// startup from configuration.
package backend

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-phone-verify/internal/config"
	"github.com/go-phone-verify/internal/domain"
	jwtinfra "github.com/go-phone-verify/internal/infrastructure/jwt"
	"github.com/go-phone-verify/internal/infrastructure/sms"
	"github.com/go-phone-verify/internal/pkg/token"
)

// Backend is the capability set every delivery provider implements.
type Backend interface {
	// Name is the registry identifier, e.g. "twilio" or "twilio.sandbox".
	Name() string
	// Sandbox reports whether live delivery is skipped.
	Sandbox() bool
	GenerateSecurityCode() (string, error)
	GenerateSessionToken(phoneNumber string) (string, error)
	// CheckSessionToken rejects a token this backend could not have issued
	// for phoneNumber. Backends without a way to tell accept every token.
	CheckSessionToken(token, phoneNumber string) error
	// SendSMS delivers message once. Failures wrap domain.ErrDelivery.
	SendSMS(ctx context.Context, to, message string) (*sms.SendResult, error)
	// FormatMessage renders the configured message template around code.
	FormatMessage(code string) string
}

// CodeGenerator produces a security code.
type CodeGenerator func() (string, error)

// TokenGenerator produces a session token bound to a phone number.
type TokenGenerator func(phoneNumber string) (string, error)

// Option customises a backend at construction time.
type Option func(*settings)

type settings struct {
	sender   sms.Sender
	codeGen  CodeGenerator
	tokenGen TokenGenerator
	logger   *slog.Logger
}

// WithSender replaces the provider transport, typically with a fake in tests.
func WithSender(s sms.Sender) Option { return func(o *settings) { o.sender = s } }

// WithCodeGenerator replaces security code generation.
func WithCodeGenerator(g CodeGenerator) Option { return func(o *settings) { o.codeGen = g } }

// WithTokenGenerator replaces session token generation.
func WithTokenGenerator(g TokenGenerator) Option { return func(o *settings) { o.tokenGen = g } }

// WithLogger sets the logger used by the development log backend.
func WithLogger(l *slog.Logger) Option { return func(o *settings) { o.logger = l } }

// base implements Backend on top of an sms.Sender.
type base struct {
	name     string
	sandbox  bool
	opts     config.Options
	sender   sms.Sender
	codeGen  CodeGenerator
	tokenGen TokenGenerator
	// tokenCheck is set only for signed tokens under a shared secret.
	tokenCheck func(token, phoneNumber string) error
}

func newBase(name string, sandbox bool, opts config.Options, s settings) (*base, error) {
	b := &base{
		name:     name,
		sandbox:  sandbox,
		opts:     opts,
		sender:   s.sender,
		codeGen:  s.codeGen,
		tokenGen: s.tokenGen,
	}
	if b.codeGen == nil {
		length := opts.CodeLength
		if length == 0 {
			length = config.DefaultCodeLength
		}
		b.codeGen = func() (string, error) { return token.NumericCode(length) }
	}
	if b.tokenGen == nil {
		length := opts.TokenLength
		if length == 0 {
			length = config.DefaultTokenLength
		}
		ttl := opts.TTL
		if ttl == 0 {
			ttl = config.DefaultTTL
		}
		p, err := jwtinfra.NewProvider(opts.TokenSecret, length, ttl)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		b.tokenGen = p.Sign
		// A per-process key cannot be checked by other instances sharing the store.
		if opts.TokenSecret != "" {
			b.tokenCheck = signedTokenCheck(p)
		}
	}
	return b, nil
}

func (b *base) Name() string  { return b.name }
func (b *base) Sandbox() bool { return b.sandbox }

func (b *base) GenerateSecurityCode() (string, error) { return b.codeGen() }

func (b *base) GenerateSessionToken(phoneNumber string) (string, error) {
	return b.tokenGen(phoneNumber)
}

func (b *base) CheckSessionToken(token, phoneNumber string) error {
	if b.tokenCheck == nil {
		return nil
	}
	return b.tokenCheck(token, phoneNumber)
}

func signedTokenCheck(p *jwtinfra.Provider) func(token, phoneNumber string) error {
	return func(token, phoneNumber string) error {
		claims, err := p.Verify(token)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrNotFound, err)
		}
		if subtle.ConstantTimeCompare([]byte(claims.PhoneNumber), []byte(phoneNumber)) != 1 {
			return domain.ErrMismatch
		}
		return nil
	}
}

func (b *base) SendSMS(ctx context.Context, to, message string) (*sms.SendResult, error) {
	res, err := b.sender.Send(ctx, to, message)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", b.name, domain.ErrDelivery, err)
	}
	return res, nil
}

func (b *base) FormatMessage(code string) string {
	tmpl := b.opts.MessageTemplate
	if tmpl == "" {
		tmpl = config.DefaultMessageTemplate
	}
	return strings.NewReplacer("{app}", b.opts.AppName, "{security_code}", code).Replace(tmpl)
}

func apply(opts []Option) settings {
	var s settings
	for _, o := range opts {
		o(&s)
	}
	return s
}
