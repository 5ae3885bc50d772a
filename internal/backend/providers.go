package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-phone-verify/internal/config"
	"github.com/go-phone-verify/internal/infrastructure/sms"
)

// Built-in backend identifiers.
const (
	Twilio    = "twilio"
	Nexmo     = "nexmo"
	Kavenegar = "kavenegar"
	SNS       = "sns"
	Log       = "log"
)

func newTwilio(opts config.Options, o ...Option) (Backend, error) {
	s := apply(o)
	if s.sender == nil {
		if opts.TwilioAccountSID == "" || opts.TwilioAuthToken == "" || opts.From == "" {
			return nil, errors.New("twilio: account SID, auth token and FROM are required")
		}
		s.sender = sms.NewTwilioSender(opts.TwilioAccountSID, opts.TwilioAuthToken, opts.From, opts.ProviderBaseURL)
	}
	return newBase(Twilio, false, opts, s)
}

func newNexmo(opts config.Options, o ...Option) (Backend, error) {
	s := apply(o)
	if s.sender == nil {
		if opts.NexmoAPIKey == "" || opts.NexmoAPISecret == "" || opts.From == "" {
			return nil, errors.New("nexmo: API key, API secret and FROM are required")
		}
		s.sender = sms.NewNexmoSender(opts.NexmoAPIKey, opts.NexmoAPISecret, opts.From, opts.ProviderBaseURL)
	}
	return newBase(Nexmo, false, opts, s)
}

func newKavenegar(opts config.Options, o ...Option) (Backend, error) {
	s := apply(o)
	if s.sender == nil {
		if opts.KavenegarAPIKey == "" || opts.From == "" {
			return nil, errors.New("kavenegar: API key and FROM are required")
		}
		s.sender = sms.NewKavenegarSender(opts.KavenegarAPIKey, opts.From, opts.ProviderBaseURL)
	}
	return newBase(Kavenegar, false, opts, s)
}

func newSNS(opts config.Options, o ...Option) (Backend, error) {
	s := apply(o)
	if s.sender == nil {
		client, err := sms.NewSNSClient(context.Background(), snsClientConfig(opts))
		if err != nil {
			return nil, err
		}
		s.sender = sms.NewSNSSender(client, opts.From)
	}
	return newBase(SNS, false, opts, s)
}

// snsClientConfig prefers ProviderBaseURL over the shared AWS endpoint.
func snsClientConfig(opts config.Options) sms.SNSClientConfig {
	endpoint := opts.ProviderBaseURL
	if endpoint == "" {
		endpoint = opts.AWSEndpointURL
	}
	return sms.SNSClientConfig{
		Region:      opts.SNSRegion,
		EndpointURL: endpoint,
		AccessKeyID: opts.AWSAccessKeyID,
		SecretKey:   opts.AWSSecretKey,
	}
}

// newLog delivers by logging; a development stand-in that still runs the live path.
func newLog(opts config.Options, o ...Option) (Backend, error) {
	s := apply(o)
	if s.sender == nil {
		s.sender = sms.NewLogSender(s.logger)
	}
	return newBase(Log, false, opts, s)
}

// SandboxName returns the identifier of provider's sandbox variant.
func SandboxName(provider string) string { return provider + ".sandbox" }

// newSandbox builds a backend that never performs delivery and, when
// configured, hands out fixed codes and tokens so flows can be exercised
// end to end without a provider.
func newSandbox(name string) Factory {
	return func(opts config.Options, o ...Option) (Backend, error) {
		s := apply(o)
		if s.codeGen == nil && opts.SandboxSecurityCode != "" {
			code := opts.SandboxSecurityCode
			s.codeGen = func() (string, error) { return code, nil }
		}
		if s.tokenGen == nil && opts.SandboxSessionToken != "" {
			tok := opts.SandboxSessionToken
			s.tokenGen = func(string) (string, error) { return tok, nil }
		}
		s.sender = sms.SenderFunc(func(context.Context, string, string) (*sms.SendResult, error) {
			return &sms.SendResult{Status: "sandbox"}, nil
		})
		b, err := newBase(name, true, opts, s)
		if err != nil {
			return nil, fmt.Errorf("sandbox: %w", err)
		}
		return b, nil
	}
}
