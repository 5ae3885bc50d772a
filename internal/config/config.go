package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	AllowedOrigins []string // CORS allowed origins

	Store             Store
	PhoneVerification PhoneVerification
}

// Store selects and configures the verification session store.
type Store struct {
	Driver      string // "memory" | "redis" | "dynamo"
	RedisURL    string
	RedisPrefix string
	DynamoTable string
	JanitorTick time.Duration
}

// PhoneVerification mirrors the BACKEND / OPTIONS settings block.
type PhoneVerification struct {
	Backend string
	Options Options
}

// Options are the provider-specific and flow settings passed to the backend factory.
type Options struct {
	From            string
	AppName         string
	MessageTemplate string
	CodeLength      int
	TokenLength     int
	TTL             time.Duration
	MaxAttempts     int
	TokenSecret     string
	CodeHashCost    int

	SandboxSecurityCode string
	SandboxSessionToken string

	TwilioAccountSID string
	TwilioAuthToken  string
	NexmoAPIKey      string
	NexmoAPISecret   string
	KavenegarAPIKey  string
	SNSRegion        string

	// AWS credentials and endpoint for the sns backend; copied from the
	// top-level AWS settings so backends need only Options.
	AWSAccessKeyID string
	AWSSecretKey   string
	AWSEndpointURL string

	// ProviderBaseURL overrides the provider REST endpoint (tests, proxies).
	ProviderBaseURL string
}

const (
	DefaultMessageTemplate = "Welcome to {app}! Please use security code {security_code} to proceed."
	DefaultCodeLength      = 6
	DefaultTokenLength     = 32
	DefaultTTL             = 10 * time.Minute
	DefaultCodeHashCost    = 10
)

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		Store: Store{
			Driver:      getEnv("STORE_DRIVER", "memory"),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
			RedisPrefix: getEnv("REDIS_PREFIX", "phv"),
			DynamoTable: getEnv("DYNAMO_TABLE_PHONE_VERIFICATIONS", "phone_verifications"),
			JanitorTick: getEnvDuration("STORE_JANITOR_INTERVAL", time.Minute),
		},
		PhoneVerification: PhoneVerification{
			Backend: getEnv("PHONE_VERIFICATION_BACKEND", "log"),
			Options: Options{
				From:                getEnv("PHONE_VERIFICATION_FROM", ""),
				AppName:             getEnv("PHONE_VERIFICATION_APP_NAME", "Phone Verify"),
				MessageTemplate:     getEnv("PHONE_VERIFICATION_MESSAGE", DefaultMessageTemplate),
				CodeLength:          getEnvInt("PHONE_VERIFICATION_CODE_LENGTH", DefaultCodeLength),
				TokenLength:         getEnvInt("PHONE_VERIFICATION_TOKEN_LENGTH", DefaultTokenLength),
				TTL:                 time.Duration(getEnvInt("PHONE_VERIFICATION_SECURITY_CODE_EXPIRATION_TIME", int(DefaultTTL/time.Second))) * time.Second,
				MaxAttempts:         getEnvInt("PHONE_VERIFICATION_MAX_ATTEMPTS", 0),
				TokenSecret:         getEnv("PHONE_VERIFICATION_TOKEN_SECRET", ""),
				CodeHashCost:        getEnvInt("PHONE_VERIFICATION_CODE_HASH_COST", DefaultCodeHashCost),
				SandboxSecurityCode: getEnv("PHONE_VERIFICATION_SANDBOX_SECURITY_CODE", ""),
				SandboxSessionToken: getEnv("PHONE_VERIFICATION_SANDBOX_SESSION_TOKEN", ""),
				TwilioAccountSID:    getEnv("TWILIO_ACCOUNT_SID", ""),
				TwilioAuthToken:     getEnv("TWILIO_AUTH_TOKEN", ""),
				NexmoAPIKey:         getEnv("NEXMO_API_KEY", ""),
				NexmoAPISecret:      getEnv("NEXMO_API_SECRET", ""),
				KavenegarAPIKey:     getEnv("KAVENEGAR_API_KEY", ""),
				SNSRegion:           getEnv("SNS_REGION", getEnv("AWS_REGION", "us-east-1")),
				AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
				AWSSecretKey:        getEnv("AWS_SECRET_ACCESS_KEY", ""),
				AWSEndpointURL:      getEnv("AWS_ENDPOINT_URL", ""),
				ProviderBaseURL:     getEnv("PHONE_VERIFICATION_PROVIDER_BASE_URL", ""),
			},
		},
	}
}

// Validate checks the settings that would otherwise fail on the first request.
func (c *Config) Validate() error {
	var errs []error
	pv := c.PhoneVerification
	if pv.Backend == "" {
		errs = append(errs, errors.New("PHONE_VERIFICATION_BACKEND is required"))
	}
	if pv.Options.CodeLength < 4 || pv.Options.CodeLength > 10 {
		errs = append(errs, fmt.Errorf("code length must be between 4 and 10, got %d", pv.Options.CodeLength))
	}
	if pv.Options.TokenLength < 16 {
		errs = append(errs, fmt.Errorf("token length must be at least 16 bytes, got %d", pv.Options.TokenLength))
	}
	if pv.Options.TTL <= 0 {
		errs = append(errs, errors.New("security code expiration time must be positive"))
	}
	if pv.Options.MaxAttempts < 0 {
		errs = append(errs, errors.New("max attempts must not be negative"))
	}
	if pv.Options.SandboxSecurityCode != "" && len(pv.Options.SandboxSecurityCode) != pv.Options.CodeLength {
		errs = append(errs, errors.New("sandbox security code must match code length"))
	}
	switch c.Store.Driver {
	case "memory", "redis", "dynamo":
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
