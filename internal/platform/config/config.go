package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AI provider names accepted by ALTID_AI_PROVIDER.
const (
	ProviderStub   = "stub"
	ProviderGemini = "gemini"
)

// Config is the full runtime configuration, built once in main.
type Config struct {
	Server       Server
	AI           AIConfig
	Redis        RedisConfig
	Session      SessionConfig
	Verification VerificationConfig
	Token        TokenConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	RequestTimeout time.Duration
	MaxUploadBytes int64
}

// AIConfig selects and configures the identity/face provider.
type AIConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// RedisConfig configures the optional Redis session store. An empty URL keeps
// sessions in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SessionConfig bounds how long an abandoned session lingers.
type SessionConfig struct {
	TTL time.Duration
}

// VerificationConfig holds flow timings.
type VerificationConfig struct {
	SignatureDelay time.Duration
	RedirectDelay  time.Duration
	RedirectURL    string
}

// TokenConfig holds demo token claim defaults.
type TokenConfig struct {
	Audience    string
	RedirectURL string
}

// FromEnv builds a Config from environment variables. Defaults run the
// service offline with the stub provider and in-memory sessions.
func FromEnv() (Config, error) {
	var errs []string
	dur := func(key string, def time.Duration) time.Duration {
		d, err := durationEnv(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return d
	}
	num := func(key string, def int) int {
		n, err := intEnv(key, def)
		if err != nil {
			errs = append(errs, err.Error())
		}
		return n
	}

	cfg := Config{
		Server: Server{
			Addr:           stringEnv("ALTID_ADDR", ":8080"),
			RequestTimeout: dur("ALTID_REQUEST_TIMEOUT", 30*time.Second),
			MaxUploadBytes: int64(num("ALTID_MAX_UPLOAD_BYTES", 10<<20)),
		},
		AI: AIConfig{
			Provider: strings.ToLower(stringEnv("ALTID_AI_PROVIDER", ProviderStub)),
			APIKey:   os.Getenv("GEMINI_API_KEY"),
			Model:    stringEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			BaseURL:  stringEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			Timeout:  dur("ALTID_AI_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     num("REDIS_POOL_SIZE", 10),
			MinIdleConns: num("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  dur("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  dur("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: dur("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Session: SessionConfig{
			TTL: dur("ALTID_SESSION_TTL", 30*time.Minute),
		},
		Verification: VerificationConfig{
			SignatureDelay: dur("ALTID_SIGNATURE_DELAY", 1500*time.Millisecond),
			RedirectDelay:  dur("ALTID_REDIRECT_DELAY", 8*time.Second),
			RedirectURL:    stringEnv("ALTID_REDIRECT_URL", "/?verified=true"),
		},
		Token: TokenConfig{
			Audience:    stringEnv("ALTID_TOKEN_AUDIENCE", "hackathon.io"),
			RedirectURL: stringEnv("ALTID_TOKEN_REDIRECT_URL", "https://hackathon.io/form"),
		},
	}

	switch cfg.AI.Provider {
	case ProviderStub:
	case ProviderGemini:
		if cfg.AI.APIKey == "" {
			errs = append(errs, "GEMINI_API_KEY is required when ALTID_AI_PROVIDER=gemini")
		}
	default:
		errs = append(errs, fmt.Sprintf("ALTID_AI_PROVIDER must be %q or %q, got %q", ProviderStub, ProviderGemini, cfg.AI.Provider))
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		errs = append(errs, "ALTID_MAX_UPLOAD_BYTES must be positive")
	}

	if len(errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func stringEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return def, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
