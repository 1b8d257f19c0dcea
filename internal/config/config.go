package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "BioVault"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultTimelock       = 72 * time.Hour
	defaultAuthStateTTL   = 15 * time.Minute
	defaultAuthURL        = "https://auth.humanode.io/oauth/authorize"
	defaultTokenURL       = "https://auth.humanode.io/oauth/token"
	defaultUserInfoURL    = "https://auth.humanode.io/oauth/userinfo"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	// OraclePrivateKey is the hex secp256k1 scalar behind rescue signatures.
	// When empty in development an ephemeral key is generated at startup.
	OraclePrivateKey string
	GuardianAddress  string

	HumanodeClientID     string
	HumanodeClientSecret string
	HumanodeAuthURL      string
	HumanodeTokenURL     string
	HumanodeUserInfoURL  string
	OAuthRedirectURL     string

	Timelock       time.Duration
	AuthStateTTL   time.Duration
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:              getEnv("APP_NAME", defaultAppName),
		AppEnv:               getEnv("APP_ENV", defaultAppEnv),
		Port:                 getEnv("PORT", defaultPort),
		LogLevel:             strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
		OraclePrivateKey:     os.Getenv("ORACLE_PRIVATE_KEY"),
		GuardianAddress:      os.Getenv("GUARDIAN_ADDRESS"),
		HumanodeClientID:     os.Getenv("HUMANODE_CLIENT_ID"),
		HumanodeClientSecret: os.Getenv("HUMANODE_CLIENT_SECRET"),
		HumanodeAuthURL:      getEnv("HUMANODE_AUTH_URL", defaultAuthURL),
		HumanodeTokenURL:     getEnv("HUMANODE_TOKEN_URL", defaultTokenURL),
		HumanodeUserInfoURL:  getEnv("HUMANODE_USERINFO_URL", defaultUserInfoURL),
		OAuthRedirectURL:     os.Getenv("OAUTH_REDIRECT_URL"),
		Timelock:             defaultTimelock,
		AuthStateTTL:         defaultAuthStateTTL,
		ShutdownPeriod:       defaultShutdownDelay,
		IdempotencyTTL:       defaultIdempotencyTTL,
	}

	var err error
	if cfg.Timelock, err = durationEnv("TIMELOCK", defaultTimelock); err != nil {
		return Config{}, err
	}
	if cfg.AuthStateTTL, err = durationEnv("AUTH_STATE_TTL", defaultAuthStateTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.OraclePrivateKey == "" {
			return Config{}, fmt.Errorf("ORACLE_PRIVATE_KEY must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.GuardianAddress == "" {
			return Config{}, fmt.Errorf("GUARDIAN_ADDRESS must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// durationEnv reads KEY as a Go duration, or KEY_SECONDS as an integer
// second count, falling back to the provided default.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
