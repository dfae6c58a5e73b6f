package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
	EnvTest = "test"

	minSecretLength = 32
)

type Config struct {
	// HTTP Server
	Port   string
	AppEnv string

	// Database
	SQLiteDBPath string

	// Sessions
	SessionSecret               string
	SessionTTL                  time.Duration
	SessionAllowEphemeralSecret bool
	SessionCookieName           string
	SessionCookieSecure         bool

	// Alerts
	AlertLocale         string
	AlertCurrency       string
	DetectorConcurrency int

	// Auth
	LoginRatePerMinute int
	PasswordIterations int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:   getEnv("PORT", "8080"),
		AppEnv: getEnv("APP_ENV", EnvProd),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/smartledger.db"),

		SessionSecret:               os.Getenv("SESSION_SECRET"),
		SessionTTL:                  getEnvDuration("SESSION_TTL", 7*24*time.Hour),
		SessionAllowEphemeralSecret: getEnvBool("SESSION_ALLOW_EPHEMERAL_SECRET", false),
		SessionCookieName:           getEnv("SESSION_COOKIE_NAME", "sl_session"),
		SessionCookieSecure:         getEnvBool("SESSION_COOKIE_SECURE", false),

		AlertLocale:         getEnv("ALERT_LOCALE", "ko-KR"),
		AlertCurrency:       getEnv("ALERT_CURRENCY", "KRW"),
		DetectorConcurrency: getEnvInt("DETECTOR_CONCURRENCY", 4),

		LoginRatePerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
		PasswordIterations: getEnvInt("PWD_ITERATIONS", 240000),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// UseEphemeralSecret reports whether the server may start without
// SESSION_SECRET by generating a throwaway one. Only allowed in dev.
func (c *Config) UseEphemeralSecret() bool {
	return c.SessionSecret == "" && c.AppEnv == EnvDev && c.SessionAllowEphemeralSecret
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.AppEnv {
	case EnvDev, EnvProd, EnvTest:
	default:
		errors = append(errors, fmt.Sprintf("invalid APP_ENV '%s': must be one of dev, prod, test", c.AppEnv))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	switch {
	case c.SessionSecret == "" && c.SessionAllowEphemeralSecret && c.AppEnv != EnvDev:
		errors = append(errors, "SESSION_ALLOW_EPHEMERAL_SECRET is only honoured when APP_ENV=dev")
	case c.SessionSecret == "" && !c.UseEphemeralSecret():
		errors = append(errors, "SESSION_SECRET is required")
	case c.SessionSecret != "" && len(c.SessionSecret) < minSecretLength:
		errors = append(errors, fmt.Sprintf("SESSION_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.SessionTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 second", c.SessionTTL))
	}
	if strings.TrimSpace(c.SessionCookieName) == "" {
		errors = append(errors, "session cookie name cannot be empty")
	}

	if _, err := language.Parse(c.AlertLocale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ALERT_LOCALE '%s': %v", c.AlertLocale, err))
	}
	if _, err := currency.ParseISO(c.AlertCurrency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid ALERT_CURRENCY '%s': %v", c.AlertCurrency, err))
	}
	if c.DetectorConcurrency < 1 || c.DetectorConcurrency > 32 {
		errors = append(errors, fmt.Sprintf("invalid detector concurrency %d: must be between 1 and 32", c.DetectorConcurrency))
	}

	if c.LoginRatePerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid login rate %d: must be at least 1 per minute", c.LoginRatePerMinute))
	}
	if c.PasswordIterations < 1000 {
		errors = append(errors, fmt.Sprintf("invalid password iterations %d: must be at least 1000", c.PasswordIterations))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
