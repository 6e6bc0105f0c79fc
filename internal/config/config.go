// Package config loads the service configuration from an optional .env file
// and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultAddr          = ":8080"
	DefaultDBPath        = "notes.db"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultSessionTTL    = 14 * 24 * time.Hour
	DefaultAuthRateLimit = 10
)

// Config holds all application configuration.
type Config struct {
	Addr      string
	DBPath    string
	LogLevel  string
	LogFormat string // "text" or "json"

	SessionTTL    time.Duration
	SecureCookies bool
	AuthRateLimit int  // login/signup attempts per IP per minute, 0 disables
	TrustProxy    bool // take the client IP from CF-Connecting-IP / X-Forwarded-For
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Load reads the given .env files (missing files are ignored), then builds a
// Config from NOTES_* environment variables. Variables already present in the
// environment win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	p := &parser{}
	cfg := &Config{
		Addr:          getEnvOrDefault("NOTES_ADDR", DefaultAddr),
		DBPath:        getEnvOrDefault("NOTES_DB_PATH", DefaultDBPath),
		LogLevel:      strings.ToLower(getEnvOrDefault("NOTES_LOG_LEVEL", DefaultLogLevel)),
		LogFormat:     strings.ToLower(getEnvOrDefault("NOTES_LOG_FORMAT", DefaultLogFormat)),
		SessionTTL:    p.duration("NOTES_SESSION_TTL", DefaultSessionTTL),
		SecureCookies: p.bool("NOTES_SECURE_COOKIES", false),
		AuthRateLimit: p.int("NOTES_AUTH_RATE_LIMIT", DefaultAuthRateLimit),
		TrustProxy:    p.bool("NOTES_TRUST_PROXY", false),
	}

	errs := append(p.errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	return cfg, nil
}

// Validate checks a Config built by hand, such as one patched by CLI flags.
func (c *Config) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func (c *Config) validate() []string {
	var errs []string
	if c.Addr == "" {
		errs = append(errs, "NOTES_ADDR must not be empty")
	}
	if c.DBPath == "" {
		errs = append(errs, "NOTES_DB_PATH must not be empty")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("NOTES_LOG_LEVEL must be debug, info, warn or error (got %q)", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("NOTES_LOG_FORMAT must be text or json (got %q)", c.LogFormat))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, "NOTES_SESSION_TTL must be positive")
	}
	if c.AuthRateLimit < 0 {
		errs = append(errs, "NOTES_AUTH_RATE_LIMIT must not be negative")
	}
	return errs
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parser collects malformed values instead of silently falling back.
type parser struct {
	errs []string
}

func (p *parser) int(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return parsed
}

func (p *parser) bool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: invalid boolean %q", key, value))
		return defaultValue
	}
	return parsed
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Sprintf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return parsed
}
