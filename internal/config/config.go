// Package config provides environment-driven configuration for the depthcue server.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Config holds all server configuration values.
type Config struct {
	DatabaseURL   Secret
	Port          string
	ListenHost    string
	CORSOrigins   []string
	LogLevel      string
	OperatorToken Secret

	// GraphRoot is the directory graph files are served from.
	GraphRoot string
	// TrialSetPath is the trial-set CSV used to build participant plans.
	TrialSetPath string
	// AssignMethod is "latin-square" or "random".
	AssignMethod string
	StrictSets   bool

	DBMaxConns     int
	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:   Secret(envOrDefault("DATABASE_URL", "")),
		Port:          envOrDefault("PORT", "3040"),
		ListenHost:    envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		OperatorToken: Secret(envOrDefault("OPERATOR_TOKEN", "")),
		GraphRoot:     envOrDefault("GRAPH_ROOT", "public"),
		TrialSetPath:  envOrDefault("TRIALSET_PATH", "public/trials.csv"),
		AssignMethod:  envOrDefault("ASSIGN_METHOD", "latin-square"),
		StrictSets:    envOrDefault("STRICT_SETS", "false") == "true",
	}

	var err error

	if cfg.DBMaxConns, err = strconv.Atoi(envOrDefault("DB_MAX_CONNS", "10")); err != nil {
		return nil, fmt.Errorf("DB_MAX_CONNS must be an integer: %w", err)
	}

	if cfg.RateLimitRPS, err = strconv.ParseFloat(envOrDefault("RATE_LIMIT_RPS", "20"), 64); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS must be a number: %w", err)
	}

	if cfg.RateLimitBurst, err = strconv.Atoi(envOrDefault("RATE_LIMIT_BURST", "40")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST must be an integer: %w", err)
	}

	if cfg.MaxBodyBytes, err = strconv.ParseInt(envOrDefault("MAX_BODY_BYTES", "4194304"), 10, 64); err != nil {
		return nil, fmt.Errorf("MAX_BODY_BYTES must be an integer: %w", err)
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}
