// Package logging builds the process logger from environment variables.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	EnvLevel  = "BOOKSTORE_LOG_LEVEL"
	EnvFormat = "BOOKSTORE_LOG_FORMAT"
)

// Config selects level and handler format.
type Config struct {
	Level  slog.Level
	Format string // "text" or "json"
}

// ConfigFromEnv reads BOOKSTORE_LOG_LEVEL and BOOKSTORE_LOG_FORMAT. Unset
// variables default to info and text.
func ConfigFromEnv() (Config, error) {
	cfg := Config{Level: slog.LevelInfo, Format: "text"}
	if raw := strings.TrimSpace(os.Getenv(EnvLevel)); raw != "" {
		if err := cfg.Level.UnmarshalText([]byte(raw)); err != nil {
			return Config{}, fmt.Errorf("logging: %s: %w", EnvLevel, err)
		}
	}
	if raw := strings.ToLower(strings.TrimSpace(os.Getenv(EnvFormat))); raw != "" {
		if raw != "text" && raw != "json" {
			return Config{}, fmt.Errorf("logging: unsupported %s value %q", EnvFormat, raw)
		}
		cfg.Format = raw
	}
	return cfg, nil
}

// New returns a logger writing to w.
func New(w io.Writer, cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// FromEnv is ConfigFromEnv followed by New on stderr.
func FromEnv() (*slog.Logger, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return New(os.Stderr, cfg), nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
