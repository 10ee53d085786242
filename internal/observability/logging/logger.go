// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// Init configures the global zerolog logger and returns it.
func Init(cfg Config) zerolog.Logger {
	return InitWithWriter(cfg, os.Stdout)
}

// InitWithWriter is Init with an explicit output.
func InitWithWriter(cfg Config, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(out).
		With().
		Timestamp().
		Str("service", "debate-coach").
		Logger()
	return log.Logger
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

// WithRequest returns a logger scoped to a single HTTP request.
func WithRequest(component, requestID string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Str("requestId", requestID).
		Logger()
}
