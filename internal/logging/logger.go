// Package logging configures the zerolog logger shared across the
// orchestrator, cache, pool, and scheduler subsystems.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how New builds a Logger.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// Pretty enables zerolog's human-readable console writer. Disable in
	// production so log lines stay one-JSON-object-per-line.
	Pretty bool
	// Output overrides the destination. Defaults to os.Stderr so stdout
	// stays free for MCP stdio framing.
	Output io.Writer
}

// New builds a zerolog.Logger from cfg.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	return zerolog.New(out).With().Timestamp().Logger()
}

// NewWithComponent builds a logger via New and tags every line with a
// "component" field, the convention every subsystem package follows.
func NewWithComponent(cfg Config, component string) zerolog.Logger {
	return New(cfg).With().Str("component", component).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
