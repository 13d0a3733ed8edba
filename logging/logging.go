// Package logging wraps log/slog the way the teacher's cmd/hector/logger.go
// wraps it: level/format selected from the environment, with CLI-flag
// overrides taking precedence when present.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// ParseLevel maps a case-insensitive level name to a slog.Level,
// defaulting to Info for an unrecognized or empty name.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger. levelFlag and formatFlag take precedence over the
// LOG_LEVEL / LOG_FORMAT environment variables, which take precedence
// over the Info/text defaults.
func New(levelFlag, formatFlag string) *slog.Logger {
	level := levelFlag
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	format := formatFlag
	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// Default is the package-level logger used by components that don't
// carry their own injected *slog.Logger.
var Default = New("", "")
