package logging

import (
	"log/slog"
	"os"
	"strings"
)

// New builds the process logger: text lines on stdout at the configured
// level. An unrecognized level string falls back to debug so a typo in the
// config surfaces everything instead of hiding it.
func New(level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}

// ParseLevel maps a config level string onto a slog level. Matching is
// case-insensitive and tolerates surrounding whitespace.
func ParseLevel(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
