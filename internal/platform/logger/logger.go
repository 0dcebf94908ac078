// Package logger builds the process-wide structured logger. Output is JSON
// on stdout; the level comes from LOG_LEVEL (debug, info, warn, error) and
// defaults to info.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns the configured slog logger.
func New() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromEnv(),
	})
	return slog.New(handler)
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
