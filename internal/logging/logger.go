package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var stdout io.Writer = os.Stdout

// Setup initializes the global slog logger with JSON output to stdout and
// returns the handler so callers can fan it out further.
func Setup(level string) slog.Handler {
	handler := NewJSONHandler(stdout, level)
	slog.SetDefault(slog.New(handler))
	return handler
}

func NewJSONHandler(w io.Writer, level string) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
}

// ParseLevel maps debug/info/warn/error to a slog level; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
