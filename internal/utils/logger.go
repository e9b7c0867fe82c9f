package utils

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the structured logger shared by the web client, the status
// watcher and brdctl. Records are JSON lines with key/value attributes.
type Logger struct {
	*slog.Logger
}

// NewLogger writes to stdout at the level named by LOG_LEVEL.
func NewLogger(level string) *Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo writes to w instead. brdctl passes stderr so command output
// stays clean; tests pass io.Discard.
func NewLoggerTo(w io.Writer, level string) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func parseLevel(level string) slog.Level {
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

// Fatal logs at error level and exits. Only the entry points call it.
func (l *Logger) Fatal(msg string, args ...any) {
	l.Error(msg, args...)
	os.Exit(1)
}
