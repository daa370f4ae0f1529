package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/clog"
)

type ctxKey struct{}

var defaultLogger = New("info", os.Stderr)

// parseLevel converts a level string to slog.Level, defaulting to info
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a console logger with the given level string
// ("debug", "info", "warn", "error"; case-insensitive)
func New(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	handler := clog.New(
		clog.WithWriter(w),
		clog.WithLevel(parseLevel(level)),
		clog.WithTimeFmt("15:04:05"),
		clog.WithSource(false),
		clog.WithAttrHook(clog.GoerrHook),
	)

	return slog.New(handler)
}

// Default returns the process-wide default logger
func Default() *slog.Logger {
	return defaultLogger
}

// SetDefault replaces the process-wide default logger
func SetDefault(logger *slog.Logger) {
	defaultLogger = logger
}

// With attaches the logger to the context
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From retrieves the logger from the context, falling back to the default
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return Default()
}
