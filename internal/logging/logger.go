// Package logging provides structured logging functionality for the
// labeler's ambient operations (server startup, request handling, model
// loads) — not for anything in the deterministic evaluation path itself.
package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/vplabeler/core/internal/config"
)

// Logger wraps slog.Logger with additional context.
type Logger struct {
	logger *slog.Logger
}

// New creates a new logger based on the configuration.
func New(cfg config.LoggingConfig) *Logger {
	level := parseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.Level == "debug",
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return &Logger{logger: slog.New(handler)}
}

// With creates a new logger with the given attributes.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) { l.logger.Debug(msg, args...) }

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) { l.logger.Info(msg, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) { l.logger.Warn(msg, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) { l.logger.Error(msg, args...) }

// InfoContext logs an info message with context.
func (l *Logger) InfoContext(ctx context.Context, msg string, args ...interface{}) {
	l.logger.InfoContext(ctx, msg, args...)
}

// ErrorContext logs an error message with context.
func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...interface{}) {
	l.logger.ErrorContext(ctx, msg, args...)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var defaultLogger *Logger

func init() {
	defaultLogger = New(config.LoggingConfig{Level: "info", Format: "json"})
}

// Default returns the default logger.
func Default() *Logger { return defaultLogger }

// SetDefault sets the default logger.
func SetDefault(logger *Logger) { defaultLogger = logger }

// Info logs an info message using the default logger.
func Info(msg string, args ...interface{}) { defaultLogger.Info(msg, args...) }

// Error logs an error message using the default logger.
func Error(msg string, args ...interface{}) { defaultLogger.Error(msg, args...) }
