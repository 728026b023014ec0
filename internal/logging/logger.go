package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Fields map[string]interface{}

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Setup builds the process logger from a level ("debug", "info", ...) and
// a format ("json" or "console") and installs it for the package helpers.
func Setup(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	Set(l)
	return l, nil
}

// Set installs l as the logger used by the package helpers.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	base = l
	mu.Unlock()
}

// L returns the installed logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes buffered entries; call it before exit.
func Sync() { _ = L().Sync() }

func toZap(fields Fields, err error) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+1)
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	if err != nil {
		out = append(out, zap.Error(err))
	}
	return out
}

// Info logs an informational message with optional fields.
func Info(msg string, fields Fields) {
	L().Info(msg, toZap(fields, nil)...)
}

// Warn logs a recoverable problem.
func Warn(msg string, fields Fields) {
	L().Warn(msg, toZap(fields, nil)...)
}

// Error logs an error message and includes the error text in the fields.
func Error(msg string, err error, fields Fields) {
	L().Error(msg, toZap(fields, err)...)
}

// Fatal logs a fatal error and exits the process.
func Fatal(msg string, err error, fields Fields) {
	L().Fatal(msg, toZap(fields, err)...)
}
