// Package logging is the storefront's structured logger. It wraps logrus so
// every component logs with the same fields and formatter.
package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured log fields.
type Fields map[string]interface{}

type contextKey string

const requestIDKey contextKey = "request_id"

var base = newBaseLogger()

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Configure sets the level ("debug", "info", ...) and format ("json" or
// "text") of every logger created by this package.
func Configure(level, format string) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		base.SetLevel(lvl)
	}

	switch strings.ToLower(format) {
	case "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		base.SetFormatter(&logrus.JSONFormatter{})
	}
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	base.SetOutput(w)
}

// LoggerV2 is a component-scoped structured logger.
type LoggerV2 struct {
	entry *logrus.Entry
}

// NewLoggerV2 creates a logger tagged with the given component name.
func NewLoggerV2(component string) *LoggerV2 {
	return &LoggerV2{entry: base.WithField("component", component)}
}

// WithContext returns a logger carrying the request ID stored in ctx, if any.
func (l *LoggerV2) WithContext(ctx context.Context) *LoggerV2 {
	if id := RequestIDFromContext(ctx); id != "" {
		return &LoggerV2{entry: l.entry.WithField("request_id", id)}
	}
	return l
}

// With returns a logger that always carries the given fields.
func (l *LoggerV2) With(fields Fields) *LoggerV2 {
	return &LoggerV2{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *LoggerV2) Debug(msg string, fields ...Fields) {
	l.withFields(fields).Debug(msg)
}

func (l *LoggerV2) Info(msg string, fields ...Fields) {
	l.withFields(fields).Info(msg)
}

func (l *LoggerV2) Warn(msg string, fields ...Fields) {
	l.withFields(fields).Warn(msg)
}

func (l *LoggerV2) Error(msg string, fields ...Fields) {
	l.withFields(fields).Error(msg)
}

// Fatal logs and exits the process.
func (l *LoggerV2) Fatal(msg string, fields ...Fields) {
	l.withFields(fields).Fatal(msg)
}

func (l *LoggerV2) withFields(fields []Fields) *logrus.Entry {
	entry := l.entry
	for _, f := range fields {
		entry = entry.WithFields(logrus.Fields(f))
	}
	return entry
}

// Info logs at info level without a component.
func Info(msg string, fields ...Fields) {
	entry := logrus.NewEntry(base)
	for _, f := range fields {
		entry = entry.WithFields(logrus.Fields(f))
	}
	entry.Info(msg)
}

// Infof logs a formatted message at info level.
func Infof(format string, args ...interface{}) {
	base.Infof(format, args...)
}

// ContextWithRequestID stores a request ID for downstream logging and
// propagation.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID stored in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
