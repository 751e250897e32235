// Package ctxlog carries a Logger and an OpenTelemetry tracer through a
// context.Context, mirroring the teacher's common/context.go pattern.
package ctxlog

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the common interface every backend (zap, no-op) implements.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Debug(args ...any)
	Debugf(format string, args ...any)
	Fatalf(format string, args ...any)
	WithFields(fields ...any) Logger
	Sync() error
}

// NoneLogger discards everything; it is the zero-value fallback so call
// sites never need a nil check.
type NoneLogger struct{}

func (NoneLogger) Info(args ...any)                  {}
func (NoneLogger) Infof(format string, args ...any)  {}
func (NoneLogger) Warn(args ...any)                  {}
func (NoneLogger) Warnf(format string, args ...any)  {}
func (NoneLogger) Error(args ...any)                 {}
func (NoneLogger) Errorf(format string, args ...any) {}
func (NoneLogger) Debug(args ...any)                 {}
func (NoneLogger) Debugf(format string, args ...any) {}
func (NoneLogger) Fatalf(format string, args ...any) {}
func (NoneLogger) WithFields(fields ...any) Logger   { return NoneLogger{} }
func (NoneLogger) Sync() error                       { return nil }

type contextKey string

const valuesKey = contextKey("ctxlog.values")

type values struct {
	logger Logger
	tracer trace.Tracer
}

// WithLogger returns a context carrying logger, preserving any tracer
// already attached.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	v, _ := ctx.Value(valuesKey).(*values)
	if v == nil {
		v = &values{}
	}

	v.logger = logger

	return context.WithValue(ctx, valuesKey, v)
}

// FromContext extracts the attached Logger, or NoneLogger if none was set.
func FromContext(ctx context.Context) Logger {
	if v, ok := ctx.Value(valuesKey).(*values); ok && v.logger != nil {
		return v.logger
	}

	return NoneLogger{}
}

// WithTracer returns a context carrying tracer, preserving any logger
// already attached.
func WithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	v, _ := ctx.Value(valuesKey).(*values)
	if v == nil {
		v = &values{}
	}

	v.tracer = tracer

	return context.WithValue(ctx, valuesKey, v)
}

// TracerFromContext extracts the attached tracer, falling back to the
// global "default" tracer.
func TracerFromContext(ctx context.Context) trace.Tracer {
	if v, ok := ctx.Value(valuesKey).(*values); ok && v.tracer != nil {
		return v.tracer
	}

	return otel.Tracer("default")
}
