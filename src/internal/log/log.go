// Package log implements context-scoped structured logging on top of zap.
//
// A logger travels inside a context.Context.  Library code logs with log.Debug(ctx, ...),
// log.Info(ctx, ...), and log.Error(ctx, ...); binaries and tests put a logger into the root
// context with AddLogger, pctx.Background, or pctx.TestContext.  Operations that have a start
// and an end should use Span or SpanContext instead of logging twice by hand.
package log

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a typed log field.
type Field = zap.Field

type loggerKey struct{}

// AddLogger returns a context carrying the global logger.  Binaries should call InitLogger
// first so that the global logger is configured.
func AddLogger(ctx context.Context) context.Context {
	return withLogger(ctx, zap.L())
}

func withLogger(ctx context.Context, l *zap.Logger) context.Context {
	if l == nil {
		zap.L().DPanic("log: internal error: nil logger provided to withLogger")
		l = zap.L()
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

func extractLogger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		zap.L().DPanic("log: internal error: nil context provided to ExtractLogger")
		return zap.L()
	}
	l, ok := ctx.Value(loggerKey{}).(*zap.Logger)
	if !ok || l == nil {
		zap.L().DPanic("log: internal error: no logger in provided context")
		return zap.L()
	}
	return l
}

// Debug logs a message at level debug.
func Debug(ctx context.Context, msg string, fields ...Field) {
	extractLogger(ctx).WithOptions(zap.AddCallerSkip(1)).Debug(msg, fields...)
}

// Info logs a message at level info.
func Info(ctx context.Context, msg string, fields ...Field) {
	extractLogger(ctx).WithOptions(zap.AddCallerSkip(1)).Info(msg, fields...)
}

// Error logs a message at level error.  Errors that are returned to the caller should not also be
// logged.
func Error(ctx context.Context, msg string, fields ...Field) {
	extractLogger(ctx).WithOptions(zap.AddCallerSkip(1)).Error(msg, fields...)
}

// ContextInfo is a Field that describes the deadline and cancellation state of ctx.
func ContextInfo(ctx context.Context) Field {
	if ctx == nil {
		return zap.Skip()
	}
	return zap.Object("context", zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		if d, ok := ctx.Deadline(); ok {
			enc.AddDuration("deadline", time.Until(d))
		}
		if err := ctx.Err(); err != nil {
			enc.AddString("err", err.Error())
		}
		return nil
	}))
}

// LogOption modifies the logger attached to a child context.
type LogOption func(l *zap.Logger) *zap.Logger

// WithFields adds fields to every log line produced by the child.
func WithFields(fields ...Field) LogOption {
	return func(l *zap.Logger) *zap.Logger {
		return l.With(fields...)
	}
}

// ChildLogger returns a context whose logger is named name (appended to the parent's name) and
// modified by opts.
func ChildLogger(ctx context.Context, name string, opts ...LogOption) context.Context {
	l := extractLogger(ctx)
	if name != "" {
		l = l.Named(name)
	}
	for _, opt := range opts {
		l = opt(l)
	}
	return withLogger(ctx, l)
}
