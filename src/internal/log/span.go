package log

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the level at which span start and end lines are logged.
type Level int

const (
	DebugLevel Level = 1
	InfoLevel  Level = 2
	ErrorLevel Level = 3
)

func (l Level) coreLevel() zapcore.Level {
	switch l { //exhaustive:enforce
	case DebugLevel:
		return zapcore.DebugLevel
	case InfoLevel:
		return zapcore.InfoLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	}
	zap.L().DPanic("unknown log level in (log.Level).coreLevel", zap.Int("level", int(l)))
	return zapcore.DebugLevel
}

// EndSpanFunc ends a span.  Fields passed to it are added to the end line.
type EndSpanFunc = func(fields ...Field)

const errorpType = zapcore.InlineMarshalerType + 100

// Errorp is a Field that marks a span as failed if *err is non-nil when the span ends.  It is
// meant for named error returns:
//
//	func f(ctx context.Context) (retErr error) {
//		defer log.Span(ctx, "f")(log.Errorp(&retErr))
//		...
//	}
func Errorp(err *error) Field {
	return zapcore.Field{
		Key:       "error",
		Type:      errorpType,
		Interface: err,
	}
}

// ErrorpL is like Errorp, but logs a failed span at the provided level.
func ErrorpL(err *error, level Level) Field {
	f := Errorp(err)
	f.Integer = int64(level)
	return f
}

type spanStatus string

const (
	spanStarting spanStatus = "span start"
	spanOK       spanStatus = "span finished ok"
	spanFailed   spanStatus = "span failed"
)

func endSpanFunc(ctx context.Context, l *zap.Logger, event string, level Level, start time.Time) EndSpanFunc {
	return func(rawFields ...Field) {
		fields := []Field{zap.Duration("spanDuration", time.Since(start))}
		status := spanOK
		for _, f := range rawFields {
			if f.Type == errorpType {
				if errp, ok := f.Interface.(*error); ok && *errp != nil {
					status = spanFailed
					if f.Integer > 0 {
						level = Level(f.Integer)
					}
					fields = append(fields, zap.Error(*errp))
				}
				continue
			}
			if _, ok := f.Interface.(error); ok && f.Type == zapcore.ErrorType {
				status = spanFailed
			}
			fields = append(fields, f)
		}
		if e := l.Check(level.coreLevel(), event+": "+string(status)); e != nil {
			fields = append(fields, ContextInfo(ctx))
			e.Write(fields...)
		}
	}
}

func spanContextL(rctx context.Context, event string, level Level, fields ...Field) (context.Context, EndSpanFunc) {
	l := extractLogger(rctx).Named(event).With(fields...)
	if e := l.WithOptions(zap.AddCallerSkip(2)).Check(level.coreLevel(), event+": "+string(spanStarting)); e != nil {
		e.Write(ContextInfo(rctx))
	}
	ctx := withLogger(rctx, l)
	return ctx, endSpanFunc(ctx, l, event, level, time.Now())
}

// SpanContextL starts a span, returning a context whose logger is scoped to the span and a
// function that ends it.  Pass Errorp(&retErr) or zap.Error(err) to the end function to mark
// the span as failed.
func SpanContextL(rctx context.Context, event string, level Level, fields ...Field) (context.Context, EndSpanFunc) {
	return spanContextL(rctx, event, level, fields...)
}

// SpanContext starts a span at level debug.  See SpanContextL.
func SpanContext(rctx context.Context, event string, fields ...Field) (context.Context, EndSpanFunc) {
	return spanContextL(rctx, event, DebugLevel, fields...)
}

// Span starts a span at level debug and returns the function that ends it.
func Span(ctx context.Context, event string, fields ...Field) EndSpanFunc {
	_, end := spanContextL(ctx, event, DebugLevel, fields...)
	return end
}
