package pctx

import (
	"context"
	"testing"

	"github.com/pachyderm/csi/src/internal/log"
	"go.uber.org/zap"
)

// Background returns a context for use in a command or long-running process.  The process name
// becomes the logger name.
func Background(process string) context.Context {
	ctx := log.AddLogger(context.Background())
	return Child(ctx, process)
}

// TestContext returns a context for tests; its logs go to t.Log and it is canceled when the test
// ends.
func TestContext(t testing.TB) context.Context {
	ctx, cancel := context.WithCancel(log.Test(t))
	t.Cleanup(cancel)
	return ctx
}

// Option is an option for customizing a child context.
type Option struct {
	modifyLogger log.LogOption
}

// WithFields returns a context that includes additional fields that appear on each log line.
func WithFields(fields ...zap.Field) Option {
	return Option{
		modifyLogger: log.WithFields(fields...),
	}
}

// Child returns a named child context, with additional options.  The new name can be empty.
func Child(ctx context.Context, name string, opts ...Option) context.Context {
	var logOptions []log.LogOption
	for _, opt := range opts {
		if o := opt.modifyLogger; o != nil {
			logOptions = append(logOptions, o)
		}
	}
	return log.ChildLogger(ctx, name, logOptions...)
}
