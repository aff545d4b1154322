package miscutil

import (
	"context"

	"github.com/pachyderm/csi/src/internal/log"
)

// LogStep runs cb inside an info-level span named name, so that the start, duration, and
// outcome of the step are logged.
func LogStep(ctx context.Context, name string, cb func(ctx context.Context) error, fields ...log.Field) (retErr error) {
	ctx, end := log.SpanContextL(ctx, name, log.InfoLevel, fields...)
	defer end(log.Errorp(&retErr))
	return cb(ctx)
}
