package pctx

import (
	"testing"

	"github.com/pachyderm/csi/src/internal/log"
	"go.uber.org/zap"
)

func TestChild(t *testing.T) {
	ctx, logs := log.TestWithCapture(t)
	log.Info(Child(Child(ctx, "csictl"), "query", WithFields(zap.Int("ref", 1))), "hi")
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log, got %d", len(entries))
	}
	if got, want := entries[0].LoggerName, "csictl.query"; got != want {
		t.Errorf("logger name: got %q, want %q", got, want)
	}
}

func TestTestContext(t *testing.T) {
	ctx := TestContext(t)
	log.Debug(ctx, "hi")
	if err := ctx.Err(); err != nil {
		t.Errorf("context should be live during the test: %v", err)
	}
}
