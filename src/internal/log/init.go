package log

import (
	"os"

	"github.com/pachyderm/csi/src/internal/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger configures the global logger for a command-line tool.  Logs go to stderr so that
// stdout stays clean for command output.  level is a zap level name ("debug", "info", ...);
// verbose switches to an encoder that includes timestamps and callers.
func InitLogger(level string, verbose bool) (zap.AtomicLevel, error) {
	lvl := zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return lvl, errors.Wrapf(err, "parse log level %q", level)
		}
	}
	enc := minimalConsoleEncoder
	opts := []zap.Option{zap.ErrorOutput(zapcore.Lock(os.Stderr))}
	if verbose {
		enc = verboseEncoder
		opts = append(opts, zap.AddCaller())
	}
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), lvl)
	zap.ReplaceGlobals(zap.New(core, opts...))
	return lvl, nil
}
