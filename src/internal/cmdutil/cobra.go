package cmdutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/serde"
)

// PrintErrorStacks should be set to true if you want to print out a stack for
// errors that are returned by the run commands.
var PrintErrorStacks bool

// RunMinimumArgs wraps a function in a function
// that checks its argument count is above a minimum amount
func RunMinimumArgs(min int, run func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if len(args) < min {
			fmt.Fprintf(cmd.ErrOrStderr(), "expected at least %d arguments, got %d\n\n", min, len(args))
			cmd.Usage()
		} else {
			if err := run(cmd, args); err != nil {
				ErrorAndExit("%v", err)
			}
		}
	}
}

// ErrorAndExit errors with the given format and args, and then exits.
func ErrorAndExit(format string, args ...interface{}) {
	if errString := strings.TrimSpace(fmt.Sprintf(format, args...)); errString != "" {
		fmt.Fprintf(os.Stderr, "%s\n", errString)
	}
	if len(args) > 0 && PrintErrorStacks {
		if err, ok := args[0].(error); ok {
			errors.ForEachStackFrame(err, func(frame errors.Frame) {
				fmt.Fprintf(os.Stderr, "%+v\n", frame)
			})
		}
	}
	os.Exit(1)
}

// OutputFlags returns a flag set with the --raw and --output flags shared by commands that can
// print structured output.
func OutputFlags(raw *bool, output *string) *pflag.FlagSet {
	outputFlags := pflag.NewFlagSet("", pflag.ContinueOnError)
	outputFlags.BoolVar(raw, "raw", false, "Disable pretty printing; print structured output instead.")
	outputFlags.StringVarP(output, "output", "o", "json", "Output format when --raw is set: \"json\" or \"yaml\".")
	return outputFlags
}

// Encoder returns a serde.Encoder for the output format named by --output.  An unknown format
// is reported and the process exits.
func Encoder(output string, w io.Writer) serde.Encoder {
	e, err := serde.GetEncoder(output, w, serde.WithIndent(2))
	if err != nil {
		ErrorAndExit("%v", err)
	}
	return e
}
