package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pachyderm/csi/src/internal/cmdutil"
	csicmds "github.com/pachyderm/csi/src/server/csi/cmds"
)

// CsictlCmd creates a cobra.Command which can read, query, and build CSI indexes (it implements
// the csictl binary).  level is the level of the global logger; --verbose lowers it to debug.
func CsictlCmd(cfg csicmds.Config, level zap.AtomicLevel) (*cobra.Command, error) {
	var verbose bool
	rootCmd := &cobra.Command{
		Use: os.Args[0],
		Long: `Read, query, and build coordinate-sorted index (CSI) files.

Environment variables:
  CSI_LOG_LEVEL=<level>, the log level (default warn).
  CSI_CACHE_ENTRIES=<n>, CSI_CACHE_SIZE=<size>, bounds on the cache of decoded indexes.
  CSI_MAX_INDEX_SIZE=<size>, the largest decompressed index that will be read.
  CSI_PARALLELISM=<n>, how many indexes or regions are processed at once.
  CSI_MIN_SHIFT=<n>, CSI_DEPTH=<n>, the default binning parameters of new indexes.
`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				level.SetLevel(zapcore.DebugLevel)
				cmdutil.PrintErrorStacks = true
			}
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Output verbose logs and error stacks")

	commands, err := csicmds.Cmds(cfg)
	if err != nil {
		return nil, err
	}
	for _, cmd := range commands {
		rootCmd.AddCommand(cmd)
	}
	return rootCmd, nil
}
