package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/pflag"

	"github.com/pachyderm/csi/src/internal/cmdutil"
	"github.com/pachyderm/csi/src/internal/log"
	"github.com/pachyderm/csi/src/internal/pctx"
	"github.com/pachyderm/csi/src/server/cmd/csictl/cmd"
	csicmds "github.com/pachyderm/csi/src/server/csi/cmds"
)

type appEnv struct {
	LogLevel     string           `env:"CSI_LOG_LEVEL,default=warn"`
	CacheEntries int              `env:"CSI_CACHE_ENTRIES,default=64"`
	CacheSize    cmdutil.ByteSize `env:"CSI_CACHE_SIZE,default=256MiB"`
	MaxIndexSize cmdutil.ByteSize `env:"CSI_MAX_INDEX_SIZE,default=1GiB"`
	Parallelism  int              `env:"CSI_PARALLELISM,default=8"`
	MinShift     int              `env:"CSI_MIN_SHIFT,default=14"`
	Depth        int              `env:"CSI_DEPTH,default=5"`
}

func main() {
	cmdutil.Main(context.Background(), do, &appEnv{})
}

func do(_ context.Context, env *appEnv) error {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	level, err := log.InitLogger(env.LogLevel, false)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(pctx.Background("csictl"), os.Interrupt)
	defer stop()
	rootCmd, err := cmd.CsictlCmd(csicmds.Config{
		CacheEntries: env.CacheEntries,
		CacheSize:    env.CacheSize,
		MaxIndexSize: env.MaxIndexSize,
		Parallelism:  env.Parallelism,
		MinShift:     env.MinShift,
		Depth:        env.Depth,
	}, level)
	if err != nil {
		return err
	}
	return rootCmd.ExecuteContext(ctx)
}
