package cmds

import (
	"context"
	"fmt"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pachyderm/csi/src/csi"
	"github.com/pachyderm/csi/src/internal/cmdutil"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/indexcache"
	"github.com/pachyderm/csi/src/internal/indexfile"
	"github.com/pachyderm/csi/src/internal/log"
)

// Config is the configuration shared by the csictl commands.
type Config struct {
	// CacheEntries and CacheSize bound the cache of decoded indexes.
	CacheEntries int
	CacheSize    cmdutil.ByteSize
	// MaxIndexSize bounds the decompressed size of an index file.
	MaxIndexSize cmdutil.ByteSize
	// Parallelism bounds how many indexes are loaded, or regions queried, at once.
	Parallelism int
	// MinShift and Depth are the default binning parameters for new indexes.
	MinShift int
	Depth    int
}

type loadedIndex struct {
	path   string
	idx    *csi.Index
	digest indexfile.Digest
}

func loadIndexes(ctx context.Context, cache *indexcache.Cache, paths []string, cfg Config) ([]loadedIndex, error) {
	loaded := make([]loadedIndex, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(cfg.Parallelism, 1))
	for i, path := range paths {
		eg.Go(func() error {
			idx, digest, err := cache.Load(ctx, path, indexfile.WithMaxSize(int64(cfg.MaxIndexSize)))
			if err != nil {
				return errors.Wrapf(err, "load %s", path)
			}
			loaded[i] = loadedIndex{path: path, idx: idx, digest: digest}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.EnsureStack(err)
	}
	stats := cache.Stats()
	log.Debug(ctx, "index cache", zap.Uint64("hits", stats.Hits), zap.Uint64("misses", stats.Misses), zap.String("bytes", units.BytesSize(float64(stats.Bytes))))
	return loaded, nil
}

// Cmds returns the csictl commands.
func Cmds(cfg Config) ([]*cobra.Command, error) {
	var commands []*cobra.Command
	cache, err := indexcache.New(cfg.CacheEntries, int64(cfg.CacheSize))
	if err != nil {
		return nil, err
	}

	var raw bool
	var output string
	outputFlags := cmdutil.OutputFlags(&raw, &output)

	inspect := &cobra.Command{
		Use:   "inspect <index>...",
		Short: "Summarize CSI index files.",
		Long: "Summarize CSI index files: binning parameters, aux data, and per reference sequence bin, " +
			"chunk, and record counts.  Index files may be gzip or zstd compressed.",
		Run: cmdutil.RunMinimumArgs(1, func(cmd *cobra.Command, args []string) error {
			loaded, err := loadIndexes(cmd.Context(), cache, args, cfg)
			if err != nil {
				return err
			}
			if raw {
				e := cmdutil.Encoder(output, cmd.OutOrStdout())
				for _, l := range loaded {
					if err := e.Encode(summarize(l.path, l.idx, l.digest)); err != nil {
						return errors.EnsureStack(err)
					}
				}
				return nil
			}
			for i, l := range loaded {
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				if err := writeSummary(cmd.OutOrStdout(), summarize(l.path, l.idx, l.digest)); err != nil {
					return err
				}
			}
			return nil
		}),
	}
	inspect.Flags().AddFlagSet(outputFlags)
	commands = append(commands, inspect)

	var parallelism int
	query := &cobra.Command{
		Use:   "query <index> <region>...",
		Short: "Find the chunks of a data file that may hold records overlapping regions.",
		Long: "Find the chunks of a data file that may hold records overlapping regions.  Regions are " +
			"written ref, ref:start, ref:start-end, or ref:start- with one-based, inclusive coordinates; " +
			"ref is a numeric id or, for indexes with a tabix header, a sequence name.",
		Example: "\t- csictl query reads.bam.csi 0:10,000-20,000\n" +
			"\t- csictl query calls.vcf.gz.csi chr1:1-1000 chr2",
		Run: cmdutil.RunMinimumArgs(2, func(cmd *cobra.Command, args []string) error {
			loaded, err := loadIndexes(cmd.Context(), cache, args[:1], cfg)
			if err != nil {
				return err
			}
			results, err := queryRegions(cmd.Context(), loaded[0].idx, args[1:], parallelism)
			if err != nil {
				return err
			}
			if raw {
				return errors.EnsureStack(cmdutil.Encoder(output, cmd.OutOrStdout()).Encode(results))
			}
			return writeResults(cmd.OutOrStdout(), results)
		}),
	}
	query.Flags().IntVarP(&parallelism, "parallelism", "p", cfg.Parallelism, "The number of regions to query at once.")
	query.Flags().AddFlagSet(outputFlags)
	commands = append(commands, query)

	var o buildOptions
	build := &cobra.Command{
		Use:   "build <output> <records>...",
		Short: "Build a CSI index from record listings.",
		Long: "Build a CSI index from record listings.  Each line of a listing describes one record of " +
			"the data file:\n\n" +
			"\tref  start  end  chunk_beg  chunk_end  [unmapped]\n\n" +
			"with zero-based, half-open coordinates and virtual positions written as raw integers or " +
			"compressed/uncompressed.  ref is \"*\" for records without coordinates.  Each listing must " +
			"be sorted; several listings are interleaved.  The index is gzip compressed, or zstd " +
			"compressed if output ends in .zst.",
		Run: cmdutil.RunMinimumArgs(2, func(cmd *cobra.Command, args []string) error {
			idx, digest, err := buildIndexFile(cmd.Context(), args[0], args[1:], o)
			if err != nil {
				return err
			}
			d := digest.Bytes()
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: %d reference sequences, %s uncompressed, digest %x\n",
				args[0], len(idx.ReferenceSequences), units.HumanSize(float64(idx.EncodedSize())), d[:])
			return nil
		}),
	}
	build.Flags().IntVar(&o.minShift, "min-shift", cfg.MinShift, "The leaf bin size as a power of two.")
	build.Flags().IntVar(&o.depth, "depth", cfg.Depth, "The number of bin levels below the root.")
	build.Flags().StringSliceVar(&o.names, "names", nil, "Reference sequence names, in id order.  Stored in a tabix header.")
	build.Flags().IntVar(&o.references, "references", 0, "The minimum number of reference sequences in the index.")
	commands = append(commands, build)

	return commands, nil
}
