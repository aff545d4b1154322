package cmds

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pachyderm/csi/src/csi"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/pctx"
)

// RegionResult is the answer to one region query.
type RegionResult struct {
	Region              string        `json:"region"`
	ReferenceSequenceID int           `json:"referenceSequenceId"`
	Start               int64         `json:"start"`
	End                 int64         `json:"end"`
	Chunks              []ChunkResult `json:"chunks"`
}

// ChunkResult is a chunk of the data file, with virtual positions rendered as
// "compressed/uncompressed".
type ChunkResult struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// queryRegions answers each region against idx, running up to parallelism queries at once.
// Results are in the order of regions.
func queryRegions(ctx context.Context, idx *csi.Index, regions []string, parallelism int) ([]RegionResult, error) {
	names := sequenceNames(idx)
	parsed := make([]csi.Region, len(regions))
	for i, s := range regions {
		r, err := ParseRegion(s, names, idx.MaxPosition())
		if err != nil {
			return nil, errors.Wrapf(err, "region %q", s)
		}
		parsed[i] = r
	}
	results := make([]RegionResult, len(regions))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(parallelism, 1))
	for i, r := range parsed {
		eg.Go(func() error {
			chunks, err := idx.QueryContext(pctx.Child(ctx, "query", pctx.WithFields(zap.String("region", regions[i]))), r)
			if err != nil {
				return errors.Wrapf(err, "region %q", regions[i])
			}
			res := RegionResult{
				Region:              regions[i],
				ReferenceSequenceID: r.ReferenceSequenceID,
				Start:               r.Start,
				End:                 r.End,
				Chunks:              make([]ChunkResult, len(chunks)),
			}
			for j, c := range chunks {
				res.Chunks[j] = ChunkResult{Start: c.Start.String(), End: c.End.String()}
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, errors.EnsureStack(err)
	}
	return results, nil
}

func writeResults(w io.Writer, results []RegionResult) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tCHUNK_BEG\tCHUNK_END")
	for _, res := range results {
		for _, c := range res.Chunks {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", res.Region, c.Start, c.End)
		}
	}
	return errors.EnsureStack(tw.Flush())
}
