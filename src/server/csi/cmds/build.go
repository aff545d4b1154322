package cmds

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/pachyderm/csi/src/csi"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/indexfile"
	"github.com/pachyderm/csi/src/internal/miscutil"
	"github.com/pachyderm/csi/src/internal/stream"
)

type buildOptions struct {
	minShift, depth int
	// names, if set, are stored in a tabix aux block and may be used in place of ids.
	names      []string
	references int
}

// buildIndexFile indexes the record listings in inputs and stores the index at out.  Inputs may be
// gzip or zstd compressed.  Each input must be sorted; several inputs are interleaved.
func buildIndexFile(ctx context.Context, out string, inputs []string, o buildOptions) (_ *csi.Index, _ indexfile.Digest, retErr error) {
	if len(inputs) == 0 {
		return nil, indexfile.Digest{}, errors.New("no record listings to index")
	}
	its := make([]stream.Peekable[csi.Record], 0, len(inputs))
	for _, in := range inputs {
		f, err := os.Open(in)
		if err != nil {
			return nil, indexfile.Digest{}, errors.EnsureStack(err)
		}
		defer errors.Close(&retErr, f, "close %s", in)
		r, _, err := indexfile.NewDecompressor(f)
		if err != nil {
			return nil, indexfile.Digest{}, errors.Wrapf(err, "open %s", in)
		}
		defer errors.Close(&retErr, r, "close %s", in)
		its = append(its, newRecordReader(in, r, o.names))
	}
	var records stream.Iterator[csi.Record] = its[0]
	if len(its) > 1 {
		records = stream.NewInterleaver(its, recordLess)
	}
	opts := []csi.IndexerOption{
		csi.WithMinShift(o.minShift),
		csi.WithDepth(o.depth),
		csi.WithReferenceSequenceCount(max(o.references, len(o.names))),
	}
	if len(o.names) > 0 {
		h := &csi.TabixHeader{
			Format:         csi.TabixFormatGeneric | csi.TabixUCSC,
			SequenceColumn: 1,
			BeginColumn:    2,
			EndColumn:      3,
			Meta:           '#',
			Names:          o.names,
		}
		aux, err := h.Marshal()
		if err != nil {
			return nil, indexfile.Digest{}, err
		}
		opts = append(opts, csi.WithAux(aux))
	}
	var idx *csi.Index
	if err := miscutil.LogStep(ctx, "buildIndex", func(ctx context.Context) error {
		var err error
		idx, err = csi.BuildIndex(ctx, records, opts...)
		return err
	}, zap.Strings("inputs", inputs)); err != nil {
		return nil, indexfile.Digest{}, err
	}
	var digest indexfile.Digest
	if err := miscutil.LogStep(ctx, "storeIndex", func(ctx context.Context) error {
		var err error
		digest, err = indexfile.Store(ctx, out, idx)
		return err
	}, zap.String("path", out)); err != nil {
		return nil, indexfile.Digest{}, err
	}
	return idx, digest, nil
}
