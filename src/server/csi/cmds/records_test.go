package cmds

import (
	"strings"
	"testing"

	"github.com/pachyderm/csi/src/bgzf"
	"github.com/pachyderm/csi/src/csi"
	"github.com/pachyderm/csi/src/internal/pctx"
	"github.com/pachyderm/csi/src/internal/require"
	"github.com/pachyderm/csi/src/internal/stream"
)

func TestParseVirtualPosition(t *testing.T) {
	vp, err := parseVirtualPosition("123/45")
	require.NoError(t, err)
	require.Equal(t, bgzf.NewVirtualPosition(123, 45), vp)

	vp, err = parseVirtualPosition("65536")
	require.NoError(t, err)
	require.Equal(t, bgzf.NewVirtualPosition(1, 0), vp)

	for _, in := range []string{"", "x", "1/70000", "281474976710656/0", "-1"} {
		_, err := parseVirtualPosition(in)
		require.YesError(t, err, "input %q", in)
	}
}

func TestRecordReader(t *testing.T) {
	ctx := pctx.TestContext(t)
	const listing = `# ref start end chunk_beg chunk_end unmapped
chr1	100	250	0/0	0/100

1	5	10	0/100	0/150	true
*	0	0	0/150	0/200
`
	r := newRecordReader("listing", strings.NewReader(listing), []string{"chr1"})
	var peeked csi.Record
	require.NoError(t, r.Peek(ctx, &peeked))
	got, err := stream.Collect[csi.Record](ctx, r, 10)
	require.NoError(t, err)
	want := []csi.Record{
		{ReferenceSequenceID: 0, Start: 100, End: 250, Chunk: csi.Chunk{Start: bgzf.NewVirtualPosition(0, 0), End: bgzf.NewVirtualPosition(0, 100)}},
		{ReferenceSequenceID: 1, Start: 5, End: 10, Chunk: csi.Chunk{Start: bgzf.NewVirtualPosition(0, 100), End: bgzf.NewVirtualPosition(0, 150)}, Unmapped: true},
		{ReferenceSequenceID: -1, Chunk: csi.Chunk{Start: bgzf.NewVirtualPosition(0, 150), End: bgzf.NewVirtualPosition(0, 200)}},
	}
	require.Equal(t, want[0], peeked)
	require.NoDiff(t, want, got, nil)
}

func TestRecordReaderErrors(t *testing.T) {
	ctx := pctx.TestContext(t)
	for _, test := range []struct {
		name, line, wantErr string
	}{
		{"fields", "chr1 1 2 3", "listing:2: expected 5 or 6 fields, got 4"},
		{"name", "chrX 1 2 3 4", `unknown reference sequence "chrX"`},
		{"start", "chr1 x 2 3 4", "parse start"},
		{"end", "chr1 1 x 3 4", "parse end"},
		{"chunk", "chr1 1 2 3 x", "parse chunk_end"},
		{"unmapped", "chr1 1 2 3 4 maybe", "parse unmapped"},
	} {
		t.Run(test.name, func(t *testing.T) {
			r := newRecordReader("listing", strings.NewReader("# header\n"+test.line+"\n"), []string{"chr1"})
			var rec csi.Record
			err := r.Next(ctx, &rec)
			require.YesError(t, err)
			require.ErrorContains(t, err, test.wantErr)
		})
	}
}

func TestRecordLess(t *testing.T) {
	rec := func(ref int, start int64, chunkStart uint64) csi.Record {
		return csi.Record{ReferenceSequenceID: ref, Start: start, Chunk: csi.Chunk{Start: bgzf.FromUint64(chunkStart)}}
	}
	sorted := []csi.Record{
		rec(0, 10, 1),
		rec(0, 10, 2),
		rec(0, 20, 0),
		rec(1, 0, 5),
		rec(-1, 0, 3),
		rec(-1, 0, 4),
	}
	for i := range sorted {
		for j := range sorted {
			require.Equal(t, i < j, recordLess(sorted[i], sorted[j]), "records %d and %d", i, j)
		}
	}
}
