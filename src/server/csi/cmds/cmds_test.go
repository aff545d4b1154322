package cmds

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/pachyderm/csi/src/csi"
	"github.com/pachyderm/csi/src/internal/pctx"
	"github.com/pachyderm/csi/src/internal/require"
)

const listing = `# ref	start	end	chunk_beg	chunk_end	unmapped
chr1	100	250	0/0	0/100
chr1	200	300	0/100	0/200
chr1	140000	200000	0/200	10/0
chr2	5	10	10/0	10/50	true
*	0	0	10/50	10/80
`

var testConfig = Config{
	CacheEntries: 8,
	CacheSize:    64 << 20,
	MaxIndexSize: 64 << 20,
	Parallelism:  4,
	MinShift:     14,
	Depth:        5,
}

// run executes csictl with args and returns what it printed.
func run(t *testing.T, args ...string) string {
	t.Helper()
	commands, err := Cmds(testConfig)
	require.NoError(t, err)
	root := &cobra.Command{Use: "csictl"}
	for _, cmd := range commands {
		root.AddCommand(cmd)
	}
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(pctx.TestContext(t)))
	return out.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestBuildInspectQuery(t *testing.T) {
	dir := t.TempDir()
	records := filepath.Join(dir, "records.tsv")
	writeFile(t, records, listing)
	index := filepath.Join(dir, "data.csi")

	out := run(t, "build", "--names", "chr1,chr2", index, records)
	require.True(t, strings.HasPrefix(out, "wrote "+index+": 2 reference sequences"), out)

	var s Summary
	require.NoError(t, json.Unmarshal([]byte(run(t, "inspect", "--raw", index)), &s))
	require.Equal(t, int32(14), s.MinShift)
	require.Equal(t, int32(5), s.Depth)
	require.Equal(t, "generic+ucsc", s.TabixFormat)
	require.NotNil(t, s.UnplacedUnmappedRecords)
	require.Equal(t, uint64(1), *s.UnplacedUnmappedRecords)
	require.Len(t, s.ReferenceSequences, 2)
	chr1, chr2 := s.ReferenceSequences[0], s.ReferenceSequences[1]
	require.Equal(t, "chr1", chr1.Name)
	// The first two records share a bin and are contiguous, so they share a chunk.
	require.Equal(t, 2, chr1.Bins)
	require.Equal(t, 2, chr1.Chunks)
	require.Equal(t, "0/0", chr1.Start)
	require.Equal(t, "10/0", chr1.End)
	require.Equal(t, uint64(3), *chr1.MappedRecords)
	require.Equal(t, "chr2", chr2.Name)
	require.Equal(t, uint64(0), *chr2.MappedRecords)
	require.Equal(t, uint64(1), *chr2.UnmappedRecords)

	text := run(t, "inspect", index)
	require.True(t, strings.Contains(text, "unplaced unmapped records: 1"), text)
	require.True(t, strings.Contains(text, "chr2"), text)

	var results []RegionResult
	require.NoError(t, json.Unmarshal([]byte(run(t, "query", "--raw", index, "chr1:101-250", "chr1", "chr2:1-4", "chr1:300,000-400,000")), &results))
	require.NoDiff(t, []RegionResult{
		{Region: "chr1:101-250", ReferenceSequenceID: 0, Start: 100, End: 250, Chunks: []ChunkResult{{Start: "0/0", End: "0/200"}}},
		{Region: "chr1", ReferenceSequenceID: 0, Start: 0, End: 1 << 29, Chunks: []ChunkResult{{Start: "0/0", End: "10/0"}}},
		{Region: "chr2:1-4", ReferenceSequenceID: 1, Start: 0, End: 4, Chunks: []ChunkResult{{Start: "10/0", End: "10/50"}}},
		{Region: "chr1:300,000-400,000", ReferenceSequenceID: 0, Start: 299999, End: 400000, Chunks: []ChunkResult{}},
	}, results, nil)

	text = run(t, "query", "-p", "1", index, "chr1:101-250")
	lines := strings.Split(strings.TrimSpace(text), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, []string{"chr1:101-250", "0/0", "0/200"}, strings.Fields(lines[1]))
}

func TestBuildInterleavesListings(t *testing.T) {
	dir := t.TempDir()
	single := filepath.Join(dir, "all.tsv")
	writeFile(t, single, listing)

	// Split the listing across a plain and a gzipped file; the interleaved build must match.
	lines := strings.SplitAfter(listing, "\n")
	first := filepath.Join(dir, "chr1.tsv")
	writeFile(t, first, strings.Join(lines[:4], ""))
	rest := filepath.Join(dir, "rest.tsv.gz")
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write([]byte(strings.Join(lines[4:], "")))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	writeFile(t, rest, buf.String())

	ctx := pctx.TestContext(t)
	o := buildOptions{minShift: 14, depth: 5, names: []string{"chr1", "chr2"}}
	want, wantDigest, err := buildIndexFile(ctx, filepath.Join(dir, "all.csi"), []string{single}, o)
	require.NoError(t, err)
	got, gotDigest, err := buildIndexFile(ctx, filepath.Join(dir, "split.csi.zst"), []string{rest, first}, o)
	require.NoError(t, err)
	require.NoDiff(t, want, got, nil)
	require.Equal(t, wantDigest, gotDigest)

	yaml := run(t, "inspect", "--raw", "-o", "yaml", filepath.Join(dir, "split.csi.zst"))
	require.True(t, strings.Contains(yaml, "tabixFormat: generic+ucsc"), yaml)
}

func TestBuildRejectsUnsortedListing(t *testing.T) {
	dir := t.TempDir()
	records := filepath.Join(dir, "records.tsv")
	writeFile(t, records, "0 500 600 0 10\n0 100 200 10 20\n")
	out := filepath.Join(dir, "data.csi")
	_, _, err := buildIndexFile(pctx.TestContext(t), out, []string{records}, buildOptions{minShift: 14, depth: 5})
	require.ErrorIs(t, err, csi.ErrUnsorted)
	_, err = os.Stat(out)
	require.True(t, os.IsNotExist(err), "no index should be written: %v", err)
}
