package csi

import (
	"testing"

	"github.com/pachyderm/csi/src/bgzf"
	"github.com/pachyderm/csi/src/internal/require"
)

func chunk(start, end uint64) Chunk {
	return Chunk{Start: bgzf.FromUint64(start), End: bgzf.FromUint64(end)}
}

func TestMergeChunks(t *testing.T) {
	for _, test := range []struct {
		name string
		in   []Chunk
		want []Chunk
	}{
		{
			name: "overlap",
			in:   []Chunk{chunk(0, 100), chunk(50, 150), chunk(200, 300)},
			want: []Chunk{chunk(0, 150), chunk(200, 300)},
		},
		{
			name: "unsorted and touching",
			in:   []Chunk{chunk(200, 300), chunk(100, 200), chunk(0, 10)},
			want: []Chunk{chunk(0, 10), chunk(100, 300)},
		},
		{
			name: "contained",
			in:   []Chunk{chunk(0, 1000), chunk(10, 20)},
			want: []Chunk{chunk(0, 1000)},
		},
		{
			name: "empty chunks dropped",
			in:   []Chunk{chunk(5, 5), chunk(9, 3), chunk(1, 2)},
			want: []Chunk{chunk(1, 2)},
		},
		{
			name: "nothing",
			in:   nil,
			want: nil,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := MergeChunks(test.in)
			require.Equal(t, test.want, got)
			require.Equal(t, got, MergeChunks(got))
		})
	}
}

func TestMergeChunksDoesNotModifyInput(t *testing.T) {
	in := []Chunk{chunk(50, 150), chunk(0, 100)}
	MergeChunks(in)
	require.Equal(t, []Chunk{chunk(50, 150), chunk(0, 100)}, in)
}
