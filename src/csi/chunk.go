package csi

import (
	"sort"

	"github.com/pachyderm/csi/src/bgzf"
)

// Chunk is a half-open range [Start, End) of virtual positions in the indexed file.
type Chunk struct {
	Start bgzf.VirtualPosition
	End   bgzf.VirtualPosition
}

// Empty reports whether the chunk covers no data.  Some writers emit empty or inverted chunks;
// they are kept on read and dropped by MergeChunks.
func (c Chunk) Empty() bool {
	return c.Start >= c.End
}

func chunkLess(a, b Chunk) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.End < b.End
}

// MergeChunks returns the chunks sorted by start, with empty chunks dropped and chunks that
// overlap or touch coalesced.  The input is not modified.  Merging a merged list is a no-op.
func MergeChunks(chunks []Chunk) []Chunk {
	sorted := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if !c.Empty() {
			sorted = append(sorted, c)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool { return chunkLess(sorted[i], sorted[j]) })
	merged := sorted[:1]
	for _, c := range sorted[1:] {
		acc := &merged[len(merged)-1]
		if c.Start > acc.End {
			merged = append(merged, c)
			continue
		}
		if c.End > acc.End {
			acc.End = c.End
		}
	}
	return merged
}
