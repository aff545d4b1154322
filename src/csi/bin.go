package csi

import "github.com/pachyderm/csi/src/bgzf"

// Bin is one node of the binning tree for one reference sequence.
type Bin struct {
	ID uint32
	// LOffset is the smallest virtual position of any record overlapping the start of the bin.
	// The zero value is always safe; it disables pruning for queries that use this bin.
	LOffset bgzf.VirtualPosition
	// Chunks are in stored order, which is not necessarily sorted.
	Chunks []Chunk
}
