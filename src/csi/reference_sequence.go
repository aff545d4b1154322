package csi

import "github.com/pachyderm/csi/src/bgzf"

// ReferenceSequence is the index of one reference sequence (for example, one chromosome).  Its
// id is its position in Index.ReferenceSequences.
type ReferenceSequence struct {
	Bins []Bin
	// Metadata is nil when the reference sequence has no records or the writer did not record
	// metadata.
	Metadata *Metadata
}

// Metadata is the per-reference summary htslib keeps in a pseudo-bin.
// Only the pseudo-bin's chunks are kept: decoding drops its loffset and its position among
// the bins, and encoding always writes it after the regular bins with a zero loffset.
type Metadata struct {
	// StartPosition and EndPosition bound the records of the reference sequence in the file.
	StartPosition bgzf.VirtualPosition
	EndPosition   bgzf.VirtualPosition
	// MappedRecordCount and UnmappedRecordCount count placed records.  Unmapped records here
	// are unmapped but placed, e.g. the unmapped mate of a mapped read.
	MappedRecordCount   uint64
	UnmappedRecordCount uint64
}

// Bin returns the bin with the given id.
func (rs *ReferenceSequence) Bin(id uint32) (*Bin, bool) {
	for i := range rs.Bins {
		if rs.Bins[i].ID == id {
			return &rs.Bins[i], true
		}
	}
	return nil, false
}
