package csi

import (
	"context"

	"go.uber.org/zap"

	"github.com/pachyderm/csi/src/bgzf"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/log"
)

// Index is a coordinate-sorted index.
type Index struct {
	// MinShift is the leaf bin size as a power of two.
	MinShift int32
	// Depth is the number of levels below the root.
	Depth int32
	// Aux is format-specific auxiliary data, e.g. a tabix header.  It is opaque to this package.
	Aux []byte
	// ReferenceSequences are indexed by reference sequence id.
	ReferenceSequences []ReferenceSequence
	// UnplacedUnmappedRecordCount counts records with no reference sequence.  It is nil when the
	// index does not record it.
	UnplacedUnmappedRecordCount *uint64
}

// Region is a half-open, zero-based interval on one reference sequence.
type Region struct {
	ReferenceSequenceID int
	Start, End          int64
}

// Validate checks the index's binning parameters.
func (idx *Index) Validate() error {
	return validateParameters(int(idx.MinShift), int(idx.Depth))
}

// MaxPosition returns the end of the coordinate space the index can address.
func (idx *Index) MaxPosition() int64 {
	return MaxPosition(int(idx.MinShift), int(idx.Depth))
}

// RegionToBin is RegionToBin with the index's parameters.
func (idx *Index) RegionToBin(start, end int64) (uint32, error) {
	return RegionToBin(int(idx.MinShift), int(idx.Depth), start, end)
}

// RegionToBins is RegionToBins with the index's parameters.
func (idx *Index) RegionToBins(start, end int64) ([]uint32, error) {
	return RegionToBins(int(idx.MinShift), int(idx.Depth), start, end)
}

// BinRange is BinRange with the index's parameters.
func (idx *Index) BinRange(id uint32) (int64, int64, error) {
	return BinRange(int(idx.MinShift), int(idx.Depth), id)
}

// Query returns the merged, ascending chunks that may hold records of reference sequence
// referenceSequenceID overlapping [start, end).  An empty result means there are no such
// records; an unknown reference sequence or an unaddressable interval is an error wrapping
// ErrOutOfRange.
func (idx *Index) Query(referenceSequenceID int, start, end int64) ([]Chunk, error) {
	if referenceSequenceID < 0 || referenceSequenceID >= len(idx.ReferenceSequences) {
		return nil, errors.Wrapf(ErrReferenceSequenceNotFound, "reference sequence %d (index has %d)", referenceSequenceID, len(idx.ReferenceSequences))
	}
	minShift, depth := int(idx.MinShift), int(idx.Depth)
	spans, err := candidateSpans(minShift, depth, start, end)
	if err != nil {
		return nil, err
	}
	var chunks []Chunk
	var minOffset bgzf.VirtualPosition
	haveMinOffset := false
	rs := &idx.ReferenceSequences[referenceSequenceID]
	for i := range rs.Bins {
		bin := &rs.Bins[i]
		if !isCandidate(spans, bin.ID) {
			continue
		}
		chunks = append(chunks, bin.Chunks...)
		binStart, _, err := BinRange(minShift, depth, bin.ID)
		if err != nil {
			return nil, err
		}
		if binStart <= start && (!haveMinOffset || bin.LOffset < minOffset) {
			minOffset = bin.LOffset
			haveMinOffset = true
		}
	}
	if haveMinOffset {
		kept := chunks[:0]
		for _, c := range chunks {
			if c.End >= minOffset {
				kept = append(kept, c)
			}
		}
		chunks = kept
	}
	return MergeChunks(chunks), nil
}

func isCandidate(spans []binSpan, id uint32) bool {
	for _, s := range spans {
		if s.contains(id) {
			return true
		}
	}
	return false
}

// QueryRegion is Query for a Region.
func (idx *Index) QueryRegion(r Region) ([]Chunk, error) {
	return idx.Query(r.ReferenceSequenceID, r.Start, r.End)
}

// QueryContext is QueryRegion with a debug span logged to the context's logger.
func (idx *Index) QueryContext(ctx context.Context, r Region) (_ []Chunk, retErr error) {
	end := log.Span(ctx, "csiQuery", zap.Int("referenceSequenceID", r.ReferenceSequenceID), zap.Int64("start", r.Start), zap.Int64("end", r.End))
	chunks, err := idx.QueryRegion(r)
	defer end(log.Errorp(&retErr), zap.Int("chunks", len(chunks)))
	return chunks, err
}
