package csi

import (
	"github.com/pachyderm/csi/src/internal/errors"
)

const (
	// DefaultMinShift is the leaf bin size (as a power of two) used by htslib and samtools.
	DefaultMinShift = 14
	// DefaultDepth is the number of levels below the root used by htslib and samtools.
	DefaultDepth = 5

	// maxDepth keeps every bin id (including the metadata pseudo-bin) inside a uint32.
	maxDepth = 10
	// maxSpanShift keeps every coordinate inside an int64.
	maxSpanShift = 62
)

// validateParameters checks that minShift and depth describe a tree this package can address.
func validateParameters(minShift, depth int) error {
	if minShift <= 0 {
		return errors.Errorf("min_shift must be positive, got %d", minShift)
	}
	if depth < 0 || depth > maxDepth {
		return errors.Errorf("depth must be in [0, %d], got %d", maxDepth, depth)
	}
	if minShift+3*depth > maxSpanShift {
		return errors.Errorf("min_shift + 3*depth must be at most %d, got %d", maxSpanShift, minShift+3*depth)
	}
	return nil
}

// MaxPosition returns the size of the coordinate space covered by the tree: valid coordinates
// are in [0, MaxPosition).
func MaxPosition(minShift, depth int) int64 {
	return int64(1) << (minShift + 3*depth)
}

// levelOffset returns the id of the first bin on a level.  Leaves are level 0 and the root is
// level depth.
func levelOffset(depth, level int) int64 {
	return (int64(1)<<(3*(depth-level)) - 1) / 7
}

// levelShift returns the bin size of a level as a power of two.
func levelShift(minShift, level int) int {
	return minShift + 3*level
}

// MaxBinID returns the largest id of a real bin in a tree of the given depth.
func MaxBinID(depth int) uint32 {
	return uint32(levelOffset(depth, -1) - 1)
}

// MetadataBinID returns the id of the pseudo-bin in which htslib stores per-reference
// metadata.  It is one past the first id after the last real bin.
func MetadataBinID(depth int) uint32 {
	return MaxBinID(depth) + 2
}

// normalizeInterval validates [start, end) and turns an empty or inverted interval into the
// single position start.
func normalizeInterval(minShift, depth int, start, end int64) (int64, int64, error) {
	if err := validateParameters(minShift, depth); err != nil {
		return 0, 0, err
	}
	if end <= start {
		end = start + 1
	}
	maxPos := MaxPosition(minShift, depth)
	if start < 0 || start >= maxPos || end > maxPos {
		return 0, 0, errors.Wrapf(ErrOutOfRange, "interval [%d, %d) is outside of [0, %d)", start, end, maxPos)
	}
	return start, end, nil
}

// RegionToBin returns the id of the smallest bin that fully contains [start, end).
func RegionToBin(minShift, depth int, start, end int64) (uint32, error) {
	start, end, err := normalizeInterval(minShift, depth, start, end)
	if err != nil {
		return 0, err
	}
	last := end - 1
	for level := 0; level < depth; level++ {
		shift := levelShift(minShift, level)
		if start>>shift == last>>shift {
			return uint32(levelOffset(depth, level) + start>>shift), nil
		}
	}
	return 0, nil
}

// binSpan is a contiguous run of bin ids on one level.
type binSpan struct {
	first, last uint32
}

func (s binSpan) contains(id uint32) bool {
	return s.first <= id && id <= s.last
}

// candidateSpans returns, root first, the run of bins on each level that intersects
// [start, end).
func candidateSpans(minShift, depth int, start, end int64) ([]binSpan, error) {
	start, end, err := normalizeInterval(minShift, depth, start, end)
	if err != nil {
		return nil, err
	}
	last := end - 1
	spans := make([]binSpan, 0, depth+1)
	for level := depth; level >= 0; level-- {
		shift := levelShift(minShift, level)
		offset := levelOffset(depth, level)
		spans = append(spans, binSpan{
			first: uint32(offset + start>>shift),
			last:  uint32(offset + last>>shift),
		})
	}
	return spans, nil
}

// RegionToBins returns, in ascending order, the id of every bin on every level whose range
// intersects [start, end).  The result always contains RegionToBin(start, end), its ancestors,
// and every leaf touching the interval.
func RegionToBins(minShift, depth int, start, end int64) ([]uint32, error) {
	spans, err := candidateSpans(minShift, depth, start, end)
	if err != nil {
		return nil, err
	}
	var n int
	for _, s := range spans {
		n += int(s.last-s.first) + 1
	}
	ids := make([]uint32, 0, n)
	for _, s := range spans {
		for id := s.first; ; id++ {
			ids = append(ids, id)
			if id == s.last {
				break
			}
		}
	}
	return ids, nil
}

// BinRange returns the coordinate range [start, end) covered by a bin.
func BinRange(minShift, depth int, id uint32) (int64, int64, error) {
	if err := validateParameters(minShift, depth); err != nil {
		return 0, 0, err
	}
	if id > MaxBinID(depth) {
		return 0, 0, errors.Wrapf(ErrOutOfRange, "bin %d is past the last bin %d", id, MaxBinID(depth))
	}
	level := binLevel(depth, id)
	shift := levelShift(minShift, level)
	i := int64(id) - levelOffset(depth, level)
	return i << shift, (i + 1) << shift, nil
}

// binLevel returns the level of a real bin.
func binLevel(depth int, id uint32) int {
	for level := depth; level > 0; level-- {
		if int64(id) < levelOffset(depth, level-1) {
			return level
		}
	}
	return 0
}
