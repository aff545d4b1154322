package csi

// IndexerOption configures an Indexer.
type IndexerOption func(ix *Indexer)

// WithMinShift sets the leaf bin size as a power of two.  The default is DefaultMinShift.
func WithMinShift(minShift int) IndexerOption {
	return func(ix *Indexer) {
		ix.minShift = minShift
	}
}

// WithDepth sets the number of levels below the root.  The default is DefaultDepth.
func WithDepth(depth int) IndexerOption {
	return func(ix *Indexer) {
		ix.depth = depth
	}
}

// WithAux sets the aux block of the built index.
func WithAux(aux []byte) IndexerOption {
	return func(ix *Indexer) {
		ix.aux = nil
		if len(aux) > 0 {
			ix.aux = append([]byte{}, aux...)
		}
	}
}

// WithReferenceSequenceCount makes the built index have at least n reference sequences, so that
// trailing sequences without records still get an (empty) entry.
func WithReferenceSequenceCount(n int) IndexerOption {
	return func(ix *Indexer) {
		ix.minRefs = n
	}
}
