package csi

import "github.com/pachyderm/csi/src/internal/errors"

var (
	// ErrInvalidFormat is returned when encoded index data is malformed: a bad magic number, a
	// negative or impossible count, or a malformed metadata pseudo-bin.
	ErrInvalidFormat = errors.New("invalid csi format")
	// ErrOutOfRange is returned when a query or record coordinate falls outside of the space an
	// index can address, or when a query names a reference sequence the index does not have.
	ErrOutOfRange = errors.New("out of range")
	// ErrReferenceSequenceNotFound is returned when a query names a reference sequence id that
	// is not in the index.  It satisfies errors.Is(err, ErrOutOfRange).
	ErrReferenceSequenceNotFound = errors.Wrap(ErrOutOfRange, "reference sequence not found")
	// ErrUnsorted is returned by Indexer when records arrive out of coordinate order.
	ErrUnsorted = errors.New("records are not coordinate-sorted")
)
