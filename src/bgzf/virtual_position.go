// Package bgzf defines the position type of a blocked gzip (BGZF) stream.
//
// A BGZF file is a series of gzip members, each holding at most 64 KiB of uncompressed data.  A
// virtual position addresses one byte of uncompressed data by packing the file offset of the
// member that holds it (the compressed address) with the byte's offset inside that member's
// uncompressed data.  Virtual positions sort in the same order as the data they address.
//
// The codec itself lives elsewhere; this package only owns the arithmetic.
package bgzf

import "fmt"

const (
	uncompressedBits = 16
	uncompressedMask = 1<<uncompressedBits - 1

	// MaxCompressedAddress is the largest compressed address a virtual position can hold.
	MaxCompressedAddress = 1<<(64-uncompressedBits) - 1
)

// VirtualPosition is a packed (compressed address, uncompressed offset) pair.  Every uint64 is a
// valid VirtualPosition; whether it addresses real data is up to the stream.
type VirtualPosition uint64

// NewVirtualPosition packs a compressed address and an uncompressed offset.  Bits of
// compressed above MaxCompressedAddress are discarded.
func NewVirtualPosition(compressed uint64, uncompressed uint16) VirtualPosition {
	return VirtualPosition(compressed<<uncompressedBits | uint64(uncompressed))
}

// FromUint64 decodes a stored virtual position.
func FromUint64(v uint64) VirtualPosition {
	return VirtualPosition(v)
}

// Uint64 encodes the position for storage.  It is the inverse of FromUint64.
func (vp VirtualPosition) Uint64() uint64 {
	return uint64(vp)
}

// Compressed returns the file offset of the BGZF block holding the position.
func (vp VirtualPosition) Compressed() uint64 {
	return uint64(vp) >> uncompressedBits
}

// Uncompressed returns the offset of the position within the block's uncompressed data.
func (vp VirtualPosition) Uncompressed() uint16 {
	return uint16(uint64(vp) & uncompressedMask)
}

// Compare returns -1, 0, or 1 as vp is before, at, or after other in the stream.
func (vp VirtualPosition) Compare(other VirtualPosition) int {
	switch {
	case vp < other:
		return -1
	case vp > other:
		return 1
	default:
		return 0
	}
}

// String renders the position as "compressed/uncompressed".
func (vp VirtualPosition) String() string {
	return fmt.Sprintf("%d/%d", vp.Compressed(), vp.Uncompressed())
}
