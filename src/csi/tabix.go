package csi

import (
	"bytes"
	"encoding/binary"

	"github.com/pachyderm/csi/src/internal/errors"
)

// Tabix formats.
const (
	TabixFormatGeneric int32 = 0
	TabixFormatSAM     int32 = 1
	TabixFormatVCF     int32 = 2
	// TabixUCSC is or'd into Format when coordinates are zero-based and half-open.
	TabixUCSC int32 = 0x10000
)

const tabixFixedSize = 7 * 4

// TabixHeader is the aux block tabix stores in a CSI index of a text file.
type TabixHeader struct {
	Format int32
	// SequenceColumn, BeginColumn, and EndColumn are one-based column numbers; EndColumn is 0
	// when the end is derived from the record.
	SequenceColumn int32
	BeginColumn    int32
	EndColumn      int32
	// Meta is the character that starts header lines, e.g. '#'.
	Meta int32
	// Skip is the number of leading lines to skip.
	Skip int32
	// Names are the reference sequence names, in id order.
	Names []string
}

// ParseTabixHeader interprets an aux block as a tabix header.
func ParseTabixHeader(aux []byte) (*TabixHeader, error) {
	if len(aux) < tabixFixedSize {
		return nil, errors.Wrapf(ErrInvalidFormat, "tabix header needs %d bytes, aux has %d", tabixFixedSize, len(aux))
	}
	field := func(i int) int32 {
		return int32(binary.LittleEndian.Uint32(aux[4*i:]))
	}
	h := &TabixHeader{
		Format:         field(0),
		SequenceColumn: field(1),
		BeginColumn:    field(2),
		EndColumn:      field(3),
		Meta:           field(4),
		Skip:           field(5),
	}
	lNm := field(6)
	names := aux[tabixFixedSize:]
	if lNm < 0 || int(lNm) != len(names) {
		return nil, errors.Wrapf(ErrInvalidFormat, "tabix l_nm is %d but %d bytes of names remain", lNm, len(names))
	}
	for len(names) > 0 {
		i := bytes.IndexByte(names, 0)
		if i < 0 {
			return nil, errors.Wrap(ErrInvalidFormat, "tabix sequence name is not NUL-terminated")
		}
		h.Names = append(h.Names, string(names[:i]))
		names = names[i+1:]
	}
	return h, nil
}

// Marshal encodes the header as an aux block.
func (h *TabixHeader) Marshal() ([]byte, error) {
	var names []byte
	for _, n := range h.Names {
		if bytes.IndexByte([]byte(n), 0) >= 0 {
			return nil, errors.Errorf("sequence name %q contains NUL", n)
		}
		names = append(names, n...)
		names = append(names, 0)
	}
	if err := checkCount("l_nm", len(names)); err != nil {
		return nil, err
	}
	buf := make([]byte, tabixFixedSize, tabixFixedSize+len(names))
	for i, v := range []int32{h.Format, h.SequenceColumn, h.BeginColumn, h.EndColumn, h.Meta, h.Skip, int32(len(names))} {
		binary.LittleEndian.PutUint32(buf[4*i:], uint32(v))
	}
	return append(buf, names...), nil
}
