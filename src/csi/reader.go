package csi

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"

	"go.uber.org/zap"

	"github.com/pachyderm/csi/src/bgzf"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/log"
)

// Magic is the first four bytes of every CSI file.
var Magic = [4]byte{'C', 'S', 'I', 1}

const (
	binHeaderSize = 4 + 8 + 4
	chunkSize     = 8 + 8
	refHeaderSize = 4
	// maxPrealloc bounds how many elements are allocated up front for a count read from a
	// source of unknown length.
	maxPrealloc = 1024
	// auxReadSize is the piece size used to read aux data from a source of unknown length.
	auxReadSize = 64 << 10
)

// Reader decodes an index from an uncompressed CSI stream.  CSI files on disk are usually
// BGZF-compressed; decompress them first (see the indexfile package).
type Reader struct {
	r io.Reader
}

// NewReader returns a Reader that reads from r.  If r reports its remaining length with a
// Len() int method (as *bytes.Reader does), impossible counts are detected before anything is
// allocated, and bytes left over after the index are an error.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read decodes one index, blocking on the underlying reader as needed.
func (r *Reader) Read() (*Index, error) {
	return decode(&readerSource{r: r.r})
}

// ReadContext decodes one index, checking ctx between fields.  A canceled or expired context
// stops the read at the next field boundary; the returned error wraps ctx.Err().
// If r supports read deadlines, ctx's deadline applies to it until ReadContext returns.
func (r *Reader) ReadContext(ctx context.Context) (_ *Index, retErr error) {
	ctx, end := log.SpanContext(ctx, "csiRead")
	defer end(log.Errorp(&retErr))
	src, err := newContextSource(ctx, r.r)
	if err != nil {
		return nil, err
	}
	defer errors.Close(&retErr, src, "clear read deadline")
	idx, err := decode(src)
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "decoded index", zap.Int("referenceSequences", len(idx.ReferenceSequences)), zap.Int32("minShift", idx.MinShift), zap.Int32("depth", idx.Depth))
	return idx, nil
}

// Unmarshal decodes an index from an uncompressed CSI buffer.
func Unmarshal(data []byte) (*Index, error) {
	return NewReader(bytes.NewReader(data)).Read()
}

type decoder struct {
	src     fieldSource
	scratch [8]byte
}

func decode(src fieldSource) (*Index, error) {
	d := &decoder{src: src}
	return d.index()
}

func (d *decoder) int32(field string) (int32, error) {
	buf := d.scratch[:4]
	if err := d.src.readField(field, buf); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf)), nil
}

func (d *decoder) uint32(field string) (uint32, error) {
	buf := d.scratch[:4]
	if err := d.src.readField(field, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (d *decoder) uint64(field string) (uint64, error) {
	buf := d.scratch[:8]
	if err := d.src.readField(field, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

func (d *decoder) virtualPosition(field string) (bgzf.VirtualPosition, error) {
	v, err := d.uint64(field)
	return bgzf.FromUint64(v), err
}

// count reads a non-negative element count and checks that the source can hold that many
// elements of at least elemSize bytes each.  It returns the number of elements to preallocate.
func (d *decoder) count(field string, elemSize int64) (int, int, error) {
	n, err := d.int32(field)
	if err != nil {
		return 0, 0, err
	}
	if n < 0 {
		return 0, 0, errors.Wrapf(ErrInvalidFormat, "negative %s %d", field, n)
	}
	prealloc := int(n)
	if rem, ok := d.src.remaining(); ok {
		if int64(n)*elemSize > rem {
			return 0, 0, errors.Wrapf(ErrInvalidFormat, "%s %d needs at least %d bytes, only %d remain", field, n, int64(n)*elemSize, rem)
		}
	} else if prealloc > maxPrealloc {
		prealloc = maxPrealloc
	}
	return int(n), prealloc, nil
}

func (d *decoder) index() (*Index, error) {
	var magic [4]byte
	if err := d.src.readField("magic", magic[:]); err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, errors.Wrapf(ErrInvalidFormat, "bad magic %q", magic[:])
	}
	minShift, err := d.int32("min_shift")
	if err != nil {
		return nil, err
	}
	depth, err := d.int32("depth")
	if err != nil {
		return nil, err
	}
	if err := validateParameters(int(minShift), int(depth)); err != nil {
		return nil, errors.Wrapf(ErrInvalidFormat, "%v", err)
	}
	idx := &Index{MinShift: minShift, Depth: depth}
	if idx.Aux, err = d.aux(); err != nil {
		return nil, err
	}
	nRef, prealloc, err := d.count("n_ref", refHeaderSize)
	if err != nil {
		return nil, err
	}
	if nRef > 0 {
		idx.ReferenceSequences = make([]ReferenceSequence, 0, prealloc)
	}
	metadataID := MetadataBinID(int(depth))
	for i := 0; i < nRef; i++ {
		rs, err := d.referenceSequence(metadataID)
		if err != nil {
			return nil, errors.Wrapf(err, "reference sequence %d", i)
		}
		idx.ReferenceSequences = append(idx.ReferenceSequences, rs)
	}
	var buf [8]byte
	ok, err := d.src.readOptionalField("n_no_coor", buf[:])
	if err != nil {
		return nil, err
	}
	if ok {
		n := binary.LittleEndian.Uint64(buf[:])
		idx.UnplacedUnmappedRecordCount = &n
	}
	if rem, known := d.src.remaining(); known && rem > 0 {
		return nil, errors.Wrapf(ErrInvalidFormat, "%d bytes after n_no_coor", rem)
	}
	return idx, nil
}

func (d *decoder) aux() ([]byte, error) {
	n, err := d.int32("l_aux")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidFormat, "negative l_aux %d", n)
	}
	if n == 0 {
		return nil, nil
	}
	if rem, ok := d.src.remaining(); ok {
		if int64(n) > rem {
			return nil, errors.Wrapf(ErrInvalidFormat, "l_aux %d is larger than the %d bytes that remain", n, rem)
		}
		aux := make([]byte, n)
		return aux, d.src.readField("aux", aux)
	}
	// Read in pieces so that a corrupt length cannot force a huge allocation up front.
	aux := make([]byte, 0, min(int(n), auxReadSize))
	for left := int(n); left > 0; {
		piece := min(left, auxReadSize)
		aux = append(aux, make([]byte, piece)...)
		if err := d.src.readField("aux", aux[len(aux)-piece:]); err != nil {
			return nil, err
		}
		left -= piece
	}
	return aux, nil
}

func (d *decoder) referenceSequence(metadataID uint32) (ReferenceSequence, error) {
	var rs ReferenceSequence
	nBin, prealloc, err := d.count("n_bin", binHeaderSize)
	if err != nil {
		return rs, err
	}
	if nBin > 0 {
		rs.Bins = make([]Bin, 0, prealloc)
	}
	for i := 0; i < nBin; i++ {
		bin, err := d.bin()
		if err != nil {
			return rs, err
		}
		if bin.ID != metadataID {
			rs.Bins = append(rs.Bins, bin)
			continue
		}
		if rs.Metadata != nil {
			return rs, errors.Wrapf(ErrInvalidFormat, "duplicate metadata pseudo-bin %d", metadataID)
		}
		if len(bin.Chunks) != 2 {
			return rs, errors.Wrapf(ErrInvalidFormat, "metadata pseudo-bin has %d chunks, want 2", len(bin.Chunks))
		}
		rs.Metadata = &Metadata{
			StartPosition:       bin.Chunks[0].Start,
			EndPosition:         bin.Chunks[0].End,
			MappedRecordCount:   bin.Chunks[1].Start.Uint64(),
			UnmappedRecordCount: bin.Chunks[1].End.Uint64(),
		}
	}
	if len(rs.Bins) == 0 {
		rs.Bins = nil
	}
	return rs, nil
}

func (d *decoder) bin() (Bin, error) {
	var bin Bin
	var err error
	if bin.ID, err = d.uint32("bin"); err != nil {
		return bin, err
	}
	if bin.LOffset, err = d.virtualPosition("loffset"); err != nil {
		return bin, err
	}
	nChunk, prealloc, err := d.count("n_chunk", chunkSize)
	if err != nil {
		return bin, err
	}
	if nChunk > 0 {
		bin.Chunks = make([]Chunk, 0, prealloc)
	}
	for i := 0; i < nChunk; i++ {
		var c Chunk
		if c.Start, err = d.virtualPosition("chunk_beg"); err != nil {
			return bin, err
		}
		if c.End, err = d.virtualPosition("chunk_end"); err != nil {
			return bin, err
		}
		bin.Chunks = append(bin.Chunks, c)
	}
	return bin, nil
}
