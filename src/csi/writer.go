package csi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"

	"go.uber.org/zap"

	"github.com/pachyderm/csi/src/bgzf"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/log"
)

// Writer encodes indexes as uncompressed CSI.  Bins are written in stored order, followed by the
// metadata pseudo-bin if the reference sequence has Metadata, so encoding the same Index always
// produces the same bytes.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer that writes to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes idx, blocking on the underlying writer as needed.
func (w *Writer) Write(idx *Index) error {
	bw := bufio.NewWriter(w.w)
	if err := encode(&writerSink{w: bw}, idx); err != nil {
		return err
	}
	return errors.EnsureStack(bw.Flush())
}

// WriteContext encodes idx, checking ctx between fields.  A canceled or expired context stops
// the write at the next field boundary; what was already written is left in place.
// If w supports write deadlines, ctx's deadline applies to it until WriteContext returns.
func (w *Writer) WriteContext(ctx context.Context, idx *Index) (retErr error) {
	ctx, end := log.SpanContext(ctx, "csiWrite", zap.Int("referenceSequences", len(idx.ReferenceSequences)))
	defer end(log.Errorp(&retErr))
	sink, err := newContextSink(ctx, w.w)
	if err != nil {
		return err
	}
	defer errors.Close(&retErr, sink, "clear write deadline")
	bw := bufio.NewWriter(sink.w)
	sink.w = bw
	if err := encode(sink, idx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "flush")
	}
	return errors.EnsureStack(bw.Flush())
}

// Marshal encodes idx as an uncompressed CSI buffer.
func Marshal(idx *Index) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewWriter(&buf).Write(idx); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type encoder struct {
	sink    fieldSink
	scratch [8]byte
}

func encode(sink fieldSink, idx *Index) error {
	if err := checkEncodable(idx); err != nil {
		return err
	}
	e := &encoder{sink: sink}
	return e.index(idx)
}

// checkEncodable rejects indexes that would not decode to the same value.  It runs before
// anything is written.
func checkEncodable(idx *Index) error {
	if err := idx.Validate(); err != nil {
		return err
	}
	if err := checkCount("l_aux", len(idx.Aux)); err != nil {
		return err
	}
	if err := checkCount("n_ref", len(idx.ReferenceSequences)); err != nil {
		return err
	}
	metadataID := MetadataBinID(int(idx.Depth))
	for i, rs := range idx.ReferenceSequences {
		nBin := len(rs.Bins)
		if rs.Metadata != nil {
			nBin++
		}
		if err := checkCount("n_bin", nBin); err != nil {
			return errors.Wrapf(err, "reference sequence %d", i)
		}
		for _, bin := range rs.Bins {
			if bin.ID == metadataID {
				return errors.Errorf("reference sequence %d: bin %d is reserved for metadata", i, bin.ID)
			}
			if err := checkCount("n_chunk", len(bin.Chunks)); err != nil {
				return errors.Wrapf(err, "reference sequence %d bin %d", i, bin.ID)
			}
		}
	}
	return nil
}

func checkCount(field string, n int) error {
	if n > math.MaxInt32 {
		return errors.Errorf("%s %d does not fit in an int32", field, n)
	}
	return nil
}

func (e *encoder) int32(field string, v int32) error {
	buf := e.scratch[:4]
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return e.sink.writeField(field, buf)
}

func (e *encoder) uint32(field string, v uint32) error {
	buf := e.scratch[:4]
	binary.LittleEndian.PutUint32(buf, v)
	return e.sink.writeField(field, buf)
}

func (e *encoder) uint64(field string, v uint64) error {
	buf := e.scratch[:8]
	binary.LittleEndian.PutUint64(buf, v)
	return e.sink.writeField(field, buf)
}

func (e *encoder) index(idx *Index) error {
	if err := e.sink.writeField("magic", Magic[:]); err != nil {
		return err
	}
	if err := e.int32("min_shift", idx.MinShift); err != nil {
		return err
	}
	if err := e.int32("depth", idx.Depth); err != nil {
		return err
	}
	if err := e.int32("l_aux", int32(len(idx.Aux))); err != nil {
		return err
	}
	if len(idx.Aux) > 0 {
		if err := e.sink.writeField("aux", idx.Aux); err != nil {
			return err
		}
	}
	if err := e.int32("n_ref", int32(len(idx.ReferenceSequences))); err != nil {
		return err
	}
	metadataID := MetadataBinID(int(idx.Depth))
	for i := range idx.ReferenceSequences {
		if err := e.referenceSequence(&idx.ReferenceSequences[i], metadataID); err != nil {
			return errors.Wrapf(err, "reference sequence %d", i)
		}
	}
	if idx.UnplacedUnmappedRecordCount != nil {
		return e.uint64("n_no_coor", *idx.UnplacedUnmappedRecordCount)
	}
	return nil
}

func (e *encoder) referenceSequence(rs *ReferenceSequence, metadataID uint32) error {
	nBin := len(rs.Bins)
	if rs.Metadata != nil {
		nBin++
	}
	if err := e.int32("n_bin", int32(nBin)); err != nil {
		return err
	}
	for i := range rs.Bins {
		if err := e.bin(&rs.Bins[i]); err != nil {
			return err
		}
	}
	if m := rs.Metadata; m != nil {
		return e.bin(&Bin{
			ID: metadataID,
			Chunks: []Chunk{
				{Start: m.StartPosition, End: m.EndPosition},
				{Start: bgzf.FromUint64(m.MappedRecordCount), End: bgzf.FromUint64(m.UnmappedRecordCount)},
			},
		})
	}
	return nil
}

func (e *encoder) bin(bin *Bin) error {
	if err := e.uint32("bin", bin.ID); err != nil {
		return err
	}
	if err := e.uint64("loffset", bin.LOffset.Uint64()); err != nil {
		return err
	}
	if err := e.int32("n_chunk", int32(len(bin.Chunks))); err != nil {
		return err
	}
	for _, c := range bin.Chunks {
		if err := e.uint64("chunk_beg", c.Start.Uint64()); err != nil {
			return err
		}
		if err := e.uint64("chunk_end", c.End.Uint64()); err != nil {
			return err
		}
	}
	return nil
}

// EncodedSize returns the number of bytes Write produces for idx.
func (idx *Index) EncodedSize() int64 {
	n := int64(len(Magic)) + 4 + 4 + 4 + int64(len(idx.Aux)) + 4
	for _, rs := range idx.ReferenceSequences {
		n += refHeaderSize
		for _, bin := range rs.Bins {
			n += binHeaderSize + chunkSize*int64(len(bin.Chunks))
		}
		if rs.Metadata != nil {
			n += binHeaderSize + 2*chunkSize
		}
	}
	if idx.UnplacedUnmappedRecordCount != nil {
		n += 8
	}
	return n
}
