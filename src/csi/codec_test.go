package csi

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math/rand"
	"testing"
	"testing/iotest"
	"time"

	"github.com/pachyderm/csi/src/bgzf"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/pctx"
	"github.com/pachyderm/csi/src/internal/randutil"
	"github.com/pachyderm/csi/src/internal/require"
)

// header returns the encoding of everything up to and including n_ref.
func header(minShift, depth, nRef int32, aux []byte) []byte {
	buf := append([]byte{}, Magic[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(minShift))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(depth))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(aux)))
	buf = append(buf, aux...)
	return binary.LittleEndian.AppendUint32(buf, uint32(nRef))
}

func appendBin(buf []byte, id uint32, loffset uint64, chunks ...Chunk) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, id)
	buf = binary.LittleEndian.AppendUint64(buf, loffset)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(chunks)))
	for _, c := range chunks {
		buf = binary.LittleEndian.AppendUint64(buf, c.Start.Uint64())
		buf = binary.LittleEndian.AppendUint64(buf, c.End.Uint64())
	}
	return buf
}

func testIndex(t testing.TB) *Index {
	t.Helper()
	aux := randutil.Bytes(rand.New(rand.NewSource(2)), 37)
	return buildSynthetic(t, rand.New(rand.NewSource(3)), 3, 2000, WithAux(aux))
}

func TestUnmarshal(t *testing.T) {
	data := header(14, 5, 1, nil)
	data = binary.LittleEndian.AppendUint32(data, 2)
	data = appendBin(data, 4681, 7, chunk(10, 20))
	data = appendBin(data, 37450, 0, chunk(10, 20), chunk(1, 0))
	data = binary.LittleEndian.AppendUint64(data, 4)

	idx, err := Unmarshal(data)
	require.NoError(t, err)
	n := uint64(4)
	want := &Index{
		MinShift: 14,
		Depth:    5,
		ReferenceSequences: []ReferenceSequence{{
			Bins: []Bin{{ID: 4681, LOffset: bgzf.FromUint64(7), Chunks: []Chunk{chunk(10, 20)}}},
			Metadata: &Metadata{
				StartPosition:     bgzf.FromUint64(10),
				EndPosition:       bgzf.FromUint64(20),
				MappedRecordCount: 1,
			},
		}},
		UnplacedUnmappedRecordCount: &n,
	}
	require.NoDiff(t, want, idx, nil)

	// The writer reproduces the input byte for byte.
	got, err := Marshal(idx)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestRoundTrip(t *testing.T) {
	idx := testIndex(t)
	data, err := Marshal(idx)
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), idx.EncodedSize())
	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.NoDiff(t, idx, got, nil)

	again, err := Marshal(got)
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestRoundTripContext(t *testing.T) {
	ctx := pctx.TestContext(t)
	idx := testIndex(t)
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteContext(ctx, idx))
	// A reader without Len exercises the unknown-length path.
	got, err := NewReader(iotest.HalfReader(&buf)).ReadContext(ctx)
	require.NoError(t, err)
	require.NoDiff(t, idx, got, nil)
}

func TestNoUnplacedCount(t *testing.T) {
	data := header(14, 5, 0, nil)
	idx, err := Unmarshal(data)
	require.NoError(t, err)
	require.Nil(t, idx.UnplacedUnmappedRecordCount)
	require.Equal(t, 0, len(idx.ReferenceSequences))
	got, err := Marshal(idx)
	require.NoError(t, err)
	require.Equal(t, data, got)
}

func TestInvalidFormat(t *testing.T) {
	for _, test := range []struct {
		name string
		data []byte
	}{
		{"bad magic", append([]byte("BAI\x01"), header(14, 5, 0, nil)[4:]...)},
		{"zero min_shift", header(0, 5, 0, nil)},
		{"huge depth", header(14, 20, 0, nil)},
		{"negative n_ref", header(14, 5, -1, nil)},
		{"n_ref past end", header(14, 5, 10, nil)},
		{"n_bin past end", binary.LittleEndian.AppendUint32(header(14, 5, 1, nil), 1000)},
		{"negative n_bin", binary.LittleEndian.AppendUint32(header(14, 5, 1, nil), 0xffffffff)},
		{"l_aux past end", func() []byte {
			data := header(14, 5, 0, nil)
			binary.LittleEndian.PutUint32(data[12:], 1<<30)
			return data
		}()},
		{"n_chunk past end", func() []byte {
			data := binary.LittleEndian.AppendUint32(header(14, 5, 1, nil), 1)
			data = binary.LittleEndian.AppendUint32(data, 4681)
			data = binary.LittleEndian.AppendUint64(data, 0)
			return binary.LittleEndian.AppendUint32(data, 1<<20)
		}()},
		{"metadata with one chunk", func() []byte {
			data := binary.LittleEndian.AppendUint32(header(14, 5, 1, nil), 1)
			return appendBin(data, 37450, 0, chunk(1, 2))
		}()},
		{"duplicate metadata", func() []byte {
			data := binary.LittleEndian.AppendUint32(header(14, 5, 1, nil), 2)
			data = appendBin(data, 37450, 0, chunk(1, 2), chunk(0, 0))
			return appendBin(data, 37450, 0, chunk(1, 2), chunk(0, 0))
		}()},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Unmarshal(test.data)
			require.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestTruncated(t *testing.T) {
	data, err := Marshal(testIndex(t))
	require.NoError(t, err)
	random := rand.New(rand.NewSource(4))
	for i := 0; i < 200; i++ {
		// Cutting inside n_no_coor is the only cut that is not reported as truncation when the
		// length is known, since it is the one optional field.
		n := random.Intn(len(data) - 8)
		_, err := Unmarshal(data[:n])
		require.YesError(t, err, "cut at %d", n)
		require.True(t, isTruncation(err), "cut at %d: %v", n, err)

		_, err = NewReader(iotest.OneByteReader(bytes.NewReader(data[:n]))).Read()
		require.ErrorIs(t, err, io.ErrUnexpectedEOF, "cut at %d", n)
	}
}

func isTruncation(err error) bool {
	return errors.Is(err, ErrInvalidFormat) || errors.Is(err, io.ErrUnexpectedEOF)
}

func TestTruncatedOptionalField(t *testing.T) {
	data, err := Marshal(testIndex(t))
	require.NoError(t, err)
	_, err = Unmarshal(data[:len(data)-3])
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	idx, err := Unmarshal(data[:len(data)-8])
	require.NoError(t, err)
	require.Nil(t, idx.UnplacedUnmappedRecordCount)
}

func TestTrailingBytes(t *testing.T) {
	data := header(14, 5, 0, nil)
	data = binary.LittleEndian.AppendUint64(data, 9)
	for _, extra := range [][]byte{{1}, {1, 2, 3}, make([]byte, 16)} {
		_, err := Unmarshal(append(append([]byte{}, data...), extra...))
		require.ErrorIs(t, err, ErrInvalidFormat, "%d trailing bytes", len(extra))
	}
	idx, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, uint64(9), *idx.UnplacedUnmappedRecordCount)
}

// The metadata pseudo-bin is decoded into Metadata, so its loffset and its place among the bins
// are not kept: it is written back last, with a zero loffset.
func TestMetadataPseudoBinNormalized(t *testing.T) {
	data := binary.LittleEndian.AppendUint32(header(14, 5, 1, nil), 2)
	data = appendBin(data, 37450, 77, chunk(10, 20), chunk(1, 0))
	data = appendBin(data, 4681, 7, chunk(10, 20))
	data = binary.LittleEndian.AppendUint64(data, 0)

	idx, err := Unmarshal(data)
	require.NoError(t, err)
	require.NoDiff(t, &Metadata{
		StartPosition:     bgzf.FromUint64(10),
		EndPosition:       bgzf.FromUint64(20),
		MappedRecordCount: 1,
	}, idx.ReferenceSequences[0].Metadata, nil)

	want := binary.LittleEndian.AppendUint32(header(14, 5, 1, nil), 2)
	want = appendBin(want, 4681, 7, chunk(10, 20))
	want = appendBin(want, 37450, 0, chunk(10, 20), chunk(1, 0))
	want = binary.LittleEndian.AppendUint64(want, 0)
	got, err := Marshal(idx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestTruncatedFieldName(t *testing.T) {
	data := binary.LittleEndian.AppendUint32(header(14, 5, 1, nil), 1000)
	_, err := NewReader(iotest.OneByteReader(bytes.NewReader(data))).Read()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.ErrorContains(t, err, "read bin")
}

// cancelingReader cancels a context once more than after bytes have been read.
type cancelingReader struct {
	r      io.Reader
	after  int
	read   int
	cancel context.CancelFunc
}

func (r *cancelingReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.read += n
	if r.read > r.after {
		r.cancel()
	}
	return n, err
}

func TestReadContextCanceled(t *testing.T) {
	data, err := Marshal(testIndex(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(pctx.TestContext(t))
	cancel()
	_, err = NewReader(bytes.NewReader(data)).ReadContext(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorContains(t, err, "read magic")

	ctx, cancel = context.WithCancel(pctx.TestContext(t))
	defer cancel()
	r := &cancelingReader{r: bytes.NewReader(data), after: len(data) / 2, cancel: cancel}
	_, err = NewReader(r).ReadContext(ctx)
	require.ErrorIs(t, err, context.Canceled)
	// The read stopped at the first field boundary after cancellation.
	require.True(t, r.read <= len(data)/2+8, "read %d of %d bytes", r.read, len(data))
}

// deadlineReader and deadlineWriter record every deadline set on them.
type deadlineReader struct {
	io.Reader
	deadlines []time.Time
}

func (r *deadlineReader) SetReadDeadline(t time.Time) error {
	r.deadlines = append(r.deadlines, t)
	return nil
}

type deadlineWriter struct {
	bytes.Buffer
	deadlines []time.Time
}

func (w *deadlineWriter) SetWriteDeadline(t time.Time) error {
	w.deadlines = append(w.deadlines, t)
	return nil
}

func TestDeadlinePushdown(t *testing.T) {
	idx := testIndex(t)
	deadline := time.Now().Add(time.Hour)
	ctx, cancel := context.WithDeadline(pctx.TestContext(t), deadline)
	defer cancel()

	w := &deadlineWriter{}
	require.NoError(t, NewWriter(w).WriteContext(ctx, idx))
	// The deadline is set for the write, then cleared so a reused connection is not left with it.
	require.Len(t, w.deadlines, 2)
	require.True(t, w.deadlines[0].Equal(deadline))
	require.True(t, w.deadlines[1].IsZero())

	r := &deadlineReader{Reader: bytes.NewReader(w.Bytes())}
	got, err := NewReader(r).ReadContext(ctx)
	require.NoError(t, err)
	require.Len(t, r.deadlines, 2)
	require.True(t, r.deadlines[0].Equal(deadline))
	require.True(t, r.deadlines[1].IsZero())
	require.NoDiff(t, idx, got, nil)
}

func TestDeadlineClearedOnError(t *testing.T) {
	ctx, cancel := context.WithDeadline(pctx.TestContext(t), time.Now().Add(-time.Second))
	defer cancel()
	data, err := Marshal(testIndex(t))
	require.NoError(t, err)
	r := &deadlineReader{Reader: bytes.NewReader(data)}
	_, err = NewReader(r).ReadContext(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, r.deadlines, 2)
	require.True(t, r.deadlines[1].IsZero())
}

func TestWriteContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(pctx.TestContext(t))
	cancel()
	var buf bytes.Buffer
	err := NewWriter(&buf).WriteContext(ctx, testIndex(t))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, buf.Len())
}

func TestWriteRejects(t *testing.T) {
	_, err := Marshal(&Index{MinShift: 0, Depth: 5})
	require.YesError(t, err)

	_, err = Marshal(&Index{
		MinShift:           14,
		Depth:              5,
		ReferenceSequences: []ReferenceSequence{{Bins: []Bin{{ID: MetadataBinID(5)}}}},
	})
	require.ErrorContains(t, err, "reserved for metadata")
}
