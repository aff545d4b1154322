// Package indexfile loads and stores CSI indexes on disk.
//
// CSI files written by htslib are BGZF-compressed, which is a series of gzip members.  Load
// accepts gzip (single or multi-member), zstd, and uncompressed files, detected by their magic
// bytes.  Store writes gzip, or zstd when the path ends in ".zst".  Both return the xxh3-128
// digest of the uncompressed index bytes, which identifies an index independently of how it was
// compressed.
package indexfile

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"github.com/pachyderm/csi/src/csi"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/log"
	"github.com/pachyderm/csi/src/internal/miscutil"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Compression is a container format for index files.
type Compression int

const (
	None Compression = iota
	Gzip
	Zstd
)

func (c Compression) String() string {
	switch c {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	}
	return "unknown"
}

// Digest identifies the uncompressed bytes of an index.
type Digest = xxh3.Uint128

// DefaultMaxSize bounds the uncompressed size of an index Load will read.
const DefaultMaxSize = 1 << 30

type options struct {
	maxSize     int64
	compression *Compression
}

// Option configures Load and Store.
type Option func(o *options)

// WithMaxSize makes Load fail on indexes that are larger than n bytes uncompressed.
func WithMaxSize(n int64) Option {
	return func(o *options) {
		o.maxSize = n
	}
}

// WithCompression makes Store use c regardless of the file name.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = &c
	}
}

func newOptions(opts []Option) *options {
	o := &options{maxSize: DefaultMaxSize}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Detect returns the container format of a file from its first bytes.
func Detect(prefix []byte) Compression {
	switch {
	case bytes.HasPrefix(prefix, gzipMagic):
		return Gzip
	case bytes.HasPrefix(prefix, zstdMagic):
		return Zstd
	}
	return None
}

// Load reads the index at path.
func Load(ctx context.Context, path string, opts ...Option) (_ *csi.Index, _ Digest, retErr error) {
	ctx, end := log.SpanContext(ctx, "indexfileLoad", zap.String("path", path))
	defer end(log.Errorp(&retErr))
	f, err := os.Open(path)
	if err != nil {
		return nil, Digest{}, errors.EnsureStack(err)
	}
	defer errors.Close(&retErr, f, "close %s", path)
	return Read(ctx, f, opts...)
}

// Read reads an index from r, which may be compressed.
func Read(ctx context.Context, r io.Reader, opts ...Option) (_ *csi.Index, _ Digest, retErr error) {
	o := newOptions(opts)
	raw, compression, err := NewDecompressor(r)
	if err != nil {
		return nil, Digest{}, err
	}
	defer errors.Close(&retErr, raw, "close %v stream", compression)
	h := xxh3.New()
	lr := &limitReader{r: raw, left: o.maxSize, limit: o.maxSize}
	tee := io.TeeReader(lr, h)
	idx, err := csi.NewReader(tee).ReadContext(ctx)
	if err != nil {
		return nil, Digest{}, err
	}
	// Drain the rest so that the digest covers the whole file and the container's checksum is
	// verified.
	n, err := io.Copy(io.Discard, tee)
	if err != nil {
		return nil, Digest{}, errors.Wrap(err, "read trailing data")
	}
	if n > 0 {
		log.Debug(ctx, "ignored trailing data after index", zap.Int64("bytes", n))
	}
	digest := h.Sum128()
	log.Debug(ctx, "read index", zap.Stringer("compression", compression), zap.Int64("bytes", o.maxSize-lr.left))
	return idx, digest, nil
}

// NewDecompressor detects the container format of r and returns a reader of its decompressed
// contents.
func NewDecompressor(r io.Reader) (io.ReadCloser, Compression, error) {
	br := bufio.NewReader(r)
	prefix, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, None, errors.EnsureStack(err)
	}
	compression := Detect(prefix)
	switch compression {
	case Gzip:
		gr, err := gzip.NewReader(br)
		if err != nil {
			return nil, compression, errors.Wrap(err, "open gzip stream")
		}
		return gr, compression, nil
	case Zstd:
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, compression, errors.Wrap(err, "open zstd stream")
		}
		return zr.IOReadCloser(), compression, nil
	}
	return io.NopCloser(br), compression, nil
}

type limitReader struct {
	r           io.Reader
	left, limit int64
}

func (l *limitReader) Read(p []byte) (int, error) {
	if l.left <= 0 {
		// Only fail if there really is more data.
		var b [1]byte
		if n, _ := l.r.Read(b[:]); n > 0 {
			return 0, errors.Errorf("index is larger than %d bytes", l.limit)
		}
		return 0, io.EOF
	}
	if int64(len(p)) > l.left {
		p = p[:l.left]
	}
	n, err := l.r.Read(p)
	l.left -= int64(n)
	return n, err
}

// Store writes idx to path.  The file is written under a temporary name and renamed into place,
// so a failed Store never leaves a partial index at path.
func Store(ctx context.Context, path string, idx *csi.Index, opts ...Option) (_ Digest, retErr error) {
	ctx, end := log.SpanContext(ctx, "indexfileStore", zap.String("path", path))
	defer end(log.Errorp(&retErr))
	o := newOptions(opts)
	compression := Gzip
	if strings.HasSuffix(path, ".zst") {
		compression = Zstd
	}
	if o.compression != nil {
		compression = *o.compression
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return Digest{}, errors.EnsureStack(err)
	}
	defer func() {
		if retErr != nil {
			if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
				errors.JoinInto(&retErr, errors.EnsureStack(err))
			}
		}
	}()
	digest, err := Write(ctx, f, idx, compression)
	if err != nil {
		f.Close()
		return Digest{}, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return Digest{}, errors.EnsureStack(err)
	}
	if err := f.Close(); err != nil {
		return Digest{}, errors.EnsureStack(err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		return Digest{}, errors.EnsureStack(err)
	}
	return digest, nil
}

// Write encodes idx to w with the given compression and returns the digest of the uncompressed
// encoding.
func Write(ctx context.Context, w io.Writer, idx *csi.Index, compression Compression) (Digest, error) {
	var cw io.WriteCloser
	switch compression {
	case None:
		cw = nopCloser{w}
	case Gzip:
		cw = gzip.NewWriter(w)
	case Zstd:
		zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return Digest{}, errors.Wrap(err, "zstd.NewWriter")
		}
		cw = zw
	default:
		return Digest{}, errors.Errorf("unknown compression %d", compression)
	}
	h := xxh3.New()
	if err := miscutil.WithPipe(func(pw io.Writer) error {
		return csi.NewWriter(pw).WriteContext(ctx, idx)
	}, func(pr io.Reader) error {
		_, err := io.Copy(io.MultiWriter(h, cw), pr)
		return errors.EnsureStack(err)
	}); err != nil {
		cw.Close()
		return Digest{}, err
	}
	if err := cw.Close(); err != nil {
		return Digest{}, errors.Wrapf(err, "close %v stream", compression)
	}
	return h.Sum128(), nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
