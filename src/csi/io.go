package csi

import (
	"context"
	"io"
	"time"

	"github.com/pachyderm/csi/src/internal/errors"
)

// fieldSource is where the decoder gets its bytes.  Each call reads one whole field; a field is
// never left half-read, so a source may stop (block, be canceled) between any two fields.
type fieldSource interface {
	// readField fills buf or fails with an error naming field.
	readField(field string, buf []byte) error
	// readOptionalField is readField, except that a clean end of input before the first byte
	// returns false instead of an error.
	readOptionalField(field string, buf []byte) (bool, error)
	// remaining returns the number of unread bytes, if the source knows it.
	remaining() (int64, bool)
}

// fieldSink is where the encoder puts its bytes, one whole field at a time.
type fieldSink interface {
	writeField(field string, buf []byte) error
}

type lener interface {
	Len() int
}

// readerSource reads fields from a blocking io.Reader.
type readerSource struct {
	r io.Reader
}

func (s *readerSource) readField(field string, buf []byte) error {
	if _, err := io.ReadFull(s.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return errors.Wrapf(err, "read %s", field)
	}
	return nil
}

func (s *readerSource) readOptionalField(field string, buf []byte) (bool, error) {
	if _, err := io.ReadFull(s.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, errors.Wrapf(err, "read %s", field)
	}
	return true, nil
}

func (s *readerSource) remaining() (int64, bool) {
	if l, ok := s.r.(lener); ok {
		return int64(l.Len()), true
	}
	return 0, false
}

// contextSource reads fields from an io.Reader, checking the context before every field.  If the
// reader supports read deadlines, the context's deadline is applied to it as well, so that a
// blocked read returns once the deadline passes.  Close clears that deadline again.
type contextSource struct {
	ctx context.Context
	readerSource
	deadliner readDeadliner
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

func newContextSource(ctx context.Context, r io.Reader) (*contextSource, error) {
	if d, ok := r.(readDeadliner); ok {
		if deadline, ok := ctx.Deadline(); ok {
			if err := d.SetReadDeadline(deadline); err != nil {
				return nil, errors.EnsureStack(err)
			}
			return &contextSource{ctx: ctx, readerSource: readerSource{r: r}, deadliner: d}, nil
		}
	}
	return &contextSource{ctx: ctx, readerSource: readerSource{r: r}}, nil
}

func (s *contextSource) Close() error {
	if s.deadliner == nil {
		return nil
	}
	return errors.EnsureStack(s.deadliner.SetReadDeadline(time.Time{}))
}

func (s *contextSource) readField(field string, buf []byte) error {
	if err := s.ctx.Err(); err != nil {
		return errors.Wrapf(err, "read %s", field)
	}
	return s.readerSource.readField(field, buf)
}

func (s *contextSource) readOptionalField(field string, buf []byte) (bool, error) {
	if err := s.ctx.Err(); err != nil {
		return false, errors.Wrapf(err, "read %s", field)
	}
	return s.readerSource.readOptionalField(field, buf)
}

// writerSink writes fields to a blocking io.Writer.
type writerSink struct {
	w io.Writer
}

func (s *writerSink) writeField(field string, buf []byte) error {
	if _, err := s.w.Write(buf); err != nil {
		return errors.Wrapf(err, "write %s", field)
	}
	return nil
}

// contextSink writes fields to an io.Writer, checking the context before every field.  Like
// contextSource, it pushes the context's deadline down to writers that support one until Close.
type contextSink struct {
	ctx context.Context
	writerSink
	deadliner writeDeadliner
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

func newContextSink(ctx context.Context, w io.Writer) (*contextSink, error) {
	if d, ok := w.(writeDeadliner); ok {
		if deadline, ok := ctx.Deadline(); ok {
			if err := d.SetWriteDeadline(deadline); err != nil {
				return nil, errors.EnsureStack(err)
			}
			return &contextSink{ctx: ctx, writerSink: writerSink{w: w}, deadliner: d}, nil
		}
	}
	return &contextSink{ctx: ctx, writerSink: writerSink{w: w}}, nil
}

func (s *contextSink) Close() error {
	if s.deadliner == nil {
		return nil
	}
	return errors.EnsureStack(s.deadliner.SetWriteDeadline(time.Time{}))
}

func (s *contextSink) writeField(field string, buf []byte) error {
	if err := s.ctx.Err(); err != nil {
		return errors.Wrapf(err, "write %s", field)
	}
	return s.writerSink.writeField(field, buf)
}
