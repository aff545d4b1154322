// Package stream provides pull-based iterators over sequences of values.
package stream

import (
	"context"
	"io"

	"github.com/pachyderm/csi/src/internal/errors"
)

// Iterator is a stream of values.  Next copies the next value into dst, or returns EOS when the
// stream is exhausted.
type Iterator[T any] interface {
	Next(ctx context.Context, dst *T) error
}

// Peekable is an Iterator that can look at its next value without consuming it.
type Peekable[T any] interface {
	Iterator[T]
	Peek(ctx context.Context, dst *T) error
}

// EOS returns a new end-of-stream error.  Check for it with IsEOS.
func EOS() error {
	return errors.WithStack(io.EOF)
}

// IsEOS reports whether err marks the end of a stream.
func IsEOS(err error) bool {
	return errors.Is(err, io.EOF)
}

// Slice is a Peekable over a slice.
type Slice[T any] struct {
	xs  []T
	pos int
}

// NewSlice returns a Peekable over xs.  The slice is not copied.
func NewSlice[T any](xs []T) *Slice[T] {
	return &Slice[T]{xs: xs}
}

func (s *Slice[T]) Next(ctx context.Context, dst *T) error {
	if err := s.Peek(ctx, dst); err != nil {
		return err
	}
	s.pos++
	return nil
}

func (s *Slice[T]) Peek(ctx context.Context, dst *T) error {
	if s.pos >= len(s.xs) {
		return EOS()
	}
	*dst = s.xs[s.pos]
	return nil
}

// ForEach calls fn on every value of it.
func ForEach[T any](ctx context.Context, it Iterator[T], fn func(T) error) error {
	var x T
	for {
		if err := it.Next(ctx, &x); err != nil {
			if IsEOS(err) {
				return nil
			}
			return err
		}
		if err := fn(x); err != nil {
			return err
		}
	}
}

// Collect reads at most max values from it.  It is an error for the stream to hold more.  The
// module only collects streams in tests; production code consumes them with ForEach.
func Collect[T any](ctx context.Context, it Iterator[T], max int) ([]T, error) {
	var out []T
	if err := ForEach(ctx, it, func(x T) error {
		if len(out) >= max {
			return errors.Errorf("stream holds more than %d values", max)
		}
		out = append(out, x)
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}
