package stream

import (
	"context"
	"testing"

	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/pctx"
	"github.com/pachyderm/csi/src/internal/require"
)

func TestInterleaver(t *testing.T) {
	type kv struct {
		k int
		v string
	}
	its := []Peekable[kv]{
		NewSlice([]kv{{1, "a"}, {3, "a"}}),
		NewSlice([]kv{{1, "b"}, {2, "b"}}),
	}
	m := NewInterleaver(its, func(a, b kv) bool { return a.k < b.k })
	actual, err := Collect[kv](pctx.TestContext(t), m, 100)
	require.NoError(t, err)
	require.Equal(t, []kv{{1, "b"}, {1, "a"}, {2, "b"}, {3, "a"}}, actual)
}

func TestInterleaverSkipsEmpty(t *testing.T) {
	its := []Peekable[string]{
		NewSlice([]string{"c", "d"}),
		NewSlice([]string{}),
		NewSlice([]string{"a"}),
		NewSlice([]string{"b", "c"}),
	}
	m := NewInterleaver(its, func(a, b string) bool { return a < b })
	actual, err := Collect[string](pctx.TestContext(t), m, 100)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "c", "d"}, actual)
}

func TestInterleaverPropagatesErrors(t *testing.T) {
	m := NewInterleaver([]Peekable[int]{NewSlice([]int{1}), failing{}}, func(a, b int) bool { return a < b })
	_, err := Collect[int](pctx.TestContext(t), m, 100)
	require.ErrorIs(t, err, errFailing)
}

var errFailing = errors.New("failing stream")

type failing struct{}

func (failing) Next(context.Context, *int) error { return errFailing }
func (failing) Peek(context.Context, *int) error { return errFailing }
