package stream

import (
	"container/heap"
	"context"
)

var _ Iterator[struct{}] = &Interleaver[struct{}]{}

type mergeEntry[T any] struct {
	it       Peekable[T]
	priority int // lower is more important

	peek T
}

type mergeHeap[T any] struct {
	entries []*mergeEntry[T]
	lt      func(a, b T) bool
}

func (h *mergeHeap[T]) Len() int { return len(h.entries) }

func (h *mergeHeap[T]) Less(i, j int) bool {
	a, b := h.entries[i], h.entries[j]
	if h.lt(a.peek, b.peek) {
		return true
	} else if h.lt(b.peek, a.peek) {
		return false
	}
	return a.priority < b.priority
}

func (h *mergeHeap[T]) Swap(i, j int) { h.entries[i], h.entries[j] = h.entries[j], h.entries[i] }

func (h *mergeHeap[T]) Push(x any) { h.entries = append(h.entries, x.(*mergeEntry[T])) }

func (h *mergeHeap[T]) Pop() any {
	last := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return last
}

// Interleaver is an Iterator over the union of several sorted iterators.
type Interleaver[T any] struct {
	its  []Peekable[T]
	heap *mergeHeap[T]

	isSetup bool
}

// NewInterleaver creates an iterator which merges the entries from its into a single iterator in
// ascending order.  Entries that compare equal are all kept, highest layer (last iterator) first.
func NewInterleaver[T any](its []Peekable[T], lt func(a, b T) bool) *Interleaver[T] {
	return &Interleaver[T]{
		its:  its,
		heap: &mergeHeap[T]{lt: lt},
	}
}

func (m *Interleaver[T]) Next(ctx context.Context, dst *T) error {
	if !m.isSetup {
		for i := range m.its {
			me := &mergeEntry[T]{
				it:       m.its[i],
				priority: len(m.its) - i,
			}
			if err := m.its[i].Peek(ctx, &me.peek); err != nil {
				if IsEOS(err) {
					continue
				}
				return err
			}
			heap.Push(m.heap, me)
		}
		m.isSetup = true
	}

	if m.heap.Len() == 0 {
		return EOS()
	}
	me := heap.Pop(m.heap).(*mergeEntry[T])
	if err := me.it.Next(ctx, dst); err != nil {
		return err // any error is an error, since we already peeked.
	}
	// put the stream back, keyed by its new head.
	if err := me.it.Peek(ctx, &me.peek); err != nil && !IsEOS(err) {
		return err
	} else if err == nil {
		heap.Push(m.heap, me)
	}
	return nil
}
