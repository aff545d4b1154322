package csi

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/pachyderm/csi/src/bgzf"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/log"
	"github.com/pachyderm/csi/src/internal/stream"
)

// Record is what the Indexer needs to know about one record of the data file.
type Record struct {
	// ReferenceSequenceID is the record's reference sequence, or negative for a record with no
	// coordinates.  Coordinate-less records are only counted.
	ReferenceSequenceID int
	// Start and End are the record's half-open, zero-based coordinate interval.
	Start, End int64
	// Chunk is where the record lives in the data file.
	Chunk Chunk
	// Unmapped marks a placed but unmapped record.  It only affects the metadata counts.
	Unmapped bool
}

// Indexer builds an Index from records added in coordinate-sorted order.  It is not safe for
// concurrent use.
type Indexer struct {
	minShift, depth int
	aux             []byte
	minRefs         int

	refs       []ReferenceSequence
	cur        *refBuilder
	curID      int
	lastStart  int64
	lastChunk  Chunk
	unplaced   uint64
	inUnplaced bool
	finished   bool
}

// refBuilder accumulates one reference sequence.
type refBuilder struct {
	bins    map[uint32]*Bin
	lastBin uint32
	// linear is the linear index as runs of leaf windows.  Each run starts at window first and
	// holds the chunk start of the first record overlapping its windows; a window between runs
	// takes the offset of the run before it.  Records arrive sorted by start, so each record
	// adds at most one run, and memory does not grow with the span a record covers.
	linear     []linearRun
	lastWindow int64
	meta       Metadata
}

type linearRun struct {
	first  int64
	offset bgzf.VirtualPosition
}

// NewIndexer returns an Indexer configured by opts.
func NewIndexer(opts ...IndexerOption) (*Indexer, error) {
	ix := &Indexer{
		minShift: DefaultMinShift,
		depth:    DefaultDepth,
		curID:    -1,
	}
	for _, opt := range opts {
		opt(ix)
	}
	if err := validateParameters(ix.minShift, ix.depth); err != nil {
		return nil, err
	}
	if ix.minRefs < 0 {
		return nil, errors.Errorf("reference sequence count must not be negative, got %d", ix.minRefs)
	}
	return ix, nil
}

// Add adds the next record.  Records must be sorted by reference sequence id and then by start,
// with coordinate-less records last; anything else fails with ErrUnsorted.
func (ix *Indexer) Add(rec Record) error {
	if ix.finished {
		return errors.New("indexer is finished")
	}
	if rec.Chunk.End < rec.Chunk.Start {
		return errors.Errorf("record chunk %v-%v ends before it starts", rec.Chunk.Start, rec.Chunk.End)
	}
	if rec.ReferenceSequenceID < 0 {
		ix.finishRef()
		ix.inUnplaced = true
		ix.unplaced++
		return nil
	}
	if ix.inUnplaced {
		return errors.Wrapf(ErrUnsorted, "record on reference sequence %d follows coordinate-less records", rec.ReferenceSequenceID)
	}
	if err := ix.checkOrder(rec); err != nil {
		return err
	}
	bin, err := RegionToBin(ix.minShift, ix.depth, rec.Start, rec.End)
	if err != nil {
		return errors.Wrapf(err, "record at %d:%d-%d", rec.ReferenceSequenceID, rec.Start, rec.End)
	}
	if rec.ReferenceSequenceID != ix.curID {
		ix.finishRef()
		ix.curID = rec.ReferenceSequenceID
		ix.cur = &refBuilder{bins: make(map[uint32]*Bin), lastWindow: -1}
		ix.cur.meta.StartPosition = rec.Chunk.Start
	}
	ix.cur.add(ix.minShift, bin, rec)
	ix.lastStart = rec.Start
	ix.lastChunk = rec.Chunk
	return nil
}

func (ix *Indexer) checkOrder(rec Record) error {
	switch {
	case ix.curID < 0:
		return nil
	case rec.ReferenceSequenceID < ix.curID:
		return errors.Wrapf(ErrUnsorted, "reference sequence %d follows %d", rec.ReferenceSequenceID, ix.curID)
	case rec.ReferenceSequenceID > ix.curID:
	case rec.Start < ix.lastStart:
		return errors.Wrapf(ErrUnsorted, "start %d follows %d on reference sequence %d", rec.Start, ix.lastStart, ix.curID)
	}
	if rec.Chunk.Start < ix.lastChunk.Start {
		return errors.Wrapf(ErrUnsorted, "chunk start %v follows %v", rec.Chunk.Start, ix.lastChunk.Start)
	}
	return nil
}

func (b *refBuilder) add(minShift int, id uint32, rec Record) {
	bin, ok := b.bins[id]
	if !ok {
		bin = &Bin{ID: id}
		b.bins[id] = bin
	}
	if n := len(bin.Chunks); n > 0 && b.lastBin == id && bin.Chunks[n-1].End == rec.Chunk.Start {
		bin.Chunks[n-1].End = rec.Chunk.End
	} else {
		bin.Chunks = append(bin.Chunks, rec.Chunk)
	}
	b.lastBin = id

	end := rec.End
	if end <= rec.Start {
		end = rec.Start + 1
	}
	// Every window from this record's first up to lastWindow is already covered, since an
	// earlier record with a smaller start reached lastWindow.
	first, last := rec.Start>>minShift, (end-1)>>minShift
	if last > b.lastWindow {
		b.linear = append(b.linear, linearRun{first: max(first, b.lastWindow+1), offset: rec.Chunk.Start})
		b.lastWindow = last
	}

	if rec.Chunk.End > b.meta.EndPosition {
		b.meta.EndPosition = rec.Chunk.End
	}
	if rec.Unmapped {
		b.meta.UnmappedRecordCount++
	} else {
		b.meta.MappedRecordCount++
	}
}

// build turns the accumulated state into a ReferenceSequence with bins sorted by id.
func (b *refBuilder) build(minShift, depth int) ReferenceSequence {
	rs := ReferenceSequence{Bins: make([]Bin, 0, len(b.bins))}
	for _, bin := range b.bins {
		// Bins in the map were produced by RegionToBin, so BinRange cannot fail.
		start, _, _ := BinRange(minShift, depth, bin.ID)
		bin.LOffset = b.linearOffset(start >> minShift)
		rs.Bins = append(rs.Bins, *bin)
	}
	sort.Slice(rs.Bins, func(i, j int) bool { return rs.Bins[i].ID < rs.Bins[j].ID })
	meta := b.meta
	rs.Metadata = &meta
	return rs
}

// linearOffset returns the linear index entry of window w.
func (b *refBuilder) linearOffset(w int64) bgzf.VirtualPosition {
	i := sort.Search(len(b.linear), func(i int) bool { return b.linear[i].first > w })
	if i == 0 {
		return 0
	}
	return b.linear[i-1].offset
}

func (ix *Indexer) finishRef() {
	if ix.cur == nil {
		return
	}
	for len(ix.refs) < ix.curID {
		ix.refs = append(ix.refs, ReferenceSequence{})
	}
	ix.refs = append(ix.refs, ix.cur.build(ix.minShift, ix.depth))
	ix.cur = nil
}

// Finish returns the built index.  The Indexer cannot be used afterwards.
func (ix *Indexer) Finish() (*Index, error) {
	if ix.finished {
		return nil, errors.New("indexer is finished")
	}
	ix.finishRef()
	ix.finished = true
	for len(ix.refs) < ix.minRefs {
		ix.refs = append(ix.refs, ReferenceSequence{})
	}
	unplaced := ix.unplaced
	return &Index{
		MinShift:                    int32(ix.minShift),
		Depth:                       int32(ix.depth),
		Aux:                         ix.aux,
		ReferenceSequences:          ix.refs,
		UnplacedUnmappedRecordCount: &unplaced,
	}, nil
}

// BuildIndex builds an index from a coordinate-sorted stream of records.
func BuildIndex(ctx context.Context, records stream.Iterator[Record], opts ...IndexerOption) (_ *Index, retErr error) {
	ctx, end := log.SpanContext(ctx, "csiBuildIndex")
	defer end(log.Errorp(&retErr))
	ix, err := NewIndexer(opts...)
	if err != nil {
		return nil, err
	}
	var n int
	if err := stream.ForEach(ctx, records, func(rec Record) error {
		n++
		return ix.Add(rec)
	}); err != nil {
		return nil, errors.Wrapf(err, "record %d", n)
	}
	idx, err := ix.Finish()
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "built index", zap.Int("records", n), zap.Int("referenceSequences", len(idx.ReferenceSequences)))
	return idx, nil
}
