package cmds

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/pachyderm/csi/src/bgzf"
	"github.com/pachyderm/csi/src/csi"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/stream"
)

// recordReader reads records from a whitespace-separated text listing, one per line:
//
//	ref  start  end  chunk_beg  chunk_end  [unmapped]
//
// ref is a name, a numeric id, or "*" for a record without coordinates.  start and end are
// zero-based and half-open.  Virtual positions are either raw 64-bit values or
// "compressed/uncompressed".  Blank lines and lines starting with '#' are skipped.
type recordReader struct {
	name  string
	sc    *bufio.Scanner
	names map[string]int
	line  int

	peeked *csi.Record
}

var _ stream.Peekable[csi.Record] = &recordReader{}

func newRecordReader(name string, r io.Reader, names []string) *recordReader {
	m := make(map[string]int, len(names))
	for i, n := range names {
		m[n] = i
	}
	return &recordReader{name: name, sc: bufio.NewScanner(r), names: m}
}

func (r *recordReader) Peek(ctx context.Context, dst *csi.Record) error {
	if r.peeked == nil {
		if err := ctx.Err(); err != nil {
			return errors.EnsureStack(err)
		}
		rec, err := r.read()
		if err != nil {
			return err
		}
		r.peeked = &rec
	}
	*dst = *r.peeked
	return nil
}

func (r *recordReader) Next(ctx context.Context, dst *csi.Record) error {
	if err := r.Peek(ctx, dst); err != nil {
		return err
	}
	r.peeked = nil
	return nil
}

func (r *recordReader) read() (csi.Record, error) {
	for r.sc.Scan() {
		r.line++
		line := strings.TrimSpace(r.sc.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		rec, err := parseRecord(line, r.names)
		if err != nil {
			return csi.Record{}, errors.Wrapf(err, "%s:%d", r.name, r.line)
		}
		return rec, nil
	}
	if err := r.sc.Err(); err != nil {
		return csi.Record{}, errors.Wrapf(err, "read %s", r.name)
	}
	return csi.Record{}, stream.EOS()
}

func parseRecord(line string, names map[string]int) (csi.Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 && len(fields) != 6 {
		return csi.Record{}, errors.Errorf("expected 5 or 6 fields, got %d", len(fields))
	}
	var rec csi.Record
	switch ref := fields[0]; {
	case ref == "*":
		rec.ReferenceSequenceID = -1
	default:
		if id, ok := names[ref]; ok {
			rec.ReferenceSequenceID = id
			break
		}
		id, err := strconv.Atoi(ref)
		if err != nil {
			return csi.Record{}, errors.Errorf("unknown reference sequence %q", ref)
		}
		rec.ReferenceSequenceID = id
	}
	var err error
	if rec.Start, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
		return csi.Record{}, errors.Wrap(err, "parse start")
	}
	if rec.End, err = strconv.ParseInt(fields[2], 10, 64); err != nil {
		return csi.Record{}, errors.Wrap(err, "parse end")
	}
	if rec.Chunk.Start, err = parseVirtualPosition(fields[3]); err != nil {
		return csi.Record{}, errors.Wrap(err, "parse chunk_beg")
	}
	if rec.Chunk.End, err = parseVirtualPosition(fields[4]); err != nil {
		return csi.Record{}, errors.Wrap(err, "parse chunk_end")
	}
	if len(fields) == 6 {
		if rec.Unmapped, err = strconv.ParseBool(fields[5]); err != nil {
			return csi.Record{}, errors.Wrap(err, "parse unmapped")
		}
	}
	return rec, nil
}

func parseVirtualPosition(s string) (bgzf.VirtualPosition, error) {
	compressed, uncompressed, ok := strings.Cut(s, "/")
	if !ok {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, errors.EnsureStack(err)
		}
		return bgzf.FromUint64(v), nil
	}
	c, err := strconv.ParseUint(compressed, 10, 64)
	if err != nil {
		return 0, errors.EnsureStack(err)
	}
	if c > bgzf.MaxCompressedAddress {
		return 0, errors.Errorf("compressed address %d does not fit in 48 bits", c)
	}
	u, err := strconv.ParseUint(uncompressed, 10, 16)
	if err != nil {
		return 0, errors.EnsureStack(err)
	}
	return bgzf.NewVirtualPosition(c, uint16(u)), nil
}

// recordLess orders records the way an Indexer expects them: by reference sequence, then start,
// then chunk start, with coordinate-less records last.
func recordLess(a, b csi.Record) bool {
	ar, br := a.ReferenceSequenceID < 0, b.ReferenceSequenceID < 0
	switch {
	case ar != br:
		return br
	case ar:
		return a.Chunk.Start < b.Chunk.Start
	case a.ReferenceSequenceID != b.ReferenceSequenceID:
		return a.ReferenceSequenceID < b.ReferenceSequenceID
	case a.Start != b.Start:
		return a.Start < b.Start
	}
	return a.Chunk.Start < b.Chunk.Start
}
