package cmds

import (
	"encoding/hex"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/pachyderm/csi/src/csi"
	"github.com/pachyderm/csi/src/internal/errors"
	"github.com/pachyderm/csi/src/internal/indexfile"
)

// Summary describes one index file.
type Summary struct {
	Path               string                     `json:"path"`
	Digest             string                     `json:"digest"`
	MinShift           int32                      `json:"minShift"`
	Depth              int32                      `json:"depth"`
	MaxPosition        int64                      `json:"maxPosition"`
	AuxBytes           int                        `json:"auxBytes"`
	TabixFormat        string                     `json:"tabixFormat,omitempty"`
	EncodedBytes       int64                      `json:"encodedBytes"`
	ReferenceSequences []ReferenceSequenceSummary `json:"referenceSequences"`
	// UnplacedUnmappedRecords is absent when the index does not record it.
	UnplacedUnmappedRecords *uint64 `json:"unplacedUnmappedRecords,omitempty"`
}

// ReferenceSequenceSummary describes one reference sequence of an index.
type ReferenceSequenceSummary struct {
	ID              int     `json:"id"`
	Name            string  `json:"name,omitempty"`
	Bins            int     `json:"bins"`
	Chunks          int     `json:"chunks"`
	Start           string  `json:"start,omitempty"`
	End             string  `json:"end,omitempty"`
	MappedRecords   *uint64 `json:"mappedRecords,omitempty"`
	UnmappedRecords *uint64 `json:"unmappedRecords,omitempty"`
}

func summarize(path string, idx *csi.Index, digest indexfile.Digest) *Summary {
	d := digest.Bytes()
	s := &Summary{
		Path:                    path,
		Digest:                  hex.EncodeToString(d[:]),
		MinShift:                idx.MinShift,
		Depth:                   idx.Depth,
		MaxPosition:             idx.MaxPosition(),
		AuxBytes:                len(idx.Aux),
		EncodedBytes:            idx.EncodedSize(),
		ReferenceSequences:      make([]ReferenceSequenceSummary, len(idx.ReferenceSequences)),
		UnplacedUnmappedRecords: idx.UnplacedUnmappedRecordCount,
	}
	var names []string
	if len(idx.Aux) > 0 {
		if h, err := csi.ParseTabixHeader(idx.Aux); err == nil {
			s.TabixFormat = tabixFormatName(h.Format)
			names = h.Names
		}
	}
	for i, rs := range idx.ReferenceSequences {
		rss := ReferenceSequenceSummary{ID: i, Bins: len(rs.Bins)}
		if i < len(names) {
			rss.Name = names[i]
		}
		for _, bin := range rs.Bins {
			rss.Chunks += len(bin.Chunks)
		}
		if m := rs.Metadata; m != nil {
			rss.Start, rss.End = m.StartPosition.String(), m.EndPosition.String()
			mapped, unmapped := m.MappedRecordCount, m.UnmappedRecordCount
			rss.MappedRecords, rss.UnmappedRecords = &mapped, &unmapped
		}
		s.ReferenceSequences[i] = rss
	}
	return s
}

func tabixFormatName(format int32) string {
	var name string
	switch format &^ csi.TabixUCSC {
	case csi.TabixFormatGeneric:
		name = "generic"
	case csi.TabixFormatSAM:
		name = "sam"
	case csi.TabixFormatVCF:
		name = "vcf"
	default:
		name = fmt.Sprintf("unknown(%d)", format&^csi.TabixUCSC)
	}
	if format&csi.TabixUCSC != 0 {
		name += "+ucsc"
	}
	return name
}

func writeSummary(w io.Writer, s *Summary) (retErr error) {
	fmt.Fprintf(w, "path: %s\n", s.Path)
	fmt.Fprintf(w, "digest: %s\n", s.Digest)
	fmt.Fprintf(w, "binning: min_shift %d, depth %d, max position %s\n", s.MinShift, s.Depth, humanize.Comma(s.MaxPosition))
	aux := humanize.Bytes(uint64(s.AuxBytes))
	if s.TabixFormat != "" {
		aux += " (tabix " + s.TabixFormat + ")"
	}
	fmt.Fprintf(w, "aux: %s\n", aux)
	fmt.Fprintf(w, "size: %s uncompressed\n", humanize.Bytes(uint64(s.EncodedBytes)))
	if s.UnplacedUnmappedRecords != nil {
		fmt.Fprintf(w, "unplaced unmapped records: %s\n", humanize.Comma(int64(*s.UnplacedUnmappedRecords)))
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	defer func() {
		if err := tw.Flush(); err != nil {
			errors.JoinInto(&retErr, errors.EnsureStack(err))
		}
	}()
	fmt.Fprintln(tw, "ID\tNAME\tBINS\tCHUNKS\tMAPPED\tUNMAPPED\tSTART\tEND")
	for _, rs := range s.ReferenceSequences {
		mapped, unmapped := "-", "-"
		if rs.MappedRecords != nil {
			mapped = humanize.Comma(int64(*rs.MappedRecords))
			unmapped = humanize.Comma(int64(*rs.UnmappedRecords))
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\t%s\t%s\n", rs.ID, orDash(rs.Name), rs.Bins, rs.Chunks, mapped, unmapped, orDash(rs.Start), orDash(rs.End))
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
