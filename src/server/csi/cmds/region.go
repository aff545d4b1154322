package cmds

import (
	"strconv"
	"strings"

	"github.com/pachyderm/csi/src/csi"
	"github.com/pachyderm/csi/src/internal/errors"
)

// ParseRegion parses a region in the usual genomics syntax: "ref", "ref:start", "ref:start-end"
// or "ref:start-", with one-based, inclusive coordinates that may contain commas.  ref is a
// reference sequence name from names or a numeric id.  The result is zero-based and half-open;
// an open end extends to maxPosition.
func ParseRegion(s string, names []string, maxPosition int64) (csi.Region, error) {
	ref, coords := s, ""
	// A name may itself contain a colon.
	if lookupName(names, s) < 0 {
		if i := strings.LastIndexByte(s, ':'); i >= 0 {
			ref, coords = s[:i], s[i+1:]
		}
	}
	id, err := referenceID(ref, names)
	if err != nil {
		return csi.Region{}, err
	}
	r := csi.Region{ReferenceSequenceID: id, End: maxPosition}
	if coords == "" {
		return r, nil
	}
	startStr, endStr, hasEnd := strings.Cut(coords, "-")
	start, err := parsePosition(startStr)
	if err != nil {
		return csi.Region{}, err
	}
	if start < 1 {
		return csi.Region{}, errors.Errorf("region start %d: positions are one-based", start)
	}
	r.Start = start - 1
	if hasEnd && endStr != "" {
		end, err := parsePosition(endStr)
		if err != nil {
			return csi.Region{}, err
		}
		if end < start {
			return csi.Region{}, errors.Errorf("region end %d is before start %d", end, start)
		}
		r.End = end
	}
	return r, nil
}

func parsePosition(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse position %q", s)
	}
	return n, nil
}

func lookupName(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func referenceID(ref string, names []string) (int, error) {
	if i := lookupName(names, ref); i >= 0 {
		return i, nil
	}
	id, err := strconv.Atoi(ref)
	if err != nil || id < 0 {
		return 0, errors.Wrapf(csi.ErrReferenceSequenceNotFound, "unknown reference sequence %q", ref)
	}
	return id, nil
}

// sequenceNames returns the reference sequence names stored in a tabix aux block, or nil.
func sequenceNames(idx *csi.Index) []string {
	if len(idx.Aux) == 0 {
		return nil
	}
	h, err := csi.ParseTabixHeader(idx.Aux)
	if err != nil {
		return nil
	}
	return h.Names
}
