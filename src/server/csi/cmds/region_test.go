package cmds

import (
	"testing"

	"github.com/pachyderm/csi/src/csi"
	"github.com/pachyderm/csi/src/internal/require"
)

func TestParseRegion(t *testing.T) {
	const maxPos = 1 << 29
	names := []string{"chr1", "chr2", "HLA-A*01:01"}
	for _, test := range []struct {
		in   string
		want csi.Region
	}{
		{"chr1", csi.Region{ReferenceSequenceID: 0, Start: 0, End: maxPos}},
		{"chr2:1-100", csi.Region{ReferenceSequenceID: 1, Start: 0, End: 100}},
		{"chr2:1,001-2,000", csi.Region{ReferenceSequenceID: 1, Start: 1000, End: 2000}},
		{"chr1:500", csi.Region{ReferenceSequenceID: 0, Start: 499, End: maxPos}},
		{"chr1:500-", csi.Region{ReferenceSequenceID: 0, Start: 499, End: maxPos}},
		{"chr1:7-7", csi.Region{ReferenceSequenceID: 0, Start: 6, End: 7}},
		{"HLA-A*01:01", csi.Region{ReferenceSequenceID: 2, Start: 0, End: maxPos}},
		{"HLA-A*01:01:10-20", csi.Region{ReferenceSequenceID: 2, Start: 9, End: 20}},
		{"3:1-10", csi.Region{ReferenceSequenceID: 3, Start: 0, End: 10}},
	} {
		t.Run(test.in, func(t *testing.T) {
			got, err := ParseRegion(test.in, names, maxPos)
			require.NoError(t, err)
			require.Equal(t, test.want, got)
		})
	}
}

func TestParseRegionErrors(t *testing.T) {
	for _, in := range []string{
		"chr3:1-10",
		"-1",
		"chr1:0-10",
		"chr1:20-10",
		"chr1:a-10",
		"chr1:1-b",
	} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseRegion(in, []string{"chr1"}, 1<<29)
			require.YesError(t, err)
		})
	}
	_, err := ParseRegion("chr3", []string{"chr1"}, 1<<29)
	require.ErrorIs(t, err, csi.ErrReferenceSequenceNotFound)
}
