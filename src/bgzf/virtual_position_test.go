package bgzf

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pachyderm/csi/src/internal/require"
)

func TestRoundTrip(t *testing.T) {
	random := rand.New(rand.NewSource(0))
	values := []uint64{0, 1, uncompressedMask, uncompressedMask + 1, math.MaxUint64}
	for i := 0; i < 1000; i++ {
		values = append(values, random.Uint64())
	}
	for _, v := range values {
		require.Equal(t, v, FromUint64(v).Uint64())
		vp := FromUint64(v)
		require.Equal(t, vp, NewVirtualPosition(vp.Compressed(), vp.Uncompressed()))
	}
}

func TestFields(t *testing.T) {
	// Known positions from a real BGZF file.
	for _, test := range []struct {
		v            uint64
		compressed   uint64
		uncompressed uint16
	}{
		{88384945211, 1348647, 15419},
		{188049630896, 2869409, 42672},
		{26155658182977, 399103671, 321},
	} {
		vp := FromUint64(test.v)
		require.Equal(t, test.compressed, vp.Compressed())
		require.Equal(t, test.uncompressed, vp.Uncompressed())
	}
}

func TestOrder(t *testing.T) {
	a := NewVirtualPosition(1, math.MaxUint16)
	b := NewVirtualPosition(2, 0)
	c := NewVirtualPosition(2, 1)
	require.True(t, a < b)
	require.True(t, b < c)
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, c.Compare(b))
	require.Equal(t, 0, b.Compare(NewVirtualPosition(2, 0)))
	require.Equal(t, "2/1", c.String())
}

func TestCompressedOverflow(t *testing.T) {
	vp := NewVirtualPosition(MaxCompressedAddress, 7)
	require.Equal(t, uint64(MaxCompressedAddress), vp.Compressed())
	require.Equal(t, uint16(7), vp.Uncompressed())
	require.Equal(t, uint64(math.MaxUint64), NewVirtualPosition(MaxCompressedAddress, math.MaxUint16).Uint64())
}
