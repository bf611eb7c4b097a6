package entropy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jxlcore/jxl/internal/bio"
)

func TestUnpackSigned(t *testing.T) {
	cases := map[uint32]int32{0: 0, 1: -1, 2: 1, 3: -2, 4: 2}
	for in, want := range cases {
		require.Equal(t, want, UnpackSigned(in))
	}
}

func TestDecodeTokenValueBelowSplit(t *testing.T) {
	cfg := IntegerConfig{SplitExponent: 8}
	r := bio.NewReader(nil)
	v, err := decodeTokenValue(r, cfg, 3)
	require.NoError(t, err)
	require.EqualValues(t, 3, v)
}

func TestSingleSymbolPrefixTree(t *testing.T) {
	d, err := buildPrefixTree([]uint8{0, 1, 0})
	require.NoError(t, err)
	r := bio.NewReader([]byte{0x00})
	sym, err := readPrefixSymbol(r, &d)
	require.NoError(t, err)
	require.EqualValues(t, 1, sym)
}

func TestClusterMapSimple(t *testing.T) {
	// isSimple=1, nbits=01 (1 bit), then 3 one-bit cluster indices: 0,1,0
	r := bio.NewReader([]byte{0b0_1_0_0_1_1})
	cm, n, err := readClusterMap(r, 3)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, cm, 3)
}

func TestRemapDistanceZeroMultiplier(t *testing.T) {
	require.EqualValues(t, 5, remapDistance(4, 0))
}

func TestSpecialDistancesTableSize(t *testing.T) {
	require.Len(t, specialDistances, 120)
}

func FuzzNewDecoderNeverPanics(f *testing.F) {
	f.Add([]byte{0, 1, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF})
	f.Fuzz(func(t *testing.T, data []byte) {
		r := bio.NewReader(data)
		_, _ = NewDecoder(r, 4)
	})
}
