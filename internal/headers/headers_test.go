package headers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jxlcore/jxl/internal/bio"
)

func TestReadColorEncodingAllDefault(t *testing.T) {
	r := bio.NewReader([]byte{0b1})
	ce, err := readColorEncoding(r)
	require.NoError(t, err)
	require.Equal(t, ColorSpaceRGB, ce.ColorSpace)
	require.Equal(t, TransferSRGB, ce.Transfer)
}

func TestAspectRatioWidthSquare(t *testing.T) {
	require.EqualValues(t, 100, aspectRatioWidth(100, 1))
}

func TestTocSingleEntryIsAll(t *testing.T) {
	r := bio.NewReader(nil)
	toc, err := ParseToc(r, 1, 0, 1)
	require.NoError(t, err)
	require.Len(t, toc.Entries, 1)
	require.Equal(t, TocAll, toc.Entries[0].Kind)
}

func TestTocIdentityPermutationRoundTrips(t *testing.T) {
	// permute=0, no permutation bit consumed beyond the flag; then the
	// zero-pad, then 4 entries worth of direct-coded sizes (selector 00
	// plus 10 zero bits each, 48 bits), then zero-pad again.
	r := bio.NewReader([]byte{0b0000_0000, 0, 0, 0, 0, 0, 0})
	toc, err := ParseToc(r, 2, 0, 1)
	// With numGroups=2, numLfGroups=0, numPasses=1: total = 1+0+1+2 = 4.
	require.NoError(t, err)
	for orig, bs := range toc.OriginalToBitstream {
		require.Equal(t, orig, toc.BitstreamToOriginal[bs])
	}
}

func TestFrameHeaderAllDefault(t *testing.T) {
	r := bio.NewReader([]byte{0b1})
	h, err := ParseFrameHeader(r, 0)
	require.NoError(t, err)
	require.True(t, h.IsLast)
	require.EqualValues(t, 1, h.Upsampling)
	require.EqualValues(t, 1, h.NumPasses)
}
