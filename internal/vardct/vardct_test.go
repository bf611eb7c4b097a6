package vardct

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBlockSizeBlocks(t *testing.T) {
	w, h := BlockSizeBlocks(Dct32)
	require.Equal(t, 4, w)
	require.Equal(t, 4, h)
	require.Equal(t, 64*16, NumCoeffs(Dct32))
}

func TestShapeFamily(t *testing.T) {
	require.Equal(t, FamilyDCT2, ShapeFamily(Dct2))
	require.Equal(t, FamilyAFV, ShapeFamily(Afv2))
	require.Equal(t, FamilyDCT, ShapeFamily(Dct16))
}

func TestDequantizeLeavesDCAlone(t *testing.T) {
	q := DefaultQuantizer()
	out := make([]float32, 4)
	q.Dequantize(1, []int32{10, 1, 2, 3}, 1, out)
	require.EqualValues(t, 0, out[0]) // position 0 is left for LF integration
	require.NotEqual(t, float32(0), out[1])
}

func TestDequantizeChannelQmScale(t *testing.T) {
	q := DefaultQuantizer()
	out := make([]float32, 2)
	q.Dequantize(0, []int32{0, 4}, 1, out)
	require.InDelta(t, float32(4)*65536.0*qmScale(q.XQmScale), out[1], 1e-2)
}

func TestDequantizeLF(t *testing.T) {
	q := DefaultQuantizer()
	v := q.DequantizeLF(0, 10, 0)
	require.Greater(t, v, float32(0))
}

func TestInverseDCT2DIdentityDCOnly(t *testing.T) {
	coeffs := make([]float32, 64)
	coeffs[0] = 8 // DC only, should produce a flat block after scaling
	InverseDCT2D(coeffs, 8, 8)
	for _, v := range coeffs {
		require.InDelta(t, coeffs[0], v, 1e-3)
	}
}

func TestInverseTransformDCT8(t *testing.T) {
	coeffs := make([]float32, 64)
	coeffs[0] = 8
	InverseTransform(coeffs, Dct8)
	for _, v := range coeffs {
		require.InDelta(t, coeffs[0], v, 1e-3)
	}
}

func TestInverseTransformDCT4FamilyNoNaN(t *testing.T) {
	coeffs := make([]float32, 64)
	coeffs[0] = 4
	InverseTransform(coeffs, Dct4)
	for _, v := range coeffs {
		require.False(t, v != v) // NaN check
	}
}

func TestChromaFromLumaPredictHF(t *testing.T) {
	cfl := ChromaFromLuma{BaseCorrelationX: 0, ColourFactor: 84, XFactorLF: 128 + 84}
	luma := []float32{0, 10, 20}
	chroma := []float32{5, 1, 2}
	cfl.PredictHF(luma, chroma, true, 0, 0)
	require.EqualValues(t, 5, chroma[0]) // DC untouched
	require.EqualValues(t, 11, chroma[1])
}

func TestChromaFromLumaPredictLFNeutral(t *testing.T) {
	cfl := DefaultChromaFromLuma()
	luma := []float32{10, 20}
	x := []float32{1, 2}
	b := []float32{1, 2}
	cfl.PredictLF(luma, x, b)
	// default factor is neutral (128 bias = zero slope), so values are untouched
	require.EqualValues(t, 1, x[0])
	require.EqualValues(t, 2, b[1])
}

func TestNonZeroGridPredict(t *testing.T) {
	g := NewNonZeroGrid(4, 4)
	require.EqualValues(t, 32, g.Predict(0, 0))
	g.Fill(0, 0, 1, 1, 10)
	require.EqualValues(t, 10, g.Predict(1, 0))
	require.EqualValues(t, 10, g.Predict(0, 1))
}

func TestNumContextsScalesWithChannels(t *testing.T) {
	require.Equal(t, NumContexts(1)*3, NumContexts(3))
}

func TestIntegrateLFSingleCell(t *testing.T) {
	coeffs := make([]float32, 64)
	IntegrateLF(coeffs, Dct8, []float32{7}, 1, 1)
	require.EqualValues(t, 7, coeffs[0])
}
