package color

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func identityMatrix() OpsinInverseMatrix {
	return OpsinInverseMatrix{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

func TestCubeSignedPreservesSign(t *testing.T) {
	require.InDelta(t, -8, cubeSigned(-2), 1e-6)
	require.InDelta(t, 8, cubeSigned(2), 1e-6)
}

func TestInverseXYBIdentityMatrixNoBias(t *testing.T) {
	xs := []float32{2}
	ys := []float32{0}
	bs := []float32{0}
	InverseXYB(xs, ys, bs, identityMatrix(), [3]float32{0, 0, 0})
	require.InDelta(t, 8, xs[0], 1e-5)
}

func TestApplyInverseTransferLinearIsIdentity(t *testing.T) {
	require.EqualValues(t, 0.5, ApplyInverseTransfer(0.5, TransferLinear, 1))
}

func TestApplyInverseTransferSRGBMonotonic(t *testing.T) {
	a := ApplyInverseTransfer(0.2, TransferSRGB, 1)
	b := ApplyInverseTransfer(0.8, TransferSRGB, 1)
	require.Less(t, a, b)
}

func TestYCbCrToRGBGrayIsIdentityOnY(t *testing.T) {
	y := []float32{0.5}
	cb := []float32{0}
	cr := []float32{0}
	YCbCrToRGB(y, cb, cr)
	require.InDelta(t, 0.5, y[0], 1e-6)
}
