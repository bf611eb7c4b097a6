package modular

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClampGradient(t *testing.T) {
	require.EqualValues(t, 5, clampGradient(5, 5, 5))
	require.EqualValues(t, 10, clampGradient(10, 2, 1)) // gradient = 11, clamped to max(w,n)=10
}

func TestPredictFixedZero(t *testing.T) {
	require.EqualValues(t, 0, predictFixed(PredictorZero, neighborhood{W: 9, N: 9}))
}

func TestSelfCorrectingPredictorConverges(t *testing.T) {
	sc := newSelfCorrectingPredictor()
	nb := neighborhood{W: 100, N: 100, NW: 100, NE: 100}
	for i := 0; i < 50; i++ {
		pred, subs := sc.Predict(nb)
		sc.Update(subs, 100)
		_ = pred
	}
	pred, _ := sc.Predict(nb)
	require.InDelta(t, 100, pred, 2)
}

func TestChannelBoundsReadAsZero(t *testing.T) {
	ch := NewChannel(4, 4)
	require.EqualValues(t, 0, ch.At(-1, 0))
	require.EqualValues(t, 0, ch.At(0, -1))
}

func TestSqueezeRoundTrip(t *testing.T) {
	low := NewChannel(2, 1)
	low.Set(0, 0, 10)
	low.Set(1, 0, 20)
	residual := NewChannel(2, 1)
	residual.Set(0, 0, 0)
	residual.Set(1, 0, 0)
	img := &Image{Channels: []Channel{low}}
	out := applySqueezeInverse(img, SqueezeStep{Channel: 0, Horizontal: true}, residual)
	require.Equal(t, 4, out.Width)
}

func TestSqueezeInverseZeroResidualPreservesAverage(t *testing.T) {
	// a zero residual means the two original samples averaged to the
	// low-pass value with no odd-sample correction, so both reconstructed
	// samples should land at the low-pass value.
	low := NewChannel(1, 1)
	low.Set(0, 0, 42)
	residual := NewChannel(1, 1)
	residual.Set(0, 0, 0)
	img := &Image{Channels: []Channel{low}}
	out := applySqueezeInverse(img, SqueezeStep{Channel: 0, Horizontal: true}, residual)
	require.EqualValues(t, 42, out.At(0, 0))
	require.EqualValues(t, 42, out.At(1, 0))
}

func TestRCTModePermutationAndType(t *testing.T) {
	m := RCTMode(7*2 + 3) // permutation 2, type 3
	require.Equal(t, 2, m.Permutation())
	require.Equal(t, 3, m.Type())
}

func TestRCTInverseIdentityType(t *testing.T) {
	chans := []Channel{NewChannel(1, 1), NewChannel(1, 1), NewChannel(1, 1)}
	chans[0].Set(0, 0, 1)
	chans[1].Set(0, 0, 2)
	chans[2].Set(0, 0, 3)
	img := &Image{Channels: chans}
	err := applyRCTInverse(img, Transform{RCTMode: RCTMode(0)}) // type 0 = identity
	require.NoError(t, err)
	require.EqualValues(t, 1, img.Channels[0].At(0, 0))
	require.EqualValues(t, 2, img.Channels[1].At(0, 0))
	require.EqualValues(t, 3, img.Channels[2].At(0, 0))
}

func TestRCTInverseYCoCgStyleRunsWithoutPanic(t *testing.T) {
	chans := []Channel{NewChannel(1, 1), NewChannel(1, 1), NewChannel(1, 1)}
	chans[0].Set(0, 0, 10)
	chans[1].Set(0, 0, 4)
	chans[2].Set(0, 0, 6)
	img := &Image{Channels: chans}
	err := applyRCTInverse(img, Transform{RCTMode: RCTMode(1)}) // type 1, identity permutation
	require.NoError(t, err)
}

func TestTendencyMonotonicRiseReturnsNonNegative(t *testing.T) {
	require.GreaterOrEqual(t, tendency(10, 5, 0), int32(0))
}
