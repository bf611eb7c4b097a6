package upsample

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpsampleFactor2IdentitySubZero(t *testing.T) {
	p := &Plane{Width: 2, Height: 2, Data: []float32{1, 2, 3, 4}}
	out := Upsample(p, Kernel{Factor: 2})
	require.Equal(t, 4, out.Width)
	require.EqualValues(t, 1, out.Data[0])
}

func TestApplyOrientationIdentity(t *testing.T) {
	p := &Plane{Width: 2, Height: 1, Data: []float32{1, 2}}
	out := ApplyOrientation(p, OrientIdentity)
	require.Equal(t, p, out)
}

func TestApplyOrientationFlipH(t *testing.T) {
	p := &Plane{Width: 2, Height: 1, Data: []float32{1, 2}}
	out := ApplyOrientation(p, OrientFlipH)
	require.Equal(t, []float32{2, 1}, out.Data)
}

func TestApplyOrientationRotate90CW(t *testing.T) {
	p := &Plane{Width: 2, Height: 1, Data: []float32{1, 2}}
	out := ApplyOrientation(p, OrientRotate90CW)
	require.Equal(t, 1, out.Width)
	require.Equal(t, 2, out.Height)
}
