package features

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newCanvas(w, h, channels int) *Canvas {
	cs := make([][]float32, channels)
	for i := range cs {
		cs[i] = make([]float32, w*h)
	}
	return &Canvas{Width: w, Height: h, Channels: cs}
}

func TestApplyPatchesReplace(t *testing.T) {
	ref := newCanvas(4, 4, 1)
	ref.Channels[0][0] = 9
	dst := newCanvas(4, 4, 1)
	patches := []Patch{{
		Width: 1, Height: 1,
		Positions: []PatchPosition{{X: 2, Y: 2, Blend: BlendReplace}},
	}}
	err := ApplyPatches(dst, ref, patches)
	require.NoError(t, err)
	require.EqualValues(t, 9, dst.at(0, 2, 2))
}

func TestQuadraticBSplineSingleton(t *testing.T) {
	x, y := quadraticBSpline([]ControlPoint{{X: 5, Y: 7}}, 0)
	require.EqualValues(t, 5, x)
	require.EqualValues(t, 7, y)
}

func TestStrengthForLumaInterpolates(t *testing.T) {
	p := NoiseParams{Strengths: [8]float32{0, 1, 0, 0, 0, 0, 0, 0}}
	v := strengthForLuma(p, 1.0/7)
	require.InDelta(t, 1.0, v, 1e-3)
}

func TestApplyNoiseDeterministic(t *testing.T) {
	c1 := newCanvas(2, 2, 1)
	c2 := newCanvas(2, 2, 1)
	p := NoiseParams{Strengths: [8]float32{0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1, 0.1}}
	ApplyNoise(c1, p, 42)
	ApplyNoise(c2, p, 42)
	require.Equal(t, c1.Channels[0], c2.Channels[0])
}
