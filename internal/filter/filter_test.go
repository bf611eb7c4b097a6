package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func flatPlane(w, h int, v float32) *Plane {
	data := make([]float32, w*h)
	for i := range data {
		data[i] = v
	}
	return &Plane{Width: w, Height: h, Data: data}
}

func TestGaborishPreservesFlatPlane(t *testing.T) {
	p := flatPlane(4, 4, 5)
	out := Gaborish(p, 0.1, 0.05)
	for _, v := range out.Data {
		require.InDelta(t, 5, v, 1e-4)
	}
}

func TestEPFPreservesFlatPlane(t *testing.T) {
	p := flatPlane(4, 4, 3)
	out := ApplyEPF(p, nil, 0, EPFParams{Pass0Sigma: 1}, 1)
	for _, v := range out.Data {
		require.InDelta(t, 3, v, 1e-4)
	}
}

func TestWeightZeroSigmaKeepsOnlyExactMatches(t *testing.T) {
	require.EqualValues(t, 1, weight(0, 0))
	require.EqualValues(t, 0, weight(1, 0))
}

func TestRunLoopFiltersNoOpWhenDisabled(t *testing.T) {
	p := flatPlane(2, 2, 7)
	out := RunLoopFilters(p, false, 0, 0, EPFParams{Iterations: 0}, nil, 0)
	require.Equal(t, p.Data, out.Data)
}
