package jxl

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumGroupsSinglePixelIsOneGroup(t *testing.T) {
	g, lf := numGroups(1, 1)
	require.Equal(t, 1, g)
	require.Equal(t, 1, lf)
}

func TestNumGroupsMultipleGroups(t *testing.T) {
	g, lf := numGroups(600, 300)
	require.Equal(t, 3*2, g) // ceil(600/256)=3, ceil(300/256)=2
	require.Equal(t, 1, lf)
}

func TestBitstreamKindString(t *testing.T) {
	require.Equal(t, "bare", KindBareCodestream.String())
	require.Equal(t, "container", KindContainer.String())
}

func TestFloatImageAtClampsAndConvertsGray(t *testing.T) {
	img := &FloatImage{Width: 1, Height: 1, Channels: [][]float32{{0.5}}}
	r, g, b, a := img.At(0, 0).RGBA()
	require.Equal(t, r, g)
	require.Equal(t, g, b)
	require.NotZero(t, a)
}

func TestNewDecoderRejectsEmptyInput(t *testing.T) {
	_, err := newDecoder(zeroReader{})
	require.Error(t, err)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) { return 0, io.EOF }
