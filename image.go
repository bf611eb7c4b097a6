package jxl

import (
	stdcolor "image/color"
	"image"
)

// FloatImage is an image.Image backed by linear-light float32 channel
// planes, the direct output of the render pipeline before any 8/16-bit
// quantization. Values are expected in [0, 1] for color channels.
type FloatImage struct {
	Width, Height int
	// Channels holds at least 3 entries (R, G, B); a 4th, if present, is
	// alpha.
	Channels [][]float32
}

// ColorModel implements image.Image.
func (f *FloatImage) ColorModel() stdcolor.Model { return stdcolor.NRGBA64Model }

// Bounds implements image.Image.
func (f *FloatImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

func to16(v float32) uint16 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint16(v*65535 + 0.5)
}

// At implements image.Image.
func (f *FloatImage) At(x, y int) stdcolor.Color {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return stdcolor.NRGBA64{}
	}
	idx := y*f.Width + x
	var r, g, b, a uint16 = 0, 0, 0, 65535
	if len(f.Channels) > 0 {
		r = to16(f.Channels[0][idx])
	}
	if len(f.Channels) > 1 {
		g = to16(f.Channels[1][idx])
	}
	if len(f.Channels) > 2 {
		b = to16(f.Channels[2][idx])
	}
	if len(f.Channels) > 3 {
		a = to16(f.Channels[3][idx])
	}
	if len(f.Channels) == 1 {
		g, b = r, r
	}
	return stdcolor.NRGBA64{R: r, G: g, B: b, A: a}
}
