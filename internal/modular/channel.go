// Package modular implements the Modular decoding pipeline: per-channel
// sample buffers, reversible color/palette/squeeze transforms, and the
// predictor set driven by a meta-adaptive tree (§4.F).
//
// Sample buffers are plain flat []int32 slices indexed row-major, the
// same shape the teacher's wavelet package uses for its coefficient
// arrays, reused here via a sync.Pool for the same reason: channel
// buffers are transient per-group working storage that churns heavily
// during decode.
package modular

import "sync"

var int32BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]int32, 0, 4096)
		return &buf
	},
}

func getInt32Buf(n int) []int32 {
	bp := int32BufPool.Get().(*[]int32)
	buf := *bp
	if cap(buf) < n {
		buf = make([]int32, n)
	} else {
		buf = buf[:n]
	}
	return buf
}

func putInt32Buf(buf []int32) {
	bp := &buf
	int32BufPool.Put(bp)
}

// Channel is one plane of Modular sample data: a flat, row-major int32
// buffer plus the shift factors applied by a preceding Squeeze transform
// relative to the frame's base resolution (§4.F).
type Channel struct {
	Width, Height int
	HShift, VShift int
	Data          []int32
}

// NewChannel allocates a zeroed channel of the given dimensions.
func NewChannel(width, height int) Channel {
	return Channel{Width: width, Height: height, Data: make([]int32, width*height)}
}

// At returns the sample at (x, y), or 0 if out of bounds (edge samples
// read as zero per the predictor neighborhood convention, §4.F).
func (c *Channel) At(x, y int) int32 {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return 0
	}
	return c.Data[y*c.Width+x]
}

// Set writes the sample at (x, y).
func (c *Channel) Set(x, y int, v int32) {
	c.Data[y*c.Width+x] = v
}

// Image is the full set of channels being decoded for one frame: color
// channels first (1 for gray, 3 for RGB/XYB), then extra channels, in
// the order referenced by the MA tree's PropChannel/PropStream indices.
type Image struct {
	Channels []Channel
}
