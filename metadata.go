package jxl

import "github.com/jxlcore/jxl/internal/headers"

// Metadata contains image metadata extracted from the JPEG XL bitstream
// without decoding pixel data.
type Metadata struct {
	Kind   BitstreamKind
	Width  int
	Height int

	BitsPerSample int
	FloatSamples  bool

	NumExtraChannels int
	XYBEncoded       bool
	ColorSpace       headers.ColorSpace

	HasAnimation bool
	NumLoops     uint32

	HasICCProfile bool
}

func metadataFromImageHeader(kind BitstreamKind, h *headers.ImageHeader) *Metadata {
	return &Metadata{
		Kind:             kind,
		Width:            int(h.Size.Width),
		Height:           int(h.Size.Height),
		BitsPerSample:    int(h.BitDepth.BitsPerSample),
		FloatSamples:     h.BitDepth.Float,
		NumExtraChannels: len(h.ExtraChannels),
		XYBEncoded:       h.XYBEncoded,
		ColorSpace:       h.ColorEncoding.ColorSpace,
		HasAnimation:     h.HaveAnimation,
		NumLoops:         h.Animation.NumLoops,
		HasICCProfile:    h.HaveICC,
	}
}
