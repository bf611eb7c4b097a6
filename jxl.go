// Package jxl provides a pure Go implementation of the JPEG XL image
// codec's decoder core: bitstream demux, entropy decoding, the Modular
// and VarDCT pixel pipelines, loop filters, feature overlays, and the
// final color transform back to a standard image.Image.
//
// Basic usage for decoding:
//
//	file, _ := os.Open("image.jxl")
//	img, err := jxl.Decode(file)
//	if err != nil {
//	    log.Fatal(err)
//	}
package jxl

import (
	"image"
	"io"
)

// BitstreamKind reports whether a decoded stream was a bare codestream
// or wrapped in the box-based container (§4.B).
type BitstreamKind int

const (
	// KindBareCodestream is a signature-only (FF 0A) raw codestream.
	KindBareCodestream BitstreamKind = iota
	// KindContainer is the ISO-BMFF-style boxed container.
	KindContainer
)

// String returns the string representation of the bitstream kind.
func (k BitstreamKind) String() string {
	switch k {
	case KindBareCodestream:
		return "bare"
	case KindContainer:
		return "container"
	default:
		return "unknown"
	}
}

// Config holds the decoding configuration.
type Config struct {
	// SoftMemoryCap bounds the decoder's tracked allocations in bytes; 0
	// selects alloc.DefaultSoftCap (§4.L AllocTracker).
	SoftMemoryCap int64

	// SkipFilters disables the Gaborish/EPF loop filters, for callers
	// that only need the raw reconstruction (e.g. conformance probing).
	SkipFilters bool

	// MaxFrames limits how many frames of an animation are decoded; 0
	// means all frames.
	MaxFrames int
}

// Decode reads a JPEG XL image from r and returns its first (or only)
// frame as an image.Image.
func Decode(r io.Reader) (image.Image, error) {
	return DecodeConfig(r, nil)
}

// DecodeConfig decodes a JPEG XL image with the specified configuration.
func DecodeConfig(r io.Reader, cfg *Config) (image.Image, error) {
	d, err := newDecoder(r)
	if err != nil {
		return nil, err
	}
	return d.decode(cfg)
}

// DecodeMetadata reads only the image header, without decoding pixel
// data.
func DecodeMetadata(r io.Reader) (*Metadata, error) {
	d, err := newDecoder(r)
	if err != nil {
		return nil, err
	}
	return d.readMetadata()
}

func init() {
	image.RegisterFormat("jxl-bare", "\xff\x0a", Decode, func(r io.Reader) (image.Config, error) {
		m, err := DecodeMetadata(r)
		if err != nil {
			return image.Config{}, err
		}
		return image.Config{ColorModel: image.NRGBA64Model, Width: m.Width, Height: m.Height}, nil
	})
	image.RegisterFormat("jxl-container", "\x00\x00\x00\x0cJXL \r\n\x87\n", Decode, func(r io.Reader) (image.Config, error) {
		m, err := DecodeMetadata(r)
		if err != nil {
			return image.Config{}, err
		}
		return image.Config{ColorModel: image.NRGBA64Model, Width: m.Width, Height: m.Height}, nil
	})
}
