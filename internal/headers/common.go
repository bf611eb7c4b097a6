// Package headers parses the JPEG XL image header, frame header, and table
// of contents -- the field-sequential, bit-packed structures that precede
// each frame's entropy-coded group data (§4.E).
package headers

import (
	"github.com/jxlcore/jxl/internal/bio"
)

// readEnumU32 reads the standard enum encoding used throughout the format:
// U32(0, 1, 2+u(4), 18+u(6)).
func readEnumU32(r *bio.Reader) (uint32, error) {
	return r.ReadU32(bio.Direct(0), bio.Direct(1), bio.U32Specifier{Base: 2, N: 4}, bio.U32Specifier{Base: 18, N: 6})
}

// ColorSpace enumerates the signaled color space family.
type ColorSpace uint32

const (
	ColorSpaceRGB ColorSpace = iota
	ColorSpaceGray
	ColorSpaceXYB
	ColorSpaceUnknown
)

// WhitePoint enumerates standard illuminants.
type WhitePoint uint32

const (
	WhitePointD65 WhitePoint = 1
	WhitePointCustom WhitePoint = 2
	WhitePointE WhitePoint = 10
	WhitePointDCI WhitePoint = 11
)

// Primaries enumerates standard primaries.
type Primaries uint32

const (
	PrimariesSRGB Primaries = 1
	PrimariesCustom Primaries = 2
	Primaries2020 Primaries = 9
	PrimariesP3 Primaries = 11
)

// TransferFunction enumerates the EOTF/OETF used for non-XYB color
// (§4.K). There is no gamma member: readColorEncoding reads the transfer
// function as a plain enum value and never parses an explicit gamma.
type TransferFunction uint32

const (
	TransferBT709 TransferFunction = 1
	TransferUnknown TransferFunction = 2
	TransferLinear TransferFunction = 8
	TransferSRGB TransferFunction = 13
	TransferPQ TransferFunction = 16
	TransferDCI TransferFunction = 17
	TransferHLG TransferFunction = 18
)

// RenderingIntent mirrors the ICC rendering intent enum.
type RenderingIntent uint32

const (
	IntentPerceptual RenderingIntent = iota
	IntentRelative
	IntentSaturation
	IntentAbsolute
)

// ColorEncoding is the enum-based color descriptor (the alternative to an
// embedded ICC profile).
type ColorEncoding struct {
	ColorSpace ColorSpace
	WhitePoint WhitePoint
	WhitePointXY [2]float32 // valid when WhitePoint == WhitePointCustom
	Primaries  Primaries
	PrimariesXY [6]float32 // valid when Primaries == PrimariesCustom (rx,ry,gx,gy,bx,by)
	Transfer   TransferFunction
	Gamma      float32 // not set by readColorEncoding; always 0 after parsing
	Intent     RenderingIntent
}

func readColorEncoding(r *bio.Reader) (ColorEncoding, error) {
	var ce ColorEncoding
	allDefault, err := r.ReadBits(1)
	if err != nil {
		return ce, err
	}
	if allDefault != 0 {
		ce = ColorEncoding{
			ColorSpace: ColorSpaceRGB,
			WhitePoint: WhitePointD65,
			Primaries:  PrimariesSRGB,
			Transfer:   TransferSRGB,
			Intent:     IntentRelative,
		}
		return ce, nil
	}
	cs, err := readEnumU32(r)
	if err != nil {
		return ce, err
	}
	ce.ColorSpace = ColorSpace(cs)

	if ce.ColorSpace != ColorSpaceXYB {
		wp, err := readEnumU32(r)
		if err != nil {
			return ce, err
		}
		ce.WhitePoint = WhitePoint(wp)
		if ce.WhitePoint == WhitePointCustom {
			x, err := readCustomXY(r)
			if err != nil {
				return ce, err
			}
			ce.WhitePointXY = x
		}
		if ce.ColorSpace != ColorSpaceGray {
			pr, err := readEnumU32(r)
			if err != nil {
				return ce, err
			}
			ce.Primaries = Primaries(pr)
			if ce.Primaries == PrimariesCustom {
				for i := 0; i < 3; i++ {
					xy, err := readCustomXY(r)
					if err != nil {
						return ce, err
					}
					ce.PrimariesXY[i*2] = xy[0]
					ce.PrimariesXY[i*2+1] = xy[1]
				}
			}
		}
	}

	tf, err := readEnumU32(r)
	if err != nil {
		return ce, err
	}
	ce.Transfer = TransferFunction(tf)

	intent, err := readEnumU32(r)
	if err != nil {
		return ce, err
	}
	ce.Intent = RenderingIntent(intent)
	return ce, nil
}

func readCustomXY(r *bio.Reader) ([2]float32, error) {
	var xy [2]float32
	for i := range xy {
		v, err := r.ReadU32(bio.U32Specifier{N: 19}, bio.U32Specifier{Base: 1 << 19, N: 19}, bio.U32Specifier{Base: 2 << 19, N: 20}, bio.U32Specifier{Base: (2 << 19) + (1 << 20), N: 21})
		if err != nil {
			return xy, err
		}
		xy[i] = float32(int32(v)-0x200000) / 1e6
	}
	return xy, nil
}
