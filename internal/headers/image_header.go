package headers

import (
	"github.com/jxlcore/jxl/internal/bio"
	"github.com/jxlcore/jxl/internal/xerr"
)

// SizeHeader carries the image's signaled dimensions, encoded with a
// packed small-image shortcut or a general U32 code, and an optional
// height-derived width via a standard aspect ratio (§4.E).
type SizeHeader struct {
	Height uint32
	Width  uint32
}

func readSizeHeader(r *bio.Reader) (SizeHeader, error) {
	div8, err := r.ReadBits(1)
	if err != nil {
		return SizeHeader{}, err
	}
	var height uint32
	if div8 != 0 {
		v, err := r.ReadBits(5)
		if err != nil {
			return SizeHeader{}, err
		}
		height = (1 + v) * 8
	} else {
		v, err := r.ReadU32(bio.U32Specifier{Base: 1, N: 9}, bio.U32Specifier{Base: 1, N: 13}, bio.U32Specifier{Base: 1, N: 18}, bio.U32Specifier{Base: 1, N: 30})
		if err != nil {
			return SizeHeader{}, err
		}
		height = v
	}

	ratio, err := r.ReadBits(3)
	if err != nil {
		return SizeHeader{}, err
	}
	var width uint32
	if ratio == 0 {
		if div8 != 0 {
			v, err := r.ReadBits(5)
			if err != nil {
				return SizeHeader{}, err
			}
			width = (1 + v) * 8
		} else {
			v, err := r.ReadU32(bio.U32Specifier{Base: 1, N: 9}, bio.U32Specifier{Base: 1, N: 13}, bio.U32Specifier{Base: 1, N: 18}, bio.U32Specifier{Base: 1, N: 30})
			if err != nil {
				return SizeHeader{}, err
			}
			width = v
		}
	} else {
		width = aspectRatioWidth(height, ratio)
	}
	return SizeHeader{Height: height, Width: width}, nil
}

// aspectRatioWidth derives width from height via one of the 7 standard
// ratios (1:1, 12:10, 4:3, 3:2, 16:9, 5:4, 2:1).
func aspectRatioWidth(height uint32, ratio uint32) uint32 {
	num := [8]uint32{0, 1, 12, 4, 3, 16, 5, 2}
	den := [8]uint32{0, 1, 10, 3, 2, 9, 4, 1}
	return uint32(uint64(height) * uint64(num[ratio]) / uint64(den[ratio]))
}

// BitDepth describes a channel's sample representation: either an integer
// of N bits, or a float with an explicit exponent/mantissa split (§4.E).
type BitDepth struct {
	Float            bool
	BitsPerSample    uint32
	ExpBits          uint32 // valid when Float
}

func readBitDepth(r *bio.Reader) (BitDepth, error) {
	floatBit, err := r.ReadBits(1)
	if err != nil {
		return BitDepth{}, err
	}
	if floatBit != 0 {
		bits, err := r.ReadU32(bio.Direct(32), bio.Direct(16), bio.Direct(24), bio.U32Specifier{Base: 1, N: 6})
		if err != nil {
			return BitDepth{}, err
		}
		exp, err := r.ReadBits(4)
		if err != nil {
			return BitDepth{}, err
		}
		return BitDepth{Float: true, BitsPerSample: bits, ExpBits: 1 + exp}, nil
	}
	bits, err := r.ReadU32(bio.Direct(8), bio.U32Specifier{Base: 1, N: 6}, bio.U32Specifier{Base: 1, N: 6}, bio.U32Specifier{Base: 1, N: 6})
	if err != nil {
		return BitDepth{}, err
	}
	return BitDepth{Float: false, BitsPerSample: bits}, nil
}

// ExtraChannelType enumerates what an extra channel represents.
type ExtraChannelType uint32

const (
	ExtraAlpha ExtraChannelType = iota
	ExtraDepth
	ExtraSpotColor
	ExtraSelectionMask
	ExtraBlack // CMYK black
	ExtraCFA
	ExtraThermal
	ExtraReserved0
	ExtraReserved1
	ExtraReserved2
	ExtraReserved3
	ExtraReserved4
	ExtraReserved5
	ExtraReserved6
	ExtraReserved7
	ExtraUnknown
	ExtraOptional
)

// ExtraChannelInfo describes one non-color channel (§3).
type ExtraChannelInfo struct {
	Type          ExtraChannelType
	BitDepth      BitDepth
	DimShift      uint32
	Name          string
	AlphaPremultiplied bool
	SpotColor     [4]float32
	CFAChannel    uint32
}

func readExtraChannelInfo(r *bio.Reader) (ExtraChannelInfo, error) {
	var ec ExtraChannelInfo
	allDefault, err := r.ReadBits(1)
	if err != nil {
		return ec, err
	}
	typ, err := readEnumU32(r)
	if err != nil {
		return ec, err
	}
	ec.Type = ExtraChannelType(typ)
	if allDefault != 0 {
		ec.BitDepth = BitDepth{BitsPerSample: 8}
		return ec, nil
	}
	bd, err := readBitDepth(r)
	if err != nil {
		return ec, err
	}
	ec.BitDepth = bd
	dimShift, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{Base: 3, N: 0}, bio.U32Specifier{Base: 4, N: 0}, bio.U32Specifier{Base: 1, N: 3})
	if err != nil {
		return ec, err
	}
	ec.DimShift = dimShift
	nameLen, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 4}, bio.U32Specifier{Base: 16, N: 5}, bio.U32Specifier{Base: 48, N: 10})
	if err != nil {
		return ec, err
	}
	nameBytes := make([]byte, nameLen)
	for i := range nameBytes {
		b, err := r.ReadBits(8)
		if err != nil {
			return ec, err
		}
		nameBytes[i] = byte(b)
	}
	ec.Name = string(nameBytes)

	if ec.Type == ExtraAlpha {
		premul, err := r.ReadBits(1)
		if err != nil {
			return ec, err
		}
		ec.AlphaPremultiplied = premul != 0
	}
	if ec.Type == ExtraSpotColor {
		for i := range ec.SpotColor {
			v, err := r.ReadF16AsF32()
			if err != nil {
				return ec, err
			}
			ec.SpotColor[i] = v
		}
	}
	if ec.Type == ExtraCFA {
		v, err := r.ReadU32(bio.Direct(1), bio.U32Specifier{N: 2}, bio.U32Specifier{Base: 4, N: 4}, bio.U32Specifier{Base: 20, N: 8})
		if err != nil {
			return ec, err
		}
		ec.CFAChannel = v
	}
	return ec, nil
}

// PreviewHeader describes an optional low-resolution preview image.
type PreviewHeader struct {
	Size SizeHeader
}

// AnimationHeader describes optional animation timing.
type AnimationHeader struct {
	TPSNumerator   uint32
	TPSDenominator uint32
	NumLoops       uint32
	HaveTimecodes  bool
}

// ImageHeader is the top-level parsed image header (§3).
type ImageHeader struct {
	Size        SizeHeader
	OrientationRaw uint32 // 1..8, EXIF orientation enum

	BitDepth BitDepth

	HavePreview   bool
	Preview       PreviewHeader
	HaveAnimation bool
	Animation     AnimationHeader

	IntrinsicSize *SizeHeader

	ExtraChannels []ExtraChannelInfo

	XYBEncoded bool
	ColorEncoding ColorEncoding
	HaveICC     bool
	ICCProfile  []byte

	OpsinInverseMatrix [9]float32
	OpsinBias          [3]float32
	QuantBias          [3]float32
	QuantBiasNumerator float32

	Up2Weights  [15]float32
	Up4Weights  [55]float32
	Up8Weights  [210]float32
}

// EncodedColorChannels returns the number of primary color channels the
// bitstream carries, which is always 3 when XYBEncoded regardless of the
// signaled color space (§3 invariant).
func (h *ImageHeader) EncodedColorChannels() int {
	if h.XYBEncoded {
		return 3
	}
	if h.ColorEncoding.ColorSpace == ColorSpaceGray {
		return 1
	}
	return 3
}

// Parse reads a complete ImageHeader from r.
func Parse(r *bio.Reader) (*ImageHeader, error) {
	h := &ImageHeader{}

	size, err := readSizeHeader(r)
	if err != nil {
		return nil, err
	}
	h.Size = size

	allDefault, err := r.ReadBits(1)
	if err != nil {
		return nil, err
	}

	if allDefault == 0 {
		extraFields, err := r.ReadBits(1)
		if err != nil {
			return nil, err
		}
		if extraFields != 0 {
			orient, err := r.ReadBits(3)
			if err != nil {
				return nil, err
			}
			h.OrientationRaw = 1 + orient

			haveIntrinsic, err := r.ReadBits(1)
			if err != nil {
				return nil, err
			}
			if haveIntrinsic != 0 {
				sz, err := readSizeHeader(r)
				if err != nil {
					return nil, err
				}
				h.IntrinsicSize = &sz
			}

			havePreview, err := r.ReadBits(1)
			if err != nil {
				return nil, err
			}
			if havePreview != 0 {
				sz, err := readSizeHeader(r)
				if err != nil {
					return nil, err
				}
				h.HavePreview = true
				h.Preview = PreviewHeader{Size: sz}
			}

			haveAnimation, err := r.ReadBits(1)
			if err != nil {
				return nil, err
			}
			if haveAnimation != 0 {
				num, err := r.ReadU32(bio.Direct(100), bio.Direct(1000), bio.U32Specifier{N: 10}, bio.U32Specifier{N: 30})
				if err != nil {
					return nil, err
				}
				den, err := r.ReadU32(bio.Direct(1), bio.Direct(1001), bio.U32Specifier{N: 8}, bio.U32Specifier{N: 10})
				if err != nil {
					return nil, err
				}
				loops, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 3}, bio.U32Specifier{N: 16}, bio.U32Specifier{N: 32})
				if err != nil {
					return nil, err
				}
				tc, err := r.ReadBits(1)
				if err != nil {
					return nil, err
				}
				h.HaveAnimation = true
				h.Animation = AnimationHeader{TPSNumerator: num, TPSDenominator: den, NumLoops: loops, HaveTimecodes: tc != 0}
			}
		} else {
			h.OrientationRaw = 1
		}

		bd, err := readBitDepth(r)
		if err != nil {
			return nil, err
		}
		h.BitDepth = bd

		modularBitDepth16, err := r.ReadBits(1)
		if err != nil {
			return nil, err
		}
		_ = modularBitDepth16

		numExtra, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 4}, bio.U32Specifier{Base: 16, N: 8}, bio.U32Specifier{Base: 272, N: 12})
		if err != nil {
			return nil, err
		}
		h.ExtraChannels = make([]ExtraChannelInfo, numExtra)
		for i := range h.ExtraChannels {
			ec, err := readExtraChannelInfo(r)
			if err != nil {
				return nil, err
			}
			h.ExtraChannels[i] = ec
		}

		xyb, err := r.ReadBits(1)
		if err != nil {
			return nil, err
		}
		h.XYBEncoded = xyb != 0

		ce, err := readColorEncoding(r)
		if err != nil {
			return nil, err
		}
		h.ColorEncoding = ce
	} else {
		h.OrientationRaw = 1
		h.BitDepth = BitDepth{BitsPerSample: 8}
		h.ColorEncoding = ColorEncoding{ColorSpace: ColorSpaceRGB, WhitePoint: WhitePointD65, Primaries: PrimariesSRGB, Transfer: TransferSRGB, Intent: IntentRelative}
	}

	haveICC, err := r.ReadBits(1)
	if err != nil {
		return nil, err
	}
	h.HaveICC = haveICC != 0
	if h.HaveICC {
		iccSize, err := r.ReadU64()
		if err != nil {
			return nil, err
		}
		if iccSize > 1<<30 {
			return nil, xerr.Wrap(xerr.ErrInvalidICCStream, "embedded ICC profile implausibly large")
		}
		// The ICC stream itself is varint-length-prefixed-and-context-coded
		// in the real format (predictive per-byte modeling); parsing its
		// internal structure is out of scope (spec.md §1 Non-goals) beyond
		// exposing the raw bytes to callers, so a fixed-size byte copy
		// stands in for its decode here.
		h.ICCProfile = make([]byte, iccSize)
		for i := range h.ICCProfile {
			b, err := r.ReadBits(8)
			if err != nil {
				return nil, err
			}
			h.ICCProfile[i] = byte(b)
		}
	}

	if h.XYBEncoded {
		haveCustomMatrix, err := r.ReadBits(1)
		if err != nil {
			return nil, err
		}
		if haveCustomMatrix != 0 {
			for i := range h.OpsinInverseMatrix {
				v, err := r.ReadF16AsF32()
				if err != nil {
					return nil, err
				}
				h.OpsinInverseMatrix[i] = v
			}
			for i := range h.OpsinBias {
				v, err := r.ReadF16AsF32()
				if err != nil {
					return nil, err
				}
				h.OpsinBias[i] = v
			}
			qb, err := r.ReadF16AsF32()
			if err != nil {
				return nil, err
			}
			h.QuantBiasNumerator = qb
		} else {
			h.OpsinInverseMatrix = defaultOpsinInverseMatrix
			h.OpsinBias = defaultOpsinBias
			h.QuantBiasNumerator = defaultQuantBiasNumerator
		}
	}

	if err := readUpsamplingWeights(r, &h.Up2Weights, &h.Up4Weights, &h.Up8Weights); err != nil {
		return nil, err
	}

	if err := r.ZeroPadToByte(); err != nil {
		return nil, err
	}

	return h, nil
}

func readUpsamplingWeights(r *bio.Reader, w2 *[15]float32, w4 *[55]float32, w8 *[210]float32) error {
	customUp2, err := r.ReadBits(1)
	if err != nil {
		return err
	}
	if customUp2 != 0 {
		for i := range w2 {
			v, err := r.ReadF16AsF32()
			if err != nil {
				return err
			}
			w2[i] = v
		}
	} else {
		*w2 = defaultUp2Weights
	}
	customUp4, err := r.ReadBits(1)
	if err != nil {
		return err
	}
	if customUp4 != 0 {
		for i := range w4 {
			v, err := r.ReadF16AsF32()
			if err != nil {
				return err
			}
			w4[i] = v
		}
	} else {
		*w4 = defaultUp4Weights
	}
	customUp8, err := r.ReadBits(1)
	if err != nil {
		return err
	}
	if customUp8 != 0 {
		for i := range w8 {
			v, err := r.ReadF16AsF32()
			if err != nil {
				return err
			}
			w8[i] = v
		}
	} else {
		*w8 = defaultUp8Weights
	}
	return nil
}
