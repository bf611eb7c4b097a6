package render

import (
	"github.com/jxlcore/jxl/internal/color"
	"github.com/jxlcore/jxl/internal/features"
	"github.com/jxlcore/jxl/internal/filter"
	"github.com/jxlcore/jxl/internal/headers"
	"github.com/jxlcore/jxl/internal/upsample"
)

// PostProcess applies the fixed per-frame pipeline stages that run after
// all groups have been decoded and recombined: loop filters, feature
// overlays, upsampling, orientation, and color transform, in that order
// (§4.L render order invariant).
func PostProcess(f *Frame, ih *headers.ImageHeader, fh *headers.FrameHeader, patches []features.Patch, splines []features.Spline, noise features.NoiseParams, haveNoise bool, refs *ReferenceSlots) error {
	if fh.Filter.GaborishEnabled || fh.Filter.EPFEnabled {
		for i, ch := range f.Channels {
			p := &filter.Plane{Width: f.Width, Height: f.Height, Data: ch}
			out := filter.RunLoopFilters(p, fh.Filter.GaborishEnabled, fh.Filter.GaborWeights[0], fh.Filter.GaborWeights[1], filter.EPFParams{
				Iterations:       int(fh.Filter.EPFIterations),
				SigmaForQuantMax: fh.Filter.EPFSigmaForQuantMax,
				Pass0Sigma:       fh.Filter.EPFPass0Sigma,
				Pass2Sigma:       fh.Filter.EPFPass2Sigma,
			}, nil, 0)
			f.Channels[i] = out.Data
		}
	}

	if len(patches) > 0 {
		canvas := &features.Canvas{Width: f.Width, Height: f.Height, Channels: f.Channels}
		var ref *features.Canvas
		if rf := refs.Get(patches[0].RefSlot); rf != nil {
			ref = &features.Canvas{Width: rf.Width, Height: rf.Height, Channels: rf.Channels}
		}
		if err := features.ApplyPatches(canvas, ref, patches); err != nil {
			return err
		}
	}
	if len(splines) > 0 {
		canvas := &features.Canvas{Width: f.Width, Height: f.Height, Channels: f.Channels}
		for _, s := range splines {
			features.RenderSpline(canvas, s)
		}
	}
	if haveNoise {
		canvas := &features.Canvas{Width: f.Width, Height: f.Height, Channels: f.Channels}
		features.ApplyNoise(canvas, noise, 0)
	}

	if fh.Upsampling > 1 {
		for i, ch := range f.Channels {
			p := &upsample.Plane{Width: f.Width, Height: f.Height, Data: ch}
			out := upsample.Upsample(p, upsample.Kernel{Factor: int(fh.Upsampling)})
			f.Channels[i] = out.Data
		}
		f.Width *= int(fh.Upsampling)
		f.Height *= int(fh.Upsampling)
	}

	if ih.OrientationRaw != 1 {
		for i, ch := range f.Channels {
			p := &upsample.Plane{Width: f.Width, Height: f.Height, Data: ch}
			out := upsample.ApplyOrientation(p, upsample.Orientation(ih.OrientationRaw))
			f.Channels[i] = out.Data
			f.Width, f.Height = out.Width, out.Height
		}
	}

	if ih.XYBEncoded && len(f.Channels) >= 3 {
		var m color.OpsinInverseMatrix
		copy(m[:], ih.OpsinInverseMatrix[:])
		color.InverseXYB(f.Channels[0], f.Channels[1], f.Channels[2], m, ih.OpsinBias)
	} else if fh.DoYCbCr && len(f.Channels) >= 3 {
		color.YCbCrToRGB(f.Channels[0], f.Channels[1], f.Channels[2])
	}

	tf := mapTransferFunction(ih.ColorEncoding.Transfer)
	for _, ch := range f.Channels {
		for i, v := range ch {
			ch[i] = color.ApplyInverseTransfer(v, tf, ih.ColorEncoding.Gamma)
		}
	}

	return nil
}

func mapTransferFunction(t headers.TransferFunction) color.TransferFunction {
	switch t {
	case headers.TransferLinear:
		return color.TransferLinear
	case headers.TransferSRGB:
		return color.TransferSRGB
	case headers.TransferBT709:
		return color.TransferBT709
	case headers.TransferPQ:
		return color.TransferPQ
	case headers.TransferHLG:
		return color.TransferHLG
	default:
		return color.TransferSRGB
	}
}
