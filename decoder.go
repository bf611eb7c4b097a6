package jxl

import (
	"io"

	"github.com/jxlcore/jxl/internal/alloc"
	"github.com/jxlcore/jxl/internal/bio"
	"github.com/jxlcore/jxl/internal/container"
	"github.com/jxlcore/jxl/internal/entropy"
	"github.com/jxlcore/jxl/internal/features"
	"github.com/jxlcore/jxl/internal/headers"
	"github.com/jxlcore/jxl/internal/matree"
	"github.com/jxlcore/jxl/internal/modular"
	"github.com/jxlcore/jxl/internal/render"
	"github.com/jxlcore/jxl/internal/xerr"
	"github.com/jxlcore/jxl/internal/xlog"
)

const groupEdge = 256
const lfGroupEdge = 2048

// decoder holds the state needed to turn a raw byte stream into decoded
// frames: the demuxed codestream, the parsed image header, and the
// reference-frame slot cache later frames draw from.
type decoder struct {
	kind       BitstreamKind
	codestream []byte
	tracker    *alloc.Tracker
	refs       render.ReferenceSlots
}

func newDecoder(r io.Reader) (*decoder, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, xerr.Wrap(err, "read input")
	}

	demux := container.NewDemux()
	events, err := demux.Feed(raw)
	if err != nil {
		return nil, err
	}
	events = append(events, demux.Finish()...)

	d := &decoder{tracker: alloc.NewTracker(alloc.DefaultSoftCap)}
	for _, ev := range events {
		switch e := ev.(type) {
		case container.BitstreamKindEvent:
			if e.Kind == container.KindContainer {
				d.kind = KindContainer
			} else {
				d.kind = KindBareCodestream
			}
		case container.CodestreamEvent:
			d.codestream = append(d.codestream, e.Data...)
		}
	}
	if len(d.codestream) == 0 {
		return nil, xerr.Wrap(xerr.ErrInvalidBox, "no codestream data found")
	}
	return d, nil
}

func (d *decoder) readMetadata() (*Metadata, error) {
	r := bio.NewReader(d.codestream)
	h, err := headers.Parse(r)
	if err != nil {
		return nil, err
	}
	return metadataFromImageHeader(d.kind, h), nil
}

// numGroups returns the count of 256px groups and 2048px LF groups
// covering a width x height frame (§4.E).
func numGroups(width, height uint32) (groups, lfGroups int) {
	gx := int((width + groupEdge - 1) / groupEdge)
	gy := int((height + groupEdge - 1) / groupEdge)
	lx := int((width + lfGroupEdge - 1) / lfGroupEdge)
	ly := int((height + lfGroupEdge - 1) / lfGroupEdge)
	if gx < 1 {
		gx = 1
	}
	if gy < 1 {
		gy = 1
	}
	if lx < 1 {
		lx = 1
	}
	if ly < 1 {
		ly = 1
	}
	return gx * gy, lx * ly
}

func (d *decoder) decode(cfg *Config) (*FloatImage, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.SoftMemoryCap > 0 {
		d.tracker = alloc.NewTracker(cfg.SoftMemoryCap)
	}

	r := bio.NewReader(d.codestream)
	ih, err := headers.Parse(r)
	if err != nil {
		return nil, err
	}

	if err := d.tracker.Alloc(int(ih.Size.Width) * int(ih.Size.Height) * 4 * ih.EncodedColorChannels()); err != nil {
		return nil, err
	}

	maxFrames := cfg.MaxFrames
	var last *render.Frame
	frameIdx := 0
	for {
		fh, err := headers.ParseFrameHeader(r, len(ih.ExtraChannels))
		if err != nil {
			return nil, err
		}
		if cfg.SkipFilters {
			fh.Filter.GaborishEnabled = false
			fh.Filter.EPFEnabled = false
		}

		width, height := fh.Width, fh.Height
		if width == 0 {
			width = ih.Size.Width
		}
		if height == 0 {
			height = ih.Size.Height
		}

		groups, lfGroups := numGroups(width, height)
		toc, err := headers.ParseToc(r, groups, lfGroups, int(fh.NumPasses))
		if err != nil {
			return nil, err
		}
		tocBase := int(r.NumReadBits() / 8)

		frame, err := d.decodeFrame(r, ih, fh, toc, tocBase, width, height)
		if err != nil {
			return nil, err
		}

		if fh.SaveAsReference > 0 {
			d.refs.Set(int(fh.SaveAsReference), frame)
		}

		xlog.Debug().Int("frame", frameIdx).Uint32("w", width).Uint32("h", height).Msg("decoded frame")

		if fh.Type == headers.FrameRegular {
			last = frame
		}
		frameIdx++
		if fh.IsLast || (maxFrames > 0 && frameIdx >= maxFrames) {
			break
		}
	}

	if last == nil {
		return nil, xerr.Wrap(xerr.ErrInvalidReference, "bitstream produced no regular output frame")
	}

	return &FloatImage{Width: last.Width, Height: last.Height, Channels: last.Channels}, nil
}

// decodeFrame decodes one frame's group data per its TOC and runs the
// fixed post-processing pipeline (§4.L). Sections are located through
// toc rather than assumed to follow sequentially on r, so permuted TOC
// orders have a real byte range to work from (§4.E, §4.L, §5). The
// Modular path decodes only the All (or else LfGlobal) section; the
// VarDCT path decodes the All section, or else each LfGroup and each
// group's pass-0 GroupPass, and locates HfGlobal without decoding it.
func (d *decoder) decodeFrame(r *bio.Reader, ih *headers.ImageHeader, fh *headers.FrameHeader, toc *headers.Toc, tocBase int, width, height uint32) (*render.Frame, error) {
	numChannels := ih.EncodedColorChannels() + len(ih.ExtraChannels)

	img := &modular.Image{Channels: make([]modular.Channel, numChannels)}
	for i := range img.Channels {
		img.Channels[i] = modular.NewChannel(int(width), int(height))
	}

	var tree *matree.Tree
	var dec *entropy.Decoder

	if fh.Encoding == headers.EncodingModular {
		entry, ok := toc.Find(headers.TocAll, 0, 0)
		if !ok {
			entry, ok = toc.Find(headers.TocLfGlobal, 0, 0)
		}
		if !ok {
			return nil, xerr.Wrap(xerr.ErrInvalidTocPermutation, "decodeFrame: no modular section in toc")
		}
		sr := d.sectionReader(tocBase, entry)

		transforms, err := modular.ReadTransforms(sr)
		if err != nil {
			return nil, err
		}
		tree, err = matree.Parse(sr)
		if err != nil {
			return nil, err
		}
		dec, err = entropy.NewDecoder(sr, numChannels*2)
		if err != nil {
			return nil, err
		}
		if err := modular.DecodeImage(sr, dec, tree, img, transforms); err != nil {
			return nil, err
		}
	} else {
		quant := buildQuantizer(fh, ih.QuantBiasNumerator, ih.QuantBias)
		if err := d.decodeVarDCTFrame(toc, tocBase, quant, img, width, height); err != nil {
			return nil, err
		}
	}

	channels := make([][]float32, numChannels)
	for i, ch := range img.Channels {
		plane := make([]float32, len(ch.Data))
		for j, v := range ch.Data {
			plane[j] = float32(v)
		}
		channels[i] = plane
	}

	frame := &render.Frame{Header: fh, Channels: channels, Width: int(width), Height: int(height)}

	var noise features.NoiseParams
	if err := render.PostProcess(frame, ih, fh, nil, nil, noise, false, &d.refs); err != nil {
		return nil, err
	}
	return frame, nil
}


