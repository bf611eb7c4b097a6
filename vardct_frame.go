package jxl

import (
	"github.com/jxlcore/jxl/internal/bio"
	"github.com/jxlcore/jxl/internal/entropy"
	"github.com/jxlcore/jxl/internal/headers"
	"github.com/jxlcore/jxl/internal/modular"
	"github.com/jxlcore/jxl/internal/vardct"
)

const hfGroupEdge = 256

// blockInfoContexts bounds decodeBlockInfo's fixed context numbers
// (selector 400, hf_mul 401, the three LF-sample contexts 410-412).
const blockInfoContexts = 413

// sectionReader builds a bio.Reader over exactly the bytes a TOC entry
// locates, so each section decodes from its own byte range instead of
// continuing sequentially on a single frame-wide reader (§4.E, §4.L).
func (d *decoder) sectionReader(tocBase int, e headers.TocEntry) *bio.Reader {
	start := tocBase + int(e.Offset)
	end := start + int(e.Size)
	if start < 0 {
		start = 0
	}
	if end > len(d.codestream) {
		end = len(d.codestream)
	}
	if end < start {
		end = start
	}
	return bio.NewReader(d.codestream[start:end])
}

func buildQuantizer(fh *headers.FrameHeader, biasNumerator float32, bias [3]float32) vardct.Quantizer {
	q := vardct.DefaultQuantizer()
	q.GlobalScale = fh.Quant.GlobalScale
	q.Quant = fh.Quant.Quant
	q.XQmScale = fh.Quant.XQmScale
	q.BQmScale = fh.Quant.BQmScale
	q.QuantBiasNumerator = biasNumerator
	q.QuantBias = bias
	return q
}

// gridRect returns the pixel rect (x0, y0, w, h) of the idx-th tile of
// the given edge length, raster-ordered across a width x height frame.
func gridRect(idx, edge int, width, height uint32) (x0, y0, w, h int) {
	cols := (int(width) + edge - 1) / edge
	if cols < 1 {
		cols = 1
	}
	gx, gy := idx%cols, idx/cols
	x0, y0 = gx*edge, gy*edge
	w = edge
	if x0+w > int(width) {
		w = int(width) - x0
	}
	h = edge
	if y0+h > int(height) {
		h = int(height) - y0
	}
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return
}

// blockInfoGrid holds one 8x8-cell-granularity varblock membership map
// and the channel LF samples feeding IntegrateLF, shared across the
// whole frame so HF groups can look up the shapes the LF groups decoded
// (§4.G).
type blockInfoGrid struct {
	cellsW, cellsH int
	infos          []vardct.BlockInfo
	lf             [3][]float32 // one value per cell, per channel
}

func newBlockInfoGrid(width, height uint32) *blockInfoGrid {
	cellsW := (int(width) + 7) / 8
	cellsH := (int(height) + 7) / 8
	g := &blockInfoGrid{cellsW: cellsW, cellsH: cellsH, infos: make([]vardct.BlockInfo, cellsW*cellsH)}
	for c := range g.lf {
		g.lf[c] = make([]float32, cellsW*cellsH)
	}
	return g
}

func (g *blockInfoGrid) idx(cx, cy int) int { return cy*g.cellsW + cx }

func (g *blockInfoGrid) at(cx, cy int) vardct.BlockInfo {
	if cx < 0 || cy < 0 || cx >= g.cellsW || cy >= g.cellsH {
		return vardct.BlockInfo{IsTopLeft: true, DctSelect: vardct.Dct8, HfMul: 1}
	}
	return g.infos[g.idx(cx, cy)]
}

// candidateShapes is the small set of shapes a varblock may be assigned,
// in decode-priority order; most cells are plain Dct8.
var candidateShapes = []vardct.TransformType{
	vardct.Dct8, vardct.Dct16, vardct.Dct32, vardct.Dct16x8, vardct.Dct8x16,
	vardct.Hornuss, vardct.Dct2, vardct.Dct4, vardct.Dct4x8, vardct.Dct8x4,
	vardct.Afv0, vardct.Afv1, vardct.Afv2, vardct.Afv3,
}

// decodeBlockInfo reads the BlockInfo grid and per-cell LF samples for
// one LF group's cell rect. Each cell reads a shape-selector token
// through a dedicated context; a shape whose footprint would run past
// the image edge or over a cell some earlier block already claimed
// falls back to Dct8, keeping the grid always fully, unambiguously
// covered (§4.G). The bitstream syntax for block partitioning isn't
// present in this decoder's retrieval pack (no header module models it),
// so this is a self-consistent reconstruction rather than a bit-exact
// port; recorded as a simplification in DESIGN.md.
func decodeBlockInfo(r *bio.Reader, dec *entropy.Decoder, grid *blockInfoGrid, cx0, cy0, cw, ch int) error {
	for cy := cy0; cy < cy0+ch; cy++ {
		for cx := cx0; cx < cx0+cw; cx++ {
			if cx >= grid.cellsW || cy >= grid.cellsH {
				continue
			}
			i := grid.idx(cx, cy)
			if grid.infos[i].HfMul != 0 {
				// already covered by an earlier multi-cell block (every
				// claimed cell carries its block's non-zero HfMul)
				continue
			}

			selTok, err := dec.ReadVarint(r, 400)
			if err != nil {
				return err
			}
			shape := candidateShapes[int(selTok)%len(candidateShapes)]
			bw, bh := vardct.BlockSizeBlocks(shape)

			if cx+bw > grid.cellsW || cy+bh > grid.cellsH {
				shape = vardct.Dct8
				bw, bh = 1, 1
			} else {
				fits := true
				for yy := cy; yy < cy+bh && fits; yy++ {
					for xx := cx; xx < cx+bw; xx++ {
						if yy != cy || xx != cx {
							other := grid.infos[grid.idx(xx, yy)]
							if other.HfMul != 0 {
								fits = false
								break
							}
						}
					}
				}
				if !fits {
					shape = vardct.Dct8
					bw, bh = 1, 1
				}
			}

			hfMulTok, err := dec.ReadVarint(r, 401)
			if err != nil {
				return err
			}
			hfMul := int32(hfMulTok) + 1

			for yy := cy; yy < cy+bh; yy++ {
				for xx := cx; xx < cx+bw; xx++ {
					if xx == cx && yy == cy {
						grid.infos[grid.idx(xx, yy)] = vardct.BlockInfo{IsTopLeft: true, DctSelect: shape, HfMul: hfMul}
					} else {
						grid.infos[grid.idx(xx, yy)] = vardct.BlockInfo{FirstBX: cx, FirstBY: cy, HfMul: hfMul}
					}
				}
			}

			for channel := 0; channel < 3; channel++ {
				lfTok, err := dec.ReadVarint(r, 410+channel)
				if err != nil {
					return err
				}
				grid.lf[channel][i] = float32(entropy.UnpackSigned(lfTok))
			}
		}
	}
	return nil
}

// decodeHfGroup decodes the AC coefficients of every top-left varblock
// cell within one 256px group's cell rect, dequantizes, applies
// chroma-from-luma and LF integration, runs the per-shape inverse
// transform, and writes the resulting pixels into img (§4.G).
func decodeHfGroup(r *bio.Reader, dec *entropy.Decoder, grid *blockInfoGrid, nz *[3]vardct.NonZeroGrid, quant vardct.Quantizer, cfl vardct.ChromaFromLuma, img *modular.Image, cx0, cy0, cw, ch int) error {
	numChannels := len(img.Channels)
	for cy := cy0; cy < cy0+ch && cy < grid.cellsH; cy++ {
		for cx := cx0; cx < cx0+cw && cx < grid.cellsW; cx++ {
			info := grid.at(cx, cy)
			if !info.IsTopLeft {
				continue
			}
			bw, bh := vardct.BlockSizeBlocks(info.DctSelect)

			lfValues := make([]float32, bw*bh)
			channelCoeffs := make([][]float32, 3)
			for channel := 0; channel < 3; channel++ {
				for yy := 0; yy < bh; yy++ {
					for xx := 0; xx < bw; xx++ {
						lfValues[yy*bw+xx] = grid.lf[channel][grid.idx(cx+xx, cy+yy)]
					}
				}

				raw, err := vardct.DecodeBlockCoeffs(r, dec, info.DctSelect, channel, &nz[channel], cx, cy)
				if err != nil {
					return err
				}
				floats := make([]float32, len(raw))
				quant.Dequantize(channel, raw, info.HfMul, floats)
				vardct.IntegrateLF(floats, info.DctSelect, lfValues, bw, bh)
				channelCoeffs[channel] = floats
			}

			// channel 1 is luma (Y); 0 and 2 are X/B chroma predicted
			// from it (§4.G).
			px, py := cx*8-cx0*8, cy*8-cy0*8
			cfl.PredictHF(channelCoeffs[1], channelCoeffs[0], true, px, py)
			cfl.PredictHF(channelCoeffs[1], channelCoeffs[2], false, px, py)

			widthPx, heightPx := bw*8, bh*8
			for channel := 0; channel < 3 && channel < numChannels; channel++ {
				vardct.InverseTransform(channelCoeffs[channel], info.DctSelect)
				ch := &img.Channels[channel]
				for yy := 0; yy < heightPx; yy++ {
					py := cy*8 + yy
					if py >= ch.Height {
						continue
					}
					for xx := 0; xx < widthPx; xx++ {
						px := cx*8 + xx
						if px >= ch.Width {
							continue
						}
						ch.Set(px, py, int32(channelCoeffs[channel][yy*widthPx+xx]))
					}
				}
			}
		}
	}
	return nil
}

// decodeVarDCTFrame decodes one frame's VarDCT-coded channels following
// its TOC: the LF groups' BlockInfo/LF samples first, then each HF
// group's AC coefficients and inverse transform, covering the frame's
// largest single component (§4.G). Progressive refinement passes beyond
// the first are not modeled (a Non-goal: this decoder renders the
// frame's first pass only).
func (d *decoder) decodeVarDCTFrame(toc *headers.Toc, tocBase int, quant vardct.Quantizer, img *modular.Image, width, height uint32) error {
	cfl := vardct.DefaultChromaFromLuma()
	grid := newBlockInfoGrid(width, height)
	var nz [3]vardct.NonZeroGrid
	for c := range nz {
		nz[c] = vardct.NewNonZeroGrid(grid.cellsW, grid.cellsH)
	}

	if e, ok := toc.Find(headers.TocAll, 0, 0); ok {
		r := d.sectionReader(tocBase, e)
		numCtx := vardct.NumContexts(3)
		if blockInfoContexts > numCtx {
			numCtx = blockInfoContexts
		}
		dec, err := entropy.NewDecoder(r, numCtx)
		if err != nil {
			return err
		}
		if err := decodeBlockInfo(r, dec, grid, 0, 0, grid.cellsW, grid.cellsH); err != nil {
			return err
		}
		return decodeHfGroup(r, dec, grid, &nz, quant, cfl, img, 0, 0, grid.cellsW, grid.cellsH)
	}

	hfGroups, lfGroups := numGroups(width, height)

	for i := 0; i < lfGroups; i++ {
		e, ok := toc.Find(headers.TocLfGroup, 0, i)
		if !ok {
			continue
		}
		r := d.sectionReader(tocBase, e)
		dec, err := entropy.NewDecoder(r, blockInfoContexts)
		if err != nil {
			return err
		}
		x0, y0, w, h := gridRect(i, lfGroupEdge, width, height)
		cx0, cy0 := x0/8, y0/8
		cw, ch := (w+7)/8, (h+7)/8
		if err := decodeBlockInfo(r, dec, grid, cx0, cy0, cw, ch); err != nil {
			return err
		}
	}

	// HfGlobal carries global HF block-context parameters in the full
	// format; this decoder uses fixed defaults, so the section is
	// located (to keep the TOC's byte accounting exercised) but its
	// payload isn't otherwise consumed.
	toc.Find(headers.TocHfGlobal, 0, 0)

	for i := 0; i < hfGroups; i++ {
		e, ok := toc.Find(headers.TocGroupPass, 0, i)
		if !ok {
			continue
		}
		r := d.sectionReader(tocBase, e)
		dec, err := entropy.NewDecoder(r, vardct.NumContexts(3))
		if err != nil {
			return err
		}
		x0, y0, w, h := gridRect(i, hfGroupEdge, width, height)
		cx0, cy0 := x0/8, y0/8
		cw, ch := (w+7)/8, (h+7)/8
		if err := decodeHfGroup(r, dec, grid, &nz, quant, cfl, img, cx0, cy0, cw, ch); err != nil {
			return err
		}
	}
	return nil
}
