package vardct

// ChromaFromLuma holds the frame-level correlation parameters predicting
// X/B chroma from the already-decoded Y (luma) plane, removing most of
// the cross-channel redundancy VarDCT's separate per-channel coding
// would otherwise leave in (§4.G). JXL applies this twice: once to the
// LF band with a single frame-wide factor, and again to the HF band
// with a per-64x64-block factor grid.
type ChromaFromLuma struct {
	BaseCorrelationX float32
	BaseCorrelationB float32
	ColourFactor     float32

	// XFactorLF and BFactorLF are the frame-wide LF-band factors
	// (biased by 128, per the bitstream's signed-as-unsigned encoding).
	XFactorLF int32
	BFactorLF int32

	// XFromY and BFromY are per-64x64-block HF factor grids, width x
	// height given in 64-pixel block units; nil falls back to the LF
	// factor everywhere (no HF grid signaled).
	GridWidth, GridHeight int
	XFromY, BFromY        []int32
}

// factorToK converts a biased factor field into the kx/kb correlation
// slope: base_correlation + (factor-128)/colour_factor (§4.G).
func factorToK(base float32, factor int32, colourFactor float32) float32 {
	if colourFactor == 0 {
		colourFactor = 84
	}
	return base + float32(factor-128)/colourFactor
}

// PredictLF adjusts the X and B LF planes in place using the single
// frame-wide correlation factor: x[i] += kx*y[i]; b[i] += kb*y[i].
func (c ChromaFromLuma) PredictLF(luma, x, b []float32) {
	kx := factorToK(c.BaseCorrelationX, c.XFactorLF, c.ColourFactor)
	kb := factorToK(c.BaseCorrelationB, c.BFactorLF, c.ColourFactor)
	for i := range luma {
		if i < len(x) {
			x[i] += kx * luma[i]
		}
		if i < len(b) {
			b[i] += kb * luma[i]
		}
	}
}

// factorAt looks up the HF factor grid cell covering pixel (px, py)
// relative to the LF group origin, falling back to the LF-band factor
// when no HF grid was signaled.
func (c ChromaFromLuma) factorAt(grid []int32, fallback int32, px, py int) int32 {
	if grid == nil || c.GridWidth == 0 {
		return fallback
	}
	gx, gy := px/64, py/64
	if gx >= c.GridWidth {
		gx = c.GridWidth - 1
	}
	if gy >= c.GridHeight {
		gy = c.GridHeight - 1
	}
	idx := gy*c.GridWidth + gx
	if idx < 0 || idx >= len(grid) {
		return fallback
	}
	return grid[idx]
}

// PredictHF adjusts one chroma block's AC coefficients (coeffs[0], the
// DC/LF-seeded term, is excluded) in place using the co-located luma
// block's dequantized coefficients and this block's HF grid cell
// (px, py are the block's top-left pixel position in the LF group),
// matching chroma_from_luma_hf (§4.G).
func (c ChromaFromLuma) PredictHF(lumaCoeffs, chromaCoeffs []float32, isX bool, px, py int) {
	var factor int32
	var base float32
	if isX {
		factor = c.factorAt(c.XFromY, c.XFactorLF, px, py)
		base = c.BaseCorrelationX
	} else {
		factor = c.factorAt(c.BFromY, c.BFactorLF, px, py)
		base = c.BaseCorrelationB
	}
	k := factorToK(base, factor, c.ColourFactor)
	for i := 1; i < len(chromaCoeffs) && i < len(lumaCoeffs); i++ {
		chromaCoeffs[i] += k * lumaCoeffs[i]
	}
}

// DefaultChromaFromLuma returns the format's neutral CFL parameters
// (zero correlation, factor 128 = no adjustment).
func DefaultChromaFromLuma() ChromaFromLuma {
	return ChromaFromLuma{
		ColourFactor: 84,
		XFactorLF:    128,
		BFactorLF:    128,
	}
}
