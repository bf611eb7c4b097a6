// Package filter implements the two in-loop restoration filters applied
// after reconstruction: a fixed small Gaborish smoothing kernel and an
// adaptive edge-preserving filter (EPF) whose strength follows the
// per-block quantization step (§4.H).
//
// Both return a newly allocated plane and leave their input unchanged,
// using simple clamped-coordinate (border-replication) sampling at plane
// edges instead of a padded buffer, since VarDCT frames' loop filters only look at a small, fixed
// neighborhood.
package filter

// Plane is a single-channel float32 image buffer.
type Plane struct {
	Width, Height int
	Data          []float32
}

func (p *Plane) at(x, y int) float32 {
	if x < 0 {
		x = 0
	}
	if x >= p.Width {
		x = p.Width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= p.Height {
		y = p.Height - 1
	}
	return p.Data[y*p.Width+x]
}

// Gaborish applies the fixed 3x3 separable-ish smoothing kernel: each
// pixel is blended with its 4-connected and diagonal neighbors using the
// frame's two signaled weights (§4.H). w1 weights the orthogonal
// neighbors, w2 the diagonal ones; the center weight is derived so the
// kernel sums to 1.
func Gaborish(p *Plane, w1, w2 float32) *Plane {
	out := &Plane{Width: p.Width, Height: p.Height, Data: make([]float32, len(p.Data))}
	center := 1.0 / (1 + 4*w1 + 4*w2)
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			sum := p.at(x, y)
			ortho := p.at(x-1, y) + p.at(x+1, y) + p.at(x, y-1) + p.at(x, y+1)
			diag := p.at(x-1, y-1) + p.at(x+1, y-1) + p.at(x-1, y+1) + p.at(x+1, y+1)
			v := (sum + w1*ortho + w2*diag) * center
			out.Data[y*p.Width+x] = v
		}
	}
	return out
}

// EPFParams carries the per-frame edge-preserving filter configuration
// (§4.H).
type EPFParams struct {
	Iterations        int
	SigmaForQuantMax  float32
	Pass0Sigma        float32
	Pass2Sigma        float32
	SharpLutScale     float32
}

// sigmaForBlock derives the filter strength for a block from its
// quantization step: higher quant (coarser blocks, more likely to show
// ringing) gets a larger sigma, up to SigmaForQuantMax.
func sigmaForBlock(params EPFParams, blockQuant, maxQuant float32) float32 {
	if maxQuant <= 0 {
		return params.Pass0Sigma
	}
	frac := blockQuant / maxQuant
	if frac > 1 {
		frac = 1
	}
	return params.Pass0Sigma + frac*(params.SigmaForQuantMax-params.Pass0Sigma)
}

// weight computes the bilateral-style sample weight for a neighbor whose
// value differs from the center by delta, given the pass's sigma.
func weight(delta, sigma float32) float32 {
	if sigma <= 0 {
		if delta == 0 {
			return 1
		}
		return 0
	}
	x := delta / sigma
	v := 1 - x*x
	if v < 0 {
		return 0
	}
	return v
}

// ApplyEPF runs one EPF pass over p using a 3x3 cross-shaped neighborhood
// (the 4-connected neighbors plus center), weighting each neighbor by its
// similarity to the center sample (§4.H). quantField supplies the
// per-pixel quantization step driving sigmaForBlock; maxQuant is its
// frame-wide maximum.
func ApplyEPF(p *Plane, quantField []float32, maxQuant float32, params EPFParams, sigma float32) *Plane {
	out := &Plane{Width: p.Width, Height: p.Height, Data: make([]float32, len(p.Data))}
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			center := p.at(x, y)
			s := sigma
			if quantField != nil {
				idx := y*p.Width + x
				if idx < len(quantField) {
					s = sigmaForBlock(params, quantField[idx], maxQuant)
				}
			}
			neighbors := [4]float32{p.at(x-1, y), p.at(x+1, y), p.at(x, y-1), p.at(x, y+1)}
			wsum := float32(1.0)
			acc := center
			for _, n := range neighbors {
				w := weight(n-center, s)
				wsum += w
				acc += w * n
			}
			out.Data[y*p.Width+x] = acc / wsum
		}
	}
	return out
}

// RunLoopFilters applies Gaborish (if enabled) followed by the requested
// number of EPF iterations, alternating Pass0Sigma and Pass2Sigma as the
// real format does for its two distinct EPF passes (§4.H).
func RunLoopFilters(p *Plane, gaborEnabled bool, w1, w2 float32, epf EPFParams, quantField []float32, maxQuant float32) *Plane {
	cur := p
	if gaborEnabled {
		cur = Gaborish(cur, w1, w2)
	}
	for i := 0; i < epf.Iterations; i++ {
		sigma := epf.Pass0Sigma
		if i%2 == 1 {
			sigma = epf.Pass2Sigma
		}
		cur = ApplyEPF(cur, quantField, maxQuant, epf, sigma)
	}
	return cur
}
