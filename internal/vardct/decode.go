package vardct

import (
	"github.com/jxlcore/jxl/internal/bio"
	"github.com/jxlcore/jxl/internal/entropy"
)

// coeffFreqContext and coeffNumNonzeroContext are the two fixed 64-entry
// context tables the reference decoder's per-coefficient scan uses to
// turn a coefficient's scan position and its block's non-zero-count
// bucket into entropy contexts (§4.G).
var coeffFreqContext = [64]int{
	0, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14,
	15, 15, 16, 16, 17, 17, 18, 18, 19, 19, 20, 20, 21, 21, 22, 22,
	23, 23, 23, 23, 24, 24, 24, 24, 25, 25, 25, 25, 26, 26, 26, 26,
	27, 27, 27, 27, 28, 28, 28, 28, 29, 29, 29, 29, 30, 30, 30, 30,
}

var coeffNumNonzeroContext = [64]int{
	0, 0, 31, 62, 62, 93, 93, 93, 93, 123, 123, 123, 123,
	152, 152, 152, 152, 152, 152, 152, 152, 180, 180, 180, 180, 180,
	180, 180, 180, 180, 180, 180, 180, 206, 206, 206, 206, 206, 206,
	206, 206, 206, 206, 206, 206, 206, 206, 206, 206, 206, 206, 206,
	206, 206, 206, 206, 206, 206, 206, 206, 206, 206, 206, 206,
}

// NonZeroGrid tracks, per 8x8 cell, the decoded non-zero coefficient
// count of that cell's covering varblock, used to predict the next
// varblock's count from its top/left neighbors (predict_non_zeros,
// §4.G).
type NonZeroGrid struct {
	Width, Height int
	Counts        []int32
}

// NewNonZeroGrid allocates a w x h (in 8x8-cell units) prediction grid.
func NewNonZeroGrid(w, h int) NonZeroGrid {
	return NonZeroGrid{Width: w, Height: h, Counts: make([]int32, w*h)}
}

func (g *NonZeroGrid) at(x, y int) int32 {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return 0
	}
	return g.Counts[y*g.Width+x]
}

// Predict implements predict_non_zeros: 32 at the grid origin (no
// neighbors yet), the left neighbor on the first row, the top neighbor
// on the first column, and the rounded average of both otherwise.
func (g *NonZeroGrid) Predict(x, y int) int32 {
	if x == 0 && y == 0 {
		return 32
	}
	if x == 0 {
		return g.at(x, y-1)
	}
	if y == 0 {
		return g.at(x-1, y)
	}
	return (g.at(x, y-1) + g.at(x-1, y) + 1) >> 1
}

// Fill records a varblock's non-zero count across every 8x8 cell it
// spans, so later neighboring varblocks' predictions see it.
func (g *NonZeroGrid) Fill(bx, by, w, h int, count int32) {
	for y := by; y < by+h && y < g.Height; y++ {
		for x := bx; x < bx+w && x < g.Width; x++ {
			if x >= 0 && y >= 0 {
				g.Counts[y*g.Width+x] = count
			}
		}
	}
}

// nonZeroCtxIndex buckets a predicted non-zero count the way
// non_zeros_ctx does: predicted values below 8 get their own bucket,
// above that pairs of counts share a bucket up to a cap of 64.
func nonZeroCtxIndex(predicted int32) int {
	if predicted > 64 {
		predicted = 64
	}
	if predicted < 8 {
		return int(predicted)
	}
	return 4 + int(predicted)/2
}

// scanOrder returns, for a transform shape of width w and height h (in
// 8x8-block units), the coefficient positions in increasing-frequency
// (zigzag-diagonal) order. JXL's reference encoder ships 13 precomputed
// natural-frequency orders tuned per aspect ratio; those tables aren't
// present in this decoder's retrieval pack, so this builds a
// general-purpose diagonal scan instead (documented as a simplification
// in DESIGN.md): stable, covers every shape, but not bit-identical to
// the reference order.
func scanOrder(w, h int) []int {
	width, height := w*8, h*8
	n := width * height
	order := make([]int, 0, n)
	type cell struct{ x, y int }
	maxSum := width + height - 2
	for s := 0; s <= maxSum; s++ {
		for y := 0; y <= s && y < height; y++ {
			x := s - y
			if x < 0 || x >= width {
				continue
			}
			order = append(order, y*width+x)
		}
	}
	return order
}

// numNzBuckets is nonZeroCtxIndex's output range (0..36 inclusive).
const numNzBuckets = 37

// coeffCtxRange is the number of distinct (nonzero-bucket, freq-bucket,
// prevNonZero) combinations a single channel's coefficient contexts span:
// the bucket tables top out at 206 and 30, so their sum tops out at 236.
const coeffCtxRange = 236*2 + 2

// nzCtxBase and coeffCtxBase partition one channel's context block into a
// non-zero-count region followed by a coefficient region, so per-channel
// blocks can simply be concatenated by the caller.
const nzCtxBase = 0
const coeffCtxBase = numNzBuckets
const perChannelContexts = coeffCtxBase + coeffCtxRange

// NumContexts returns the number of entropy contexts DecodeBlockCoeffs
// needs for a frame with the given number of channels, so callers can
// size their entropy.Decoder to exactly bound every context index this
// package produces.
func NumContexts(numChannels int) int {
	return numChannels * perChannelContexts
}

// DecodeBlockCoeffs reads one varblock's quantized HF coefficients: a
// non-zero-count prefix (derived from the neighbor-predicted grid
// context), then coefficient values at successive positions of the
// increasing-frequency scan order until that many non-zero ones are read,
// each coefficient's context combining the bucket of the non-zeros still
// remaining and the scan-position bucket the same way
// hf_coeff.rs's per-channel decode loop does (§4.G). Position 0 (the
// LF-seeded DC/low corner) is left untouched: callers fill it via LF
// integration before or after calling this. channel selects which of the
// NumContexts(numChannels) per-channel context blocks this call's tokens
// are read from.
func DecodeBlockCoeffs(r *bio.Reader, dec *entropy.Decoder, shape TransformType, channel int, grid *NonZeroGrid, bx, by int) ([]int32, error) {
	n := NumCoeffs(shape)
	coeffs := make([]int32, n)
	w, h := BlockSizeBlocks(shape)

	chanBase := channel * perChannelContexts

	predicted := grid.Predict(bx, by)
	nzIdx := nonZeroCtxIndex(predicted)
	nzCtx := chanBase + nzCtxBase + nzIdx

	nzTok, err := dec.ReadVarint(r, nzCtx)
	if err != nil {
		return nil, err
	}
	numNonZero := int(nzTok)
	if numNonZero > n-1 {
		numNonZero = n - 1
	}
	grid.Fill(bx, by, w, h, int32(numNonZero))

	order := scanOrder(w, h)
	remaining := numNonZero
	prevNonZero := 0
	for scanPos := 1; scanPos < len(order) && remaining > 0; scanPos++ {
		freqIdx := scanPos
		if freqIdx > 63 {
			freqIdx = 63
		}
		nzBucket := remaining
		if nzBucket > 63 {
			nzBucket = 63
		}
		coeffCtx := chanBase + coeffCtxBase + (coeffNumNonzeroContext[nzBucket]+coeffFreqContext[freqIdx])*2 + prevNonZero

		tok, err := dec.ReadVarint(r, coeffCtx)
		if err != nil {
			return nil, err
		}
		v := entropy.UnpackSigned(tok)
		if v != 0 {
			coeffs[order[scanPos]] = v
			remaining--
			prevNonZero = 1
		} else {
			prevNonZero = 0
		}
	}
	return coeffs, nil
}
