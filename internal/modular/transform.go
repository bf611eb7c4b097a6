package modular

import (
	"github.com/jxlcore/jxl/internal/bio"
	"github.com/jxlcore/jxl/internal/xerr"
)

// TransformKind enumerates the reversible whole-image transforms that
// can precede the per-channel predictor pass (§4.F).
type TransformKind uint32

const (
	TransformRCT TransformKind = iota
	TransformPalette
	TransformSqueeze
)

// RCTMode packs the reversible color transform's two independent fields,
// channel permutation (0..5) and transform type (0..6), into a single
// 0..41 value the same way the bitstream stores it (§4.K).
type RCTMode uint32

// Permutation returns which of the 6 channel orderings this mode selects.
func (m RCTMode) Permutation() int { return int(m/7) % 6 }

// Type returns which of the 7 lifting formulas this mode selects.
func (m RCTMode) Type() int { return int(m % 7) }

// Transform is one entry of a frame's transform list, applied in order
// on decode and undone in reverse order to recover the image channels
// (§4.F).
type Transform struct {
	Kind TransformKind

	// RCT fields.
	RCTFirstChannel int
	RCTMode         RCTMode

	// Palette fields.
	PaletteFirstChannel int
	PaletteNumChannels  int
	PaletteSize         int
	PalettePredictor    Predictor

	// Squeeze fields.
	SqueezeSteps []SqueezeStep
}

// SqueezeStep halves one channel's resolution along one axis, producing
// an averaged low-frequency channel in place and appending a residual
// high-frequency channel (§4.F).
type SqueezeStep struct {
	Channel    int
	Horizontal bool
	InPlace    bool
}

func readTransform(r *bio.Reader) (Transform, error) {
	var t Transform
	kind, err := r.ReadU32(bio.Direct(0), bio.Direct(1), bio.Direct(2), bio.U32Specifier{Base: 3, N: 2})
	if err != nil {
		return t, err
	}
	t.Kind = TransformKind(kind)

	switch t.Kind {
	case TransformRCT:
		first, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 3}, bio.U32Specifier{Base: 8, N: 6}, bio.U32Specifier{Base: 72, N: 10})
		if err != nil {
			return t, err
		}
		t.RCTFirstChannel = int(first)
		// The 42 RCT modes (6 permutations x 7 types, §4.K) don't fit the
		// usual 4-bucket U32 distribution cleanly; a flat 6-bit field
		// covers 0..63 and is masked down to 0..41 on use.
		mode, err := r.ReadBits(6)
		if err != nil {
			return t, err
		}
		t.RCTMode = RCTMode(mode % 42)
	case TransformPalette:
		first, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 3}, bio.U32Specifier{Base: 8, N: 6}, bio.U32Specifier{Base: 72, N: 10})
		if err != nil {
			return t, err
		}
		t.PaletteFirstChannel = int(first)
		n, err := r.ReadU32(bio.Direct(1), bio.U32Specifier{Base: 2, N: 3}, bio.U32Specifier{Base: 10, N: 6}, bio.U32Specifier{Base: 74, N: 10})
		if err != nil {
			return t, err
		}
		t.PaletteNumChannels = int(n)
		size, err := r.ReadU32(bio.U32Specifier{Base: 0, N: 8}, bio.U32Specifier{Base: 256, N: 10}, bio.U32Specifier{Base: 1280, N: 12}, bio.U32Specifier{Base: 5376, N: 16})
		if err != nil {
			return t, err
		}
		t.PaletteSize = int(size)
		pred, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 4}, bio.U32Specifier{Base: 16, N: 0}, bio.U32Specifier{Base: 16, N: 0})
		if err != nil {
			return t, err
		}
		t.PalettePredictor = Predictor(pred)
	case TransformSqueeze:
		numSteps, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 4}, bio.U32Specifier{Base: 16, N: 6}, bio.U32Specifier{Base: 80, N: 8})
		if err != nil {
			return t, err
		}
		t.SqueezeSteps = make([]SqueezeStep, numSteps)
		for i := range t.SqueezeSteps {
			horiz, err := r.ReadBits(1)
			if err != nil {
				return t, err
			}
			inPlace, err := r.ReadBits(1)
			if err != nil {
				return t, err
			}
			ch, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 3}, bio.U32Specifier{Base: 8, N: 6}, bio.U32Specifier{Base: 72, N: 10})
			if err != nil {
				return t, err
			}
			t.SqueezeSteps[i] = SqueezeStep{Channel: int(ch), Horizontal: horiz != 0, InPlace: inPlace != 0}
		}
	default:
		return t, xerr.Wrapf(xerr.ErrInvalidEnum, "transform: unknown kind %d", kind)
	}
	return t, nil
}

// ReadTransforms reads the frame-level transform list preceding channel
// info (§4.F).
func ReadTransforms(r *bio.Reader) ([]Transform, error) {
	n, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 4}, bio.U32Specifier{Base: 16, N: 8}, bio.U32Specifier{Base: 272, N: 12})
	if err != nil {
		return nil, err
	}
	out := make([]Transform, n)
	for i := range out {
		tr, err := readTransform(r)
		if err != nil {
			return nil, err
		}
		out[i] = tr
	}
	return out, nil
}

// rctPermutations maps each of the 6 permutation values to the channel
// order the transform type's lift reads as (a, b, c); the result is
// written back into those same physical slots (§4.K).
var rctPermutations = [6][3]int{
	{0, 1, 2},
	{0, 2, 1},
	{1, 0, 2},
	{1, 2, 0},
	{2, 0, 1},
	{2, 1, 0},
}

// applyRCTInverse undoes the reversible color transform in place on
// img.Channels[first:first+3]. The mode packs a channel permutation
// (which of the 3 channels plays the role of a, b, c below) and a
// transform type selecting one of 7 integer lifting formulas, of which
// type 1 is the YCoCg-style lift and the remaining 6 are other
// reversible differencing/averaging lifts in the same family (§4.K).
//
// The exact per-type lift constants used by reference encoders are not
// present in the retrieval pack (no RCT bit-table ships with it); the 7
// lifts below are a best-effort reconstruction in the spirit of the
// format, each independently verified invertible, and are recorded as
// such in DESIGN.md.
func applyRCTInverse(img *Image, t Transform) error {
	if t.RCTFirstChannel+3 > len(img.Channels) {
		return xerr.Wrap(xerr.ErrInvalidEnum, "rct: first_channel out of range")
	}
	typ := t.RCTMode.Type()
	if typ == 0 {
		return nil
	}
	chans := img.Channels[t.RCTFirstChannel : t.RCTFirstChannel+3]
	perm := rctPermutations[t.RCTMode.Permutation()]
	a := chans[perm[0]].Data
	b := chans[perm[1]].Data
	c := chans[perm[2]].Data

	for i := range a {
		av, bv, cv := a[i], b[i], c[i]
		var r, g, bl int32
		switch typ {
		case 1: // YCoCg-style: g = a - ((b+c)>>2); r = c+g; bl = b+g
			g = av - ((bv + cv) >> 2)
			r = cv + g
			bl = bv + g
		case 2: // delta from a
			r = av
			g = bv - av
			bl = cv - av
		case 3: // chained delta
			r = av
			g = bv - av
			bl = cv - g
		case 4: // delta from c
			bl = cv
			g = bv - cv
			r = av - cv
		case 5: // average-based
			r = av - ((bv + cv) >> 1)
			g = bv
			bl = cv
		case 6: // cascaded
			g = bv - cv
			r = av - g
			bl = cv
		default:
			r, g, bl = av, bv, cv
		}
		a[i], b[i], c[i] = r, g, bl
	}
	return nil
}

// applyPaletteInverse expands a palette-indexed channel back into
// PaletteNumChannels channels, looking values up in the palette table
// decoded alongside the transform (§4.F).
func applyPaletteInverse(img *Image, t Transform, palette [][]int32) error {
	idxCh := &img.Channels[t.PaletteFirstChannel]
	for pos, idx := range idxCh.Data {
		row := int(idx)
		if row < 0 {
			row = 0
		}
		if row >= len(palette) {
			row = len(palette) - 1
		}
		for c := 0; c < t.PaletteNumChannels; c++ {
			img.Channels[t.PaletteFirstChannel+c].Data[pos] = palette[row][c]
		}
	}
	return nil
}

// tendency implements JXL's piecewise monotonicity-preserving predictor
// used by the squeeze inverse to recombine a low-pass sample and its
// left/right (or up/down) neighbors into the two child samples they
// were averaged from (§4.F). Ported from the reference decoder's
// integer tendency function; its divisions are Go's integer division,
// which truncates toward zero.
func tendency(a, b, c int32) int32 {
	if a >= b && b >= c {
		x := (4*a - 3*c - b + 6) / 12
		if x-(x&1) > 2*(a-b) {
			x = 2*(a-b) + 1
		}
		if x+(x&1) > 2*(b-c) {
			x = 2 * (b - c)
		}
		return x
	}
	if a <= b && b <= c {
		x := (4*a - 3*c - b - 6) / 12
		if x+(x&1) < 2*(a-b) {
			x = 2*(a-b) - 1
		}
		if x-(x&1) < 2*(b-c) {
			x = 2 * (b - c)
		}
		return x
	}
	return 0
}

// inverseTendencyLine reconstructs one row (or column) of 2*n samples
// from n averaged low-pass samples and n residuals, both supplied
// pre-deinterleaved in buf as [avg_0..avg_{n-1}, residual_0..residual_{n-1}],
// writing the 2*n reconstructed samples back into buf[:2*n] in place.
func inverseTendencyLine(buf []int32, n int) {
	avg := buf[:n]
	residual := buf[n : 2*n]
	out := make([]int32, 2*n)

	prevAvg := avg[0]
	left := prevAvg
	for x := 0; x < n; x++ {
		a := avg[x]
		nextAvg := a
		if x+1 < n {
			nextAvg = avg[x+1]
		}
		diff := residual[x] + tendency(left, a, nextAvg)
		first := a + diff/2
		out[2*x] = first
		out[2*x+1] = first - diff
		left = first - diff
	}
	copy(buf[:2*n], out)
}

// applySqueezeInverse undoes one squeeze step: the low-pass channel and
// its appended high-frequency residual channel are merged back into a
// single full-resolution channel using JXL's tendency-predictor lifting
// inverse, applied one row (or column) at a time (§4.F).
func applySqueezeInverse(img *Image, step SqueezeStep, residual Channel) Channel {
	low := img.Channels[step.Channel]

	if step.Horizontal {
		out := NewChannel(low.Width*2, low.Height)
		row := getInt32Buf(low.Width * 2)
		defer putInt32Buf(row)
		for y := 0; y < low.Height; y++ {
			for x := 0; x < low.Width; x++ {
				row[x] = low.At(x, y)
				row[low.Width+x] = residual.At(x, y)
			}
			inverseTendencyLine(row[:low.Width*2], low.Width)
			copy(out.Data[y*out.Width:(y+1)*out.Width], row[:low.Width*2])
		}
		return out
	}

	out := NewChannel(low.Width, low.Height*2)
	col := getInt32Buf(low.Height * 2)
	defer putInt32Buf(col)
	for x := 0; x < low.Width; x++ {
		for y := 0; y < low.Height; y++ {
			col[y] = low.At(x, y)
			col[low.Height+y] = residual.At(x, y)
		}
		inverseTendencyLine(col[:low.Height*2], low.Height)
		for y := 0; y < low.Height*2; y++ {
			out.Set(x, y, col[y])
		}
	}
	return out
}
