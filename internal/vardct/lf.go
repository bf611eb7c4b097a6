package vardct

import "math"

// dct1DForward performs a type-II (forward) DCT of length n on src,
// writing into dst. It is the exact adjoint of idct1D: since the
// type-III transform idct1D implements is orthogonal, its transpose
// (this function, reusing the same cosine table) is its inverse.
func dct1DForward(src, dst []float32, n int) {
	table := cosTable(n)
	c0 := float32(1 / math.Sqrt2)
	for k := 0; k < n; k++ {
		var sum float32
		for x := 0; x < n; x++ {
			sum += src[x] * table[k*n+x]
		}
		ck := float32(1.0)
		if k == 0 {
			ck = c0
		}
		dst[k] = sum * ck * float32(math.Sqrt(2.0/float64(n)))
	}
}

// forwardDCT2D runs a separable 2-D forward DCT over a widthPx x
// heightPx buffer in place, the counterpart to InverseDCT2D used to
// re-transform a small LF block into the frequency domain ahead of
// scaling and seeding into a larger varblock (§4.G).
func forwardDCT2D(buf []float32, widthPx, heightPx int) {
	rowBuf := getFloatBuf(widthPx)
	colIn := getFloatBuf(heightPx)
	colOut := getFloatBuf(heightPx)
	defer putFloatBuf(rowBuf)
	defer putFloatBuf(colIn)
	defer putFloatBuf(colOut)

	for y := 0; y < heightPx; y++ {
		row := buf[y*widthPx : y*widthPx+widthPx]
		dct1DForward(row, rowBuf[:widthPx], widthPx)
		copy(row, rowBuf[:widthPx])
	}
	for x := 0; x < widthPx; x++ {
		for y := 0; y < heightPx; y++ {
			colIn[y] = buf[y*widthPx+x]
		}
		dct1DForward(colIn[:heightPx], colOut[:heightPx], heightPx)
		for y := 0; y < heightPx; y++ {
			buf[y*widthPx+x] = colOut[y]
		}
	}
}

// scaleTable is SCALE_F from the reference decoder's dct_common, used
// (inverted and re-indexed by block size) to rescale a forward-DCT'd LF
// block before seeding it into a larger varblock's low-frequency corner.
var scaleTable = [32]float32{
	1.0000000000000000, 0.9996047255830407, 0.9984194528776054, 0.9964458326264695,
	0.9936866130906366, 0.9901456355893141, 0.9858278282666936, 0.9807391980963174,
	0.9748868211368796, 0.9682788310563117, 0.9609244059440204, 0.9528337534340876,
	0.9440180941651672, 0.9344896436056892, 0.9242615922757944, 0.9133480844001980,
	0.9017641950288744, 0.8895259056651056, 0.8766500784429904, 0.8631544288990163,
	0.8490574973847023, 0.8343786191696513, 0.8191378932865928, 0.8033561501721485,
	0.7870549181591013, 0.7702563888779096, 0.7529833816270532, 0.7352593067735488,
	0.7171081282466044, 0.6985543251889097, 0.6796228528314652, 0.6603391026591464,
}

// scaleF returns the LF-integration rescale factor for coordinate c
// within a block of b pixels along that axis.
func scaleF(c, b int) float32 {
	idx := c * (256 / b)
	if idx < 0 {
		idx = 0
	}
	if idx > 31 {
		idx = 31
	}
	return 1.0 / scaleTable[idx]
}

// IntegrateLF seeds a varblock's low-frequency corner from its already
// decoded LF values (one per constituent 8x8 cell, bw x bh of them,
// row-major) ahead of running the shape's full inverse transform
// (transform_with_lf, §4.G). Single-cell shapes copy the one LF value
// directly into position 0; multi-cell shapes forward-DCT the small LF
// grid and rescale it by scale_f before writing it into coeffs' corner.
func IntegrateLF(coeffs []float32, shape TransformType, lfValues []float32, bw, bh int) {
	if bw == 1 && bh == 1 {
		coeffs[0] = lfValues[0]
		return
	}

	widthPx, heightPx := bw*8, bh*8
	grid := make([]float32, bw*bh)
	copy(grid, lfValues)
	forwardDCT2D(grid, bw, bh)

	for y := 0; y < bh; y++ {
		for x := 0; x < bw; x++ {
			v := grid[y*bw+x] * scaleF(y, bh*8) * scaleF(x, bw*8)
			coeffs[y*widthPx+x] = v
		}
	}
}
