package vardct

import (
	"math"
	"sync"
)

// floatBufPool reuses scratch row/column buffers across block transforms.
var floatBufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]float32, 256)
		return &buf
	},
}

func getFloatBuf(n int) []float32 {
	bp := floatBufPool.Get().(*[]float32)
	buf := *bp
	if cap(buf) < n {
		buf = make([]float32, n)
	} else {
		buf = buf[:n]
	}
	return buf
}

func putFloatBuf(buf []float32) {
	bp := &buf
	floatBufPool.Put(bp)
}

var cosTableCache sync.Map // map[int][]float32, n*n entries, row-major [k][x]

func cosTable(n int) []float32 {
	if v, ok := cosTableCache.Load(n); ok {
		return v.([]float32)
	}
	table := make([]float32, n*n)
	for k := 0; k < n; k++ {
		for x := 0; x < n; x++ {
			table[k*n+x] = float32(math.Cos(math.Pi / float64(n) * (float64(x) + 0.5) * float64(k)))
		}
	}
	cosTableCache.Store(n, table)
	return table
}

// idct1D performs a type-III (inverse) DCT of length n on src, writing
// into dst. Both must have length n.
func idct1D(src, dst []float32, n int) {
	table := cosTable(n)
	c0 := float32(1 / math.Sqrt2)
	for x := 0; x < n; x++ {
		var sum float32
		for k := 0; k < n; k++ {
			ck := float32(1.0)
			if k == 0 {
				ck = c0
			}
			sum += ck * src[k] * table[k*n+x]
		}
		dst[x] = sum * float32(math.Sqrt(2.0/float64(n)))
	}
}

// InverseDCT2D performs a separable 2-D inverse DCT on an nW*8 by nH*8
// block of coefficients in row-major natural order, writing pixel-domain
// residuals back into the same buffer in place. This is the default
// (FamilyDCT) inverse, used directly by every rectangular shape from
// Dct8 up through Dct256x128 and as the building block small-shape
// transforms below call on their sub-blocks (§4.G).
func InverseDCT2D(coeffs []float32, widthPx, heightPx int) {
	rowBuf := getFloatBuf(widthPx)
	colIn := getFloatBuf(heightPx)
	colOut := getFloatBuf(heightPx)
	defer putFloatBuf(rowBuf)
	defer putFloatBuf(colIn)
	defer putFloatBuf(colOut)

	for y := 0; y < heightPx; y++ {
		row := coeffs[y*widthPx : y*widthPx+widthPx]
		idct1D(row, rowBuf[:widthPx], widthPx)
		copy(row, rowBuf[:widthPx])
	}
	for x := 0; x < widthPx; x++ {
		for y := 0; y < heightPx; y++ {
			colIn[y] = coeffs[y*widthPx+x]
		}
		idct1D(colIn[:heightPx], colOut[:heightPx], heightPx)
		for y := 0; y < heightPx; y++ {
			coeffs[y*widthPx+x] = colOut[y]
		}
	}
}

// at8/set8 address an 8x8-coefficient buffer (stride 8) the way the small
// shape families below need to, mirroring the reference decoder's
// CutGrid get/get_mut used on one varblock's single 8x8 cell.
func at8(buf []float32, x, y int) float32   { return buf[y*8+x] }
func set8(buf []float32, x, y int, v float32) { buf[y*8+x] = v }

// auxIDCT2InPlace is the recursive 2x2 butterfly cascade underlying
// Dct2, Dct4, and Hornuss: it treats the size x size sub-grid as four
// (size/2)x(size/2) quadrants and combines them with a Hadamard-like
// butterfly (§4.G).
func auxIDCT2InPlace(buf []float32, size int) {
	num2x2 := size / 2
	scratch := make([]float32, size*size)
	for y := 0; y < num2x2; y++ {
		for x := 0; x < num2x2; x++ {
			c00 := at8(buf, x, y)
			c01 := at8(buf, x+num2x2, y)
			c10 := at8(buf, x, y+num2x2)
			c11 := at8(buf, x+num2x2, y+num2x2)

			baseIdx := 2 * (y*size + x)
			scratch[baseIdx] = c00 + c01 + c10 + c11
			scratch[baseIdx+1] = c00 + c01 - c10 - c11
			scratch[baseIdx+size] = c00 - c01 + c10 - c11
			scratch[baseIdx+size+1] = c00 - c01 - c10 + c11
		}
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			set8(buf, x, y, scratch[y*size+x])
		}
	}
}

// transformDCT2 cascades the butterfly at 2, 4, then 8 to realize the
// recursive "DCT2" shape's inverse.
func transformDCT2(buf []float32) {
	auxIDCT2InPlace(buf, 2)
	auxIDCT2InPlace(buf, 4)
	auxIDCT2InPlace(buf, 8)
}

// transformDCT4 applies one 2x2 butterfly, then a full 4x4 inverse DCT
// independently to each of the four interleaved 4x4 sub-blocks.
func transformDCT4(buf []float32) {
	auxIDCT2InPlace(buf, 2)

	var scratch [64]float32
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			sub := scratch[(y*2+x)*16 : (y*2+x)*16+16]
			for iy := 0; iy < 4; iy++ {
				for ix := 0; ix < 4; ix++ {
					sub[iy*4+ix] = at8(buf, x+ix*2, y+iy*2)
				}
			}
			InverseDCT2D(sub, 4, 4)
		}
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			sub := scratch[(y*2+x)*16 : (y*2+x)*16+16]
			for iy := 0; iy < 4; iy++ {
				for ix := 0; ix < 4; ix++ {
					set8(buf, x*4+ix, y*4+iy, sub[iy*4+ix])
				}
			}
		}
	}
}

// transformHornuss is Dct4's sibling: the same 2x2 butterfly and 4x4
// split, but each sub-block's DC term is replaced by an average of its
// own AC residuals rather than run through a full 4x4 inverse DCT.
func transformHornuss(buf []float32) {
	auxIDCT2InPlace(buf, 2)

	var scratch [64]float32
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			sub := scratch[(y*2+x)*16 : (y*2+x)*16+16]
			for iy := 0; iy < 4; iy++ {
				for ix := 0; ix < 4; ix++ {
					sub[iy*4+ix] = at8(buf, x+ix*2, y+iy*2)
				}
			}
			var residualSum float32
			for _, v := range sub[1:] {
				residualSum += v
			}
			avg := sub[0] - residualSum/16.0
			sub[0] = sub[5] + avg
			sub[5] = avg
			for idx := range sub {
				if idx == 0 || idx == 5 {
					continue
				}
				sub[idx] += avg
			}
		}
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			sub := scratch[(y*2+x)*16 : (y*2+x)*16+16]
			for iy := 0; iy < 4; iy++ {
				for ix := 0; ix < 4; ix++ {
					set8(buf, x*4+ix, y*4+iy, sub[iy*4+ix])
				}
			}
		}
	}
}

// transformDCT4x8 handles both Dct4x8 and Dct8x4: a DC-column butterfly
// followed by two independent 8x4 inverse DCTs, reassembled transposed
// for the 8x4 (tall) orientation.
func transformDCT4x8(buf []float32, transpose bool) {
	c0 := at8(buf, 0, 0)
	c1 := at8(buf, 0, 1)
	set8(buf, 0, 0, c0+c1)
	set8(buf, 0, 1, c0-c1)

	var scratch [64]float32
	for _, idx := range [2]int{0, 1} {
		sub := scratch[idx*32 : idx*32+32]
		for iy := 0; iy < 4; iy++ {
			for ix := 0; ix < 8; ix++ {
				sub[iy*8+ix] = at8(buf, ix, iy*2+idx)
			}
		}
		InverseDCT2D(sub, 8, 4)
	}

	if transpose {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				set8(buf, y, x, scratch[y*8+x])
			}
		}
	} else {
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				set8(buf, x, y, scratch[y*8+x])
			}
		}
	}
}

// transformAFV handles the 4 AFV variants (distinguished by which
// quadrant the 16-basis custom transform occupies): one quadrant is
// synthesized from a dedicated 16x16 basis matrix blending low and high
// frequencies, while the remaining samples are filled in by a 4x4 and a
// 4x8 inverse DCT over disjoint input positions (§4.G).
func transformAFV(buf []float32, n int) {
	flipX := n % 2
	flipY := n / 2

	var coeffAFV [16]float32
	coeffAFV[0] = (at8(buf, 0, 0) + at8(buf, 1, 0) + at8(buf, 0, 1)) * 4.0
	for idx := 1; idx < 16; idx++ {
		iy := idx / 4
		ix := idx % 4
		coeffAFV[idx] = at8(buf, 2*ix, 2*iy)
	}

	var samplesAFV [16]float32
	for i := 0; i < 16; i++ {
		var sum float32
		basis := afvBasis[i]
		for k := 0; k < 16; k++ {
			sum += coeffAFV[k] * basis[k]
		}
		samplesAFV[i] = sum
	}

	var scratch4x4 [16]float32
	var scratch4x8 [32]float32

	scratch4x4[0] = at8(buf, 0, 0) - at8(buf, 1, 0) + at8(buf, 0, 1)
	for iy := 0; iy < 4; iy++ {
		for ix := 0; ix < 4; ix++ {
			if ix|iy == 0 {
				continue
			}
			scratch4x4[iy*4+ix] = at8(buf, 2*ix+1, 2*iy)
		}
	}
	InverseDCT2D(scratch4x4[:], 4, 4)

	scratch4x8[0] = at8(buf, 0, 0) - at8(buf, 0, 1)
	for iy := 0; iy < 4; iy++ {
		for ix := 0; ix < 8; ix++ {
			if ix|iy == 0 {
				continue
			}
			scratch4x8[iy*8+ix] = at8(buf, ix, 2*iy+1)
		}
	}
	InverseDCT2D(scratch4x8[:], 8, 4)

	for iy := 0; iy < 4; iy++ {
		afvY := iy
		if flipY != 0 {
			afvY = 3 - iy
		}
		for ix := 0; ix < 4; ix++ {
			afvX := ix
			if flipX != 0 {
				afvX = 3 - ix
			}
			set8(buf, flipX*4+ix, flipY*4+iy, samplesAFV[afvY*4+afvX])
		}
	}

	for iy := 0; iy < 4; iy++ {
		y := flipY*4 + iy
		for ix := 0; ix < 4; ix++ {
			x := (1-flipX)*4 + ix
			set8(buf, x, y, scratch4x4[iy*4+ix])
		}
	}

	for iy := 0; iy < 4; iy++ {
		y := (1-flipY)*4 + iy
		for ix := 0; ix < 8; ix++ {
			set8(buf, ix, y, scratch4x8[iy*8+ix])
		}
	}
}

// InverseTransform runs the per-shape inverse dispatch on one varblock's
// dequantized coefficients (laid out row-major, natural order, widthPx x
// heightPx for multi-cell shapes or flat 8x8 for the single-cell
// families), writing pixel-domain residuals back in place (§4.G).
func InverseTransform(coeffs []float32, shape TransformType) {
	switch shape {
	case Dct2:
		transformDCT2(coeffs)
	case Dct4:
		transformDCT4(coeffs)
	case Hornuss:
		transformHornuss(coeffs)
	case Dct4x8:
		transformDCT4x8(coeffs, false)
	case Dct8x4:
		transformDCT4x8(coeffs, true)
	case Afv0:
		transformAFV(coeffs, 0)
	case Afv1:
		transformAFV(coeffs, 1)
	case Afv2:
		transformAFV(coeffs, 2)
	case Afv3:
		transformAFV(coeffs, 3)
	default:
		w, h := BlockSizeBlocks(shape)
		InverseDCT2D(coeffs, w*8, h*8)
	}
}

// afvBasis is the 16x16 basis matrix blending a custom low-frequency
// transform into one quadrant of an AFV block, taken verbatim from the
// reference decoder's constant table (§4.G).
var afvBasis = [16][16]float32{
	{0.25, 0.87690294, 0.0, 0.0, 0.0, -0.41053775, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0},
	{0.25, 0.2206518, 0.0, 0.0, -0.70710677, 0.6235485, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0},
	{0.25, -0.1014005, 0.40670076, -0.21255748, 0.0, -0.06435072, -0.45175567, -0.30468476, 0.30179295, 0.4082483, 0.1747867, -0.21105601, -0.14266084, -0.1381354, -0.17437603, 0.11354987},
	{0.25, -0.1014005, 0.44444817, 0.3085497, 0.0, -0.06435072, 0.15854503, 0.51126164, 0.25792363, 0.0, 0.08126112, 0.1856718, -0.34164467, 0.33022827, 0.07027907, -0.074175045},
	{0.25, 0.2206518, 0.0, 0.0, 0.70710677, 0.6235485, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0, 0.0},
	{0.25, -0.1014005, 0.0, 0.47067022, 0.0, -0.06435072, -0.040385153, 0.0, 0.1627234, 0.0, 0.0, 0.0, 0.73674977, 0.08755115, -0.29210266, 0.19402893},
	{0.25, -0.1014005, 0.195744, -0.16212052, 0.0, -0.06435072, 0.0074182265, -0.29048014, 0.095200226, 0.0, -0.3675398, 0.4921586, 0.24627107, -0.079467066, 0.36238173, -0.4351905},
	{0.25, -0.1014005, 0.29291, 0.0, 0.0, -0.06435072, 0.39351034, -0.06578702, 0.0, -0.4082483, -0.30788222, -0.38525015, -0.08574019, -0.46133748, 0.0, 0.21918684},
	{0.25, -0.1014005, -0.40670076, -0.21255748, 0.0, -0.06435072, -0.45175567, 0.30468476, 0.30179295, -0.4082483, -0.1747867, 0.21105601, -0.14266084, -0.1381354, -0.17437603, 0.11354987},
	{0.25, -0.1014005, -0.195744, -0.16212052, 0.0, -0.06435072, 0.0074182265, 0.29048014, 0.095200226, 0.0, 0.3675398, -0.4921586, 0.24627107, -0.079467066, 0.36238173, -0.4351905},
	{0.25, -0.1014005, 0.0, -0.47067022, 0.0, -0.06435072, 0.11074166, 0.0, -0.1627234, 0.0, 0.0, 0.0, 0.14883399, 0.49724647, 0.29210266, 0.55504435},
	{0.25, -0.1014005, 0.11379074, -0.14642918, 0.0, -0.06435072, 0.08298163, -0.23889774, -0.35312384, -0.4082483, 0.4826689, 0.17419413, -0.047686804, 0.12538059, -0.4326608, -0.25468278},
	{0.25, -0.1014005, -0.44444817, 0.3085497, 0.0, -0.06435072, 0.15854503, -0.51126164, 0.25792363, 0.0, -0.08126112, -0.1856718, -0.34164467, 0.33022827, 0.07027907, -0.074175045},
	{0.25, -0.1014005, -0.29291, 0.0, 0.0, -0.06435072, 0.39351034, 0.06578702, 0.0, 0.4082483, 0.30788222, 0.38525015, -0.08574019, -0.46133748, 0.0, 0.21918684},
	{0.25, -0.1014005, -0.11379074, -0.14642918, 0.0, -0.06435072, 0.08298163, 0.23889774, -0.35312384, 0.4082483, -0.4826689, -0.17419413, -0.047686804, 0.12538059, -0.4326608, -0.25468278},
	{0.25, -0.1014005, 0.0, 0.42511496, 0.0, -0.06435072, -0.45175567, 0.0, -0.6035859, 0.0, 0.0, 0.0, -0.14266084, -0.1381354, 0.34875205, 0.11354987},
}
