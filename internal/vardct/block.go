// Package vardct implements the VarDCT pipeline: variable block-size
// integer-approximated DCT decode, dequantization, chroma-from-luma
// prediction, and the HF coefficient orchestration tying block shapes to
// their entropy-coded coefficient groups (§4.G).
package vardct

// TransformType enumerates the 27 transform shapes a VarDCT block may
// use, matching the format's dct_select enum order (§4.G). Values below
// 8x8 in footprint (Dct2, Dct4, Hornuss, Dct4x8, Dct8x4, Afv0..3) still
// occupy exactly one 8x8 grid cell; they differ from Dct8 only in which
// inverse transform family decodes that cell's 64 coefficients.
type TransformType int

const (
	Dct8 TransformType = iota
	Hornuss
	Dct2
	Dct4
	Dct16
	Dct32
	Dct16x8
	Dct8x16
	Dct32x8
	Dct8x32
	Dct32x16
	Dct16x32
	Dct4x8
	Dct8x4
	Afv0
	Afv1
	Afv2
	Afv3
	Dct64
	Dct64x32
	Dct32x64
	Dct128
	Dct128x64
	Dct64x128
	Dct256
	Dct256x128
	Dct128x256
)

// Family groups transform types by which inverse dispatch they share
// (§4.G): the plain rectangular separable DCT covers most of the large
// shapes, while the small shapes each need dedicated butterfly/blend
// logic.
type Family int

const (
	FamilyDCT Family = iota
	FamilyDCT2
	FamilyDCT4
	FamilyHornuss
	FamilyDCT4x8
	FamilyDCT8x4
	FamilyAFV
)

// shapeDims gives each transform type's footprint in 8x8-block grid
// units (width, height).
var shapeDims = map[TransformType][2]int{
	Dct8:        {1, 1},
	Hornuss:     {1, 1},
	Dct2:        {1, 1},
	Dct4:        {1, 1},
	Dct16:       {2, 2},
	Dct32:       {4, 4},
	Dct16x8:     {2, 1},
	Dct8x16:     {1, 2},
	Dct32x8:     {4, 1},
	Dct8x32:     {1, 4},
	Dct32x16:    {4, 2},
	Dct16x32:    {2, 4},
	Dct4x8:      {1, 1},
	Dct8x4:      {1, 1},
	Afv0:        {1, 1},
	Afv1:        {1, 1},
	Afv2:        {1, 1},
	Afv3:        {1, 1},
	Dct64:       {8, 8},
	Dct64x32:    {8, 4},
	Dct32x64:    {4, 8},
	Dct128:      {16, 16},
	Dct128x64:   {16, 8},
	Dct64x128:   {8, 16},
	Dct256:      {32, 32},
	Dct256x128:  {32, 16},
	Dct128x256:  {16, 32},
}

var shapeFamily = map[TransformType]Family{
	Dct2:    FamilyDCT2,
	Dct4:    FamilyDCT4,
	Hornuss: FamilyHornuss,
	Dct4x8:  FamilyDCT4x8,
	Dct8x4:  FamilyDCT8x4,
	Afv0:    FamilyAFV,
	Afv1:    FamilyAFV,
	Afv2:    FamilyAFV,
	Afv3:    FamilyAFV,
}

// BlockSizeBlocks returns the shape's footprint in 8x8-block grid units.
func BlockSizeBlocks(s TransformType) (w, h int) {
	d := shapeDims[s]
	return d[0], d[1]
}

// ShapeFamily returns which inverse-transform dispatch a shape uses.
func ShapeFamily(s TransformType) Family {
	if f, ok := shapeFamily[s]; ok {
		return f
	}
	return FamilyDCT
}

// NumCoeffs returns the coefficient count for a block of shape s.
func NumCoeffs(s TransformType) int {
	w, h := BlockSizeBlocks(s)
	return 64 * w * h
}

// BlockInfo is one 8x8 grid cell's varblock membership (§4.G): the
// top-left cell of a varblock has IsTopLeft set and carries its shape
// (DctSelect) and HF multiplier; every other cell the varblock covers
// carries FirstBX/FirstBY, pointing back at the top-left cell so per-pixel lookups (CFL grids,
// loop filters) can find the owning varblock without a reverse scan.
type BlockInfo struct {
	IsTopLeft  bool
	DctSelect  TransformType
	HfMul      int32
	FirstBX    int // top-left cell's grid column (meaningful when !IsTopLeft)
	FirstBY    int // top-left cell's grid row (meaningful when !IsTopLeft)
}

// Block is one VarDCT block's decoded state: its shape, originating
// (bx, by) position in 8x8-block grid coordinates, and dequantized
// coefficients in natural (row-major, DC-first) order.
type Block struct {
	Shape  TransformType
	BX, BY int
	Coeffs []int32 // length = 64 * blockWidthBlocks * blockHeightBlocks
}
