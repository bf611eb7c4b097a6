// Package upsample implements the fixed-kernel 2x/4x/8x image
// upsampling used both for low-resolution frames and for chroma
// subsampling recovery, plus EXIF-style orientation correction applied
// as the final geometric step before color transform output (§4.J).
package upsample

// Kernel holds the separable-applied weight table for one upsampling
// factor (§4.E upsampling weight tables). Nothing converts the image
// header's weight arrays into this layout; render.PostProcess builds
// Kernels with Factor only.
type Kernel struct {
	Factor  int
	Weights []float32 // length (factor*factor-1)*5, grouped per output sub-pixel position
}

// Plane is a single-channel float32 image buffer, matching the loop
// filter package's shape so the two can be chained without conversion.
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

// Upsample scales p by k.Factor using a 5-tap-per-subposition weighted
// blend of the 5x5 neighborhood around each source pixel, the generalized
// shape of the format's fixed upsampling kernels for factor in {2,4,8}
// (§4.J). A sub-position without a full set of 5 weights in k.Weights
// replicates the source pixel, so a Kernel with no weights gives plain
// nearest-neighbor replication.
func Upsample(p *Plane, k Kernel) *Plane {
	factor := k.Factor
	out := &Plane{Width: p.Width * factor, Height: p.Height * factor, Data: make([]float32, p.Width*factor*p.Height*factor)}
	tapsPerSub := 5
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			for oy := 0; oy < factor; oy++ {
				for ox := 0; ox < factor; ox++ {
					sub := oy*factor + ox
					var v float32
					if sub == 0 {
						v = p.at(x, y)
					} else if (sub-1)*tapsPerSub+tapsPerSub <= len(k.Weights) {
						w := k.Weights[(sub-1)*tapsPerSub : sub*tapsPerSub]
						v = w[0]*p.at(x, y) + w[1]*p.at(x-1, y) + w[2]*p.at(x+1, y) + w[3]*p.at(x, y-1) + w[4]*p.at(x, y+1)
					} else {
						v = p.at(x, y)
					}
					out.Data[(y*factor+oy)*out.Width+(x*factor+ox)] = v
				}
			}
		}
	}
	return out
}

// Orientation mirrors the EXIF orientation tag's 8 values (§4.J).
type Orientation int

const (
	OrientIdentity Orientation = iota + 1
	OrientFlipH
	OrientRotate180
	OrientFlipV
	OrientTranspose
	OrientRotate90CW
	OrientTransverse
	OrientRotate270CW
)

// ApplyOrientation returns a new plane with the given EXIF orientation
// applied. The image package's x/image/... equivalents implement the
// same 8-case transform over image.Image; reimplemented here directly
// over Plane since intermediate decode state is float32, not image.Image,
// until the final output conversion (§4.J design note).
func ApplyOrientation(p *Plane, o Orientation) *Plane {
	switch o {
	case OrientIdentity:
		return p
	case OrientFlipH:
		out := &Plane{Width: p.Width, Height: p.Height, Data: make([]float32, len(p.Data))}
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				out.Data[y*p.Width+x] = p.Data[y*p.Width+(p.Width-1-x)]
			}
		}
		return out
	case OrientRotate180:
		out := &Plane{Width: p.Width, Height: p.Height, Data: make([]float32, len(p.Data))}
		n := len(p.Data)
		for i, v := range p.Data {
			out.Data[n-1-i] = v
		}
		return out
	case OrientFlipV:
		out := &Plane{Width: p.Width, Height: p.Height, Data: make([]float32, len(p.Data))}
		for y := 0; y < p.Height; y++ {
			copy(out.Data[y*p.Width:(y+1)*p.Width], p.Data[(p.Height-1-y)*p.Width:(p.Height-y)*p.Width])
		}
		return out
	case OrientTranspose, OrientRotate90CW, OrientTransverse, OrientRotate270CW:
		out := &Plane{Width: p.Height, Height: p.Width, Data: make([]float32, len(p.Data))}
		for y := 0; y < p.Height; y++ {
			for x := 0; x < p.Width; x++ {
				var nx, ny int
				switch o {
				case OrientTranspose:
					nx, ny = y, x
				case OrientRotate90CW:
					nx, ny = p.Height-1-y, x
				case OrientTransverse:
					nx, ny = p.Height-1-y, p.Width-1-x
				case OrientRotate270CW:
					nx, ny = y, p.Width-1-x
				}
				out.Data[ny*out.Width+nx] = p.Data[y*p.Width+x]
			}
		}
		return out
	default:
		return p
	}
}
