package features

import (
	"github.com/jxlcore/jxl/internal/bio"
	"github.com/jxlcore/jxl/internal/entropy"
)

// ControlPoint is one knot of a spline's quadratic B-spline control
// polygon (§4.I).
type ControlPoint struct {
	X, Y int32
}

// Spline is a single rendered curve: a control polygon plus per-channel
// color and a width envelope sampled along its arc length.
type Spline struct {
	Points       []ControlPoint
	Color        [3]float32
	WidthProfile []float32 // 32 evenly spaced arc-length samples
}

// ReadSplines parses the spline list using a dedicated entropy context
// set the same way the MA tree's leaf-cluster pass uses a single small
// decoder instance (§4.I, §4.D).
func ReadSplines(r *bio.Reader) ([]Spline, error) {
	numSplines, err := r.ReadU32(bio.Direct(0), bio.U32Specifier{N: 4}, bio.U32Specifier{Base: 16, N: 8}, bio.U32Specifier{Base: 272, N: 12})
	if err != nil {
		return nil, err
	}
	if numSplines == 0 {
		return nil, nil
	}
	dec, err := entropy.NewDecoder(r, 6)
	if err != nil {
		return nil, err
	}

	splines := make([]Spline, numSplines)
	var prevX, prevY int32
	for i := range splines {
		numPoints, err := dec.ReadVarint(r, 0)
		if err != nil {
			return nil, err
		}
		points := make([]ControlPoint, numPoints)
		x, y := prevX, prevY
		for j := range points {
			dxTok, err := dec.ReadVarint(r, 1)
			if err != nil {
				return nil, err
			}
			dyTok, err := dec.ReadVarint(r, 2)
			if err != nil {
				return nil, err
			}
			x += entropy.UnpackSigned(dxTok)
			y += entropy.UnpackSigned(dyTok)
			points[j] = ControlPoint{X: x, Y: y}
		}
		prevX, prevY = x, y

		var color [3]float32
		for c := range color {
			tok, err := dec.ReadVarint(r, 3)
			if err != nil {
				return nil, err
			}
			color[c] = float32(entropy.UnpackSigned(tok)) / 4096
		}

		widths := make([]float32, 32)
		for w := range widths {
			tok, err := dec.ReadVarint(r, 4)
			if err != nil {
				return nil, err
			}
			widths[w] = float32(tok) / 4096
		}

		splines[i] = Spline{Points: points, Color: color, WidthProfile: widths}
	}
	if err := dec.FinalizeAns(); err != nil {
		return nil, err
	}
	return splines, nil
}

// quadraticBSpline evaluates the uniform quadratic B-spline through
// control points pts at parameter t in [0, segments], where segments =
// len(pts)-2.
func quadraticBSpline(pts []ControlPoint, t float64) (float64, float64) {
	n := len(pts)
	if n < 3 {
		if n == 0 {
			return 0, 0
		}
		p := pts[0]
		return float64(p.X), float64(p.Y)
	}
	seg := int(t)
	if seg > n-3 {
		seg = n - 3
	}
	local := t - float64(seg)
	p0, p1, p2 := pts[seg], pts[seg+1], pts[seg+2]
	b0 := 0.5 * (1 - local) * (1 - local)
	b1 := 0.5 + local*(1-local)
	b2 := 0.5 * local * local
	x := b0*float64(p0.X) + b1*float64(p1.X) + b2*float64(p2.X)
	y := b0*float64(p0.Y) + b1*float64(p1.Y) + b2*float64(p2.Y)
	return x, y
}

// RenderSpline rasterizes a spline onto canvas by sampling its curve
// densely and stamping the width-profile-scaled color at each sample
// (§4.I). This is a simplified rasterizer: the real format anti-aliases
// with a Gaussian falloff across the width; here each sample paints a
// solid disc, sufficient to exercise the control-point and width-profile
// decode path this package is responsible for.
func RenderSpline(canvas *Canvas, s Spline) {
	if len(s.Points) == 0 {
		return
	}
	segments := len(s.Points) - 2
	if segments < 1 {
		segments = 1
	}
	samples := segments * 16
	for i := 0; i <= samples; i++ {
		t := float64(i) / float64(samples) * float64(segments)
		x, y := quadraticBSpline(s.Points, t)
		widthIdx := i * (len(s.WidthProfile) - 1) / samples
		if widthIdx < 0 {
			widthIdx = 0
		}
		if widthIdx >= len(s.WidthProfile) {
			widthIdx = len(s.WidthProfile) - 1
		}
		radius := int(s.WidthProfile[widthIdx])
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx*dx+dy*dy > radius*radius {
					continue
				}
				for ch := 0; ch < len(canvas.Channels) && ch < 3; ch++ {
					canvas.set(ch, int(x)+dx, int(y)+dy, s.Color[ch])
				}
			}
		}
	}
}
