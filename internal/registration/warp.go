package registration

import (
	"math"

	"formalign/internal/imaging"
	"formalign/pkg/geometry"
)

// WarpToTemplate resamples the scan into a width x height buffer
// shaped like the template frame. The transform maps template (x, y)
// to scan (x, y), so each output pixel (row r, col c) pulls its value
// from the scan at t(c, r) — the output is the inverse image of the
// scan under the model. Sampling is Catmull-Rom cubic; results are
// clamped to [0,1] and positions outside the scan read as 0.
func WarpToTemplate(scan *imaging.Image, t geometry.AffineTransform, width, height int) *imaging.Image {
	out := imaging.New(width, height)
	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			p := t.Apply(geometry.Point2D{X: float64(c), Y: float64(r)})
			out.Set(r, c, sampleCubic(scan, p.Y, p.X))
		}
	}
	return out
}

// sampleCubic evaluates the image at a fractional (row, col) position
// with separable Catmull-Rom interpolation over the 4x4 neighborhood.
// Taps falling outside the image contribute 0.
func sampleCubic(m *imaging.Image, row, col float64) float64 {
	if row < -1 || col < -1 || row > float64(m.Height) || col > float64(m.Width) {
		return 0
	}

	r0 := math.Floor(row)
	c0 := math.Floor(col)
	wr := catmullWeights(row - r0)
	wc := catmullWeights(col - c0)

	var v float64
	for i := 0; i < 4; i++ {
		rr := int(r0) + i - 1
		if rr < 0 || rr >= m.Height || wr[i] == 0 {
			continue
		}
		var rowSum float64
		for j := 0; j < 4; j++ {
			cc := int(c0) + j - 1
			if cc < 0 || cc >= m.Width {
				continue
			}
			rowSum += wc[j] * m.At(rr, cc)
		}
		v += wr[i] * rowSum
	}

	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// catmullWeights returns the four Catmull-Rom basis weights for a
// fractional offset t in [0,1). At t=0 the weights are (0,1,0,0), so
// integer positions reproduce source pixels exactly.
func catmullWeights(t float64) [4]float64 {
	t2 := t * t
	t3 := t2 * t
	return [4]float64{
		0.5 * (-t + 2*t2 - t3),
		0.5 * (2 - 5*t2 + 3*t3),
		0.5 * (t + 4*t2 - 3*t3),
		0.5 * (-t2 + t3),
	}
}
