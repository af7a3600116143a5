package registration

import (
	"math"
	"math/rand"
	"testing"

	"formalign/internal/imaging"
	"formalign/pkg/geometry"
)

// makeFormTemplate renders a 100x100 form-like scene: a jittered grid
// of rectangles with distinct sizes and intensities on a dim
// background, lightly smoothed so corners localize consistently. It
// yields well over 30 distinguishable corner features.
func makeFormTemplate() *imaging.Image {
	img := imaging.New(100, 100)
	for i := range img.Pix {
		img.Pix[i] = 0.05
	}

	rng := rand.New(rand.NewSource(42))
	k := 0
	for gr := 0; gr < 4; gr++ {
		for gc := 0; gc < 4; gc++ {
			r0 := 8 + gr*21 + rng.Intn(4)
			c0 := 8 + gc*21 + rng.Intn(4)
			h := 9 + rng.Intn(5)
			w := 9 + rng.Intn(5)
			v := 0.35 + 0.6*float64(k)/15.0
			fillRect(img, r0, c0, h, w, v)
			k++
		}
	}
	return gaussianSmooth(img, 1.0)
}

func fillRect(img *imaging.Image, r0, c0, h, w int, v float64) {
	for r := r0; r < r0+h && r < img.Height; r++ {
		for c := c0; c < c0+w && c < img.Width; c++ {
			img.Set(r, c, v)
		}
	}
}

// embedTemplate places the template into a width x height scan through
// the forward model t (template coordinates to scan coordinates).
func embedTemplate(tb testing.TB, tpl *imaging.Image, t geometry.AffineTransform, width, height int) *imaging.Image {
	inv, ok := t.Inverse()
	if !ok {
		tb.Fatal("embedding transform is singular")
	}
	return WarpToTemplate(tpl, inv, width, height)
}

func meanAbsError(a, b *imaging.Image) float64 {
	var sum float64
	for i := range a.Pix {
		sum += math.Abs(a.Pix[i] - b.Pix[i])
	}
	return sum / float64(len(a.Pix))
}
