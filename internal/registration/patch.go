package registration

import (
	"fmt"

	"formalign/internal/imaging"
)

// ExtractPatch crops a window x window patch centered on p. Where the
// window extends past the image, rows and columns are mirrored about
// the border pixel rather than clamped or zero-filled, so texture
// continuity is preserved and every patch has identical dimensions.
func ExtractPatch(m *imaging.Image, p Point, window int) (*imaging.Image, error) {
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("%w: patch window must be odd, got %d", ErrInvalidConfig, window)
	}

	half := window / 2
	out := imaging.New(window, window)
	for r := 0; r < window; r++ {
		sr := reflectIndex(p.Row-half+r, m.Height)
		for c := 0; c < window; c++ {
			sc := reflectIndex(p.Col-half+c, m.Width)
			out.Set(r, c, m.At(sr, sc))
		}
	}
	return out, nil
}

// reflectIndex mirrors an out-of-range index about the border without
// repeating the edge sample: -1 maps to 1, n maps to n-2.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
