package imaging

import (
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"formalign/pkg/geometry"
)

// Crop extracts the given region from the image. The region must lie
// fully inside the image bounds; a malformed region is rejected before
// any pixel work.
func Crop(m *Image, region geometry.RectInt) (*Image, error) {
	if region.Empty() {
		return nil, fmt.Errorf("empty crop region %dx%d", region.Width, region.Height)
	}
	if region.X < 0 || region.Y < 0 ||
		region.X+region.Width > m.Width || region.Y+region.Height > m.Height {
		return nil, fmt.Errorf("crop region %dx%d+%d+%d outside image %dx%d",
			region.Width, region.Height, region.X, region.Y, m.Width, m.Height)
	}

	out := New(region.Width, region.Height)
	for r := 0; r < region.Height; r++ {
		src := (region.Y+r)*m.Width + region.X
		copy(out.Pix[r*region.Width:(r+1)*region.Width], m.Pix[src:src+region.Width])
	}
	return out, nil
}

// Rescale resizes the image uniformly by the given factor using
// Catmull-Rom (cubic) resampling.
func Rescale(m *Image, factor float64) (*Image, error) {
	if factor <= 0 {
		return nil, fmt.Errorf("invalid rescale factor %g", factor)
	}
	if factor == 1 {
		return m.Clone(), nil
	}

	newW := int(math.Round(float64(m.Width) * factor))
	newH := int(math.Round(float64(m.Height) * factor))
	if newW < 1 || newH < 1 {
		return nil, fmt.Errorf("rescale factor %g collapses %dx%d image", factor, m.Width, m.Height)
	}

	src := m.ToGray16()
	dst := image.NewGray16(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return FromImage(dst), nil
}
