// Package imaging provides the grayscale image model used by the
// registration pipeline, the file codec, and the affine pre-transforms
// (region crop, uniform rescale) applied before registration runs.
package imaging

import (
	"image"
	"image/color"
)

// Image is a grayscale image stored as row-major float64 intensities
// in [0,1]. Pipeline stages treat it as read-only; operations that
// change pixels return a new Image.
type Image struct {
	Width  int
	Height int
	Pix    []float64
}

// New creates a zero-filled image of the given size.
func New(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// At returns the intensity at (row, col). No bounds checking.
func (m *Image) At(row, col int) float64 {
	return m.Pix[row*m.Width+col]
}

// Set stores an intensity at (row, col). No bounds checking.
func (m *Image) Set(row, col int, v float64) {
	m.Pix[row*m.Width+col] = v
}

// Clone returns a deep copy of the image.
func (m *Image) Clone() *Image {
	out := New(m.Width, m.Height)
	copy(out.Pix, m.Pix)
	return out
}

// FromImage converts a decoded image to the grayscale float model,
// collapsing color through the standard luminance weights.
func FromImage(img image.Image) *Image {
	bounds := img.Bounds()
	out := New(bounds.Dx(), bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			out.Set(y-bounds.Min.Y, x-bounds.Min.X, float64(g.Y)/65535.0)
		}
	}
	return out
}

// ToGray16 converts the float model to a 16-bit grayscale image.
func (m *Image) ToGray16() *image.Gray16 {
	out := image.NewGray16(image.Rect(0, 0, m.Width, m.Height))
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			v := clamp01(m.At(r, c))
			out.SetGray16(c, r, color.Gray16{Y: uint16(v*65535.0 + 0.5)})
		}
	}
	return out
}

// ToGray converts the float model to an 8-bit grayscale image.
func (m *Image) ToGray() *image.Gray {
	out := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for r := 0; r < m.Height; r++ {
		for c := 0; c < m.Width; c++ {
			v := clamp01(m.At(r, c))
			out.SetGray(c, r, color.Gray{Y: uint8(v*255.0 + 0.5)})
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
