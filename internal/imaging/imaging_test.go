package imaging

import (
	"math"
	"path/filepath"
	"testing"

	"formalign/pkg/geometry"
)

func gradientImage(width, height int) *Image {
	img := New(width, height)
	for r := 0; r < height; r++ {
		for c := 0; c < width; c++ {
			img.Set(r, c, float64(r*width+c)/float64(width*height))
		}
	}
	return img
}

func TestCrop(t *testing.T) {
	img := gradientImage(10, 8)
	out, err := Crop(img, geometry.RectInt{X: 2, Y: 1, Width: 4, Height: 3})
	if err != nil {
		t.Fatalf("crop failed: %v", err)
	}
	if out.Width != 4 || out.Height != 3 {
		t.Fatalf("got %dx%d, want 4x3", out.Width, out.Height)
	}
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			if out.At(r, c) != img.At(r+1, c+2) {
				t.Fatalf("pixel (%d,%d) mismatch", r, c)
			}
		}
	}
}

func TestCropRejectsMalformedRegions(t *testing.T) {
	img := gradientImage(10, 8)
	cases := []struct {
		name   string
		region geometry.RectInt
	}{
		{"empty", geometry.RectInt{X: 0, Y: 0, Width: 0, Height: 5}},
		{"negative offset", geometry.RectInt{X: -1, Y: 0, Width: 4, Height: 4}},
		{"past right edge", geometry.RectInt{X: 8, Y: 0, Width: 4, Height: 4}},
		{"past bottom edge", geometry.RectInt{X: 0, Y: 6, Width: 4, Height: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Crop(img, tc.region); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestRescale(t *testing.T) {
	img := gradientImage(20, 10)

	half, err := Rescale(img, 0.5)
	if err != nil {
		t.Fatalf("rescale failed: %v", err)
	}
	if half.Width != 10 || half.Height != 5 {
		t.Errorf("got %dx%d, want 10x5", half.Width, half.Height)
	}

	same, err := Rescale(img, 1.0)
	if err != nil {
		t.Fatalf("rescale failed: %v", err)
	}
	for i := range img.Pix {
		if same.Pix[i] != img.Pix[i] {
			t.Fatal("factor 1 must be a copy")
		}
	}

	if _, err := Rescale(img, 0); err == nil {
		t.Error("factor 0 must fail")
	}
	if _, err := Rescale(img, -2); err == nil {
		t.Error("negative factor must fail")
	}
}

func TestGray16RoundTrip(t *testing.T) {
	img := gradientImage(16, 16)
	back := FromImage(img.ToGray16())
	for i := range img.Pix {
		if math.Abs(back.Pix[i]-img.Pix[i]) > 1.0/65535 {
			t.Fatalf("pixel %d drifted: %g vs %g", i, back.Pix[i], img.Pix[i])
		}
	}
}

func TestSaveLoadPNG(t *testing.T) {
	img := gradientImage(12, 9)
	path := filepath.Join(t.TempDir(), "out.png")

	if err := Save(img, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if back.Width != img.Width || back.Height != img.Height {
		t.Fatalf("got %dx%d, want %dx%d", back.Width, back.Height, img.Width, img.Height)
	}
	for i := range img.Pix {
		if math.Abs(back.Pix[i]-img.Pix[i]) > 2.0/65535 {
			t.Fatalf("pixel %d drifted: %g vs %g", i, back.Pix[i], img.Pix[i])
		}
	}
}

func TestSaveUnsupportedFormat(t *testing.T) {
	img := gradientImage(4, 4)
	if err := Save(img, filepath.Join(t.TempDir(), "out.webp")); err == nil {
		t.Error("expected error for unsupported format")
	}
}
