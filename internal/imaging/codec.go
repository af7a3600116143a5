package imaging

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Load reads an image file (PNG, JPEG, TIFF, or BMP, detected by
// content) and converts it to the grayscale float model.
func Load(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return FromImage(img), nil
}

// Save writes an image to disk; the format is chosen by file
// extension. PNG and TIFF keep 16-bit precision, JPEG and BMP are
// written as 8-bit grayscale.
func Save(m *Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(file, m.ToGray16())
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, m.ToGray(), &jpeg.Options{Quality: 95})
	case ".tif", ".tiff":
		err = tiff.Encode(file, m.ToGray16(), &tiff.Options{Compression: tiff.Deflate})
	case ".bmp":
		err = bmp.Encode(file, m.ToGray())
	default:
		return fmt.Errorf("unsupported output format: %s", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}
