// Package imageio decodes patch files and encodes reconstructed images
// in the configured output format.
package imageio

import (
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"patchstitch/pkg/fsutil"
)

var (
	// ErrUnsupportedFormat is returned for an unknown output format
	ErrUnsupportedFormat = errors.New("unsupported image format")

	// ErrDecode is returned when a file cannot be decoded as an image
	ErrDecode = errors.New("cannot decode image")
)

// Format is an output codec, named by its canonical file extension
type Format string

const (
	JPEG Format = "jpg"
	PNG  Format = "png"
	GIF  Format = "gif"
	TIFF Format = "tiff"
	BMP  Format = "bmp"
	WEBP Format = "webp"
)

// ParseFormat accepts a format name or extension, with or without the
// leading dot and in any case ("JPEG", ".jpg", "tif").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "gif":
		return GIF, nil
	case "tif", "tiff":
		return TIFF, nil
	case "bmp":
		return BMP, nil
	case "webp":
		return WEBP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Extension returns the file extension for the format, including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// Lossless reports whether the format never discards pixel data
func (f Format) Lossless() bool {
	return f != JPEG && f != GIF
}

// EncodeOptions holds codec tuning
type EncodeOptions struct {
	// Quality is used by JPEG (1-100) and lossy WebP
	Quality int

	// Lossless selects lossless WebP encoding
	Lossless bool
}

// Decode loads the image stored at path
func Decode(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", fsutil.ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var img image.Image
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		img, err = webp.Decode(file)
	} else {
		img, err = imaging.Decode(file)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	return img, nil
}

// Encode writes img to w in the given format
func Encode(w io.Writer, img image.Image, format Format, opts EncodeOptions) error {
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 95
	}

	if format == WEBP {
		return webp.Encode(w, img, &webp.Options{
			Lossless: opts.Lossless,
			Quality:  float32(quality),
		})
	}

	codec, err := imaging.FormatFromExtension(string(format))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return imaging.Encode(w, img, codec, imaging.JPEGQuality(quality))
}

// Save encodes img to path. The image is written to a temporary file next to
// path and renamed into place, so a failed encode never leaves a partial
// output behind.
func Save(path string, img image.Image, format Format, opts EncodeOptions) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, img, format, opts); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move image into place: %w", err)
	}
	return nil
}
