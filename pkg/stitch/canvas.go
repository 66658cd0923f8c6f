package stitch

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/image/draw"
)

// CanvasKind selects where the composite pixel buffer lives
type CanvasKind string

const (
	// MemoryCanvas allocates the composite on the heap
	MemoryCanvas CanvasKind = "memory"

	// MmapCanvas backs the composite with a memory-mapped temporary file,
	// for grids too large to hold comfortably in RAM
	MmapCanvas CanvasKind = "mmap"
)

// ParseCanvasKind validates a canvas kind name. Empty means MemoryCanvas.
func ParseCanvasKind(s string) (CanvasKind, error) {
	switch CanvasKind(s) {
	case "", MemoryCanvas:
		return MemoryCanvas, nil
	case MmapCanvas:
		return MmapCanvas, nil
	}
	return "", fmt.Errorf("unknown canvas kind %q (must be memory or mmap)", s)
}

var opaqueBlack = color.NRGBA{A: 255}

// newCanvas allocates an opaque black canvas of the given size. The returned
// release func must be called once the canvas is no longer used.
func newCanvas(kind CanvasKind, size image.Point) (*image.NRGBA, func() error, error) {
	if kind != MmapCanvas {
		return imaging.New(size.X, size.Y, opaqueBlack), func() error { return nil }, nil
	}

	bufferSize := size.X * size.Y * 4

	tmpFile, err := os.CreateTemp("", "patchstitch-canvas-*.tmp")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create canvas file: %w", err)
	}
	cleanup := func() {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
	}

	if err := tmpFile.Truncate(int64(bufferSize)); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to size canvas file: %w", err)
	}

	mapped, err := mmap.Map(tmpFile, mmap.RDWR, 0)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to memory-map canvas: %w", err)
	}

	img := &image.NRGBA{
		Pix:    mapped,
		Stride: size.X * 4,
		Rect:   image.Rect(0, 0, size.X, size.Y),
	}
	draw.Draw(img, img.Rect, image.NewUniform(opaqueBlack), image.Point{}, draw.Src)

	release := func() error {
		err := mapped.Unmap()
		cleanup()
		return err
	}
	return img, release, nil
}
