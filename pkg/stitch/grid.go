package stitch

import (
	"fmt"
	"image"
	"math"
)

// Grid is the square arrangement of patches in one reconstructed image.
// It is derived from the patch count and side, never stored.
type Grid struct {
	// K is the number of patches per row and per column
	K int `yaml:"k"`

	// Side is the patch side length in pixels
	Side int `yaml:"side"`
}

// NewGrid derives the grid for count patches of the given side.
// count must be k*k for some k >= 1.
func NewGrid(count, side int) (Grid, error) {
	k := isqrt(count)
	if count < 1 || k*k != count {
		return Grid{}, fmt.Errorf("%w: %d patches", ErrNonSquareCount, count)
	}

	if side < 1 {
		return Grid{}, fmt.Errorf("%w: patch side %d", ErrDimensionMismatch, side)
	}

	return Grid{K: k, Side: side}, nil
}

// Count returns the number of cells
func (g Grid) Count() int {
	return g.K * g.K
}

// Size returns the canvas size in pixels
func (g Grid) Size() image.Point {
	return image.Pt(g.K*g.Side, g.K*g.Side)
}

// Cell returns the row-major cell coordinates of index i
func (g Grid) Cell(i int) (cx, cy int) {
	return i % g.K, i / g.K
}

// Rect returns the canvas rectangle covered by cell i
func (g Grid) Rect(i int) image.Rectangle {
	cx, cy := g.Cell(i)
	origin := image.Pt(cx*g.Side, cy*g.Side)
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(g.Side, g.Side))}
}

func (g Grid) String() string {
	return fmt.Sprintf("%dx%d of %dpx", g.K, g.K, g.Side)
}

// isqrt returns floor(sqrt(n)) for n >= 0
func isqrt(n int) int {
	if n < 0 {
		return 0
	}
	k := int(math.Sqrt(float64(n)))
	// Correct float rounding without overflowing k*k
	for k > 0 && k > n/k {
		k--
	}
	for k+1 <= n/(k+1) {
		k++
	}
	return k
}
