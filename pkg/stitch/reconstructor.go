// Package stitch rebuilds an image from the square patches it was cut into.
//
// Patches are placed on a k x k grid in row-major order, cell i landing at
// pixel offset ((i mod k)*side, (i div k)*side). The order is the enumeration
// order of the patch set, optionally replaced by a seeded random permutation.
package stitch

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"

	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"

	"patchstitch/internal/models"
)

// Params holds the reconstruction settings for one Reconstructor
type Params struct {
	// Shuffle places the patches in a random permutation instead of
	// enumeration order
	Shuffle bool

	// Seed makes the shuffle reproducible. When nil a random seed is drawn
	// per reconstruction and reported on the Composite.
	Seed *int64

	// Canvas selects the composite buffer backing
	Canvas CanvasKind

	// PreserveAlpha keeps patch alpha in the composite. By default the
	// composite is forced opaque (three-channel color).
	PreserveAlpha bool

	// Logger receives progress messages. Defaults to the standard logrus logger.
	Logger logrus.FieldLogger
}

// Composite is a reconstructed image together with how it was assembled
type Composite struct {
	// Image is the assembled canvas. It is only valid until Close.
	Image *image.NRGBA

	// Grid is the geometry the patches were placed on
	Grid Grid

	// Order lists the patch names by cell index
	Order []string

	// Seed is the shuffle seed that was used, zero when not shuffled
	Seed int64

	release func() error
}

// Close releases the canvas buffer. It is safe to call more than once.
func (c *Composite) Close() error {
	if c.release == nil {
		return nil
	}
	release := c.release
	c.release = nil
	return release()
}

// Reconstructor assembles patch sets into composites. It keeps no state
// between calls and may be shared by concurrent jobs.
type Reconstructor struct {
	params *Params
	log    logrus.FieldLogger
}

// NewReconstructor creates a reconstructor with the provided parameters
func NewReconstructor(params *Params) *Reconstructor {
	if params == nil {
		params = &Params{}
	}
	log := params.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Reconstructor{
		params: params,
		log:    log,
	}
}

// Reconstruct places every patch of set into its grid cell and returns the
// composite. The caller must Close the composite.
func (r *Reconstructor) Reconstruct(ctx context.Context, set *models.PatchSet) (*Composite, error) {
	grid, err := NewGrid(set.Len(), set.Side)
	if err != nil {
		return nil, err
	}

	var seed int64
	if r.params.Shuffle {
		if r.params.Seed != nil {
			seed = *r.params.Seed
		} else {
			seed = rand.Int64()
		}
	}
	order := Order(set.Names(), r.params.Shuffle, seed)

	size := grid.Size()
	r.log.WithFields(logrus.Fields{
		"patches": set.Len(),
		"grid":    grid.String(),
		"width":   size.X,
		"height":  size.Y,
	}).Debug("Reconstructing sample")

	canvas, release, err := newCanvas(r.params.Canvas, size)
	if err != nil {
		return nil, err
	}
	comp := &Composite{
		Image:   canvas,
		Grid:    grid,
		Order:   order,
		Seed:    seed,
		release: release,
	}
	// The canvas is released on every exit that does not hand it to the
	// caller, including a panic while pasting.
	done := false
	defer func() {
		if !done {
			comp.Close()
		}
	}()

	for i, name := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		patch := set.Get(name)
		bounds := patch.Image.Bounds()
		if bounds.Dx() != grid.Side || bounds.Dy() != grid.Side {
			return nil, fmt.Errorf("%w: %s is %dx%d, expected side %d",
				ErrDimensionMismatch, name, bounds.Dx(), bounds.Dy(), grid.Side)
		}

		cx, cy := grid.Cell(i)
		r.log.WithFields(logrus.Fields{
			"patch": name,
			"cx":    cx,
			"cy":    cy,
		}).Debug("Placing patch")

		draw.Draw(canvas, grid.Rect(i), patch.Image, bounds.Min, draw.Src)
	}

	if !r.params.PreserveAlpha {
		flattenAlpha(canvas)
	}

	done = true
	return comp, nil
}

// Order returns the placement order for names. Without shuffle it is the
// given order; with shuffle it is a uniform permutation determined by seed.
func Order(names []string, shuffle bool, seed int64) []string {
	order := make([]string, len(names))
	copy(order, names)

	if shuffle {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}

// flattenAlpha drops patch transparency, keeping the stored colour channels
func flattenAlpha(img *image.NRGBA) {
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		row := img.Pix[img.PixOffset(img.Rect.Min.X, y):img.PixOffset(img.Rect.Max.X, y)]
		for i := 3; i < len(row); i += 4 {
			row[i] = 255
		}
	}
}
