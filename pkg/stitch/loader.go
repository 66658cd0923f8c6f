package stitch

import (
	"context"
	"fmt"
	"path/filepath"

	"patchstitch/internal/models"
	"patchstitch/pkg/imageio"
)

// LoadPatches decodes every path into a patch set keyed by base file name.
//
// Every patch must be square and share the side of the first patch;
// the first violation fails the whole set with ErrDimensionMismatch.
// A duplicate base name replaces the earlier patch.
func LoadPatches(ctx context.Context, paths []string) (*models.PatchSet, error) {
	set := models.NewPatchSet()

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := imageio.Decode(path)
		if err != nil {
			return nil, err
		}

		bounds := img.Bounds()
		width, height := bounds.Dx(), bounds.Dy()
		if width != height {
			return nil, fmt.Errorf("%w: %s is %dx%d, not square",
				ErrDimensionMismatch, path, width, height)
		}
		if set.Len() > 0 && width != set.Side {
			return nil, fmt.Errorf("%w: %s has side %d, expected %d",
				ErrDimensionMismatch, path, width, set.Side)
		}

		set.Side = width
		set.Add(&models.Patch{
			Name:  filepath.Base(path),
			Path:  path,
			Image: img,
			Side:  width,
		})
	}

	return set, nil
}
