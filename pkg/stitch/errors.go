package stitch

import (
	"errors"

	"patchstitch/pkg/imageio"
)

var (
	// ErrDimensionMismatch is returned when a patch is not square or its side
	// differs from the other patches of the set
	ErrDimensionMismatch = errors.New("patch set incomplete or inconsistent patch sizes")

	// ErrNonSquareCount is returned when the number of patches is not a
	// perfect square, i.e. a patch file is missing or extra
	ErrNonSquareCount = errors.New("patch count is not a perfect square")

	// ErrDecode is returned when a patch file cannot be decoded
	ErrDecode = imageio.ErrDecode
)
