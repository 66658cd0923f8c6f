package visualization

import (
	"fmt"
	"image"
	"image/color"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"patchstitch/pkg/imageio"
	"patchstitch/pkg/stitch"
)

// minPreviewCell is the smallest cell side in a preview, so labels stay legible
const minPreviewCell = 32

var (
	gridColor  = color.NRGBA{R: 255, G: 0, B: 255, A: 255}
	labelColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	labelShade = color.NRGBA{A: 160}
)

// Viewer renders debug previews of a reconstructed image: the composite with
// its grid drawn over it and every cell labelled with its placement index.
type Viewer struct {
	comp *stitch.Composite
}

// NewViewer creates a viewer over comp. comp must stay open while the viewer is used.
func NewViewer(comp *stitch.Composite) *Viewer {
	return &Viewer{comp: comp}
}

// ExtractCell returns the pixels of cell index in the composite
func (v *Viewer) ExtractCell(index int) (image.Image, error) {
	if index < 0 || index >= v.comp.Grid.Count() {
		return nil, fmt.Errorf("cell %d outside %s grid", index, v.comp.Grid)
	}
	return v.comp.Image.SubImage(v.comp.Grid.Rect(index)), nil
}

// Scale returns the integer upscale factor used for the preview
func (v *Viewer) Scale() int {
	side := v.comp.Grid.Side
	if side >= minPreviewCell {
		return 1
	}
	return (minPreviewCell + side - 1) / side
}

// Annotate returns a copy of the composite, upscaled so every cell is at
// least minPreviewCell pixels, with cell borders and index labels.
func (v *Viewer) Annotate() *image.NRGBA {
	scale := v.Scale()
	grid := stitch.Grid{K: v.comp.Grid.K, Side: v.comp.Grid.Side * scale}
	size := grid.Size()

	var img *image.NRGBA
	if scale == 1 {
		img = imaging.Clone(v.comp.Image)
	} else {
		img = imaging.Resize(v.comp.Image, size.X, size.Y, imaging.NearestNeighbor)
	}

	for i := 0; i < grid.Count(); i++ {
		cell := grid.Rect(i)
		drawBorder(img, cell)
		drawLabel(img, cell, strconv.Itoa(i))
	}

	return img
}

// SavePreview writes the annotated preview as a PNG
func (v *Viewer) SavePreview(path string) error {
	return imageio.Save(path, v.Annotate(), imageio.PNG, imageio.EncodeOptions{})
}

// Show opens path in the platform image viewer without waiting for it
func Show(path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open viewer: %w", err)
	}
	go cmd.Wait()
	return nil
}

func drawBorder(img *image.NRGBA, r image.Rectangle) {
	line := image.NewUniform(gridColor)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e, line, image.Point{}, draw.Src)
	}
}

func drawLabel(img *image.NRGBA, cell image.Rectangle, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	box := image.Rect(cell.Min.X+1, cell.Min.Y+1, cell.Min.X+width+5, cell.Min.Y+face.Height+3).Intersect(cell)
	draw.Draw(img, box, image.NewUniform(labelShade), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.P(cell.Min.X+3, cell.Min.Y+2+face.Ascent),
	}
	d.DrawString(text)
}
