package stitch

import (
	"image"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics summarises the luminance of a reconstructed image
type Metrics struct {
	// MeanLuminance is the average Rec. 601 luma in [0, 255]
	MeanLuminance float64 `yaml:"mean_luminance"`

	// StdDevLuminance is the population standard deviation of the luma
	StdDevLuminance float64 `yaml:"stddev_luminance"`

	// Entropy is the Shannon entropy in bits of the 256-bin luma histogram
	Entropy float64 `yaml:"entropy"`
}

// ComputeMetrics measures img in a single pass over its pixel rows. Only the
// histogram and running sums are held, so a memory-mapped composite is never
// copied onto the heap.
func ComputeMetrics(img *image.NRGBA) Metrics {
	bounds := img.Rect
	n := bounds.Dx() * bounds.Dy()
	if n == 0 {
		return Metrics{}
	}

	// Welford's running mean and sum of squared deviations
	var mean, m2, seen float64
	hist := make([]float64, 256)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := img.Pix[img.PixOffset(bounds.Min.X, y):img.PixOffset(bounds.Max.X, y)]
		for i := 0; i+3 < len(row); i += 4 {
			l := 0.299*float64(row[i]) + 0.587*float64(row[i+1]) + 0.114*float64(row[i+2])
			seen++
			delta := l - mean
			mean += delta / seen
			m2 += delta * (l - mean)
			hist[int(math.Min(255, math.Round(l)))]++
		}
	}

	count := float64(n)
	for i := range hist {
		hist[i] /= count
	}

	return Metrics{
		MeanLuminance:   mean,
		StdDevLuminance: math.Sqrt(m2 / count),
		Entropy:         stat.Entropy(hist) / math.Ln2,
	}
}
