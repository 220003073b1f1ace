package filters

import (
	"math"

	"github.com/fusion-imaging/sitsi/internal/video"
)

// DefaultArtifactSigma is the Gaussian width (in pixels) used to smooth the
// temporal mean image.
const DefaultArtifactSigma = 0.8

// StaticArtifacts removes fixed sensor structures: repetitive patterns baked
// into the camera hardware rather than anything physical. The temporal mean
// image is Gaussian-smoothed and every frame is scaled by smoothed/mean, so
// static features cancel while time-varying emission survives.
type StaticArtifacts struct {
	Sigma float64
}

// NewStaticArtifacts returns the filter with the default smoothing width.
func NewStaticArtifacts() *StaticArtifacts { return &StaticArtifacts{Sigma: DefaultArtifactSigma} }

// Apply implements video.Filter.
func (f *StaticArtifacts) Apply(times []float64, frames *video.Cube) *video.Cube {
	sigma := f.Sigma
	if sigma == 0 {
		sigma = DefaultArtifactSigma
	}

	rows, cols := frames.Rows, frames.Cols
	mean := make([]float64, rows*cols)
	nt := float64(frames.NFrames)
	for t := 0; t < frames.NFrames; t++ {
		base := t * rows * cols
		for p := range mean {
			mean[p] += frames.Data[base+p]
		}
	}
	for p := range mean {
		mean[p] /= nt
	}

	smoothed := gaussianSmooth2D(mean, rows, cols, sigma)

	out := frames.Clone()
	forEachRow(rows, func(i int) {
		for j := 0; j < cols; j++ {
			p := i*cols + j
			gain := 1.0
			if mean[p] != 0 {
				gain = smoothed[p] / mean[p]
			}
			for t := 0; t < frames.NFrames; t++ {
				out.Set(frames.At(t, i, j)*gain, t, i, j)
			}
		}
	})
	return out
}

// gaussianSmooth2D applies a separable Gaussian blur with reflected edges.
// The kernel is truncated at four standard deviations.
func gaussianSmooth2D(img []float64, rows, cols int, sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	var sum float64
	for k := -radius; k <= radius; k++ {
		v := math.Exp(-float64(k*k) / (2 * sigma * sigma))
		kernel[k+radius] = v
		sum += v
	}
	for k := range kernel {
		kernel[k] /= sum
	}

	reflect := func(x, n int) int {
		// reflect across the border: ...2 1 0 | 0 1 2...
		for x < 0 || x >= n {
			if x < 0 {
				x = -x - 1
			}
			if x >= n {
				x = 2*n - x - 1
			}
		}
		return x
	}

	tmp := make([]float64, len(img))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * img[i*cols+reflect(j+k, cols)]
			}
			tmp[i*cols+j] = acc
		}
	}
	out := make([]float64, len(img))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var acc float64
			for k := -radius; k <= radius; k++ {
				acc += kernel[k+radius] * tmp[reflect(i+k, rows)*cols+j]
			}
			out[i*cols+j] = acc
		}
	}
	return out
}
