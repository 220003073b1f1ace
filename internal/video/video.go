package video

import (
	"fmt"
	"math"
	"sort"

	"github.com/fusion-imaging/sitsi/internal/monitoring"
)

// Defaults for TrueMaximum outlier rejection.
const (
	DefaultTrueMaxThreshold = 1e-3
	DefaultTrueMaxOrder     = 5
)

// Filter transforms a video's pixel cube. Implementations live in the
// filters subpackage; the interface sits here so Video can hold a chain
// without importing it.
type Filter interface {
	Apply(times []float64, frames *Cube) *Cube
}

// Video is a camera recording. Raw frames are kept beside the filtered
// frames so individual frames can be inspected either way.
type Video struct {
	Frames *Cube // filtered pixel data
	Raw    *Cube // as loaded
	Times  []float64
	// FrameMax is the largest pixel value across the filtered frames.
	FrameMax float64
	// Info carries the camera metadata group verbatim.
	Info map[string][]float64

	filters  []Filter
	subset   *Rect
	trueMaxs []*float64 // memoized TrueMaximum results per frame
}

// New builds a video from an in-memory cube and applies the filter chain.
func New(frames *Cube, times []float64, fs ...Filter) (*Video, error) {
	if frames == nil || frames.NFrames == 0 {
		return nil, fmt.Errorf("video: no frames")
	}
	if len(times) != frames.NFrames {
		return nil, fmt.Errorf("video: %d frames but %d timestamps", frames.NFrames, len(times))
	}
	v := &Video{
		Raw:      frames,
		Times:    times,
		Info:     make(map[string][]float64),
		filters:  fs,
		trueMaxs: make([]*float64, frames.NFrames),
	}
	v.applyFilters()
	return v, nil
}

// applyFilters runs the filter chain over the raw frames.
func (v *Video) applyFilters() {
	d := v.Raw.Clone()
	for _, f := range v.filters {
		d = f.Apply(v.Times, d)
	}
	v.Frames = d
	v.FrameMax = d.Max()
	if len(v.filters) > 0 {
		monitoring.Logf("video: applied %d filter(s) to %d frames", len(v.filters), d.NFrames)
	}
}

// SetSubset restricts frames returned by Frame to rows [x, x+w) and columns
// [y, y+h).
func (v *Video) SetSubset(x, y, w, h int) { v.subset = &Rect{X: x, Y: y, W: w, H: h} }

// ResetSubset removes the frame subset.
func (v *Video) ResetSubset() { v.subset = nil }

// Frame returns the filtered frame with the given index as an Image, with
// the video-level subset applied.
func (v *Video) Frame(i int) (*Image, error) { return v.frame(i, v.Frames) }

// FrameUnfiltered returns the raw frame with the given index.
func (v *Video) FrameUnfiltered(i int) (*Image, error) { return v.frame(i, v.Raw) }

func (v *Video) frame(i int, c *Cube) (*Image, error) {
	if i < 0 || i >= c.NFrames {
		return nil, fmt.Errorf("video: frame %d out of range [0,%d)", i, c.NFrames)
	}
	img := NewImage(c.Frame(i))
	if v.subset != nil {
		if err := img.SetSubset(v.subset.X, v.subset.Y, v.subset.W, v.subset.H); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// TrueMaximum estimates the maximum physical pixel intensity of a frame
// with HXR-saturated pixels discarded. Pixel values are sorted and the top
// is walked down until the `order` consecutive relative differences all
// drop below threshold, i.e. until the maximum is supported by a cluster
// of near-equal pixels rather than isolated speckle. Results are memoized.
func (v *Video) TrueMaximum(frame int, threshold float64, order int) (float64, error) {
	if frame < 0 || frame >= v.Frames.NFrames {
		return 0, fmt.Errorf("video: frame %d out of range [0,%d)", frame, v.Frames.NFrames)
	}
	if m := v.trueMaxs[frame]; m != nil {
		return *m, nil
	}
	if order < 1 {
		order = 1
	}

	n := v.Frames.Rows * v.Frames.Cols
	f := make([]float64, n)
	copy(f, v.Frames.Data[frame*n:(frame+1)*n])
	sort.Float64s(f)

	rel := func(i int) float64 {
		if i < 1 || f[i] == 0 {
			return 0
		}
		return math.Abs(f[i]-f[i-1]) / f[i]
	}
	anyAbove := func(i int) bool {
		for j := 0; j < order; j++ {
			if rel(i-j) > threshold {
				return true
			}
		}
		return false
	}

	i := n - 1
	for i > 0 && anyAbove(i) {
		i--
	}

	m := f[i]
	v.trueMaxs[frame] = &m
	return m, nil
}

// ComputeTrueMaxima evaluates TrueMaximum for every frame with the default
// settings and returns the results.
func (v *Video) ComputeTrueMaxima() ([]float64, error) {
	out := make([]float64, v.Frames.NFrames)
	for i := range out {
		m, err := v.TrueMaximum(i, DefaultTrueMaxThreshold, DefaultTrueMaxOrder)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// InterpolateTo resamples the video onto the given time base by selecting,
// for each requested time, the frame with the closest timestamp.
func (v *Video) InterpolateTo(times []float64) error {
	if len(times) == 0 {
		return fmt.Errorf("video: empty time base")
	}

	out := NewCube(len(times), v.Frames.Rows, v.Frames.Cols)
	n := v.Frames.Rows * v.Frames.Cols
	for i, t := range times {
		j := nearestTime(v.Times, t)
		copy(out.Data[i*n:(i+1)*n], v.Frames.Data[j*n:(j+1)*n])
	}

	v.Frames = out
	v.Times = append([]float64(nil), times...)
	v.FrameMax = out.Max()
	v.trueMaxs = make([]*float64, out.NFrames)
	return nil
}

func nearestTime(times []float64, t float64) int {
	best := 0
	bestDist := math.Abs(times[0] - t)
	for i := 1; i < len(times); i++ {
		if d := math.Abs(times[i] - t); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
