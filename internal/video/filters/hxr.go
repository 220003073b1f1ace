package filters

import (
	"math"
	"sort"

	"github.com/fusion-imaging/sitsi/internal/video"
)

// DefaultHXRThreshold is the ratio below which a pixel's temporal median is
// considered inconsistent with the pixel itself.
const DefaultHXRThreshold = 0.9

// HXR removes pixels transiently brightened by stray hard X-rays hitting
// the sensor. A pixel value v(t) is anomalous when it dwarfs the temporal
// medians on both sides, i.e. |median(t-1)/v(t)| and |median(t+1)/v(t)|
// both fall below the threshold. Anomalous samples are replaced by linear
// interpolation in time between clean neighbours. The first and last frames
// are always treated as anomalous and clamp to the nearest clean sample.
type HXR struct {
	Threshold float64
}

// NewHXR returns the filter with the default threshold.
func NewHXR() *HXR { return &HXR{Threshold: DefaultHXRThreshold} }

// Apply implements video.Filter.
func (f *HXR) Apply(times []float64, frames *video.Cube) *video.Cube {
	nt := frames.NFrames
	out := frames.Clone()
	if nt < 3 {
		return out
	}

	thr := f.Threshold
	if thr == 0 {
		thr = DefaultHXRThreshold
	}

	forEachRow(frames.Rows, func(i int) {
		med := make([]float64, nt)
		series := make([]float64, nt)
		anomalous := make([]bool, nt)
		goodT := make([]float64, 0, nt)
		goodV := make([]float64, 0, nt)

		for j := 0; j < frames.Cols; j++ {
			for t := 0; t < nt; t++ {
				series[t] = frames.At(t, i, j)
			}
			medianWindow3(series, med)

			anomalous[0], anomalous[nt-1] = true, true
			for t := 1; t < nt-1; t++ {
				anomalous[t] = ratio(med[t-1], series[t]) < thr && ratio(med[t+1], series[t]) < thr
			}

			goodT, goodV = goodT[:0], goodV[:0]
			for t := 0; t < nt; t++ {
				if !anomalous[t] {
					goodT = append(goodT, times[t])
					goodV = append(goodV, series[t])
				}
			}
			if len(goodT) == 0 {
				continue // every sample flagged; nothing to interpolate from
			}

			for t := 0; t < nt; t++ {
				if anomalous[t] {
					out.Set(interp(times[t], goodT, goodV), t, i, j)
				}
			}
		}
	})

	return out
}

func ratio(med, v float64) float64 {
	if v == 0 {
		return math.Inf(1)
	}
	return math.Abs(med / v)
}

// medianWindow3 computes a window-3 running median with reflected edges.
func medianWindow3(in, out []float64) {
	n := len(in)
	out[0] = median3(in[0], in[0], in[1])
	for t := 1; t < n-1; t++ {
		out[t] = median3(in[t-1], in[t], in[t+1])
	}
	out[n-1] = median3(in[n-2], in[n-1], in[n-1])
}

func median3(a, b, c float64) float64 {
	if a > b {
		a, b = b, a
	}
	if b > c {
		b = c
	}
	if a > b {
		b = a
	}
	return b
}

// interp linearly interpolates y(x) over the sorted sample points (xs, ys),
// clamping outside the covered range.
func interp(x float64, xs, ys []float64) float64 {
	n := len(xs)
	if x <= xs[0] {
		return ys[0]
	}
	if x >= xs[n-1] {
		return ys[n-1]
	}
	k := sort.SearchFloat64s(xs, x)
	if xs[k] == x {
		return ys[k]
	}
	x0, x1 := xs[k-1], xs[k]
	y0, y1 := ys[k-1], ys[k]
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}
