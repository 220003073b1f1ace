package video

import (
	"math"
	"testing"
)

// rampCube builds a 3-frame 2x2 cube where frame t is filled with t+1,
// except pixel (0,0) of the last frame which spikes to 100.
func rampCube() *Cube {
	c := NewCube(3, 2, 2)
	for t := 0; t < 3; t++ {
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				c.Set(float64(t+1), t, i, j)
			}
		}
	}
	c.Set(100, 2, 0, 0)
	return c
}

func TestNewVideoValidation(t *testing.T) {
	if _, err := New(rampCube(), []float64{0, 1}); err == nil {
		t.Error("expected error for mismatched times length")
	}
	if _, err := New(nil, nil); err == nil {
		t.Error("expected error for nil cube")
	}
}

func TestVideoFrames(t *testing.T) {
	v, err := New(rampCube(), []float64{0, 1, 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if v.FrameMax != 100 {
		t.Errorf("FrameMax = %v, want 100", v.FrameMax)
	}

	img, err := v.Frame(1)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if got := img.Data(); len(got) != 4 || got[0] != 2 {
		t.Errorf("frame 1 data = %v, want four 2s", got)
	}

	if _, err := v.Frame(3); err == nil {
		t.Error("expected error for out-of-range frame")
	}
}

func TestVideoSubset(t *testing.T) {
	v, err := New(rampCube(), []float64{0, 1, 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v.SetSubset(0, 1, 1, 1) // row 0, column 1 only

	img, err := v.Frame(2)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	got := img.Data()
	if len(got) != 1 || got[0] != 3 {
		t.Errorf("subset data = %v, want [3]", got)
	}

	v.ResetSubset()
	img, err = v.Frame(2)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if len(img.Data()) != 4 {
		t.Errorf("after reset, got %d pixels, want 4", len(img.Data()))
	}
}

// doubler is a trivial filter scaling every pixel by two.
type doubler struct{}

func (doubler) Apply(times []float64, frames *Cube) *Cube {
	out := frames.Clone()
	for i := range out.Data {
		out.Data[i] *= 2
	}
	return out
}

func TestVideoFilterChain(t *testing.T) {
	v, err := New(rampCube(), []float64{0, 1, 2}, doubler{}, doubler{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	img, err := v.Frame(0)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if got := img.Data()[0]; got != 4 {
		t.Errorf("filtered pixel = %v, want 4", got)
	}

	raw, err := v.FrameUnfiltered(0)
	if err != nil {
		t.Fatalf("FrameUnfiltered: %v", err)
	}
	if got := raw.Data()[0]; got != 1 {
		t.Errorf("raw pixel = %v, want 1", got)
	}
}

func TestTrueMaximum(t *testing.T) {
	// One frame: a plateau of near-identical bright pixels with a single
	// saturated outlier far above them.
	c := NewCube(1, 3, 3)
	vals := []float64{1, 2, 3, 9.999, 10.0, 10.001, 10.002, 10.003, 1000}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			c.Set(vals[i*3+j], 0, i, j)
		}
	}
	v, err := New(c, []float64{0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m, err := v.TrueMaximum(0, 1e-3, 3)
	if err != nil {
		t.Fatalf("TrueMaximum: %v", err)
	}
	if math.Abs(m-10.003) > 1e-9 {
		t.Errorf("TrueMaximum = %v, want 10.003 (outlier discarded)", m)
	}

	// Memoized value is reused even with different settings.
	m2, err := v.TrueMaximum(0, 0.5, 1)
	if err != nil {
		t.Fatalf("TrueMaximum: %v", err)
	}
	if m2 != m {
		t.Errorf("memoized TrueMaximum = %v, want %v", m2, m)
	}
}

func TestComputeTrueMaxima(t *testing.T) {
	v, err := New(rampCube(), []float64{0, 1, 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	maxs, err := v.ComputeTrueMaxima()
	if err != nil {
		t.Fatalf("ComputeTrueMaxima: %v", err)
	}
	if len(maxs) != 3 {
		t.Fatalf("got %d maxima, want 3", len(maxs))
	}
	// Frame 2 is all 3s plus a lone 100 spike; the spike is rejected.
	if maxs[2] != 3 {
		t.Errorf("frame 2 true maximum = %v, want 3", maxs[2])
	}
}

func TestInterpolateTo(t *testing.T) {
	v, err := New(rampCube(), []float64{0, 1, 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := v.InterpolateTo([]float64{0.1, 0.9, 1.1, 2.4}); err != nil {
		t.Fatalf("InterpolateTo: %v", err)
	}
	if v.Frames.NFrames != 4 {
		t.Fatalf("got %d frames, want 4", v.Frames.NFrames)
	}
	// Closest frames: 0, 1, 1, 2.
	wantFirst := []float64{1, 2, 2, 3}
	for i, want := range wantFirst {
		if got := v.Frames.At(i, 1, 1); got != want {
			t.Errorf("frame %d pixel = %v, want %v", i, got, want)
		}
	}

	if err := v.InterpolateTo(nil); err == nil {
		t.Error("expected error for empty time base")
	}
}

func TestSpectrum(t *testing.T) {
	if _, err := NewSpectrum([]float64{1, 2}, nil); err == nil {
		t.Error("expected error for missing wavelengths")
	}
	if _, err := NewSpectrum([]float64{1, 2}, []float64{500e-9}); err == nil {
		t.Error("expected error for mismatched lengths")
	}

	s, err := NewSpectrum([]float64{1, 2}, []float64{500e-9, 600e-9})
	if err != nil {
		t.Fatalf("NewSpectrum: %v", err)
	}
	if got := s.Data(); len(got) != 2 || got[1] != 2 {
		t.Errorf("Data = %v, want [1 2]", got)
	}
}
