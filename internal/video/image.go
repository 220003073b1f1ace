package video

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Rect selects a pixel window: rows [X, X+W), columns [Y, Y+H).
type Rect struct {
	X, Y, W, H int
}

// Image is a single camera frame usable as inversion input. An optional
// subset restricts which pixels the inversion sees without copying the
// frame.
type Image struct {
	data   *mat.Dense
	subset *Rect
}

// NewImage wraps a frame matrix. The matrix is not copied.
func NewImage(m *mat.Dense) *Image {
	return &Image{data: m}
}

// SetSubset restricts the image to rows [x, x+w) and columns [y, y+h).
func (im *Image) SetSubset(x, y, w, h int) error {
	rows, cols := im.data.Dims()
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > rows || y+h > cols {
		return fmt.Errorf("video: subset %dx%d at (%d,%d) outside %dx%d image", w, h, x, y, rows, cols)
	}
	im.subset = &Rect{X: x, Y: y, W: w, H: h}
	return nil
}

// ResetSubset removes any subset so the full frame is used.
func (im *Image) ResetSubset() { im.subset = nil }

// Matrix returns the (possibly subset) pixel data as a matrix view.
func (im *Image) Matrix() mat.Matrix {
	if im.subset == nil {
		return im.data
	}
	s := im.subset
	return im.data.Slice(s.X, s.X+s.W, s.Y, s.Y+s.H)
}

// Data flattens the (possibly subset) pixels row-major into the measurement
// vector handed to the inversion.
func (im *Image) Data() []float64 {
	m := im.Matrix()
	rows, cols := m.Dims()
	out := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out = append(out, m.At(i, j))
		}
	}
	return out
}
