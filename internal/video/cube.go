// Package video holds camera data used as inversion input: full video
// sequences, single frames and power spectra.
package video

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Cube is a frames x rows x cols block of pixel data stored frame-major,
// each frame row-major. Filters operate on whole cubes so per-pixel time
// series stay cheap to walk.
type Cube struct {
	NFrames, Rows, Cols int
	Data                []float64
}

// NewCube allocates a zeroed cube.
func NewCube(nframes, rows, cols int) *Cube {
	if nframes <= 0 || rows <= 0 || cols <= 0 {
		panic(fmt.Sprintf("video: invalid cube shape %dx%dx%d", nframes, rows, cols))
	}
	return &Cube{
		NFrames: nframes,
		Rows:    rows,
		Cols:    cols,
		Data:    make([]float64, nframes*rows*cols),
	}
}

// At returns the pixel value of frame t at (i, j).
func (c *Cube) At(t, i, j int) float64 {
	return c.Data[(t*c.Rows+i)*c.Cols+j]
}

// Set stores v into frame t at (i, j).
func (c *Cube) Set(v float64, t, i, j int) {
	c.Data[(t*c.Rows+i)*c.Cols+j] = v
}

// Frame returns a matrix view of frame t sharing the cube's memory.
func (c *Cube) Frame(t int) *mat.Dense {
	n := c.Rows * c.Cols
	return mat.NewDense(c.Rows, c.Cols, c.Data[t*n:(t+1)*n])
}

// Clone returns a deep copy.
func (c *Cube) Clone() *Cube {
	out := &Cube{NFrames: c.NFrames, Rows: c.Rows, Cols: c.Cols, Data: make([]float64, len(c.Data))}
	copy(out.Data, c.Data)
	return out
}

// Max returns the largest pixel value across all frames.
func (c *Cube) Max() float64 {
	m := c.Data[0]
	for _, v := range c.Data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
