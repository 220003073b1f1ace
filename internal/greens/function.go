// Package greens models SOFT2 Green's functions: precomputed response
// kernels relating an electron distribution parameter vector to observed
// synchrotron emission. Functions may be stored whole in a single HDF5 file
// or split across several files along one axis.
package greens

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Axis characters of the Green's function format string.
const (
	AxisRadius     = 'r' // radial (flux surface) parameter
	AxisParam1     = '1' // first momentum parameter
	AxisParam2     = '2' // second momentum parameter
	AxisWavelength = 'w' // spectral wavelength
	AxisPixelRow   = 'i' // detector pixel row
	AxisPixelCol   = 'j' // detector pixel column
)

var (
	// ErrFormat indicates an invalid or inconsistent format string.
	ErrFormat = errors.New("greens: invalid format")
	// ErrAxis indicates an axis lookup that the format does not carry.
	ErrAxis = errors.New("greens: no such axis")
)

// Meta describes the axes and parameter grids of a Green's function.
type Meta struct {
	// Format names the axes in storage order, e.g. "rij" or "r12ij".
	Format string
	// Param1Name and Param2Name identify the momentum parameters, e.g.
	// "p"/"xi" or "p"/"thetap".
	Param1Name string
	Param2Name string

	R  []float64 // radial grid
	P1 []float64 // first momentum grid
	P2 []float64 // second momentum grid
	W  []float64 // wavelength grid

	// Pixels holds the detector size (rows, cols) when the file records it.
	Pixels [2]int
}

// ValidFormat reports whether every character of the format string is a
// recognized axis.
func ValidFormat(format string) bool {
	if format == "" {
		return false
	}
	for _, c := range format {
		switch byte(c) {
		case AxisRadius, AxisParam1, AxisParam2, AxisWavelength, AxisPixelRow, AxisPixelCol:
		default:
			return false
		}
	}
	return true
}

// AxisIndex returns the position of the named axis in the format string.
func (m Meta) AxisIndex(axis byte) (int, error) {
	for i := 0; i < len(m.Format); i++ {
		if m.Format[i] == axis {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q not in format %q", ErrAxis, string(axis), m.Format)
}

// AxisGrid returns the parameter grid for a non-pixel axis.
func (m Meta) AxisGrid(axis byte) ([]float64, error) {
	switch axis {
	case AxisRadius:
		return m.R, nil
	case AxisParam1:
		return m.P1, nil
	case AxisParam2:
		return m.P2, nil
	case AxisWavelength:
		return m.W, nil
	}
	return nil, fmt.Errorf("%w: axis %q has no parameter grid", ErrAxis, string(axis))
}

// NearestIndex returns the index on the named axis whose grid value lies
// closest to v.
func (m Meta) NearestIndex(axis byte, v float64) (int, error) {
	grid, err := m.AxisGrid(axis)
	if err != nil {
		return 0, err
	}
	if len(grid) == 0 {
		return 0, fmt.Errorf("%w: axis %q has an empty grid", ErrAxis, string(axis))
	}
	return nearest(grid, v), nil
}

func nearest(grid []float64, v float64) int {
	best := 0
	bestDist := math.Abs(grid[0] - v)
	for i := 1; i < len(grid); i++ {
		if d := math.Abs(grid[i] - v); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Function is a Green's function held fully in memory.
type Function struct {
	Meta Meta
	Data *Array
}

// AxisLen returns the data length along the named axis.
func (f *Function) AxisLen(axis byte) (int, error) {
	i, err := f.Meta.AxisIndex(axis)
	if err != nil {
		return 0, err
	}
	return f.Data.Dims()[i], nil
}

// Kernel flattens the function into an inversion kernel matrix: one row per
// grid point of the named axis, one column per combination of the remaining
// axes (in storage order). For the usual "rij" camera-image function this
// yields (radii x pixels).
func (f *Function) Kernel(axis byte) (*mat.Dense, error) {
	pos, err := f.Meta.AxisIndex(axis)
	if err != nil {
		return nil, err
	}
	dims := f.Data.Dims()
	rows := dims[pos]
	cols := f.Data.Len() / rows

	k := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		slab, err := f.Data.Take(pos, r)
		if err != nil {
			return nil, err
		}
		k.SetRow(r, slab.Data())
	}
	return k, nil
}
