package greens

import (
	"fmt"
	"strings"

	"gonum.org/v1/hdf5"
)

// SOFT2 dataset names.
const (
	dsFormat      = "type"
	dsParam1Name  = "param1name"
	dsParam2Name  = "param2name"
	dsRadius      = "r"
	dsParam1      = "param1"
	dsParam2      = "param2"
	dsWavelengths = "wavelengths"
	dsFunc        = "func"
	dsRowPixels   = "rowpixels"
	dsColPixels   = "colpixels"
)

// h5Reader reads one SOFT2 Green's function file. Both plain HDF5 output
// and MATLAB v7.3 files are handled; the latter store strings as uint16
// character matrices.
type h5Reader struct {
	f   *hdf5.File
	mat bool
}

// OpenHDF5 opens a SOFT2 Green's function file.
func OpenHDF5(path string) (Reader, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("greens: open %q: %w", path, err)
	}
	return &h5Reader{f: f, mat: strings.HasSuffix(path, ".mat")}, nil
}

func (r *h5Reader) Close() error { return r.f.Close() }

// Meta reads the format, momentum parameter names, grids and the optional
// detector pixel counts.
func (r *h5Reader) Meta() (Meta, error) {
	var m Meta
	var err error

	if m.Format, err = r.readString(dsFormat); err != nil {
		return Meta{}, err
	}
	if m.Param1Name, err = r.readString(dsParam1Name); err != nil {
		return Meta{}, err
	}
	if m.Param2Name, err = r.readString(dsParam2Name); err != nil {
		return Meta{}, err
	}

	if m.R, _, err = r.readFloats(dsRadius); err != nil {
		return Meta{}, err
	}
	if m.P1, _, err = r.readFloats(dsParam1); err != nil {
		return Meta{}, err
	}
	if m.P2, _, err = r.readFloats(dsParam2); err != nil {
		return Meta{}, err
	}
	if m.W, _, err = r.readFloats(dsWavelengths); err != nil {
		return Meta{}, err
	}

	// Pixel counts are optional; older SOFT2 output omits them.
	if rows, _, err := r.readFloats(dsRowPixels); err == nil && len(rows) > 0 {
		cols, _, err := r.readFloats(dsColPixels)
		if err != nil {
			return Meta{}, err
		}
		if len(cols) > 0 {
			m.Pixels = [2]int{int(rows[0]), int(cols[0])}
		}
	}

	return m, nil
}

// Func reads the function data with its stored shape.
func (r *h5Reader) Func() (*Array, error) {
	data, dims, err := r.readFloats(dsFunc)
	if err != nil {
		return nil, err
	}
	return NewArrayData(data, dims...)
}

func (r *h5Reader) readFloats(name string) ([]float64, []int, error) {
	ds, err := r.f.OpenDataset(name)
	if err != nil {
		return nil, nil, fmt.Errorf("greens: dataset %q: %w", name, err)
	}
	defer ds.Close()

	space := ds.Space()
	udims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, nil, fmt.Errorf("greens: dataset %q: %w", name, err)
	}

	n := 1
	dims := make([]int, len(udims))
	for i, d := range udims {
		dims[i] = int(d)
		n *= int(d)
	}
	if len(dims) == 0 { // scalar dataset
		dims = []int{1}
		n = 1
	}

	buf := make([]float64, n)
	if err := ds.Read(&buf); err != nil {
		return nil, nil, fmt.Errorf("greens: dataset %q: %w", name, err)
	}
	return buf, dims, nil
}

func (r *h5Reader) readString(name string) (string, error) {
	ds, err := r.f.OpenDataset(name)
	if err != nil {
		return "", fmt.Errorf("greens: dataset %q: %w", name, err)
	}
	defer ds.Close()

	if !r.mat {
		var s string
		if err := ds.Read(&s); err != nil {
			return "", fmt.Errorf("greens: dataset %q: %w", name, err)
		}
		return s, nil
	}

	// MATLAB v7.3 char array: an (n x m) uint16 matrix; the string is the
	// first column.
	space := ds.Space()
	udims, _, err := space.SimpleExtentDims()
	if err != nil {
		return "", fmt.Errorf("greens: dataset %q: %w", name, err)
	}
	n := 1
	for _, d := range udims {
		n *= int(d)
	}
	cols := 1
	if len(udims) == 2 {
		cols = int(udims[1])
	}

	buf := make([]uint16, n)
	if err := ds.Read(&buf); err != nil {
		return "", fmt.Errorf("greens: dataset %q: %w", name, err)
	}
	var b strings.Builder
	for i := 0; i < n; i += cols {
		b.WriteRune(rune(buf[i]))
	}
	return b.String(), nil
}
