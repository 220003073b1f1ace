package video

import (
	"fmt"

	"gonum.org/v1/hdf5"

	"github.com/fusion-imaging/sitsi/internal/monitoring"
)

// Load reads a camera video from an HDF5 file and applies the given filter
// chain. The file layout follows the AUG camera export: a 3-D `frames`
// dataset (stored with the pixel axes swapped, so each frame is transposed
// on load), a `times` vector, and an `info` group of numeric metadata.
func Load(path string, fs ...Filter) (*Video, error) {
	f, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, fmt.Errorf("video: open %q: %w", path, err)
	}
	defer f.Close()

	raw, dims, err := readFloats(f, "frames")
	if err != nil {
		return nil, err
	}
	if len(dims) != 3 {
		return nil, fmt.Errorf("video: frames dataset has rank %d, want 3", len(dims))
	}
	nframes, a, b := dims[0], dims[1], dims[2]

	// Swap the pixel axes of each frame.
	cube := NewCube(nframes, b, a)
	for t := 0; t < nframes; t++ {
		base := t * a * b
		for i := 0; i < a; i++ {
			for j := 0; j < b; j++ {
				cube.Set(raw[base+i*b+j], t, j, i)
			}
		}
	}

	times, tdims, err := readFloats(f, "times")
	if err != nil {
		return nil, err
	}
	if len(tdims) != 1 || tdims[0] != nframes {
		return nil, fmt.Errorf("video: times dataset shape %v does not match %d frames", tdims, nframes)
	}

	info, err := readInfoGroup(f)
	if err != nil {
		return nil, err
	}

	v, err := New(cube, times, fs...)
	if err != nil {
		return nil, err
	}
	v.Info = info

	monitoring.Logf("video: loaded %q: %d frames of %dx%d pixels", path, nframes, cube.Rows, cube.Cols)
	return v, nil
}

func readFloats(f *hdf5.File, name string) ([]float64, []int, error) {
	ds, err := f.OpenDataset(name)
	if err != nil {
		return nil, nil, fmt.Errorf("video: dataset %q: %w", name, err)
	}
	defer ds.Close()

	space := ds.Space()
	udims, _, err := space.SimpleExtentDims()
	if err != nil {
		return nil, nil, fmt.Errorf("video: dataset %q: %w", name, err)
	}
	n := 1
	dims := make([]int, len(udims))
	for i, d := range udims {
		dims[i] = int(d)
		n *= int(d)
	}

	buf := make([]float64, n)
	if err := ds.Read(&buf); err != nil {
		return nil, nil, fmt.Errorf("video: dataset %q: %w", name, err)
	}
	return buf, dims, nil
}

// readInfoGroup copies every member of the optional `info` group.
func readInfoGroup(f *hdf5.File) (map[string][]float64, error) {
	info := make(map[string][]float64)

	g, err := f.OpenGroup("info")
	if err != nil {
		// The group is optional.
		return info, nil
	}
	defer g.Close()

	n, err := g.NumObjects()
	if err != nil {
		return nil, fmt.Errorf("video: info group: %w", err)
	}
	for i := uint(0); i < n; i++ {
		name, err := g.ObjectNameByIndex(i)
		if err != nil {
			return nil, fmt.Errorf("video: info member %d: %w", i, err)
		}
		ds, err := g.OpenDataset(name)
		if err != nil {
			return nil, fmt.Errorf("video: info %q: %w", name, err)
		}
		space := ds.Space()
		udims, _, err := space.SimpleExtentDims()
		if err != nil {
			ds.Close()
			return nil, fmt.Errorf("video: info %q: %w", name, err)
		}
		cnt := 1
		for _, d := range udims {
			cnt *= int(d)
		}
		buf := make([]float64, cnt)
		if err := ds.Read(&buf); err != nil {
			ds.Close()
			return nil, fmt.Errorf("video: info %q: %w", name, err)
		}
		ds.Close()
		info[name] = buf
	}
	return info, nil
}
