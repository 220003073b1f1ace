package greens

import (
	"errors"
	"fmt"
	"sort"

	"github.com/fusion-imaging/sitsi/internal/monitoring"
)

var (
	// ErrMismatch indicates files that do not belong to the same split
	// Green's function.
	ErrMismatch = errors.New("greens: incompatible function files")
	// ErrSpansFiles indicates a block request crossing a file boundary.
	ErrSpansFiles = errors.New("greens: requested range spans multiple files")
)

// Reader provides access to one Green's function file. Implementations wrap
// an HDF5 file; tests substitute in-memory fixtures.
type Reader interface {
	// Meta reads the axis and grid description of the file.
	Meta() (Meta, error)
	// Func reads the function data. Files belonging to a split function may
	// either store the full-rank array (with a thin split axis) or a slab
	// of rank len(Format)-1.
	Func() (*Array, error)
	Close() error
}

// OpenFunc opens a Reader for the named file.
type OpenFunc func(path string) (Reader, error)

// SplitDim selects the axis a multi-file function is split along, either by
// position in the format string or by axis character. Char takes precedence
// when non-zero.
type SplitDim struct {
	Axis int
	Char byte
}

// SuperFunction is a Green's function split across multiple files along one
// axis. Blocks are loaded lazily; only the parameter grids are held after
// scanning.
type SuperFunction struct {
	meta      Meta
	splitAxis int
	open      OpenFunc

	// blockFile and blockLocal map a global index along the split axis to
	// the file holding it and the index within that file.
	blockFile  []string
	blockLocal []int
}

// LoadSuper scans the given files and assembles the description of the
// combined function. Every file must share the same format and momentum
// parameter names, and must contribute parameter values along exactly one
// axis not already covered.
func LoadSuper(open OpenFunc, split SplitDim, paths ...string) (*SuperFunction, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files given", ErrMismatch)
	}

	sf := &SuperFunction{open: open}

	// Per-file values along the split axis, in scan order.
	type fileBlock struct {
		path   string
		values []float64
	}
	var blocks []fileBlock

	for n, path := range paths {
		r, err := open(path)
		if err != nil {
			return nil, fmt.Errorf("greens: open %q: %w", path, err)
		}
		m, err := r.Meta()
		cerr := r.Close()
		if err != nil {
			return nil, fmt.Errorf("greens: scan %q: %w", path, err)
		}
		if cerr != nil {
			return nil, fmt.Errorf("greens: close %q: %w", path, cerr)
		}

		if n == 0 {
			if !ValidFormat(m.Format) {
				return nil, fmt.Errorf("%w: format %q", ErrFormat, m.Format)
			}
			sf.meta = m
			if split.Char != 0 {
				sf.splitAxis, err = m.AxisIndex(split.Char)
				if err != nil {
					return nil, fmt.Errorf("invalid split dimension: %w", err)
				}
			} else {
				if split.Axis < 0 || split.Axis >= len(m.Format) {
					return nil, fmt.Errorf("%w: split axis %d out of range for format %q", ErrFormat, split.Axis, m.Format)
				}
				sf.splitAxis = split.Axis
			}
		} else {
			if m.Format != sf.meta.Format {
				return nil, fmt.Errorf("%w: %q has format %q, want %q", ErrMismatch, path, m.Format, sf.meta.Format)
			}
			if m.Param1Name != sf.meta.Param1Name || m.Param2Name != sf.meta.Param2Name {
				return nil, fmt.Errorf("%w: %q uses momentum parameters %s/%s, want %s/%s",
					ErrMismatch, path, m.Param1Name, m.Param2Name, sf.meta.Param1Name, sf.meta.Param2Name)
			}
			if err := sf.mergeGrids(m, path); err != nil {
				return nil, err
			}
		}

		vals, err := m.AxisGrid(sf.meta.Format[sf.splitAxis])
		if err != nil {
			return nil, fmt.Errorf("greens: %q: split axis carries no grid: %w", path, err)
		}
		blocks = append(blocks, fileBlock{path: path, values: append([]float64(nil), vals...)})
	}

	// Map each file-local value to its global index along the merged split
	// grid, then order blocks by global index.
	splitGrid, err := sf.meta.AxisGrid(sf.meta.Format[sf.splitAxis])
	if err != nil {
		return nil, err
	}
	type entry struct {
		global int
		file   string
		local  int
	}
	var entries []entry
	for _, b := range blocks {
		for i, v := range b.values {
			entries = append(entries, entry{global: nearest(splitGrid, v), file: b.path, local: i})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].global < entries[j].global })

	sf.blockFile = make([]string, len(entries))
	sf.blockLocal = make([]int, len(entries))
	for i, e := range entries {
		sf.blockFile[i] = e.file
		sf.blockLocal[i] = e.local
	}

	monitoring.Logf("greens: scanned %d file(s), format %q, %d blocks along axis %q",
		len(paths), sf.meta.Format, len(entries), string(sf.meta.Format[sf.splitAxis]))

	return sf, nil
}

// mergeGrids appends the grids a subsequent file contributes. Exactly one of
// the parameter grids must differ from what has been merged so far.
func (sf *SuperFunction) mergeGrids(m Meta, path string) error {
	switch {
	case !equalGrid(sf.meta.R, m.R):
		sf.meta.R = append(sf.meta.R, m.R...)
	case !equalGrid(sf.meta.P1, m.P1):
		sf.meta.P1 = append(sf.meta.P1, m.P1...)
	case !equalGrid(sf.meta.P2, m.P2):
		sf.meta.P2 = append(sf.meta.P2, m.P2...)
	case !equalGrid(sf.meta.W, m.W):
		sf.meta.W = append(sf.meta.W, m.W...)
	default:
		return fmt.Errorf("%w: %q contributes no new parameter values", ErrMismatch, path)
	}
	return nil
}

func equalGrid(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Meta returns the merged axis description of the combined function.
func (sf *SuperFunction) Meta() Meta { return sf.meta }

// SplitAxis returns the position of the split axis in the format string.
func (sf *SuperFunction) SplitAxis() int { return sf.splitAxis }

// Blocks returns the number of grid points along the split axis.
func (sf *SuperFunction) Blocks() int { return len(sf.blockFile) }

// ParameterIndex returns the global index along the split axis whose grid
// value lies closest to v.
func (sf *SuperFunction) ParameterIndex(v float64) (int, error) {
	return sf.meta.NearestIndex(sf.meta.Format[sf.splitAxis], v)
}

// Block loads the function slab at global index i along the split axis. The
// returned array has the split axis removed.
func (sf *SuperFunction) Block(i int) (*Array, error) {
	if i < 0 || i >= len(sf.blockFile) {
		return nil, fmt.Errorf("greens: block %d out of range [0,%d)", i, len(sf.blockFile))
	}

	r, err := sf.open(sf.blockFile[i])
	if err != nil {
		return nil, fmt.Errorf("greens: open %q: %w", sf.blockFile[i], err)
	}
	defer r.Close()

	a, err := r.Func()
	if err != nil {
		return nil, fmt.Errorf("greens: read %q: %w", sf.blockFile[i], err)
	}

	switch a.NDim() {
	case len(sf.meta.Format):
		// Full-rank storage: pick the local slab.
		return a.Take(sf.splitAxis, sf.blockLocal[i])
	case len(sf.meta.Format) - 1:
		// File already stores a single slab.
		return a, nil
	}
	return nil, fmt.Errorf("%w: %q stores rank %d, format %q admits %d or %d",
		ErrFormat, sf.blockFile[i], a.NDim(), sf.meta.Format, len(sf.meta.Format), len(sf.meta.Format)-1)
}

// BlockRange loads a contiguous run of blocks [lo, hi). All blocks must live
// in the same physical file; crossing a file boundary is an error, matching
// the storage contract of split SOFT2 output.
func (sf *SuperFunction) BlockRange(lo, hi int) ([]*Array, error) {
	if lo < 0 || hi > len(sf.blockFile) || lo >= hi {
		return nil, fmt.Errorf("greens: block range [%d,%d) out of range [0,%d)", lo, hi, len(sf.blockFile))
	}
	for i := lo + 1; i < hi; i++ {
		if sf.blockFile[i] != sf.blockFile[lo] {
			return nil, fmt.Errorf("%w: blocks %d and %d", ErrSpansFiles, lo, i)
		}
	}
	out := make([]*Array, 0, hi-lo)
	for i := lo; i < hi; i++ {
		a, err := sf.Block(i)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Materialize loads every block and assembles the full in-memory Function.
func (sf *SuperFunction) Materialize() (*Function, error) {
	if len(sf.blockFile) == 0 {
		return nil, fmt.Errorf("%w: empty function", ErrMismatch)
	}

	first, err := sf.Block(0)
	if err != nil {
		return nil, err
	}

	slabDims := first.Dims()
	fullDims := make([]int, 0, len(slabDims)+1)
	fullDims = append(fullDims, slabDims[:sf.splitAxis]...)
	fullDims = append(fullDims, len(sf.blockFile))
	fullDims = append(fullDims, slabDims[sf.splitAxis:]...)

	full := NewArray(fullDims...)
	if err := full.SetSlab(sf.splitAxis, 0, first); err != nil {
		return nil, err
	}
	for i := 1; i < len(sf.blockFile); i++ {
		slab, err := sf.Block(i)
		if err != nil {
			return nil, err
		}
		if err := full.SetSlab(sf.splitAxis, i, slab); err != nil {
			return nil, fmt.Errorf("greens: block %d: %w", i, err)
		}
	}

	return &Function{Meta: sf.meta, Data: full}, nil
}
