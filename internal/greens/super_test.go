package greens

import (
	"errors"
	"fmt"
	"testing"
)

// memReader serves fixture files for SuperFunction tests.
type memReader struct {
	meta Meta
	data *Array
}

func (m *memReader) Meta() (Meta, error)   { return m.meta, nil }
func (m *memReader) Func() (*Array, error) { return m.data, nil }
func (m *memReader) Close() error          { return nil }

// splitFixture builds a function with format "rij" (3 radii, 2x2 pixels)
// split across two files: file a holds r=0.1,0.2 and file b holds r=0.3.
// Element value encodes 100*globalR + 10*i + j.
func splitFixture() map[string]*memReader {
	base := Meta{
		Format:     "rij",
		Param1Name: "p",
		Param2Name: "xi",
		P1:         []float64{5, 10},
		P2:         []float64{-0.5, 0.5},
		W:          []float64{500e-9},
	}

	block := func(g int) *Array {
		a := NewArray(2, 2)
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				a.Set(float64(100*g+10*i+j), i, j)
			}
		}
		return a
	}

	ma := base
	ma.R = []float64{0.1, 0.2}
	fa := NewArray(2, 2, 2)
	fa.SetSlab(0, 0, block(0))
	fa.SetSlab(0, 1, block(1))

	mb := base
	mb.R = []float64{0.3}
	// File b stores an already-reduced slab of rank len(format)-1.
	fb := block(2)

	return map[string]*memReader{
		"a.h5": {meta: ma, data: fa},
		"b.h5": {meta: mb, data: fb},
	}
}

func fixtureOpen(files map[string]*memReader) OpenFunc {
	return func(path string) (Reader, error) {
		r, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("no such fixture %q", path)
		}
		return r, nil
	}
}

func TestLoadSuperByChar(t *testing.T) {
	files := splitFixture()
	sf, err := LoadSuper(fixtureOpen(files), SplitDim{Char: AxisRadius}, "a.h5", "b.h5")
	if err != nil {
		t.Fatalf("LoadSuper: %v", err)
	}

	if sf.SplitAxis() != 0 {
		t.Errorf("SplitAxis = %d, want 0", sf.SplitAxis())
	}
	if sf.Blocks() != 3 {
		t.Errorf("Blocks = %d, want 3", sf.Blocks())
	}
	if got := sf.Meta().R; len(got) != 3 || got[2] != 0.3 {
		t.Errorf("merged R = %v, want [0.1 0.2 0.3]", got)
	}

	idx, err := sf.ParameterIndex(0.28)
	if err != nil {
		t.Fatalf("ParameterIndex: %v", err)
	}
	if idx != 2 {
		t.Errorf("ParameterIndex(0.28) = %d, want 2", idx)
	}
}

func TestLoadSuperInvalidSplit(t *testing.T) {
	files := splitFixture()
	if _, err := LoadSuper(fixtureOpen(files), SplitDim{Char: AxisWavelength + 1}, "a.h5"); err == nil {
		t.Error("expected error for split char not in format")
	}
	if _, err := LoadSuper(fixtureOpen(files), SplitDim{Axis: 7}, "a.h5"); err == nil {
		t.Error("expected error for split axis out of range")
	}
}

func TestLoadSuperMismatchedFiles(t *testing.T) {
	files := splitFixture()

	// Different format.
	bad := *files["b.h5"]
	bad.meta.Format = "r12ij"
	files["bad.h5"] = &bad
	_, err := LoadSuper(fixtureOpen(files), SplitDim{Char: AxisRadius}, "a.h5", "bad.h5")
	if !errors.Is(err, ErrMismatch) {
		t.Errorf("mismatched format: err = %v, want ErrMismatch", err)
	}

	// Different momentum parameter names.
	bad2 := *files["b.h5"]
	bad2.meta.Param2Name = "thetap"
	files["bad2.h5"] = &bad2
	_, err = LoadSuper(fixtureOpen(files), SplitDim{Char: AxisRadius}, "a.h5", "bad2.h5")
	if !errors.Is(err, ErrMismatch) {
		t.Errorf("mismatched params: err = %v, want ErrMismatch", err)
	}

	// Second file identical to the first contributes nothing.
	files["dup.h5"] = files["a.h5"]
	_, err = LoadSuper(fixtureOpen(files), SplitDim{Char: AxisRadius}, "a.h5", "dup.h5")
	if !errors.Is(err, ErrMismatch) {
		t.Errorf("duplicate file: err = %v, want ErrMismatch", err)
	}
}

func TestSuperBlock(t *testing.T) {
	files := splitFixture()
	sf, err := LoadSuper(fixtureOpen(files), SplitDim{Char: AxisRadius}, "a.h5", "b.h5")
	if err != nil {
		t.Fatalf("LoadSuper: %v", err)
	}

	// Block 1 lives in the full-rank file a.
	b1, err := sf.Block(1)
	if err != nil {
		t.Fatalf("Block(1): %v", err)
	}
	if got := b1.At(1, 0); got != 110 {
		t.Errorf("block 1 At(1,0) = %v, want 110", got)
	}

	// Block 2 lives in the reduced-rank file b.
	b2, err := sf.Block(2)
	if err != nil {
		t.Fatalf("Block(2): %v", err)
	}
	if got := b2.At(0, 1); got != 201 {
		t.Errorf("block 2 At(0,1) = %v, want 201", got)
	}

	if _, err := sf.Block(3); err == nil {
		t.Error("expected error for out-of-range block")
	}
}

func TestSuperBlockRange(t *testing.T) {
	files := splitFixture()
	sf, err := LoadSuper(fixtureOpen(files), SplitDim{Char: AxisRadius}, "a.h5", "b.h5")
	if err != nil {
		t.Fatalf("LoadSuper: %v", err)
	}

	blocks, err := sf.BlockRange(0, 2)
	if err != nil {
		t.Fatalf("BlockRange: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("BlockRange returned %d blocks, want 2", len(blocks))
	}

	// Blocks 1 and 2 live in different files.
	if _, err := sf.BlockRange(1, 3); !errors.Is(err, ErrSpansFiles) {
		t.Errorf("cross-file range: err = %v, want ErrSpansFiles", err)
	}
}

func TestSuperMaterialize(t *testing.T) {
	files := splitFixture()
	sf, err := LoadSuper(fixtureOpen(files), SplitDim{Char: AxisRadius}, "a.h5", "b.h5")
	if err != nil {
		t.Fatalf("LoadSuper: %v", err)
	}

	fn, err := sf.Materialize()
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if d := fn.Data.Dims(); len(d) != 3 || d[0] != 3 || d[1] != 2 || d[2] != 2 {
		t.Fatalf("materialized dims = %v, want [3 2 2]", d)
	}
	for g := 0; g < 3; g++ {
		if got := fn.Data.At(g, 1, 1); got != float64(100*g+11) {
			t.Errorf("At(%d,1,1) = %v, want %v", g, got, float64(100*g+11))
		}
	}

	// The materialized function flattens into a (radii x pixels) kernel.
	k, err := fn.Kernel(AxisRadius)
	if err != nil {
		t.Fatalf("Kernel: %v", err)
	}
	if r, c := k.Dims(); r != 3 || c != 4 {
		t.Errorf("kernel dims = (%d,%d), want (3,4)", r, c)
	}
}
