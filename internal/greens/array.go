package greens

import "fmt"

// Array is a dense n-dimensional float64 array in row-major order. Green's
// functions produced by SOFT2 have up to six axes (radius, two momentum
// parameters, wavelength and two pixel axes), which is beyond what a 2-D
// matrix type can hold, so slab extraction and axis reduction are implemented
// here and only the final inversion kernel is handed to gonum as a matrix.
type Array struct {
	dims    []int
	strides []int
	data    []float64
}

// NewArray allocates a zeroed array with the given axis lengths.
func NewArray(dims ...int) *Array {
	n := 1
	for _, d := range dims {
		if d <= 0 {
			panic(fmt.Sprintf("greens: non-positive axis length %d", d))
		}
		n *= d
	}
	a := &Array{
		dims: append([]int(nil), dims...),
		data: make([]float64, n),
	}
	a.strides = rowMajorStrides(a.dims)
	return a
}

// NewArrayData wraps an existing row-major slice. The slice is not copied;
// its length must match the product of the axis lengths.
func NewArrayData(data []float64, dims ...int) (*Array, error) {
	n := 1
	for _, d := range dims {
		if d <= 0 {
			return nil, fmt.Errorf("greens: non-positive axis length %d", d)
		}
		n *= d
	}
	if len(data) != n {
		return nil, fmt.Errorf("greens: data length %d does not match dims %v (want %d)", len(data), dims, n)
	}
	a := &Array{
		dims: append([]int(nil), dims...),
		data: data,
	}
	a.strides = rowMajorStrides(a.dims)
	return a, nil
}

func rowMajorStrides(dims []int) []int {
	strides := make([]int, len(dims))
	s := 1
	for i := len(dims) - 1; i >= 0; i-- {
		strides[i] = s
		s *= dims[i]
	}
	return strides
}

// NDim returns the number of axes.
func (a *Array) NDim() int { return len(a.dims) }

// Dims returns a copy of the axis lengths.
func (a *Array) Dims() []int { return append([]int(nil), a.dims...) }

// Len returns the total number of elements.
func (a *Array) Len() int { return len(a.data) }

// Data returns the backing row-major slice.
func (a *Array) Data() []float64 { return a.data }

func (a *Array) offset(idx []int) int {
	if len(idx) != len(a.dims) {
		panic(fmt.Sprintf("greens: index rank %d does not match array rank %d", len(idx), len(a.dims)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= a.dims[i] {
			panic(fmt.Sprintf("greens: index %d out of range [0,%d) on axis %d", x, a.dims[i], i))
		}
		off += x * a.strides[i]
	}
	return off
}

// At returns the element at the given multi-index.
func (a *Array) At(idx ...int) float64 { return a.data[a.offset(idx)] }

// Set stores v at the given multi-index.
func (a *Array) Set(v float64, idx ...int) { a.data[a.offset(idx)] = v }

// Take fixes the given axis at index and returns a new array with that axis
// removed. The result does not share memory with a.
func (a *Array) Take(axis, index int) (*Array, error) {
	if axis < 0 || axis >= len(a.dims) {
		return nil, fmt.Errorf("greens: axis %d out of range for rank %d", axis, len(a.dims))
	}
	if index < 0 || index >= a.dims[axis] {
		return nil, fmt.Errorf("greens: index %d out of range [0,%d) on axis %d", index, a.dims[axis], axis)
	}
	if len(a.dims) == 1 {
		out := NewArray(1)
		out.data[0] = a.data[index]
		return out, nil
	}

	outDims := make([]int, 0, len(a.dims)-1)
	outDims = append(outDims, a.dims[:axis]...)
	outDims = append(outDims, a.dims[axis+1:]...)
	out := NewArray(outDims...)

	outer := 1
	for i := 0; i < axis; i++ {
		outer *= a.dims[i]
	}
	inner := a.strides[axis]
	block := inner // contiguous run per outer step after fixing the axis
	for o := 0; o < outer; o++ {
		src := o*a.dims[axis]*inner + index*inner
		dst := o * block
		copy(out.data[dst:dst+block], a.data[src:src+block])
	}
	return out, nil
}

// WeightedSum reduces the given axis by summing slabs scaled by w. The weight
// vector length must match the axis length. The result has the axis removed.
func (a *Array) WeightedSum(axis int, w []float64) (*Array, error) {
	if axis < 0 || axis >= len(a.dims) {
		return nil, fmt.Errorf("greens: axis %d out of range for rank %d", axis, len(a.dims))
	}
	if len(w) != a.dims[axis] {
		return nil, fmt.Errorf("greens: weight length %d does not match axis length %d", len(w), a.dims[axis])
	}

	if len(a.dims) == 1 {
		var sum float64
		for i, wi := range w {
			sum += wi * a.data[i]
		}
		out := NewArray(1)
		out.data[0] = sum
		return out, nil
	}

	outDims := make([]int, 0, len(a.dims)-1)
	outDims = append(outDims, a.dims[:axis]...)
	outDims = append(outDims, a.dims[axis+1:]...)
	out := NewArray(outDims...)

	outer := 1
	for i := 0; i < axis; i++ {
		outer *= a.dims[i]
	}
	inner := a.strides[axis]
	for o := 0; o < outer; o++ {
		for k, wk := range w {
			src := o*a.dims[axis]*inner + k*inner
			dst := o * inner
			for i := 0; i < inner; i++ {
				out.data[dst+i] += wk * a.data[src+i]
			}
		}
	}
	return out, nil
}

// SetSlab writes sub into the slab obtained by fixing axis at index. The
// rank of sub must be one less than the rank of a, with matching lengths on
// the remaining axes.
func (a *Array) SetSlab(axis, index int, sub *Array) error {
	if axis < 0 || axis >= len(a.dims) {
		return fmt.Errorf("greens: axis %d out of range for rank %d", axis, len(a.dims))
	}
	if index < 0 || index >= a.dims[axis] {
		return fmt.Errorf("greens: index %d out of range [0,%d) on axis %d", index, a.dims[axis], axis)
	}
	if sub.NDim() != a.NDim()-1 {
		return fmt.Errorf("greens: slab rank %d does not match target rank %d", sub.NDim(), a.NDim()-1)
	}
	for i, d := range sub.dims {
		j := i
		if i >= axis {
			j = i + 1
		}
		if d != a.dims[j] {
			return fmt.Errorf("greens: slab axis %d length %d does not match target axis %d length %d", i, d, j, a.dims[j])
		}
	}

	outer := 1
	for i := 0; i < axis; i++ {
		outer *= a.dims[i]
	}
	inner := a.strides[axis]
	for o := 0; o < outer; o++ {
		dst := o*a.dims[axis]*inner + index*inner
		src := o * inner
		copy(a.data[dst:dst+inner], sub.data[src:src+inner])
	}
	return nil
}
