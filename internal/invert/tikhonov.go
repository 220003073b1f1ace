// Package invert reconstructs radial runaway-electron density profiles from
// measured synchrotron data. The ill-posed least-squares problem
//
//	min ‖I_exp − Gᵀx‖²
//
// with G a SOFT2 Green's function kernel is regularized by an added term
// ‖αΓx‖² (Tikhonov). Γ is the identity, a forward finite difference, or —
// in the SVD variant — implicit in spectral filter factors. The scale α is
// picked with the L-curve method: the largest α whose fit quality stays
// within tolerance of the unregularized optimum, found by bisection in
// log α.
package invert

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/fusion-imaging/sitsi/internal/monitoring"
)

var (
	// ErrMethod indicates an unrecognized regularization method.
	ErrMethod = errors.New("invert: unrecognized method")
	// ErrDimensions indicates input data incompatible with its kernel.
	ErrDimensions = errors.New("invert: incompatible dimensions")
)

// Input is a measurement vector source; video.Image and video.Spectrum
// implement it.
type Input interface {
	Data() []float64
}

// Pair couples a measurement with the Green's function kernel that predicts
// it. The kernel has one row per distribution parameter and one column per
// measurement sample.
type Pair struct {
	Input  Input
	Kernel *mat.Dense
}

// Method selects the Tikhonov regularization variant.
type Method string

const (
	// MethodStandard regularizes with a scaled identity matrix.
	MethodStandard Method = "standard"
	// MethodDiff regularizes with a forward finite-difference operator.
	MethodDiff Method = "diff"
	// MethodSVD applies spectral filter factors to the pseudo-inverse.
	MethodSVD Method = "svd"
)

func (m Method) valid() bool {
	switch m {
	case MethodStandard, MethodDiff, MethodSVD:
		return true
	}
	return false
}

// Fitness scores a reconstruction; lower is better. Arguments are the
// measured and synthetic data vectors.
type Fitness func(measured, synthetic []float64) float64

// SumSquares is the default fitness: Σ|a−b|².
func SumSquares(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

// L-curve bisection constants.
const (
	alphaExpMin = -100 // log10 of the smallest alpha probed
	alphaExpMax = 100  // log10 of the largest alpha probed
	fitnessTol  = 1e-4 // accepted normalized fitness degradation
	bisectTol   = 0.1  // bisection stops at this log10 interval
)

// Tikhonov solves the regularized profile reconstruction for one or more
// measurement/kernel pairs.
type Tikhonov struct {
	method  Method
	fitness Fitness

	data   []float64  // concatenated measurements
	kernel *mat.Dense // params x total measurements

	// general (standard/diff) state
	gamma *mat.Dense
	rhs   *mat.VecDense

	// svd state
	svd *mat.SVD
}

// Option adjusts a Tikhonov solver.
type Option func(*Tikhonov)

// WithFitness replaces the default sum-of-squares fitness function.
func WithFitness(f Fitness) Option {
	return func(t *Tikhonov) { t.fitness = f }
}

// NewTikhonov validates and assembles the solver. Kernels of all pairs must
// share the parameter count; their measurement columns are stacked.
func NewTikhonov(method Method, pairs []Pair, opts ...Option) (*Tikhonov, error) {
	if !method.valid() {
		return nil, fmt.Errorf("%w: %q", ErrMethod, method)
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no input pairs", ErrDimensions)
	}

	t := &Tikhonov{method: method, fitness: SumSquares}
	for _, o := range opts {
		o(t)
	}

	params, _ := pairs[0].Kernel.Dims()
	total := 0
	for i, p := range pairs {
		r, c := p.Kernel.Dims()
		if r != params {
			return nil, fmt.Errorf("%w: kernel %d has %d parameters, want %d", ErrDimensions, i, r, params)
		}
		if n := len(p.Input.Data()); n != c {
			return nil, fmt.Errorf("%w: input %d has %d samples but kernel has %d columns", ErrDimensions, i, n, c)
		}
		total += c
	}

	t.data = make([]float64, 0, total)
	t.kernel = mat.NewDense(params, total, nil)
	col := 0
	for _, p := range pairs {
		d := p.Input.Data()
		t.data = append(t.data, d...)
		_, c := p.Kernel.Dims()
		for j := 0; j < c; j++ {
			for r := 0; r < params; r++ {
				t.kernel.Set(r, col, p.Kernel.At(r, j))
			}
			col++
		}
	}

	return t, nil
}

// Result is a completed reconstruction.
type Result struct {
	// X is the reconstructed parameter vector (the radial profile).
	X []float64
	// Synthetic is Gᵀx, the data the reconstruction predicts.
	Synthetic []float64
	// Alpha is the regularization scale chosen by the L-curve search.
	Alpha float64
	// Fitness is the score of the accepted solution.
	Fitness float64
}

// Invert runs the L-curve search and returns the accepted reconstruction.
func (t *Tikhonov) Invert() (*Result, error) {
	var solve func(alpha float64) ([]float64, []float64, error)
	switch t.method {
	case MethodStandard:
		t.initGeneral(false)
		solve = t.solveGeneral
	case MethodDiff:
		t.initGeneral(true)
		solve = t.solveGeneral
	case MethodSVD:
		if err := t.initSVD(); err != nil {
			return nil, err
		}
		solve = t.solveSVD
	default:
		return nil, fmt.Errorf("%w: %q", ErrMethod, t.method)
	}

	evaluate := func(alpha float64) (float64, error) {
		_, synth, err := solve(alpha)
		if err != nil {
			return 0, err
		}
		return t.fitness(t.data, synth), nil
	}

	lower, upper := float64(alphaExpMin), float64(alphaExpMax)
	minimum, err := evaluate(math.Pow(10, lower))
	if err != nil {
		return nil, err
	}
	maximum, err := evaluate(math.Pow(10, upper))
	if err != nil {
		return nil, err
	}
	if maximum == minimum {
		// Regularization has no effect; any alpha is as good.
		upper = lower
	}

	for upper-lower > bisectTol {
		mid := (upper + lower) / 2
		fit, err := evaluate(math.Pow(10, mid))
		if err != nil {
			return nil, err
		}
		if (fit-minimum)/(maximum-minimum) < fitnessTol {
			lower = mid
		} else {
			upper = mid
		}
	}

	alpha := math.Pow(10, lower)
	x, synth, err := solve(alpha)
	if err != nil {
		return nil, err
	}
	fit := t.fitness(t.data, synth)
	monitoring.Logf("invert: method=%s alpha=%.3g fitness=%.6g", t.method, alpha, fit)

	return &Result{X: x, Synthetic: synth, Alpha: alpha, Fitness: fit}, nil
}

// initGeneral builds the regularization operator and the stacked right-hand
// side for the standard and finite-difference variants.
func (t *Tikhonov) initGeneral(diff bool) {
	n, _ := t.kernel.Dims()

	if diff {
		// Upwind finite difference: rows (I - shift), last row dropped.
		t.gamma = mat.NewDense(n-1, n, nil)
		for i := 0; i < n-1; i++ {
			t.gamma.Set(i, i, 1)
			t.gamma.Set(i, i+1, -1)
		}
	} else {
		t.gamma = mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			t.gamma.Set(i, i, 1)
		}
	}

	g, _ := t.gamma.Dims()
	t.rhs = mat.NewVecDense(len(t.data)+g, nil)
	for i, v := range t.data {
		t.rhs.SetVec(i, v)
	}
}

// solveGeneral solves min ‖[Gᵀ; αΓ]x − [b; 0]‖² by dense least squares.
func (t *Tikhonov) solveGeneral(alpha float64) ([]float64, []float64, error) {
	params, meas := t.kernel.Dims()
	g, _ := t.gamma.Dims()

	a := mat.NewDense(meas+g, params, nil)
	for i := 0; i < meas; i++ {
		for j := 0; j < params; j++ {
			a.Set(i, j, t.kernel.At(j, i))
		}
	}
	for i := 0; i < g; i++ {
		for j := 0; j < params; j++ {
			a.Set(meas+i, j, alpha*t.gamma.At(i, j))
		}
	}

	var x mat.VecDense
	if err := x.SolveVec(a, t.rhs); err != nil {
		// The L-curve sweep probes extreme alphas where the stacked system
		// is poorly conditioned; gonum still returns the computed solution
		// alongside a Condition error, which is fine here.
		if _, ok := err.(mat.Condition); !ok {
			return nil, nil, fmt.Errorf("invert: least squares solve (alpha=%g): %w", alpha, err)
		}
	}

	return x.RawVector().Data, t.synthetic(&x), nil
}

// initSVD factorizes Gᵀ once; solves for any alpha then cost only
// matrix-vector products.
func (t *Tikhonov) initSVD() error {
	var kt mat.Dense
	kt.CloneFrom(t.kernel.T())

	t.svd = &mat.SVD{}
	if ok := t.svd.Factorize(&kt, mat.SVDThin); !ok {
		return fmt.Errorf("invert: SVD factorization failed")
	}
	return nil
}

// solveSVD applies Tikhonov filter factors f = s²/(s²+α²) through the
// pseudo-inverse: x = V diag(s/(s²+α²)) Uᵀ b.
func (t *Tikhonov) solveSVD(alpha float64) ([]float64, []float64, error) {
	var u, v mat.Dense
	t.svd.UTo(&u)
	t.svd.VTo(&v)
	s := t.svd.Values(nil)

	b := mat.NewVecDense(len(t.data), t.data)
	var utb mat.VecDense
	utb.MulVec(u.T(), b)

	for i, si := range s {
		if si > 0 {
			utb.SetVec(i, utb.AtVec(i)*si/(si*si+alpha*alpha))
		} else {
			utb.SetVec(i, 0)
		}
	}

	var x mat.VecDense
	x.MulVec(&v, &utb)

	return x.RawVector().Data, t.synthetic(&x), nil
}

// synthetic computes Gᵀx for a solution vector.
func (t *Tikhonov) synthetic(x *mat.VecDense) []float64 {
	_, meas := t.kernel.Dims()
	synth := mat.NewVecDense(meas, nil)
	synth.MulVec(t.kernel.T(), x)
	return synth.RawVector().Data
}
