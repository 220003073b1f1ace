// Package models evaluates parametric momentum-space distributions against
// Green's functions, producing reduced kernels that depend only on the
// remaining axes.
package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/fusion-imaging/sitsi/internal/greens"
)

// ErrNoPitch indicates a Green's function that depends on neither pitch
// parameter.
var ErrNoPitch = errors.New("models: function depends on neither 'xi' nor 'thetap'")

// DeltaPExpPitch is the model
//
//	f(r,p,ξ) = f_r(r) · δ(p−p*) · exp(Cξ)
//
// with f_r an unknown radial profile, p* a free momentum and C a free pitch
// parameter (ξ is the cosine of the pitch angle). Evaluating at (p*, C)
// collapses the momentum axes of a Green's function, leaving a kernel over
// radius and the detector axes.
type DeltaPExpPitch struct {
	fn *greens.Function

	momentumAxis byte // format char of the momentum axis ('1' or '2')
	pitchPos     int  // position of the pitch axis in the format
	xi           []float64
}

// NewDeltaPExpPitch inspects the function's momentum parameters and locates
// the pitch axis. A parameter named "thetap" is converted to its cosine.
func NewDeltaPExpPitch(fn *greens.Function) (*DeltaPExpPitch, error) {
	m := &DeltaPExpPitch{fn: fn}

	var pitchAxis byte
	var pitchName string
	var pitchGrid []float64
	switch {
	case isPitchName(fn.Meta.Param2Name):
		pitchAxis, pitchName, pitchGrid = greens.AxisParam2, fn.Meta.Param2Name, fn.Meta.P2
		m.momentumAxis = greens.AxisParam1
	case isPitchName(fn.Meta.Param1Name):
		pitchAxis, pitchName, pitchGrid = greens.AxisParam1, fn.Meta.Param1Name, fn.Meta.P1
		m.momentumAxis = greens.AxisParam2
	default:
		return nil, ErrNoPitch
	}

	pos, err := fn.Meta.AxisIndex(pitchAxis)
	if err != nil {
		return nil, fmt.Errorf("models: pitch axis: %w", err)
	}
	m.pitchPos = pos

	m.xi = make([]float64, len(pitchGrid))
	for i, v := range pitchGrid {
		if pitchName == "xi" {
			m.xi[i] = v
		} else {
			m.xi[i] = math.Cos(v)
		}
	}
	return m, nil
}

func isPitchName(name string) bool { return name == "xi" || name == "thetap" }

// Eval collapses the function at momentum p and pitch-exponent c: the
// momentum axis is fixed at the grid point nearest p, and the pitch axis is
// reduced with weights exp(cξ)/exp(c)·c. The returned array keeps the
// remaining axes in storage order.
func (m *DeltaPExpPitch) Eval(p, c float64) (*greens.Array, error) {
	pi, err := m.fn.Meta.NearestIndex(m.momentumAxis, p)
	if err != nil {
		return nil, err
	}
	momPos, err := m.fn.Meta.AxisIndex(m.momentumAxis)
	if err != nil {
		return nil, err
	}

	// Delta in p: fix the momentum axis.
	g, err := m.fn.Data.Take(momPos, pi)
	if err != nil {
		return nil, err
	}

	// The pitch axis shifts down once the momentum axis is removed.
	pitchPos := m.pitchPos
	if momPos < pitchPos {
		pitchPos--
	}

	w := make([]float64, len(m.xi))
	norm := math.Exp(c)
	for i, xi := range m.xi {
		w[i] = math.Exp(c*xi) / norm * c
	}

	return g.WeightedSum(pitchPos, w)
}

// Reduced evaluates the model and rewraps the result as a Function over the
// remaining axes, ready for kernel flattening.
func (m *DeltaPExpPitch) Reduced(p, c float64) (*greens.Function, error) {
	a, err := m.Eval(p, c)
	if err != nil {
		return nil, err
	}

	// The reduced format drops both momentum axes.
	var format []byte
	for i := 0; i < len(m.fn.Meta.Format); i++ {
		ch := m.fn.Meta.Format[i]
		if ch == greens.AxisParam1 || ch == greens.AxisParam2 {
			continue
		}
		format = append(format, ch)
	}

	meta := m.fn.Meta
	meta.Format = string(format)
	meta.P1, meta.P2 = nil, nil
	return &greens.Function{Meta: meta, Data: a}, nil
}
