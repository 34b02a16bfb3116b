// Package integration keeps the history of dynamic quantities (charges,
// fluxes) across accepted time points and turns it into derivatives with a
// chosen integration method. It also estimates the local truncation error
// used to size the next step.
package integration

import (
	"errors"

	"golang.org/x/exp/constraints"
)

var (
	ErrInvalidOrder = errors.New("integration: invalid order")
	ErrInvalidStep  = errors.New("integration: invalid time step")
)

// Parameters controls integration and truncation error estimation.
type Parameters struct {
	Method   Method
	MaxOrder int // Capped by Method.MaxOrder

	TrTol  float64 // Truncation error overestimation factor
	RelTol float64
	AbsTol float64 // Current tolerance
	ChgTol float64 // Charge tolerance

	// Tolerances used when truncation is estimated on the unknowns
	// themselves rather than on device charges.
	LteRelTol float64
	LteAbsTol float64
}

func DefaultParameters() Parameters {
	return Parameters{
		Method:    Trapezoidal{},
		MaxOrder:  2,
		TrTol:     7.0,
		RelTol:    1.0e-3,
		AbsTol:    1.0e-12,
		ChgTol:    1.0e-14,
		LteRelTol: 1.0e-3,
		LteAbsTol: 1.0e-6,
	}
}

func (p *Parameters) setDefaults() {
	defaults := DefaultParameters()

	if p.Method == nil {
		p.Method = defaults.Method
	}
	if p.MaxOrder <= 0 {
		p.MaxOrder = p.Method.MaxOrder()
	}
	p.MaxOrder = clamp(p.MaxOrder, 1, p.Method.MaxOrder())

	if p.TrTol <= 0.0 {
		p.TrTol = defaults.TrTol
	}
	if p.RelTol <= 0.0 {
		p.RelTol = defaults.RelTol
	}
	if p.AbsTol <= 0.0 {
		p.AbsTol = defaults.AbsTol
	}
	if p.ChgTol <= 0.0 {
		p.ChgTol = defaults.ChgTol
	}
	if p.LteRelTol <= 0.0 {
		p.LteRelTol = defaults.LteRelTol
	}
	if p.LteAbsTol <= 0.0 {
		p.LteAbsTol = defaults.LteAbsTol
	}
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
