package integration

import (
	"fmt"
	"math"
)

// StatePool owns every Derivative of a circuit together with the step
// history they share. Histories only move on Accept.
type StatePool struct {
	params   Parameters
	maxOrder int
	order    int
	deltas   []float64 // deltas[0] is the step being taken
	coeffs   Coefficients
	states   []*Derivative
	history  int // accepted points held, the initial point included

	diff   []float64
	deltmp []float64
}

func NewStatePool(params Parameters) *StatePool {
	params.setDefaults()

	return &StatePool{
		params:   params,
		maxOrder: params.MaxOrder,
		order:    1,
		deltas:   make([]float64, params.MaxOrder+2),
		diff:     make([]float64, params.MaxOrder+2),
		deltmp:   make([]float64, params.MaxOrder+2),
	}
}

// CreateDerivative allocates a new tracked quantity.
func (p *StatePool) CreateDerivative() *Derivative {
	d := &Derivative{
		pool:   p,
		values: make([]float64, p.maxOrder+2),
		derivs: make([]float64, p.maxOrder+2),
	}
	p.states = append(p.states, d)
	return d
}

func (p *StatePool) Parameters() Parameters { return p.params }
func (p *StatePool) Method() Method         { return p.params.Method }
func (p *StatePool) MaxOrder() int          { return p.maxOrder }
func (p *StatePool) Order() int             { return p.order }
func (p *StatePool) Step() float64          { return p.deltas[0] }
func (p *StatePool) Len() int               { return len(p.states) }

// History returns how many accepted points are stored.
func (p *StatePool) History() int { return p.history }

// Deltas returns a copy of the step history, current step first.
func (p *StatePool) Deltas() []float64 {
	return append([]float64(nil), p.deltas...)
}

// Slope is the derivative of the integrated value with respect to the
// current value, the factor applied to capacitances in Jacobians.
func (p *StatePool) Slope() float64 {
	if len(p.coeffs.Values) == 0 {
		return 0.0
	}
	return p.coeffs.Values[0]
}

// Initialize starts a new history with every past step set to step. Device
// states must be set with Derivative.Init afterwards.
func (p *StatePool) Initialize(step float64) error {
	if !(step > 0.0) || math.IsInf(step, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidStep, step)
	}

	for i := range p.deltas {
		p.deltas[i] = step
	}
	p.order = 1
	p.history = 1
	return p.compute()
}

// SetStep selects the step of the next time point.
func (p *StatePool) SetStep(step float64) error {
	if !(step > 0.0) || math.IsInf(step, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidStep, step)
	}
	p.deltas[0] = step
	return p.compute()
}

func (p *StatePool) SetOrder(order int) error {
	if order < 1 || order > p.maxOrder {
		return fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidOrder, order, p.maxOrder)
	}
	p.order = order
	if p.deltas[0] > 0.0 {
		return p.compute()
	}
	return nil
}

func (p *StatePool) compute() error {
	coeffs, err := p.params.Method.Coefficients(p.order, p.deltas)
	if err != nil {
		return err
	}
	p.coeffs = coeffs
	return nil
}

// Accept commits the current values and derivatives of every state as the
// newest history entry.
func (p *StatePool) Accept() {
	for _, d := range p.states {
		d.rotate()
	}

	copy(p.deltas[1:], p.deltas[:len(p.deltas)-1])
	p.history = min(p.history+1, len(p.deltas))
}

// TruncateAt returns the smallest step allowed by every state for a formula
// of the given order. It is +Inf when there is not enough history.
func (p *StatePool) TruncateAt(order int) float64 {
	step := math.Inf(1)
	for _, d := range p.states {
		step = math.Min(step, d.TruncateAt(order))
	}
	return step
}

// lteStep computes the step that keeps the truncation error of values under
// tol. The divided difference of order+1 estimates the leading error term.
func (p *StatePool) lteStep(values []float64, order int, tol float64) float64 {
	if order < 1 || order > p.maxOrder || p.history < order+1 {
		return math.Inf(1)
	}

	diff := p.diff[:order+2]
	deltmp := p.deltmp[:order+1]
	copy(diff, values[:order+2])
	copy(deltmp, p.deltas[:order+1])

	for j := order; ; {
		for i := 0; i <= j; i++ {
			diff[i] = (diff[i] - diff[i+1]) / deltmp[i]
		}
		j--
		if j < 0 {
			break
		}
		for i := 0; i <= j; i++ {
			deltmp[i] = deltmp[i+1] + p.deltas[i]
		}
	}

	factor := p.params.Method.ErrorConstant(order)
	del := p.params.TrTol * tol / math.Max(p.params.AbsTol, factor*math.Abs(diff[0]))

	switch order {
	case 1:
		return del
	case 2:
		return math.Sqrt(del)
	default:
		return math.Exp(math.Log(del) / float64(order))
	}
}
