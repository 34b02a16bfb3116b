package integration

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Coefficients turn a value history into a derivative:
//
//	d/dt q[0] = sum(Values[i]*q[i]) + PreviousDerivative*dq[1]
//
// where q[i] is the value i accepted points back and dq[1] the derivative
// at the last accepted point. Values[0] is the slope used in Jacobians.
type Coefficients struct {
	Values             []float64
	PreviousDerivative float64
}

// Method is an integration formula.
type Method interface {
	Name() string
	MaxOrder() int
	// Coefficients computes the formula for order. deltas[0] is the step being
	// taken and deltas[i] the i-th previous accepted step.
	Coefficients(order int, deltas []float64) (Coefficients, error)
	// ErrorConstant is the leading truncation error coefficient at order.
	ErrorConstant(order int) float64
}

var (
	trapezoidalErrorConstants = []float64{0.5, 0.08333333333}
	gearErrorConstants        = []float64{0.5, 0.2222222222, 0.1363636364, 0.096, 0.07299270073, 0.05830903790}
)

// Trapezoidal is backward Euler at order 1 and the trapezoidal rule at
// order 2.
type Trapezoidal struct{}

func (Trapezoidal) Name() string  { return "trapezoidal" }
func (Trapezoidal) MaxOrder() int { return 2 }

func (Trapezoidal) Coefficients(order int, deltas []float64) (Coefficients, error) {
	h := deltas[0]
	if h <= 0.0 {
		return Coefficients{}, fmt.Errorf("%w: %g", ErrInvalidStep, h)
	}

	switch order {
	case 1:
		return Coefficients{Values: []float64{1.0 / h, -1.0 / h}}, nil
	case 2:
		return Coefficients{Values: []float64{2.0 / h, -2.0 / h}, PreviousDerivative: -1.0}, nil
	}
	return Coefficients{}, fmt.Errorf("%w: %d for trapezoidal", ErrInvalidOrder, order)
}

func (Trapezoidal) ErrorConstant(order int) float64 {
	return trapezoidalErrorConstants[clamp(order, 1, 2)-1]
}

// Gear is the backward differentiation family, orders 1 to 6, with
// coefficients recomputed for the actual step history.
type Gear struct{}

func (Gear) Name() string  { return "gear" }
func (Gear) MaxOrder() int { return 6 }

// Coefficients solves the Vandermonde-like system that makes the formula
// exact for polynomials up to order on the given time points.
func (Gear) Coefficients(order int, deltas []float64) (Coefficients, error) {
	if order < 1 || order > 6 {
		return Coefficients{}, fmt.Errorf("%w: %d for gear", ErrInvalidOrder, order)
	}
	h := deltas[0]
	if h <= 0.0 {
		return Coefficients{}, fmt.Errorf("%w: %g", ErrInvalidStep, h)
	}

	n := order + 1
	system := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		system.Set(0, i, 1.0)
	}

	arg := 0.0
	for i := 1; i <= order; i++ {
		arg += deltas[i-1]
		term := 1.0
		for j := 1; j <= order; j++ {
			term *= arg / h
			system.Set(j, i, term)
		}
	}

	rhs := mat.NewVecDense(n, nil)
	rhs.SetVec(1, -1.0/h)

	var ag mat.VecDense
	if err := ag.SolveVec(system, rhs); err != nil {
		return Coefficients{}, fmt.Errorf("integration: gear order %d: %w", order, err)
	}

	values := make([]float64, n)
	for i := range values {
		values[i] = ag.AtVec(i)
	}
	return Coefficients{Values: values}, nil
}

func (Gear) ErrorConstant(order int) float64 {
	return gearErrorConstants[clamp(order, 1, 6)-1]
}
