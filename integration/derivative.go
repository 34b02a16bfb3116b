package integration

import "math"

// Derivative is one integrated quantity, typically a capacitor charge or an
// inductor flux. Index 0 holds the point being solved, index i the value i
// accepted points back.
type Derivative struct {
	pool   *StatePool
	values []float64
	derivs []float64
}

func (d *Derivative) Value() float64 {
	return d.values[0]
}

func (d *Derivative) SetValue(value float64) {
	d.values[0] = value
}

// Previous returns the value i accepted points back.
func (d *Derivative) Previous(i int) float64 {
	return d.values[i]
}

// Init fills the whole history with value and a zero derivative.
func (d *Derivative) Init(value float64) {
	for i := range d.values {
		d.values[i] = value
		d.derivs[i] = 0.0
	}
}

// Integrate computes the derivative of the current value.
func (d *Derivative) Integrate() {
	c := d.pool.coeffs

	sum := 0.0
	for i, ag := range c.Values {
		sum += ag * d.values[i]
	}
	if c.PreviousDerivative != 0.0 {
		sum += c.PreviousDerivative * d.derivs[1]
	}
	d.derivs[0] = sum
}

func (d *Derivative) Derivative() float64 {
	return d.derivs[0]
}

// Jacobian returns the equivalent conductance of a capacitance c.
func (d *Derivative) Jacobian(c float64) float64 {
	return d.pool.Slope() * c
}

// RhsCurrent returns the equivalent current source of a companion model with
// conductance geq at voltage v.
func (d *Derivative) RhsCurrent(geq, v float64) float64 {
	return d.derivs[0] - geq*v
}

// Truncate returns the largest step the charge history allows at the
// current order.
func (d *Derivative) Truncate() float64 {
	return d.TruncateAt(d.pool.order)
}

func (d *Derivative) TruncateAt(order int) float64 {
	p := d.pool.params

	currentTol := p.AbsTol + p.RelTol*math.Max(math.Abs(d.derivs[0]), math.Abs(d.derivs[1]))
	chargeTol := p.RelTol * math.Max(math.Max(math.Abs(d.values[0]), math.Abs(d.values[1])), p.ChgTol) / d.pool.deltas[0]

	return d.pool.lteStep(d.values, order, math.Max(currentTol, chargeTol))
}

// TruncateValue estimates the step from the value history alone, with a
// tolerance of relTol·max(|x0|,|x1|) + absTol. It is used on node voltages
// and branch currents.
func (d *Derivative) TruncateValue(order int, relTol, absTol float64) float64 {
	tol := absTol + relTol*math.Max(math.Abs(d.values[0]), math.Abs(d.values[1]))
	return d.pool.lteStep(d.values, order, tol)
}

func (d *Derivative) rotate() {
	copy(d.values[1:], d.values[:len(d.values)-1])
	copy(d.derivs[1:], d.derivs[:len(d.derivs)-1])
}
