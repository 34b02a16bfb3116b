package sparse

import "math"

// Add accumulates a real stamp.
func (e *Element) Add(value float64) {
	e.Real += value
}

func (e *Element) Sub(value float64) {
	e.Real -= value
}

func (e *Element) AddComplexElement(real, imag float64) {
	e.Real += real
	e.Imag += imag
}

func (e *Element) AddComplex(value complex128) {
	e.Real += real(value)
	e.Imag += imag(value)
}

func (e *Element) Set(real, imag float64) {
	e.Real = real
	e.Imag = imag
}

func (e *Element) Scale(factor float64) {
	e.Real *= factor
	e.Imag *= factor
}

func (e *Element) Negate() {
	e.Real = -e.Real
	e.Imag = -e.Imag
}

func (e *Element) Value() float64 {
	return e.Real
}

func (e *Element) Complex() complex128 {
	return complex(e.Real, e.Imag)
}

// Reciprocal sets e = 1/e with Smith's scaling, no small-angle shortcut.
func (e *Element) Reciprocal() {
	if (e.Real >= e.Imag && e.Real > -e.Imag) || (e.Real < e.Imag && e.Real <= -e.Imag) {
		r := e.Imag / e.Real
		e.Real = 1.0 / (e.Real + r*e.Imag)
		e.Imag = -r * e.Real
	} else {
		r := e.Real / e.Imag
		e.Imag = -1.0 / (e.Imag + r*e.Real)
		e.Real = -r * e.Imag
	}
}

// complex1Norm returns 1-norm of a complex number (|real| + |imag|)
func complex1Norm(real, imag float64) float64 {
	return math.Abs(real) + math.Abs(imag)
}

// complexMultAssign sets a = a * b
func complexMultAssign(a, b *Element) {
	aReal := a.Real
	a.Real = aReal*b.Real - a.Imag*b.Imag
	a.Imag = aReal*b.Imag + a.Imag*b.Real
}

// complexMultSubtAssign sets result = result - (a * b)
func complexMultSubtAssign(result, a, b *Element) {
	result.Real -= a.Real*b.Real - a.Imag*b.Imag
	result.Imag -= a.Real*b.Imag + a.Imag*b.Real
}

/* Quad Template */

func (t *Template) AddRealQuad(real float64) {
	t.Element1.Real += real
	t.Element2.Real += real
	t.Element3Negated.Real -= real
	t.Element4Negated.Real -= real
}

func (t *Template) AddImagQuad(imag float64) {
	t.Element1.Imag += imag
	t.Element2.Imag += imag
	t.Element3Negated.Imag -= imag
	t.Element4Negated.Imag -= imag
}

func (t *Template) AddComplexQuad(real, imag float64) {
	t.AddRealQuad(real)
	t.AddImagQuad(imag)
}
