package sparse

import (
	"fmt"
	"math"
)

// Vector is a dense right-hand side or solution indexed by external unknown
// number. Index 0 is ground and is never solved.
type Vector struct {
	Real []float64
	Imag []float64
}

func NewVector(size int64) *Vector {
	return &Vector{
		Real: make([]float64, size+1),
		Imag: make([]float64, size+1),
	}
}

// Size returns the number of unknowns, ground excluded.
func (v *Vector) Size() int64 {
	return int64(len(v.Real)) - 1
}

func (v *Vector) Resize(size int64) {
	v.Real = grow(v.Real, int(size+1))
	v.Imag = grow(v.Imag, int(size+1))
}

func (v *Vector) Clear() {
	clear(v.Real)
	clear(v.Imag)
}

func (v *Vector) CopyFrom(src *Vector) {
	v.Resize(src.Size())
	copy(v.Real, src.Real)
	copy(v.Imag, src.Imag)
}

func (v *Vector) Clone() *Vector {
	c := NewVector(v.Size())
	c.CopyFrom(v)
	return c
}

// IsFinite reports whether every real entry is a number.
func (v *Vector) IsFinite() bool {
	for _, x := range v.Real {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v *Vector) At(index int64) float64 {
	return v.Real[index]
}

func (v *Vector) ComplexAt(index int64) complex128 {
	return complex(v.Real[index], v.Imag[index])
}

// GetRhsElement returns a handle for entry index, growing the vector when
// needed. The handle survives later growth.
func (v *Vector) GetRhsElement(index int64) (VectorElement, error) {
	if index < 0 {
		return VectorElement{}, fmt.Errorf("%w: rhs %d", ErrInvalidIndex, index)
	}
	if index == 0 {
		return VectorElement{}, nil
	}
	if index > v.Size() {
		v.Resize(index)
	}
	return VectorElement{vector: v, index: index}, nil
}

// VectorElement is a stable handle to one vector entry. The zero value is
// the ground entry and discards stamps.
type VectorElement struct {
	vector *Vector
	index  int64
}

func (e VectorElement) Index() int64 {
	return e.index
}

func (e VectorElement) Add(value float64) {
	if e.vector != nil {
		e.vector.Real[e.index] += value
	}
}

func (e VectorElement) Sub(value float64) {
	if e.vector != nil {
		e.vector.Real[e.index] -= value
	}
}

func (e VectorElement) AddComplex(value complex128) {
	if e.vector != nil {
		e.vector.Real[e.index] += real(value)
		e.vector.Imag[e.index] += imag(value)
	}
}

func (e VectorElement) Value() float64 {
	if e.vector == nil {
		return 0.0
	}
	return e.vector.Real[e.index]
}

func (e VectorElement) Complex() complex128 {
	if e.vector == nil {
		return 0
	}
	return complex(e.vector.Real[e.index], e.vector.Imag[e.index])
}
