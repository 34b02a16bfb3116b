package sparse

import (
	"math"
	"math/cmplx"
)

// Determinant returns the determinant of the factored matrix as
// mantissa·10^exponent with 1 <= |mantissa| < 10. A matrix that is not
// factored yields 0.
func (m *Matrix) Determinant() (mantissa float64, exponent int) {
	if !m.Factored || m.Complex {
		if m.Factored {
			c, e := m.ComplexDeterminant()
			return real(c), e
		}
		return 0.0, 0
	}

	mantissa = 1.0
	for i := int64(1); i <= m.Size; i++ {
		mantissa /= m.Diags[i].Real
		if mantissa == 0.0 {
			continue
		}
		for math.Abs(mantissa) >= 1.0e12 {
			mantissa *= 1.0e-12
			exponent += 12
		}
		for math.Abs(mantissa) < 1.0e-12 {
			mantissa *= 1.0e12
			exponent -= 12
		}
	}

	if mantissa != 0.0 {
		for math.Abs(mantissa) >= 10.0 {
			mantissa *= 0.1
			exponent++
		}
		for math.Abs(mantissa) < 1.0 {
			mantissa *= 10.0
			exponent--
		}
	}

	if m.NumberOfInterchangesIsOdd {
		mantissa = -mantissa
	}
	return mantissa, exponent
}

// ComplexDeterminant is Determinant for complex factors. The mantissa is
// scaled on its 1-norm.
func (m *Matrix) ComplexDeterminant() (mantissa complex128, exponent int) {
	if !m.Factored {
		return 0, 0
	}

	norm := func(c complex128) float64 { return complex1Norm(real(c), imag(c)) }

	mantissa = 1
	for i := int64(1); i <= m.Size; i++ {
		if m.Complex {
			mantissa /= m.Diags[i].Complex()
		} else {
			mantissa /= complex(m.Diags[i].Real, 0)
		}
		if mantissa == 0 {
			continue
		}
		for norm(mantissa) >= 1.0e12 {
			mantissa *= 1.0e-12
			exponent += 12
		}
		for norm(mantissa) < 1.0e-12 {
			mantissa *= 1.0e12
			exponent -= 12
		}
	}

	if mantissa != 0 {
		for norm(mantissa) >= 10.0 {
			mantissa *= 0.1
			exponent++
		}
		for norm(mantissa) < 1.0 {
			mantissa *= 10.0
			exponent--
		}
	}

	if m.NumberOfInterchangesIsOdd {
		mantissa = -mantissa
	}
	return mantissa, exponent
}

// PseudoCondition is the ratio of the largest to the smallest pivot
// magnitude. It is a cheap hint of ill conditioning, not a bound.
func (m *Matrix) PseudoCondition() float64 {
	if !m.Factored || m.Size == 0 {
		return 0.0
	}

	maxPivot := m.elementMag(m.Diags[1])
	minPivot := maxPivot
	for i := int64(2); i <= m.Size; i++ {
		magnitude := m.elementMag(m.Diags[i])
		maxPivot = math.Max(maxPivot, magnitude)
		minPivot = math.Min(minPivot, magnitude)
	}

	if minPivot == 0.0 {
		return math.Inf(1)
	}
	return maxPivot / minPivot
}

// LargestElement returns the largest magnitude in the matrix. After
// factoring it returns a bound on the largest element seen during
// elimination, useful for judging growth.
func (m *Matrix) LargestElement() float64 {
	if !m.Factored {
		largest := 0.0
		for col := int64(1); col <= m.Size; col++ {
			for element := m.FirstInCol[col]; element != nil; element = element.NextInCol {
				largest = math.Max(largest, m.elementMag(element))
			}
		}
		return largest
	}

	maxRow, maxCol := 0.0, 0.0
	for i := int64(1); i <= m.Size; i++ {
		diag := m.Diags[i]

		// L holds the pivots and everything left of them.
		if m.Complex {
			maxRow = math.Max(maxRow, cmplx.Abs(1/diag.Complex()))
		} else {
			maxRow = math.Max(maxRow, math.Abs(1.0/diag.Real))
		}
		for element := m.FirstInRow[i]; element != nil && element != diag; element = element.NextInRow {
			maxRow = math.Max(maxRow, m.elementMag(element))
		}

		// U has a unit diagonal.
		colSum := 1.0
		for element := m.FirstInCol[i]; element != nil && element != diag; element = element.NextInCol {
			colSum += m.elementMag(element)
		}
		maxCol = math.Max(maxCol, colSum)
	}

	return maxRow * maxCol
}

// Multiply returns A·x. Factoring overwrites A, so call it before Factor.
func (m *Matrix) Multiply(x *Vector) (*Vector, error) {
	if err := m.checkSize(x); err != nil {
		return nil, err
	}

	y := NewVector(m.GetSize(true))
	for col := int64(1); col <= m.Size; col++ {
		xc := x.ComplexAt(m.IntToExtColMap[col])
		if xc == 0 {
			continue
		}

		for element := m.FirstInCol[col]; element != nil; element = element.NextInCol {
			row := m.IntToExtRowMap[element.Row]
			if m.Complex {
				p := element.Complex() * xc
				y.Real[row] += real(p)
				y.Imag[row] += imag(p)
			} else {
				y.Real[row] += element.Real * real(xc)
			}
		}
	}

	return y, nil
}
