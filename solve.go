package sparse

import (
	"fmt"
)

func (m *Matrix) checkSolvable(rhs *Vector) error {
	if !m.Factored {
		return ErrNotFactored
	}
	return m.checkSize(rhs)
}

func (m *Matrix) checkSize(rhs *Vector) error {
	if rhs == nil || rhs.Size() < m.GetSize(true) {
		size := int64(-1)
		if rhs != nil {
			size = rhs.Size()
		}
		return fmt.Errorf("%w: %d < %d", ErrSizeMismatch, size, m.GetSize(true))
	}
	return nil
}

// Solve computes x from A·x = rhs with the current factors. Both vectors are
// indexed by external unknown number; rhs is left untouched.
func (m *Matrix) Solve(rhs *Vector) (*Vector, error) {
	if err := m.checkSolvable(rhs); err != nil {
		return nil, err
	}
	if m.Complex {
		return m.SolveComplex(rhs)
	}

	size := m.Size
	intermediate := m.Intermediate
	diags := m.Diags

	for i := size; i > 0; i-- {
		intermediate[i] = rhs.Real[m.IntToExtRowMap[i]]
	}

	// Forward elimination, L·c = b
	for i := int64(1); i <= size; i++ {
		temp := intermediate[i]
		if temp == 0.0 {
			continue
		}
		pivot := diags[i]
		temp *= pivot.Real
		intermediate[i] = temp
		for element := pivot.NextInCol; element != nil; element = element.NextInCol {
			intermediate[element.Row] -= temp * element.Real
		}
	}

	// Back substitution, U·x = c
	for i := size; i > 0; i-- {
		temp := intermediate[i]
		for element := diags[i].NextInRow; element != nil; element = element.NextInRow {
			temp -= element.Real * intermediate[element.Col]
		}
		intermediate[i] = temp
	}

	solution := NewVector(rhs.Size())
	for i := size; i > 0; i-- {
		solution.Real[m.IntToExtColMap[i]] = intermediate[i]
	}

	return solution, nil
}

// SolveTransposed computes x from Aᵀ·x = rhs.
func (m *Matrix) SolveTransposed(rhs *Vector) (*Vector, error) {
	if err := m.checkSolvable(rhs); err != nil {
		return nil, err
	}
	if m.Complex {
		return m.SolveComplexTransposed(rhs)
	}

	size := m.Size
	intermediate := m.Intermediate
	diags := m.Diags

	for i := size; i > 0; i-- {
		intermediate[i] = rhs.Real[m.IntToExtColMap[i]]
	}

	for i := int64(1); i <= size; i++ {
		temp := intermediate[i]
		if temp == 0.0 {
			continue
		}
		for element := diags[i].NextInRow; element != nil; element = element.NextInRow {
			intermediate[element.Col] -= temp * element.Real
		}
	}

	for i := size; i > 0; i-- {
		pivot := diags[i]
		temp := intermediate[i]
		for element := pivot.NextInCol; element != nil; element = element.NextInCol {
			temp -= element.Real * intermediate[element.Row]
		}
		intermediate[i] = temp * pivot.Real
	}

	solution := NewVector(rhs.Size())
	for i := size; i > 0; i-- {
		solution.Real[m.IntToExtRowMap[i]] = intermediate[i]
	}

	return solution, nil
}

func (m *Matrix) SolveComplex(rhs *Vector) (*Vector, error) {
	if err := m.checkSolvable(rhs); err != nil {
		return nil, err
	}
	if !m.Complex {
		return nil, fmt.Errorf("sparse: complex solve on real factors")
	}

	size := m.Size
	intermediate := make([]complex128, size+1)

	for i := size; i > 0; i-- {
		intermediate[i] = rhs.ComplexAt(m.IntToExtRowMap[i])
	}

	for i := int64(1); i <= size; i++ {
		temp := intermediate[i]
		if temp == 0 {
			continue
		}
		pivot := m.Diags[i]
		temp *= pivot.Complex()
		intermediate[i] = temp
		for element := pivot.NextInCol; element != nil; element = element.NextInCol {
			intermediate[element.Row] -= temp * element.Complex()
		}
	}

	for i := size; i > 0; i-- {
		temp := intermediate[i]
		for element := m.Diags[i].NextInRow; element != nil; element = element.NextInRow {
			temp -= element.Complex() * intermediate[element.Col]
		}
		intermediate[i] = temp
	}

	solution := NewVector(rhs.Size())
	for i := size; i > 0; i-- {
		ext := m.IntToExtColMap[i]
		solution.Real[ext] = real(intermediate[i])
		solution.Imag[ext] = imag(intermediate[i])
	}

	return solution, nil
}

func (m *Matrix) SolveComplexTransposed(rhs *Vector) (*Vector, error) {
	if err := m.checkSolvable(rhs); err != nil {
		return nil, err
	}
	if !m.Complex {
		return nil, fmt.Errorf("sparse: complex solve on real factors")
	}

	size := m.Size
	intermediate := make([]complex128, size+1)

	for i := size; i > 0; i-- {
		intermediate[i] = rhs.ComplexAt(m.IntToExtColMap[i])
	}

	for i := int64(1); i <= size; i++ {
		temp := intermediate[i]
		if temp == 0 {
			continue
		}
		for element := m.Diags[i].NextInRow; element != nil; element = element.NextInRow {
			intermediate[element.Col] -= temp * element.Complex()
		}
	}

	for i := size; i > 0; i-- {
		pivot := m.Diags[i]
		temp := intermediate[i]
		for element := pivot.NextInCol; element != nil; element = element.NextInCol {
			temp -= element.Complex() * intermediate[element.Row]
		}
		intermediate[i] = temp * pivot.Complex()
	}

	solution := NewVector(rhs.Size())
	for i := size; i > 0; i-- {
		ext := m.IntToExtRowMap[i]
		solution.Real[ext] = real(intermediate[i])
		solution.Imag[ext] = imag(intermediate[i])
	}

	return solution, nil
}
