package sparse

import (
	"gonum.org/v1/gonum/mat"
)

// ToDense copies the real part into a dense matrix in external order. Row
// and column i of the result hold unknown i+1.
func (m *Matrix) ToDense() *mat.Dense {
	n := int(m.GetSize(true))
	if n == 0 {
		return &mat.Dense{}
	}

	dense := mat.NewDense(n, n, nil)
	for col := int64(1); col <= m.Size; col++ {
		extCol := int(m.IntToExtColMap[col])
		for element := m.FirstInCol[col]; element != nil; element = element.NextInCol {
			dense.Set(int(m.IntToExtRowMap[element.Row])-1, extCol-1, element.Real)
		}
	}
	return dense
}

// ToCDense is ToDense with imaginary parts.
func (m *Matrix) ToCDense() *mat.CDense {
	n := int(m.GetSize(true))
	if n == 0 {
		return &mat.CDense{}
	}

	dense := mat.NewCDense(n, n, nil)
	for col := int64(1); col <= m.Size; col++ {
		extCol := int(m.IntToExtColMap[col])
		for element := m.FirstInCol[col]; element != nil; element = element.NextInCol {
			dense.Set(int(m.IntToExtRowMap[element.Row])-1, extCol-1, element.Complex())
		}
	}
	return dense
}

// DenseVector copies entries 1..n of v into a gonum vector.
func (v *Vector) DenseVector() *mat.VecDense {
	n := int(v.Size())
	if n == 0 {
		return &mat.VecDense{}
	}
	return mat.NewVecDense(n, append([]float64(nil), v.Real[1:]...))
}
