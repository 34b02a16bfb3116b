package sparse

// CountMarkowitz counts, for the active submatrix starting at step, the
// off-diagonal nonzeros of each row and column. A nonzero rhs entry counts
// as one more element in its row.
func (m *Matrix) CountMarkowitz(rhs *Vector, step int64) {
	for i := step; i <= m.Size; i++ {
		count := int64(-1)
		element := m.FirstInRow[i]

		for element != nil && element.Col < step {
			element = element.NextInRow
		}
		for element != nil {
			count++
			element = element.NextInRow
		}

		if rhs != nil {
			extRow := m.IntToExtRowMap[i]
			if extRow <= rhs.Size() {
				if m.Complex {
					if rhs.Real[extRow] != 0.0 || rhs.Imag[extRow] != 0.0 {
						count++
					}
				} else if rhs.Real[extRow] != 0.0 {
					count++
				}
			}
		}

		m.MarkowitzRow[i] = count
	}

	for i := step; i <= m.Size; i++ {
		count := int64(-1)
		element := m.FirstInCol[i]

		for element != nil && element.Row < step {
			element = element.NextInCol
		}
		for element != nil {
			count++
			element = element.NextInCol
		}

		m.MarkowitzCol[i] = count
	}
}

func (m *Matrix) MarkowitzProducts(step int64) {
	m.Singletons = 0

	for i := step; i <= m.Size; i++ {
		m.MarkowitzProd[i] = markowitzProduct(m.MarkowitzRow[i], m.MarkowitzCol[i])
		if m.MarkowitzProd[i] == 0 {
			m.Singletons++
		}
	}
}

// markowitzProduct saturates instead of overflowing on huge counts.
func markowitzProduct(op1, op2 int64) int64 {
	if (op1 > largestShortInteger && op2 != 0) || (op2 > largestShortInteger && op1 != 0) {
		return int64(clamp(float64(op1)*float64(op2), 0, largestLongInteger))
	}
	return op1 * op2
}

// UpdateMarkowitzNumbers accounts for the elimination of pivot: every row
// with an element below the pivot and every column with an element right of
// it loses one count.
func (m *Matrix) UpdateMarkowitzNumbers(pivot *Element) {
	markowitzRow := m.MarkowitzRow
	markowitzCol := m.MarkowitzCol

	for colPtr := pivot.NextInCol; colPtr != nil; colPtr = colPtr.NextInCol {
		row := colPtr.Row
		markowitzRow[row]--

		m.MarkowitzProd[row] = markowitzProduct(markowitzRow[row], markowitzCol[row])
		if markowitzRow[row] == 0 {
			m.Singletons++
		}
	}

	for rowPtr := pivot.NextInRow; rowPtr != nil; rowPtr = rowPtr.NextInRow {
		col := rowPtr.Col
		markowitzCol[col]--

		m.MarkowitzProd[col] = markowitzProduct(markowitzRow[col], markowitzCol[col])
		if markowitzCol[col] == 0 && markowitzRow[col] != 0 {
			m.Singletons++
		}
	}
}
