package sparse

// RowColElimination eliminates the pivot's row and column from the active
// submatrix, creating fill-ins where the update touches an empty position.
// The pivot is replaced by its reciprocal.
func (m *Matrix) RowColElimination(pivot *Element) error {
	if m.Complex {
		return m.ComplexRowColElimination(pivot)
	}
	return m.RealRowColElimination(pivot)
}

func (m *Matrix) RealRowColElimination(pivot *Element) error {
	if pivot.Real == 0.0 {
		return m.singular(pivot.Row)
	}
	pivot.Real = 1.0 / pivot.Real

	for upper := pivot.NextInRow; upper != nil; upper = upper.NextInRow {
		upper.Real *= pivot.Real

		sub := upper.NextInCol
		above := &upper.NextInCol
		for lower := pivot.NextInCol; lower != nil; lower = lower.NextInCol {
			row := lower.Row
			for sub != nil && sub.Row < row {
				above = &sub.NextInCol
				sub = sub.NextInCol
			}

			if sub == nil || sub.Row > row {
				sub = m.createElement(row, upper.Col, &lower.NextInRow, above, true)
			}

			sub.Real -= upper.Real * lower.Real
			above = &sub.NextInCol
			sub = sub.NextInCol
		}
	}

	return nil
}

func (m *Matrix) ComplexRowColElimination(pivot *Element) error {
	if pivot.Real == 0.0 && pivot.Imag == 0.0 {
		return m.singular(pivot.Row)
	}
	pivot.Reciprocal()

	for upper := pivot.NextInRow; upper != nil; upper = upper.NextInRow {
		complexMultAssign(upper, pivot)

		sub := upper.NextInCol
		above := &upper.NextInCol
		for lower := pivot.NextInCol; lower != nil; lower = lower.NextInCol {
			row := lower.Row
			for sub != nil && sub.Row < row {
				above = &sub.NextInCol
				sub = sub.NextInCol
			}

			if sub == nil || sub.Row > row {
				sub = m.createElement(row, upper.Col, &lower.NextInRow, above, true)
			}

			complexMultSubtAssign(sub, upper, lower)
			above = &sub.NextInCol
			sub = sub.NextInCol
		}
	}

	return nil
}
