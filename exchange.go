package sparse

func (m *Matrix) findDiag(index int64) *Element {
	element := m.FirstInCol[index]
	for element != nil && element.Row < index {
		element = element.NextInCol
	}

	if element != nil && element.Row == index {
		return element
	}
	return nil
}

// ExchangeRowsAndCols moves pivot to (step, step). Only links and index maps
// change; element values stay where they are.
func (m *Matrix) ExchangeRowsAndCols(pivot *Element, step int64) {
	row := pivot.Row
	col := pivot.Col

	m.PivotsOriginalRow = m.IntToExtRowMap[row]
	m.PivotsOriginalCol = m.IntToExtColMap[col]

	if row == step && col == step {
		return
	}

	if row == col {
		// Symmetric exchange, the determinant sign is unchanged.
		m.rowExchange(step, row)
		m.colExchange(step, col)

		swap(m.MarkowitzProd, step, row)
		swap(m.Diags, step, row)
		return
	}

	oldStep := m.MarkowitzProd[step]

	if row != step {
		oldRow := m.MarkowitzProd[row]
		m.rowExchange(step, row)
		m.NumberOfInterchangesIsOdd = !m.NumberOfInterchangesIsOdd
		m.MarkowitzProd[row] = markowitzProduct(m.MarkowitzRow[row], m.MarkowitzCol[row])
		m.trackSingleton(oldRow, m.MarkowitzProd[row])
	}

	if col != step {
		oldCol := m.MarkowitzProd[col]
		m.colExchange(step, col)
		m.NumberOfInterchangesIsOdd = !m.NumberOfInterchangesIsOdd
		m.MarkowitzProd[col] = markowitzProduct(m.MarkowitzRow[col], m.MarkowitzCol[col])
		m.trackSingleton(oldCol, m.MarkowitzProd[col])
		m.Diags[col] = m.findDiag(col)
	}

	if row != step {
		m.Diags[row] = m.findDiag(row)
	}
	m.Diags[step] = m.findDiag(step)

	m.MarkowitzProd[step] = markowitzProduct(m.MarkowitzRow[step], m.MarkowitzCol[step])
	m.trackSingleton(oldStep, m.MarkowitzProd[step])
}

func (m *Matrix) trackSingleton(oldProduct, newProduct int64) {
	switch {
	case oldProduct == 0 && newProduct != 0:
		m.Singletons--
	case oldProduct != 0 && newProduct == 0:
		m.Singletons++
	}
}

// rowExchange swaps internal rows row1 and row2. Each column holding an
// element of either row is relinked.
func (m *Matrix) rowExchange(row1, row2 int64) {
	if row1 > row2 {
		row1, row2 = row2, row1
	}

	p1 := m.FirstInRow[row1]
	p2 := m.FirstInRow[row2]
	for p1 != nil || p2 != nil {
		var e1, e2 *Element
		var column int64

		switch {
		case p2 == nil || (p1 != nil && p1.Col < p2.Col):
			e1, column = p1, p1.Col
			p1 = p1.NextInRow
		case p1 == nil || p1.Col > p2.Col:
			e2, column = p2, p2.Col
			p2 = p2.NextInRow
		default:
			e1, e2, column = p1, p2, p1.Col
			p1 = p1.NextInRow
			p2 = p2.NextInRow
		}

		m.exchangeColElements(row1, e1, row2, e2, column)
	}

	swap(m.MarkowitzRow, row1, row2)
	swap(m.FirstInRow, row1, row2)
	swap(m.IntToExtRowMap, row1, row2)

	m.ExtToIntRowMap[m.IntToExtRowMap[row1]] = row1
	m.ExtToIntRowMap[m.IntToExtRowMap[row2]] = row2
}

func (m *Matrix) colExchange(col1, col2 int64) {
	if col1 > col2 {
		col1, col2 = col2, col1
	}

	p1 := m.FirstInCol[col1]
	p2 := m.FirstInCol[col2]
	for p1 != nil || p2 != nil {
		var e1, e2 *Element
		var row int64

		switch {
		case p2 == nil || (p1 != nil && p1.Row < p2.Row):
			e1, row = p1, p1.Row
			p1 = p1.NextInCol
		case p1 == nil || p1.Row > p2.Row:
			e2, row = p2, p2.Row
			p2 = p2.NextInCol
		default:
			e1, e2, row = p1, p2, p1.Row
			p1 = p1.NextInCol
			p2 = p2.NextInCol
		}

		m.exchangeRowElements(col1, e1, col2, e2, row)
	}

	swap(m.MarkowitzCol, col1, col2)
	swap(m.FirstInCol, col1, col2)
	swap(m.IntToExtColMap, col1, col2)

	m.ExtToIntColMap[m.IntToExtColMap[col1]] = col1
	m.ExtToIntColMap[m.IntToExtColMap[col2]] = col2
}

// exchangeColElements relinks column so that element1 (at row1) and
// element2 (at row2) trade rows. Either element may be nil; row1 < row2.
func (m *Matrix) exchangeColElements(row1 int64, element1 *Element, row2 int64, element2 *Element, column int64) {
	aboveRow1 := &m.FirstInCol[column]
	for (*aboveRow1).Row < row1 {
		aboveRow1 = &(*aboveRow1).NextInCol
	}

	switch {
	case element1 != nil && element2 == nil:
		below := element1.NextInCol
		if below != nil && below.Row < row2 {
			*aboveRow1 = below

			aboveRow2 := &below.NextInCol
			for *aboveRow2 != nil && (*aboveRow2).Row < row2 {
				aboveRow2 = &(*aboveRow2).NextInCol
			}
			element1.NextInCol = *aboveRow2
			*aboveRow2 = element1
		}
		element1.Row = row2

	case element1 != nil:
		below := element1.NextInCol
		if below == element2 {
			element1.NextInCol = element2.NextInCol
			element2.NextInCol = element1
			*aboveRow1 = element2
		} else {
			aboveRow2 := &below.NextInCol
			for (*aboveRow2).Row < row2 {
				aboveRow2 = &(*aboveRow2).NextInCol
			}
			belowRow2 := element2.NextInCol

			*aboveRow1 = element2
			element2.NextInCol = below
			*aboveRow2 = element1
			element1.NextInCol = belowRow2
		}
		element1.Row = row2
		element2.Row = row1

	default:
		below := *aboveRow1
		if below != element2 {
			aboveRow2 := &below.NextInCol
			for (*aboveRow2).Row < row2 {
				aboveRow2 = &(*aboveRow2).NextInCol
			}

			*aboveRow2 = element2.NextInCol
			*aboveRow1 = element2
			element2.NextInCol = below
		}
		element2.Row = row1
	}
}

// exchangeRowElements is exchangeColElements along a row.
func (m *Matrix) exchangeRowElements(col1 int64, element1 *Element, col2 int64, element2 *Element, row int64) {
	leftOfCol1 := &m.FirstInRow[row]
	for (*leftOfCol1).Col < col1 {
		leftOfCol1 = &(*leftOfCol1).NextInRow
	}

	switch {
	case element1 != nil && element2 == nil:
		right := element1.NextInRow
		if right != nil && right.Col < col2 {
			*leftOfCol1 = right

			leftOfCol2 := &right.NextInRow
			for *leftOfCol2 != nil && (*leftOfCol2).Col < col2 {
				leftOfCol2 = &(*leftOfCol2).NextInRow
			}
			element1.NextInRow = *leftOfCol2
			*leftOfCol2 = element1
		}
		element1.Col = col2

	case element1 != nil:
		right := element1.NextInRow
		if right == element2 {
			element1.NextInRow = element2.NextInRow
			element2.NextInRow = element1
			*leftOfCol1 = element2
		} else {
			leftOfCol2 := &right.NextInRow
			for (*leftOfCol2).Col < col2 {
				leftOfCol2 = &(*leftOfCol2).NextInRow
			}
			rightOfCol2 := element2.NextInRow

			*leftOfCol1 = element2
			element2.NextInRow = right
			*leftOfCol2 = element1
			element1.NextInRow = rightOfCol2
		}
		element1.Col = col2
		element2.Col = col1

	default:
		right := *leftOfCol1
		if right != element2 {
			leftOfCol2 := &right.NextInRow
			for (*leftOfCol2).Col < col2 {
				leftOfCol2 = &(*leftOfCol2).NextInRow
			}

			*leftOfCol2 = element2.NextInRow
			*leftOfCol1 = element2
			element2.NextInRow = right
		}
		element2.Col = col1
	}
}
