package sparse

// MNAPreorder removes structural zeros from the diagonal of a modified nodal
// matrix before the first ordering. A zero diagonal at column j is fixed by
// swapping j with column r when (r,j) and (j,r) are both ±1, which is how
// voltage sources and inductors stamp their branch rows. Lone twins are
// swapped first; columns with several twin pairs wait for another pass.
func (m *Matrix) MNAPreorder() {
	if m.RowsLinked {
		return
	}

	m.Reordered = true
	startAt := int64(1)

	for {
		anotherPassNeeded := false
		swapped := false

		for j := startAt; j <= m.Size; j++ {
			if m.Diags[j] != nil {
				continue
			}
			twins, twin1, twin2 := m.CountTwins(j)
			if twins == 1 {
				m.SwapCols(twin1, twin2)
				swapped = true
			} else if twins > 1 && !anotherPassNeeded {
				anotherPassNeeded = true
				startAt = j
			}
		}

		if !anotherPassNeeded {
			return
		}

		for j := startAt; !swapped && j <= m.Size; j++ {
			if m.Diags[j] == nil {
				_, twin1, twin2 := m.CountTwins(j)
				m.SwapCols(twin1, twin2)
				swapped = true
			}
		}
	}
}

// CountTwins counts symmetric ±1 pairs for column col, stopping at two. For
// a single pair it returns the element in col and its mirror.
func (m *Matrix) CountTwins(col int64) (twins int, twin1, twin2 *Element) {
	for candidate := m.FirstInCol[col]; candidate != nil; candidate = candidate.NextInCol {
		if m.elementMag(candidate) != 1.0 {
			continue
		}

		row := candidate.Row
		mirror := m.FirstInCol[row]
		for mirror != nil && mirror.Row != col {
			mirror = mirror.NextInCol
		}
		if mirror == nil || m.elementMag(mirror) != 1.0 {
			continue
		}

		twins++
		if twins >= 2 {
			return twins, twin1, twin2
		}
		twin1, twin2 = candidate, mirror
		twin1.Col = col
		twin2.Col = row
	}

	return twins, twin1, twin2
}

// SwapCols exchanges the columns of two twins so that both land on the
// diagonal.
func (m *Matrix) SwapCols(twin1, twin2 *Element) {
	col1 := twin1.Col
	col2 := twin2.Col

	swap(m.FirstInCol, col1, col2)
	swap(m.IntToExtColMap, col1, col2)
	m.ExtToIntColMap[m.IntToExtColMap[col1]] = col1
	m.ExtToIntColMap[m.IntToExtColMap[col2]] = col2

	for _, col := range []int64{col1, col2} {
		for element := m.FirstInCol[col]; element != nil; element = element.NextInCol {
			element.Col = col
		}
	}

	m.Diags[col1] = twin2
	m.Diags[col2] = twin1

	m.NumberOfInterchangesIsOdd = !m.NumberOfInterchangesIsOdd
}
