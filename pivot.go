package sparse

import (
	"math"
)

// PivotStrategy proposes a pivot for elimination step. Returning nil hands
// the step to the next strategy in Matrix.Strategies.
type PivotStrategy interface {
	Name() string
	FindPivot(m *Matrix, step int64) *Element
}

// DiagonalStrategy marks strategies that only look at the diagonal. They are
// skipped when diagonal pivoting is off.
type DiagonalStrategy interface {
	PivotStrategy
	DiagonalOnly() bool
}

type SingletonSearch struct{}

func (SingletonSearch) Name() string { return "singleton" }

func (SingletonSearch) FindPivot(m *Matrix, step int64) *Element {
	if m.Singletons <= 0 {
		return nil
	}
	return m.SearchForSingleton(step)
}

type QuickDiagonalSearch struct{}

func (QuickDiagonalSearch) Name() string       { return "quick diagonal" }
func (QuickDiagonalSearch) DiagonalOnly() bool { return true }

func (QuickDiagonalSearch) FindPivot(m *Matrix, step int64) *Element {
	return m.QuicklySearchDiagonal(step)
}

type DiagonalSearch struct{}

func (DiagonalSearch) Name() string       { return "diagonal" }
func (DiagonalSearch) DiagonalOnly() bool { return true }

func (DiagonalSearch) FindPivot(m *Matrix, step int64) *Element {
	return m.SearchDiagonal(step)
}

type EntireMatrixSearch struct{}

func (EntireMatrixSearch) Name() string { return "entire matrix" }

func (EntireMatrixSearch) FindPivot(m *Matrix, step int64) *Element {
	return m.SearchEntireMatrix(step)
}

func DefaultStrategies() []PivotStrategy {
	return []PivotStrategy{
		SingletonSearch{},
		QuickDiagonalSearch{},
		DiagonalSearch{},
		EntireMatrixSearch{},
	}
}

// SearchForPivot runs the strategy cascade. A nil result means no element of
// the active submatrix is an acceptable pivot.
func (m *Matrix) SearchForPivot(step int64, diagPivoting bool) *Element {
	for _, strategy := range m.Strategies {
		if d, ok := strategy.(DiagonalStrategy); ok && d.DiagonalOnly() && !diagPivoting {
			continue
		}
		if pivot := strategy.FindPivot(m, step); pivot != nil {
			m.PivotSelectionMethod = strategy.Name()
			return pivot
		}
	}

	m.PivotSelectionMethod = ""
	return nil
}

// acceptable applies the threshold tests to a pivot candidate.
func (m *Matrix) acceptable(pivot *Element, step int64) bool {
	magnitude := m.elementMag(pivot)
	return magnitude > m.AbsThreshold && magnitude > m.RelThreshold*m.FindBiggestInColExclude(pivot, step)
}

// FindBiggestInColExclude returns the largest magnitude in the active part of
// elem's column, elem itself excluded.
func (m *Matrix) FindBiggestInColExclude(elem *Element, step int64) float64 {
	largest := 0.0

	for current := m.FirstInCol[elem.Col]; current != nil; current = current.NextInCol {
		if current.Row < step || current.Row == elem.Row {
			continue
		}
		largest = math.Max(largest, m.elementMag(current))
	}

	return largest
}

// FindBiggestInCol scans from element to the bottom of its column.
func (m *Matrix) FindBiggestInCol(element *Element) float64 {
	largest := 0.0

	for current := element; current != nil; current = current.NextInCol {
		largest = math.Max(largest, m.elementMag(current))
	}

	return largest
}

func (m *Matrix) SearchForSingleton(step int64) *Element {
	// Sentinels at both ends of the product scan.
	m.MarkowitzProd[m.Size+1] = m.MarkowitzProd[step]
	m.MarkowitzProd[step-1] = 0

	singletons := m.Singletons
	m.Singletons--

	index := m.Size + 1

	for singletons > 0 {
		for index >= step && m.MarkowitzProd[index] != 0 {
			index--
		}

		i := index
		if i < step {
			break
		}
		if i > m.Size {
			i = step
		}

		if pivot := m.Diags[i]; pivot != nil {
			if m.acceptable(pivot, step) {
				return pivot
			}
		} else {
			var chosenPivot *Element

			if m.MarkowitzCol[i] == 0 {
				pivot := m.FirstInCol[i]
				for pivot != nil && pivot.Row < step {
					pivot = pivot.NextInCol
				}
				chosenPivot = pivot
			}
			if chosenPivot == nil && m.MarkowitzRow[i] == 0 {
				pivot := m.FirstInRow[i]
				for pivot != nil && pivot.Col < step {
					pivot = pivot.NextInRow
				}
				chosenPivot = pivot
			}

			if chosenPivot != nil && m.acceptable(chosenPivot, step) {
				return chosenPivot
			}
		}

		singletons--
		index--
	}

	m.Singletons++
	return nil
}

// QuicklySearchDiagonal takes the diagonal with the smallest product without
// looking for ties. A diagonal with product 1 whose two off-diagonals are
// symmetric and no larger than itself is taken at once.
func (m *Matrix) QuicklySearchDiagonal(step int64) *Element {
	var chosenPivot *Element

	minMarkowitzProduct := int64(math.MaxInt64)
	m.MarkowitzProd[m.Size+1] = m.MarkowitzProd[step]
	m.MarkowitzProd[step-1] = -1

	index := m.Size + 2
	for {
		index--
		for m.MarkowitzProd[index] >= minMarkowitzProduct {
			index--
		}

		i := index
		if i < step {
			break
		}
		if i > m.Size {
			i = step
		}

		diag := m.Diags[i]
		if diag == nil {
			continue
		}
		magnitude := m.elementMag(diag)
		if magnitude <= m.AbsThreshold {
			continue
		}

		if m.MarkowitzProd[i] == 1 {
			otherInRow := diag.NextInRow
			otherInCol := diag.NextInCol

			if otherInRow == nil && otherInCol == nil {
				otherInRow = m.FirstInRow[i]
				for otherInRow != nil && (otherInRow.Col < step || otherInRow.Col == i) {
					otherInRow = otherInRow.NextInRow
				}

				otherInCol = m.FirstInCol[i]
				for otherInCol != nil && (otherInCol.Row < step || otherInCol.Row == i) {
					otherInCol = otherInCol.NextInCol
				}
			}

			if otherInRow != nil && otherInCol != nil && otherInRow.Col == otherInCol.Row {
				largestOffDiag := math.Max(m.elementMag(otherInRow), m.elementMag(otherInCol))
				if magnitude >= largestOffDiag {
					return diag
				}
			}
		}

		minMarkowitzProduct = m.MarkowitzProd[i]
		chosenPivot = diag
	}

	if chosenPivot != nil && !m.acceptable(chosenPivot, step) {
		chosenPivot = nil
	}

	return chosenPivot
}

func (m *Matrix) SearchDiagonal(step int64) *Element {
	var chosenPivot *Element
	minMarkowitzProduct := int64(math.MaxInt64)
	numberOfTies := int64(0)
	ratioOfAccepted := 0.0

	for i := m.Size; i >= step; i-- {
		if m.MarkowitzProd[i] > minMarkowitzProduct {
			continue
		}

		diag := m.Diags[i]
		if diag == nil {
			continue
		}

		magnitude := m.elementMag(diag)
		if magnitude <= m.AbsThreshold {
			continue
		}

		largestInCol := m.FindBiggestInColExclude(diag, step)
		if magnitude <= m.RelThreshold*largestInCol {
			continue
		}

		ratio := largestInCol / magnitude
		if m.MarkowitzProd[i] < minMarkowitzProduct {
			chosenPivot = diag
			minMarkowitzProduct = m.MarkowitzProd[i]
			ratioOfAccepted = ratio
			numberOfTies = 0
			continue
		}

		numberOfTies++
		if ratio < ratioOfAccepted {
			chosenPivot = diag
			ratioOfAccepted = ratio
		}
		if numberOfTies >= minMarkowitzProduct*int64(m.Config.TiesMultiplier) {
			return chosenPivot
		}
	}

	return chosenPivot
}

// SearchEntireMatrix considers every element of the active submatrix. It
// returns nil only when every candidate is at or below AbsThreshold.
func (m *Matrix) SearchEntireMatrix(step int64) *Element {
	var chosenPivot *Element
	minMarkowitzProduct := int64(math.MaxInt64)
	numberOfTies := int64(0)
	ratioOfAccepted := 0.0

	for i := step; i <= m.Size; i++ {
		current := m.FirstInCol[i]
		for current != nil && current.Row < step {
			current = current.NextInCol
		}

		largestInCol := m.FindBiggestInCol(current)
		if largestInCol == 0.0 {
			continue
		}

		for ; current != nil; current = current.NextInCol {
			magnitude := m.elementMag(current)
			product := markowitzProduct(m.MarkowitzRow[current.Row], m.MarkowitzCol[current.Col])

			if product > minMarkowitzProduct || magnitude <= m.RelThreshold*largestInCol || magnitude <= m.AbsThreshold {
				continue
			}

			ratio := largestInCol / magnitude
			if product < minMarkowitzProduct {
				chosenPivot = current
				minMarkowitzProduct = product
				ratioOfAccepted = ratio
				numberOfTies = 0
				continue
			}

			numberOfTies++
			if ratio < ratioOfAccepted {
				chosenPivot = current
				ratioOfAccepted = ratio
			}
			if numberOfTies >= minMarkowitzProduct*int64(m.Config.TiesMultiplier) {
				return chosenPivot
			}
		}
	}

	return chosenPivot
}
