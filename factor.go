package sparse

import (
	"fmt"
)

// OrderAndFactor factors the matrix, choosing pivots where needed. With an
// existing ordering each diagonal is reused while it passes the threshold
// test; from the first failing step on, pivots are searched again.
// A relThreshold outside (0, 1] or a negative absThreshold keeps the
// previous value.
func (m *Matrix) OrderAndFactor(rhs *Vector, relThreshold, absThreshold float64, diagPivoting bool) error {
	if relThreshold <= 0.0 || relThreshold > 1.0 {
		relThreshold = m.RelThreshold
	}
	m.RelThreshold = relThreshold
	if absThreshold < 0.0 {
		absThreshold = m.AbsThreshold
	}
	m.AbsThreshold = absThreshold

	m.Factored = false
	step := int64(1)

	if !m.NeedsOrdering {
		for ; step <= m.Size; step++ {
			pivot := m.Diags[step]
			if pivot == nil {
				m.NeedsOrdering = true
				break
			}

			largestInCol := m.FindBiggestInCol(pivot.NextInCol)
			if largestInCol*relThreshold >= m.elementMag(pivot) {
				m.NeedsOrdering = true
				break
			}

			if err := m.RowColElimination(pivot); err != nil {
				return err
			}
		}

		if !m.NeedsOrdering {
			m.Factored = true
			return nil
		}

		if m.Config.Annotate >= AnnotateOnStrangeBehavior {
			fmt.Fprintf(m.Config.Output, "Reordering from step %d of %d\n", step, m.Size)
		}
	} else if !m.RowsLinked {
		m.LinkRows()
	}

	if !m.InternalVectorsAllocated {
		m.CreateInternalVectors()
	}

	m.CountMarkowitz(rhs, step)
	m.MarkowitzProducts(step)
	m.MaxRowCountInLowerTri = -1

	for ; step <= m.Size; step++ {
		pivot := m.SearchForPivot(step, diagPivoting)
		if pivot == nil {
			return m.singular(step)
		}

		m.ExchangeRowsAndCols(pivot, step)

		if err := m.RowColElimination(pivot); err != nil {
			return err
		}

		m.UpdateMarkowitzNumbers(pivot)

		if m.Config.Annotate == AnnotateFull {
			m.WriteStatus(step)
		}
	}

	m.NeedsOrdering = false
	m.Partitioned = false
	m.Reordered = true
	m.Factored = true
	return nil
}

// Factor refactors with the pivot order found by the last OrderAndFactor.
// It fails with ErrStructureInvalidated when elements were created since.
func (m *Matrix) Factor() error {
	if m.NeedsOrdering {
		return ErrStructureInvalidated
	}

	if !m.Partitioned {
		if err := m.Partition(DEFAULT_PARTITION); err != nil {
			return err
		}
	}

	m.Factored = false
	if m.Complex {
		return m.FactorComplex()
	}
	return m.FactorReal()
}

func (m *Matrix) FactorReal() error {
	for step := int64(1); step <= m.Size; step++ {
		diag := m.Diags[step]
		if diag == nil {
			return m.singular(step)
		}

		if m.DoRealDirect[step] {
			dest := m.Intermediate

			for element := m.FirstInCol[step]; element != nil; element = element.NextInCol {
				dest[element.Row] = element.Real
			}

			for column := m.FirstInCol[step]; column != nil && column.Row < step; column = column.NextInCol {
				element := m.Diags[column.Row]
				column.Real = dest[column.Row] * element.Real
				for element = element.NextInCol; element != nil; element = element.NextInCol {
					dest[element.Row] -= column.Real * element.Real
				}
			}

			for element := diag.NextInCol; element != nil; element = element.NextInCol {
				element.Real = dest[element.Row]
			}
			diag.Real = dest[step]
		} else {
			dest := m.scatter

			for element := m.FirstInCol[step]; element != nil; element = element.NextInCol {
				dest[element.Row] = element
			}

			for column := m.FirstInCol[step]; column != nil && column.Row < step; column = column.NextInCol {
				element := m.Diags[column.Row]
				mult := column.Real * element.Real
				column.Real = mult
				for element = element.NextInCol; element != nil; element = element.NextInCol {
					dest[element.Row].Real -= mult * element.Real
				}
			}
		}

		if diag.Real == 0.0 {
			return m.singular(step)
		}
		diag.Real = 1.0 / diag.Real
	}

	m.Factored = true
	return nil
}

func (m *Matrix) FactorComplex() error {
	for step := int64(1); step <= m.Size; step++ {
		diag := m.Diags[step]
		if diag == nil {
			return m.singular(step)
		}

		if m.DoComplexDirect[step] {
			dest := m.Intermediate

			for element := m.FirstInCol[step]; element != nil; element = element.NextInCol {
				dest[2*element.Row] = element.Real
				dest[2*element.Row+1] = element.Imag
			}

			for column := m.FirstInCol[step]; column != nil && column.Row < step; column = column.NextInCol {
				element := m.Diags[column.Row]
				mult := complex(dest[2*column.Row], dest[2*column.Row+1]) * element.Complex()
				column.Real, column.Imag = real(mult), imag(mult)

				for element = element.NextInCol; element != nil; element = element.NextInCol {
					update := mult * element.Complex()
					dest[2*element.Row] -= real(update)
					dest[2*element.Row+1] -= imag(update)
				}
			}

			for element := diag.NextInCol; element != nil; element = element.NextInCol {
				element.Real = dest[2*element.Row]
				element.Imag = dest[2*element.Row+1]
			}
			diag.Set(dest[2*step], dest[2*step+1])
		} else {
			dest := m.scatter

			for element := m.FirstInCol[step]; element != nil; element = element.NextInCol {
				dest[element.Row] = element
			}

			for column := m.FirstInCol[step]; column != nil && column.Row < step; column = column.NextInCol {
				element := m.Diags[column.Row]
				complexMultAssign(column, element)

				for element = element.NextInCol; element != nil; element = element.NextInCol {
					complexMultSubtAssign(dest[element.Row], column, element)
				}
			}
		}

		if diag.Real == 0.0 && diag.Imag == 0.0 {
			return m.singular(step)
		}
		diag.Reciprocal()
	}

	m.Factored = true
	return nil
}

// Partition decides per column whether Factor updates it through a dense
// scatter vector (direct) or through element pointers (indirect).
func (m *Matrix) Partition(mode int) error {
	if m.Partitioned {
		return nil
	}

	if mode == DEFAULT_PARTITION {
		mode = m.Config.DefaultPartition
	}

	switch mode {
	case DIRECT_PARTITION, INDIRECT_PARTITION:
		direct := mode == DIRECT_PARTITION
		for step := int64(1); step <= m.Size; step++ {
			m.DoRealDirect[step] = direct
			m.DoComplexDirect[step] = direct
		}
		m.Partitioned = true
		return nil
	case AUTO_PARTITION:
	default:
		return fmt.Errorf("sparse: unknown partition mode %d", mode)
	}

	// Markowitz arrays are free once the matrix is ordered.
	nc := m.MarkowitzRow
	no := m.MarkowitzCol
	nm := m.MarkowitzProd

	operations := int64(0)
	for step := int64(1); step <= m.Size; step++ {
		nc[step], no[step], nm[step] = 0, 0, 0

		for element := m.FirstInCol[step]; element != nil; element = element.NextInCol {
			nc[step]++
		}

		for column := m.FirstInCol[step]; column != nil && column.Row < step; column = column.NextInCol {
			nm[step]++
			if m.Diags[column.Row] == nil {
				continue
			}
			for element := m.Diags[column.Row].NextInCol; element != nil; element = element.NextInCol {
				no[step]++
			}
		}
		operations += no[step]
	}

	for step := int64(1); step <= m.Size; step++ {
		m.DoRealDirect[step] = nm[step]+no[step] > 3*nc[step]-2*nm[step]
		m.DoComplexDirect[step] = nm[step]+no[step] > 7*nc[step]-4*nm[step]
	}

	m.OperationCount = int(operations)
	m.Partitioned = true
	return nil
}
