package sparse

import (
	"fmt"
	"io"
	"math"
)

// WriteStatus reports the pivot chosen at step together with the Markowitz
// counts and index maps.
func (m *Matrix) WriteStatus(step int64) {
	w := m.Config.Output

	fmt.Fprintf(w, "Step = %d   Pivot found at %d,%d using %s search\n",
		step, m.PivotsOriginalRow, m.PivotsOriginalCol, m.PivotSelectionMethod)

	writeInts(w, "MarkowitzRow     = ", m.MarkowitzRow[1:m.Size+1])
	writeInts(w, "MarkowitzCol     = ", m.MarkowitzCol[1:m.Size+1])
	writeInts(w, "MarkowitzProduct = ", m.MarkowitzProd[1:m.Size+1])
	fmt.Fprintf(w, "Singletons = %2d\n", m.Singletons)

	writeInts(w, "IntToExtRowMap     = ", m.IntToExtRowMap[1:m.Size+1])
	writeInts(w, "IntToExtColMap     = ", m.IntToExtColMap[1:m.Size+1])
	writeInts(w, "ExtToIntRowMap     = ", m.ExtToIntRowMap[1:m.GetSize(true)+1])
	writeInts(w, "ExtToIntColMap     = ", m.ExtToIntColMap[1:m.GetSize(true)+1])
	fmt.Fprintln(w)
}

func writeInts(w io.Writer, label string, values []int64) {
	fmt.Fprint(w, label)
	for _, v := range values {
		fmt.Fprintf(w, "%2d  ", v)
	}
	fmt.Fprintln(w)
}

// Print draws the matrix. With reordered the internal order is used,
// otherwise the external one. Without data only the structure is drawn.
func (m *Matrix) Print(reordered, data, header bool) {
	if m == nil {
		return
	}
	w := m.Config.Output

	// Display position -> internal index.
	rows := make([]int64, 0, m.Size+1)
	cols := make([]int64, 0, m.Size+1)
	if reordered {
		for i := int64(1); i <= m.Size; i++ {
			rows = append(rows, i)
			cols = append(cols, i)
		}
	} else {
		for ext := int64(1); ext <= m.GetSize(true); ext++ {
			if r := m.ExtToIntRowMap[ext]; r > 0 {
				rows = append(rows, r)
			}
			if c := m.ExtToIntColMap[ext]; c > 0 {
				cols = append(cols, c)
			}
		}
	}

	if header {
		fmt.Fprintf(w, "MATRIX SUMMARY\n\nSize of matrix = %d x %d.\n", m.Size, m.Size)
		if m.Reordered && reordered {
			fmt.Fprintln(w, "Matrix has been reordered.")
		}
		fmt.Fprintln(w)
		if m.Factored {
			fmt.Fprintln(w, "Matrix after factorization:")
		} else {
			fmt.Fprintln(w, "Matrix before factorization:")
		}
	}

	if m.Size == 0 {
		return
	}

	columns := m.Config.PrinterWidth
	if header {
		columns -= 5
	}
	if data {
		columns = (columns + 1) / 10
	}
	columns = max(columns, 1)

	for start := 0; start < len(cols); start += columns {
		stop := min(start+columns, len(cols))

		if header {
			if data {
				fmt.Fprint(w, "    ")
				for _, c := range cols[start:stop] {
					fmt.Fprintf(w, " %9d", m.IntToExtColMap[c])
				}
				fmt.Fprint(w, "\n\n")
			} else {
				fmt.Fprintf(w, "Columns %d to %d.\n", m.IntToExtColMap[cols[start]], m.IntToExtColMap[cols[stop-1]])
			}
		}

		for _, r := range rows {
			if header {
				fmt.Fprintf(w, "%4d", m.IntToExtRowMap[r])
				if !data {
					fmt.Fprint(w, " ")
				}
			}

			line := make([]*Element, 0, stop-start)
			for _, c := range cols[start:stop] {
				element := m.find(r, c)
				line = append(line, element)

				switch {
				case element != nil && data:
					fmt.Fprintf(w, " %9.3g", element.Real)
				case element != nil:
					fmt.Fprint(w, "x")
				case data:
					fmt.Fprint(w, "       ...")
				default:
					fmt.Fprint(w, ".")
				}
			}
			fmt.Fprintln(w)

			if data && m.Complex {
				if header {
					fmt.Fprint(w, "    ")
				}
				for _, element := range line {
					if element != nil {
						fmt.Fprintf(w, " %8.2gj", element.Imag)
					} else {
						fmt.Fprint(w, "          ")
					}
				}
				fmt.Fprintln(w)
			}
		}
		fmt.Fprintln(w)
	}

	if header {
		stats := m.statistics()
		fmt.Fprintf(w, "\nLargest element in matrix = %-1.4g.\n", stats.largestElement)
		fmt.Fprintf(w, "Smallest element in matrix = %-1.4g.\n", stats.smallestElement)
		if m.Factored {
			fmt.Fprintf(w, "\nLargest diagonal element = %-1.4g.\n", stats.largestDiag)
			fmt.Fprintf(w, "Smallest diagonal element = %-1.4g.\n", stats.smallestDiag)
		} else {
			fmt.Fprintf(w, "\nLargest pivot element = %-1.4g.\n", stats.largestDiag)
			fmt.Fprintf(w, "Smallest pivot element = %-1.4g.\n", stats.smallestDiag)
		}

		density := float64(stats.elementCount) * 100.0 / float64(m.Size*m.Size)
		fmt.Fprintf(w, "\nDensity = %.2f%%.\n", density)
		if !m.NeedsOrdering {
			fmt.Fprintf(w, "Number of fill-ins = %d.\n", m.Fillins)
		}
		fmt.Fprintln(w)
	}
}

// find looks up internal (row, col) without creating it.
func (m *Matrix) find(row, col int64) *Element {
	for element := m.FirstInCol[col]; element != nil; element = element.NextInCol {
		if element.Row == row {
			return element
		}
		if element.Row > row {
			break
		}
	}
	return nil
}

type matrixStats struct {
	largestElement  float64
	smallestElement float64
	largestDiag     float64
	smallestDiag    float64
	elementCount    int64
}

func (m *Matrix) statistics() matrixStats {
	stats := matrixStats{
		smallestElement: math.MaxFloat64,
		smallestDiag:    math.MaxFloat64,
	}

	for col := int64(1); col <= m.Size; col++ {
		for element := m.FirstInCol[col]; element != nil; element = element.NextInCol {
			stats.elementCount++
			magnitude := m.elementMag(element)

			stats.largestElement = math.Max(stats.largestElement, magnitude)
			if magnitude != 0 {
				stats.smallestElement = math.Min(stats.smallestElement, magnitude)
			}

			if element.Row == col {
				stats.largestDiag = math.Max(stats.largestDiag, magnitude)
				if magnitude != 0 {
					stats.smallestDiag = math.Min(stats.smallestDiag, magnitude)
				}
			}
		}
	}

	if stats.elementCount == 0 {
		stats = matrixStats{}
	}
	return stats
}
