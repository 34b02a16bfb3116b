package sparse

import (
	"errors"
	"fmt"
)

var (
	// ErrSingular is returned when no pivot passes the threshold tests at
	// some elimination step, or when a reused ordering meets a zero pivot.
	ErrSingular = errors.New("sparse: matrix is singular")

	// ErrStructureInvalidated is returned by Factor when elements were
	// created after the last ordering. Call OrderAndFactor instead.
	ErrStructureInvalidated = errors.New("sparse: structure changed since last ordering")

	ErrNotFactored  = errors.New("sparse: matrix is not factored")
	ErrInvalidIndex = errors.New("sparse: invalid row or column index")
	ErrInvalidSize  = errors.New("sparse: invalid size")
	ErrSizeFixed    = errors.New("sparse: matrix size fixed")
	ErrSizeMismatch = errors.New("sparse: vector smaller than matrix")
)

// SingularError carries the location of the failed pivot.
type SingularError struct {
	Step int64
	Row  int64 // external row
	Col  int64 // external column
}

func (e *SingularError) Error() string {
	return fmt.Sprintf("sparse: matrix is singular at step %d (row %d, col %d)", e.Step, e.Row, e.Col)
}

func (e *SingularError) Is(target error) bool {
	return target == ErrSingular
}

func (m *Matrix) singular(step int64) error {
	m.SingularRow = step
	m.SingularCol = step
	if step >= 1 && step <= m.Size {
		m.SingularRow = m.IntToExtRowMap[step]
		m.SingularCol = m.IntToExtColMap[step]
	}
	m.Factored = false

	return &SingularError{Step: step, Row: m.SingularRow, Col: m.SingularCol}
}
