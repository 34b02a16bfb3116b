package analysis

import (
	"errors"
	"fmt"

	sparse "github.com/edp1096/sparsesim"
)

var (
	ErrNoCircuit          = errors.New("analysis: no circuit")
	ErrIterationLimit     = errors.New("analysis: iteration limit reached")
	ErrConvergenceFailure = errors.New("analysis: no convergence")
	ErrTimestepTooSmall   = errors.New("analysis: time step too small")
	ErrInvalidSweep       = errors.New("analysis: invalid sweep")
	ErrInvalidTransient   = errors.New("analysis: invalid transient parameters")

	errEmptyStage = errors.New("analysis: stage has no sub-solves")
)

// ConvergenceError is returned when every continuation stage failed.
type ConvergenceError struct {
	Stage    string // Last stage tried
	Err      error  // Failure of the last stage
	Solution *sparse.Vector
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("analysis: no convergence, last stage %s: %v", e.Stage, e.Err)
}

func (e *ConvergenceError) Is(target error) bool {
	return target == ErrConvergenceFailure
}

func (e *ConvergenceError) Unwrap() error {
	return e.Err
}

// TimestepError is returned when the transient step fell below the minimum.
type TimestepError struct {
	Time float64
	Step float64
	Err  error // What forced the last reduction
}

func (e *TimestepError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("analysis: time step %g too small at %g", e.Step, e.Time)
	}
	return fmt.Sprintf("analysis: time step %g too small at %g: %v", e.Step, e.Time, e.Err)
}

func (e *TimestepError) Is(target error) bool {
	return target == ErrTimestepTooSmall
}

func (e *TimestepError) Unwrap() error {
	return e.Err
}
