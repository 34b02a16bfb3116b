package analysis

import (
	"context"
	"errors"
	"math"

	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/device"
)

// StampParameters are the continuation knobs applied to one sub-solve.
type StampParameters struct {
	Gmin         float64
	SourceFactor float64
}

// ContinuationStage is a sequence of sub-solves, each started from the
// solution of the previous one. The last sub-solve must be the unmodified
// circuit.
type ContinuationStage interface {
	Name() string
	// Parameters returns the knobs of sub-solve k, or false when the stage
	// has no more sub-solves.
	Parameters(k int, best *sparse.Vector) (StampParameters, bool)
}

// DirectStage solves the circuit as it is.
type DirectStage struct{}

func (DirectStage) Name() string { return "direct" }

func (DirectStage) Parameters(k int, _ *sparse.Vector) (StampParameters, bool) {
	return StampParameters{SourceFactor: 1.0}, k == 0
}

// GminStepping starts with a large conductance from every node to ground
// and lowers it a decade per sub-solve down to Gmin, then removes it.
type GminStepping struct {
	Gmin  float64
	Steps int
}

func (GminStepping) Name() string { return "gmin stepping" }

func (g GminStepping) Parameters(k int, _ *sparse.Vector) (StampParameters, bool) {
	switch {
	case k < 0 || k > g.Steps+1:
		return StampParameters{}, false
	case k == g.Steps+1:
		return StampParameters{SourceFactor: 1.0}, true
	}
	return StampParameters{
		Gmin:         g.Gmin * math.Pow(10.0, float64(g.Steps-k)),
		SourceFactor: 1.0,
	}, true
}

// SourceStepping ramps every independent source from zero to its value.
type SourceStepping struct {
	Steps int
}

func (SourceStepping) Name() string { return "source stepping" }

func (st SourceStepping) Parameters(k int, _ *sparse.Vector) (StampParameters, bool) {
	if k < 0 || k > st.Steps || st.Steps <= 0 {
		return StampParameters{}, false
	}
	return StampParameters{SourceFactor: float64(k) / float64(st.Steps)}, true
}

// Op computes the DC operating point from a zero initial guess.
func (s *Simulation) Op(ctx context.Context) (*sparse.Vector, error) {
	s.Status.Mode = device.ModeOP
	s.solution.Clear()
	if err := s.operatingPoint(ctx); err != nil {
		return nil, err
	}
	return s.solution.Clone(), nil
}

// operatingPoint tries every stage in turn. Each stage starts from the last
// iterate of the stage before it, the first one from the current solution.
func (s *Simulation) operatingPoint(ctx context.Context) error {
	var (
		lastErr   error
		lastStage string
	)
	log := s.Config.Logger

	for n, stage := range s.Config.Stages {
		if n > 0 {
			s.Stats.StageRetries++
			if !s.solution.IsFinite() {
				s.solution.Clear()
			}
		}

		err := s.runStage(ctx, stage)
		if err == nil {
			s.Status.Gmin = 0.0
			s.Status.SourceFactor = 1.0
			s.Circuit.Accept(&s.Status)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return err
		}

		log.Printf("%s: stage %s failed: %v", s.Status.Mode, stage.Name(), err)
		lastErr, lastStage = err, stage.Name()
	}

	s.Status.Gmin = 0.0
	s.Status.SourceFactor = 1.0
	return &ConvergenceError{Stage: lastStage, Err: lastErr, Solution: s.solution.Clone()}
}

func (s *Simulation) runStage(ctx context.Context, stage ContinuationStage) error {
	for k := 0; ; k++ {
		params, ok := stage.Parameters(k, s.solution)
		if !ok {
			if k == 0 {
				return errEmptyStage
			}
			return nil
		}

		s.Status.Gmin = params.Gmin
		s.Status.SourceFactor = params.SourceFactor
		if _, err := s.Iterate(ctx, s.Config.DCMaxIterations); err != nil {
			return err
		}
	}
}
