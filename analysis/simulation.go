package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/circuit"
	"github.com/edp1096/sparsesim/device"
)

type Statistics struct {
	Iterations   int // Newton iterations over all analyses
	Orderings    int // Calls to OrderAndFactor
	Factorings   int // Calls to Factor
	Rejected     int // Rejected transient steps
	Accepted     int // Accepted transient steps
	StageRetries int // Operating points that needed more than one stage
}

// Simulation holds a set-up circuit and the state the analyses share.
type Simulation struct {
	Circuit *circuit.Circuit
	Config  Configuration
	Status  device.Status
	Stats   Statistics

	solution *sparse.Vector
	reorder  bool
}

func NewSimulation(c *circuit.Circuit, config *Configuration) (*Simulation, error) {
	if c == nil {
		return nil, ErrNoCircuit
	}

	cfg := DefaultConfiguration()
	if config != nil {
		cfg = *config
	}
	cfg.setDefaults()

	if !c.IsSetup() {
		if err := c.Setup(&cfg.Matrix); err != nil {
			return nil, err
		}
	}

	s := &Simulation{
		Circuit:  c,
		Config:   cfg,
		solution: sparse.NewVector(c.Size()),
		reorder:  true,
	}
	s.Status = device.Status{
		Mode:         device.ModeOP,
		Solution:     s.solution,
		SourceFactor: 1.0,
		RelTol:       cfg.RelTol,
		AbsTol:       cfg.AbsTol,
		VoltTol:      cfg.VoltTol,
	}

	return s, nil
}

// Solution is the latest solution. It is overwritten by the next iteration.
func (s *Simulation) Solution() *sparse.Vector {
	return s.solution
}

// SetSolution sets the initial guess of the next iteration.
func (s *Simulation) SetSolution(v *sparse.Vector) {
	s.solution.Clear()
	s.solution.CopyFrom(v)
	s.solution.Resize(s.Circuit.Size())
}

// Iterate runs Newton iterations from the current solution under the
// current Status until the update is within tolerance and every device
// agrees, or maxIterations is reached. A linear circuit is done after one
// solve.
func (s *Simulation) Iterate(ctx context.Context, maxIterations int) (int, error) {
	c := s.Circuit
	log := s.Config.Logger

	for iteration := 1; iteration <= maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return iteration - 1, err
		}

		s.Status.Solution = s.solution
		s.Status.Iteration = iteration - 1
		s.Stats.Iterations++

		if err := c.Load(&s.Status); err != nil {
			return iteration, err
		}
		if err := s.factor(func() error { return c.Load(&s.Status) }); err != nil {
			return iteration, err
		}

		next, err := c.Matrix.Solve(c.Rhs)
		if err != nil {
			return iteration, err
		}

		converged := s.unknownsConverged(s.solution, next)
		s.solution.CopyFrom(next)

		if c.IsLinear() {
			return iteration, nil
		}
		if converged && iteration > 1 && c.IsConvergent(&s.Status) {
			return iteration, nil
		}
	}

	log.Printf("%s: no convergence in %d iterations", s.Status.Mode, maxIterations)
	return maxIterations, fmt.Errorf("%w: %d", ErrIterationLimit, maxIterations)
}

// factor reuses the pivot order when it can. When the reused order meets a
// zero pivot the partly factored values are reloaded and the matrix is
// ordered again.
func (s *Simulation) factor(reload func() error) error {
	m := s.Circuit.Matrix
	cfg := &s.Config

	if s.reorder || m.NeedsOrdering {
		return s.orderAndFactor()
	}

	s.Stats.Factorings++
	err := m.Factor()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sparse.ErrStructureInvalidated):
	case errors.Is(err, sparse.ErrSingular):
		cfg.Logger.Printf("%s: refactor failed (%v), reordering", s.Status.Mode, err)
		if err := reload(); err != nil {
			return err
		}
	default:
		return err
	}
	return s.orderAndFactor()
}

func (s *Simulation) orderAndFactor() error {
	m := s.Circuit.Matrix
	cfg := &s.Config

	if cfg.Matrix.ModifiedNodal {
		m.MNAPreorder()
	}

	s.Stats.Orderings++
	if err := m.OrderAndFactor(s.Circuit.Rhs, cfg.PivotRelTol, cfg.PivotAbsTol, cfg.DiagonalPivoting); err != nil {
		return err
	}
	s.reorder = false
	return nil
}

func (s *Simulation) unknownsConverged(old, next *sparse.Vector) bool {
	cfg := &s.Config

	for i := int64(1); i <= s.Circuit.Size(); i++ {
		o, n := old.Real[i], next.Real[i]
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return false
		}

		tol := cfg.AbsTol
		if s.Circuit.IsNode(i) {
			tol = cfg.VoltTol
		}
		tol += cfg.RelTol * math.Max(math.Abs(o), math.Abs(n))

		if math.Abs(n-o) > tol {
			return false
		}
	}
	return true
}
