package device

import (
	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/integration"
)

type Mode int

const (
	ModeOP Mode = iota
	ModeDC
	ModeTransient
	ModeAC
)

func (m Mode) String() string {
	switch m {
	case ModeOP:
		return "op"
	case ModeDC:
		return "dc"
	case ModeTransient:
		return "tran"
	case ModeAC:
		return "ac"
	}
	return "unknown"
}

// Status is what a device sees while loading.
type Status struct {
	Mode     Mode
	Solution *sparse.Vector // Latest guess, external unknown order

	Gmin         float64
	SourceFactor float64 // Scales independent sources during source stepping

	Time   float64
	Omega  float64 // Angular frequency for AC
	UseIC  bool
	States *integration.StatePool

	RelTol    float64
	AbsTol    float64
	VoltTol   float64
	Iteration int // Newton iteration of the current solve, 0 loads the initial guess
}

// Value returns unknown i of the current solution; ground reads 0.
func (s *Status) Value(i int64) float64 {
	if i <= 0 || s.Solution == nil || i > s.Solution.Size() {
		return 0.0
	}
	return s.Solution.Real[i]
}

func (s *Status) Voltage(pos, neg int64) float64 {
	return s.Value(pos) - s.Value(neg)
}

// sourceScale is the factor applied to independent sources.
func (s *Status) sourceScale() float64 {
	if s.Mode == ModeTransient || s.Mode == ModeAC {
		return 1.0
	}
	return s.SourceFactor
}
