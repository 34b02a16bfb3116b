// Package device defines what the analyses expect from circuit elements and
// ships a few reference elements that exercise those contracts.
package device

import (
	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/integration"
)

// Device stamps its linearized contribution into matrix and rhs handles
// acquired in Setup. Load must give the same stamps for the same Status.
type Device interface {
	Name() string
	Setup(b Binder) error
	Load(s *Status) error
}

// Binder hands out unknown numbers and stable stamp handles during Setup.
type Binder interface {
	// Node returns the unknown of a named node, 0 for ground.
	Node(name string) int64
	// Branch allocates a branch current unknown owned by the device.
	Branch(name string) int64
	GetElement(row, col int64) (*sparse.Element, error)
	GetAdmittance(pos, neg int64, template *sparse.Template) error
	GetRhsElement(index int64) (sparse.VectorElement, error)
}

// Convergent can veto convergence after the unknowns settled.
type Convergent interface {
	IsConvergent(s *Status) bool
}

// NonLinear marks devices whose stamps depend on the solution.
type NonLinear interface {
	NonLinear() bool
}

// Acceptor is told when a solution is accepted.
type Acceptor interface {
	Accept(s *Status)
}

// TimeDependent devices keep integrated states in the pool.
type TimeDependent interface {
	CreateStates(pool *integration.StatePool)
	InitStates(s *Status)
}

// Truncator proposes the largest next time step its states allow.
type Truncator interface {
	Truncate(s *Status) float64
}

// FrequencyLoader stamps the small-signal complex model.
type FrequencyLoader interface {
	LoadAC(s *Status) error
}

// Breakpointer reports times in [start, stop] the transient analysis must
// land on.
type Breakpointer interface {
	Breakpoints(start, stop float64) []float64
}

// Sweepable is an independent source a DC sweep can drive.
type Sweepable interface {
	SetDCValue(value float64)
	DCValue() float64
}
