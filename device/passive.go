package device

import (
	"fmt"
	"math"

	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/integration"
)

type Resistor struct {
	name     string
	nodes    [2]string
	R        float64
	pos, neg int64
	quad     sparse.Template
}

func NewResistor(name, pos, neg string, r float64) *Resistor {
	return &Resistor{name: name, nodes: [2]string{pos, neg}, R: r}
}

func (r *Resistor) Name() string { return r.name }

func (r *Resistor) Setup(b Binder) error {
	if r.R == 0.0 || math.IsNaN(r.R) {
		return fmt.Errorf("resistor %s: invalid resistance %g", r.name, r.R)
	}
	r.pos = b.Node(r.nodes[0])
	r.neg = b.Node(r.nodes[1])
	return b.GetAdmittance(r.pos, r.neg, &r.quad)
}

func (r *Resistor) Load(*Status) error {
	r.quad.AddRealQuad(1.0 / r.R)
	return nil
}

func (r *Resistor) LoadAC(*Status) error {
	r.quad.AddRealQuad(1.0 / r.R)
	return nil
}

// Current through the resistor from pos to neg.
func (r *Resistor) Current(s *Status) float64 {
	return s.Voltage(r.pos, r.neg) / r.R
}

type Capacitor struct {
	name     string
	nodes    [2]string
	C        float64
	IC       float64
	HasIC    bool
	pos, neg int64
	quad     sparse.Template
	rhsPos   sparse.VectorElement
	rhsNeg   sparse.VectorElement
	charge   *integration.Derivative
}

func NewCapacitor(name, pos, neg string, c float64) *Capacitor {
	return &Capacitor{name: name, nodes: [2]string{pos, neg}, C: c}
}

// SetIC sets the voltage used instead of the operating point when the
// transient analysis starts from initial conditions.
func (c *Capacitor) SetIC(v float64) *Capacitor {
	c.IC = v
	c.HasIC = true
	return c
}

func (c *Capacitor) Name() string { return c.name }

func (c *Capacitor) Setup(b Binder) (err error) {
	if c.C < 0.0 || math.IsNaN(c.C) {
		return fmt.Errorf("capacitor %s: invalid capacitance %g", c.name, c.C)
	}
	c.pos = b.Node(c.nodes[0])
	c.neg = b.Node(c.nodes[1])

	if err = b.GetAdmittance(c.pos, c.neg, &c.quad); err != nil {
		return err
	}
	if c.rhsPos, err = b.GetRhsElement(c.pos); err != nil {
		return err
	}
	c.rhsNeg, err = b.GetRhsElement(c.neg)
	return err
}

func (c *Capacitor) CreateStates(pool *integration.StatePool) {
	c.charge = pool.CreateDerivative()
}

func (c *Capacitor) InitStates(s *Status) {
	v := s.Voltage(c.pos, c.neg)
	if s.UseIC && c.HasIC {
		v = c.IC
	}
	c.charge.Init(c.C * v)
}

// Load is an open circuit outside transient analysis.
func (c *Capacitor) Load(s *Status) error {
	if s.Mode != ModeTransient {
		return nil
	}

	v := s.Voltage(c.pos, c.neg)
	c.charge.SetValue(c.C * v)
	c.charge.Integrate()

	geq := c.charge.Jacobian(c.C)
	ceq := c.charge.RhsCurrent(geq, v)

	c.quad.AddRealQuad(geq)
	c.rhsPos.Sub(ceq)
	c.rhsNeg.Add(ceq)
	return nil
}

func (c *Capacitor) LoadAC(s *Status) error {
	c.quad.AddImagQuad(s.Omega * c.C)
	return nil
}

func (c *Capacitor) Truncate(*Status) float64 {
	return c.charge.Truncate()
}

// Current is the capacitor current of the latest transient load.
func (c *Capacitor) Current() float64 {
	if c.charge == nil {
		return 0.0
	}
	return c.charge.Derivative()
}

// Inductor adds a branch current unknown. Its branch equation is
// V(pos) − V(neg) = dΦ/dt with Φ = L·i.
type Inductor struct {
	name     string
	nodes    [2]string
	L        float64
	IC       float64
	HasIC    bool
	pos, neg int64
	branch   int64

	posBranch, negBranch *sparse.Element
	branchPos, branchNeg *sparse.Element
	branchBranch         *sparse.Element
	rhsBranch            sparse.VectorElement
	flux                 *integration.Derivative
}

func NewInductor(name, pos, neg string, l float64) *Inductor {
	return &Inductor{name: name, nodes: [2]string{pos, neg}, L: l}
}

// SetIC sets the initial branch current used with initial conditions.
func (l *Inductor) SetIC(i float64) *Inductor {
	l.IC = i
	l.HasIC = true
	return l
}

func (l *Inductor) Name() string  { return l.name }
func (l *Inductor) Branch() int64 { return l.branch }

func (l *Inductor) Setup(b Binder) (err error) {
	if l.L < 0.0 || math.IsNaN(l.L) {
		return fmt.Errorf("inductor %s: invalid inductance %g", l.name, l.L)
	}
	l.pos = b.Node(l.nodes[0])
	l.neg = b.Node(l.nodes[1])
	l.branch = b.Branch(l.name)

	if l.posBranch, err = b.GetElement(l.pos, l.branch); err != nil {
		return err
	}
	if l.negBranch, err = b.GetElement(l.neg, l.branch); err != nil {
		return err
	}
	if l.branchPos, err = b.GetElement(l.branch, l.pos); err != nil {
		return err
	}
	if l.branchNeg, err = b.GetElement(l.branch, l.neg); err != nil {
		return err
	}
	if l.branchBranch, err = b.GetElement(l.branch, l.branch); err != nil {
		return err
	}
	l.rhsBranch, err = b.GetRhsElement(l.branch)
	return err
}

func (l *Inductor) CreateStates(pool *integration.StatePool) {
	l.flux = pool.CreateDerivative()
}

func (l *Inductor) InitStates(s *Status) {
	i := s.Value(l.branch)
	if s.UseIC && l.HasIC {
		i = l.IC
	}
	l.flux.Init(l.L * i)
}

func (l *Inductor) stampIncidence() {
	l.posBranch.Add(1.0)
	l.negBranch.Sub(1.0)
	l.branchPos.Add(1.0)
	l.branchNeg.Sub(1.0)
}

// Load is a short circuit outside transient analysis.
func (l *Inductor) Load(s *Status) error {
	l.stampIncidence()
	if s.Mode != ModeTransient {
		return nil
	}

	i := s.Value(l.branch)
	l.flux.SetValue(l.L * i)
	l.flux.Integrate()

	req := l.flux.Jacobian(l.L)
	veq := l.flux.RhsCurrent(req, i)

	l.branchBranch.Sub(req)
	l.rhsBranch.Add(veq)
	return nil
}

func (l *Inductor) LoadAC(s *Status) error {
	l.stampIncidence()
	l.branchBranch.AddComplex(complex(0.0, -s.Omega*l.L))
	return nil
}

func (l *Inductor) Truncate(*Status) float64 {
	return l.flux.Truncate()
}
