package device

import (
	"fmt"
	"math"

	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/integration"
)

const (
	boltzmann      = 1.380649e-23    // J/K
	electronCharge = 1.602176634e-19 // C
	nominalTemp    = 300.15          // K
	maxExponent    = 40.0
	defaultIs      = 1.0e-14
	defaultN       = 1.0
)

// Diode is a junction diode with an optional constant junction capacitance.
type Diode struct {
	name  string
	nodes [2]string

	Is   float64 // Saturation current
	N    float64 // Emission coefficient
	Cj0  float64 // Junction capacitance
	Temp float64 // K

	pos, neg int64
	quad     sparse.Template
	rhsPos   sparse.VectorElement
	rhsNeg   sparse.VectorElement
	charge   *integration.Derivative

	vd, id, gd float64
	limited    bool
	vt, vcrit  float64
}

func NewDiode(name, anode, cathode string) *Diode {
	return &Diode{
		name:  name,
		nodes: [2]string{anode, cathode},
		Is:    defaultIs,
		N:     defaultN,
		Temp:  nominalTemp,
	}
}

// SetModelParameters applies lower-case model card values.
func (d *Diode) SetModelParameters(params map[string]float64) {
	fields := map[string]*float64{
		"is":   &d.Is,
		"n":    &d.N,
		"cj0":  &d.Cj0,
		"temp": &d.Temp,
	}
	for key, field := range fields {
		if value, ok := params[key]; ok {
			*field = value
		}
	}
}

func (d *Diode) Name() string    { return d.name }
func (d *Diode) NonLinear() bool { return true }

func (d *Diode) Setup(b Binder) (err error) {
	if d.Is <= 0.0 || d.N <= 0.0 || d.Temp <= 0.0 {
		return fmt.Errorf("diode %s: invalid model (is=%g n=%g temp=%g)", d.name, d.Is, d.N, d.Temp)
	}

	d.vt = d.N * boltzmann * d.Temp / electronCharge
	d.vcrit = d.vt * math.Log(d.vt/(math.Sqrt2*d.Is))

	d.pos = b.Node(d.nodes[0])
	d.neg = b.Node(d.nodes[1])

	if err = b.GetAdmittance(d.pos, d.neg, &d.quad); err != nil {
		return err
	}
	if d.rhsPos, err = b.GetRhsElement(d.pos); err != nil {
		return err
	}
	d.rhsNeg, err = b.GetRhsElement(d.neg)
	return err
}

func (d *Diode) CreateStates(pool *integration.StatePool) {
	if d.Cj0 > 0.0 {
		d.charge = pool.CreateDerivative()
	}
}

func (d *Diode) InitStates(s *Status) {
	if d.charge != nil {
		d.charge.Init(d.Cj0 * s.Voltage(d.pos, d.neg))
	}
}

// pnjlim limits the junction voltage step so the exponential stays in a
// range Newton can follow.
func pnjlim(vnew, vold, vt, vcrit float64) (float64, bool) {
	if vnew <= vcrit || math.Abs(vnew-vold) <= 2.0*vt {
		return vnew, false
	}

	if vold > 0.0 {
		arg := 1.0 + (vnew-vold)/vt
		if arg > 0.0 {
			return vold + vt*math.Log(arg), true
		}
		return vcrit, true
	}
	return vt * math.Log(vnew/vt), true
}

func (d *Diode) evaluate(vd float64) (id, gd float64) {
	evd := math.Exp(math.Min(vd/d.vt, maxExponent))
	return d.Is * (evd - 1.0), d.Is / d.vt * evd
}

func (d *Diode) Load(s *Status) error {
	vnew := s.Voltage(d.pos, d.neg)

	// A new solve starts from its initial guess, not from whatever the
	// last rejected or failed solve left behind.
	vold := d.vd
	if s.Iteration == 0 {
		vold = vnew
	}
	vd, limited := pnjlim(vnew, vold, d.vt, d.vcrit)

	id, gd := d.evaluate(vd)
	d.vd, d.id, d.gd, d.limited = vd, id, gd, limited

	ceq := id - gd*vd

	if s.Mode == ModeTransient && d.charge != nil {
		d.charge.SetValue(d.Cj0 * vd)
		d.charge.Integrate()
		geq := d.charge.Jacobian(d.Cj0)
		gd += geq
		ceq += d.charge.RhsCurrent(geq, vd)
	}

	d.quad.AddRealQuad(gd)
	d.rhsPos.Sub(ceq)
	d.rhsNeg.Add(ceq)
	return nil
}

// IsConvergent compares the current predicted by the linearization with the
// one the model gives at the solved voltage.
func (d *Diode) IsConvergent(s *Status) bool {
	if d.limited {
		return false
	}

	delvd := s.Voltage(d.pos, d.neg) - d.vd
	cdhat := d.id + d.gd*delvd
	tol := s.RelTol*math.Max(math.Abs(cdhat), math.Abs(d.id)) + s.AbsTol
	return math.Abs(cdhat-d.id) <= tol
}

func (d *Diode) LoadAC(s *Status) error {
	d.quad.AddComplexQuad(d.gd, s.Omega*d.Cj0)
	return nil
}

func (d *Diode) Truncate(*Status) float64 {
	if d.charge == nil {
		return math.Inf(1)
	}
	return d.charge.Truncate()
}

// OperatingPoint returns the junction voltage, current and conductance of
// the last load.
func (d *Diode) OperatingPoint() (vd, id, gd float64) {
	return d.vd, d.id, d.gd
}
