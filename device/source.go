package device

import (
	"math"
	"math/cmplx"

	sparse "github.com/edp1096/sparsesim"
)

// VoltageSource forces V(pos) − V(neg) and adds its current as a branch
// unknown, positive when flowing from pos through the source to neg.
type VoltageSource struct {
	name     string
	nodes    [2]string
	Waveform Waveform
	ACMag    float64
	ACPhase  float64 // degrees
	pos, neg int64
	branch   int64

	posBranch, negBranch *sparse.Element
	branchPos, branchNeg *sparse.Element
	rhsBranch            sparse.VectorElement
}

func NewVoltageSource(name, pos, neg string, w Waveform) *VoltageSource {
	if w == nil {
		w = DC(0)
	}
	return &VoltageSource{name: name, nodes: [2]string{pos, neg}, Waveform: w}
}

// SetAC sets the small-signal magnitude and phase in degrees.
func (v *VoltageSource) SetAC(mag, phase float64) *VoltageSource {
	v.ACMag = mag
	v.ACPhase = phase
	return v
}

func (v *VoltageSource) Name() string  { return v.name }
func (v *VoltageSource) Branch() int64 { return v.branch }

func (v *VoltageSource) Setup(b Binder) (err error) {
	v.pos = b.Node(v.nodes[0])
	v.neg = b.Node(v.nodes[1])
	v.branch = b.Branch(v.name)

	if v.posBranch, err = b.GetElement(v.pos, v.branch); err != nil {
		return err
	}
	if v.negBranch, err = b.GetElement(v.neg, v.branch); err != nil {
		return err
	}
	if v.branchPos, err = b.GetElement(v.branch, v.pos); err != nil {
		return err
	}
	if v.branchNeg, err = b.GetElement(v.branch, v.neg); err != nil {
		return err
	}
	v.rhsBranch, err = b.GetRhsElement(v.branch)
	return err
}

func (v *VoltageSource) stampIncidence() {
	v.posBranch.Add(1.0)
	v.negBranch.Sub(1.0)
	v.branchPos.Add(1.0)
	v.branchNeg.Sub(1.0)
}

func (v *VoltageSource) Load(s *Status) error {
	v.stampIncidence()
	v.rhsBranch.Add(v.value(s) * s.sourceScale())
	return nil
}

func (v *VoltageSource) LoadAC(*Status) error {
	v.stampIncidence()
	v.rhsBranch.AddComplex(cmplx.Rect(v.ACMag, v.ACPhase*math.Pi/180.0))
	return nil
}

func (v *VoltageSource) value(s *Status) float64 {
	if s.Mode == ModeTransient {
		return v.Waveform.Value(s.Time)
	}
	return v.Waveform.Value(0.0)
}

func (v *VoltageSource) Breakpoints(start, stop float64) []float64 {
	return v.Waveform.Breakpoints(start, stop)
}

// SetDCValue replaces the waveform with a constant.
func (v *VoltageSource) SetDCValue(value float64) { v.Waveform = DC(value) }
func (v *VoltageSource) DCValue() float64         { return v.Waveform.Value(0.0) }

// Current returns the branch current of solution s.
func (v *VoltageSource) Current(s *Status) float64 {
	return s.Value(v.branch)
}

// CurrentSource drives a current from pos through the source to neg.
type CurrentSource struct {
	name     string
	nodes    [2]string
	Waveform Waveform
	ACMag    float64
	ACPhase  float64
	rhsPos   sparse.VectorElement
	rhsNeg   sparse.VectorElement
}

func NewCurrentSource(name, pos, neg string, w Waveform) *CurrentSource {
	if w == nil {
		w = DC(0)
	}
	return &CurrentSource{name: name, nodes: [2]string{pos, neg}, Waveform: w}
}

func (i *CurrentSource) SetAC(mag, phase float64) *CurrentSource {
	i.ACMag = mag
	i.ACPhase = phase
	return i
}

func (i *CurrentSource) Name() string { return i.name }

func (i *CurrentSource) Setup(b Binder) (err error) {
	if i.rhsPos, err = b.GetRhsElement(b.Node(i.nodes[0])); err != nil {
		return err
	}
	i.rhsNeg, err = b.GetRhsElement(b.Node(i.nodes[1]))
	return err
}

func (i *CurrentSource) Load(s *Status) error {
	value := i.Waveform.Value(0.0)
	if s.Mode == ModeTransient {
		value = i.Waveform.Value(s.Time)
	}
	value *= s.sourceScale()

	i.rhsPos.Sub(value)
	i.rhsNeg.Add(value)
	return nil
}

func (i *CurrentSource) LoadAC(*Status) error {
	value := cmplx.Rect(i.ACMag, i.ACPhase*math.Pi/180.0)
	i.rhsPos.AddComplex(-value)
	i.rhsNeg.AddComplex(value)
	return nil
}

func (i *CurrentSource) Breakpoints(start, stop float64) []float64 {
	return i.Waveform.Breakpoints(start, stop)
}

func (i *CurrentSource) SetDCValue(value float64) { i.Waveform = DC(value) }
func (i *CurrentSource) DCValue() float64         { return i.Waveform.Value(0.0) }
