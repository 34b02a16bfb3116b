// Package circuit numbers the unknowns of a set of devices, owns the matrix
// and right-hand side they stamp into, and fans analysis events out to the
// devices that asked for them.
package circuit

import (
	"errors"
	"fmt"
	"math"

	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/device"
	"github.com/edp1096/sparsesim/integration"
)

var (
	ErrUnknownNode     = errors.New("circuit: unknown node")
	ErrUnknownDevice   = errors.New("circuit: unknown device")
	ErrDuplicateDevice = errors.New("circuit: duplicate device")
	ErrNotSetup        = errors.New("circuit: not set up")
	ErrEmpty           = errors.New("circuit: no unknowns")
)

type UnknownKind int

const (
	NodeUnknown UnknownKind = iota
	BranchUnknown
)

// Unknown describes entry Index of the solution vector.
type Unknown struct {
	Name  string
	Kind  UnknownKind
	Index int64
}

type Circuit struct {
	Name string

	devices []device.Device
	byName  map[string]device.Device

	nodes    map[string]int64
	unknowns []Unknown // unknowns[i-1] describes unknown i

	Matrix *sparse.Matrix
	Rhs    *sparse.Vector

	gminDiags []*sparse.Element

	convergent    []device.Convergent
	acceptors     []device.Acceptor
	timeDependent []device.TimeDependent
	truncators    []device.Truncator
	frequency     []device.FrequencyLoader
	breakpointers []device.Breakpointer
	nonLinear     bool

	isSetup bool
}

func New(name string) *Circuit {
	return &Circuit{
		Name:   name,
		byName: make(map[string]device.Device),
	}
}

// Add registers devices. Names must be unique.
func (c *Circuit) Add(devices ...device.Device) error {
	for _, d := range devices {
		if _, ok := c.byName[d.Name()]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateDevice, d.Name())
		}
		c.byName[d.Name()] = d
		c.devices = append(c.devices, d)
	}
	c.isSetup = false
	return nil
}

func (c *Circuit) Device(name string) (device.Device, error) {
	d, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, name)
	}
	return d, nil
}

func (c *Circuit) Devices() []device.Device {
	return c.devices
}

// Setup numbers the unknowns, creates a fresh matrix and lets every device
// acquire its handles. Handles from an earlier Setup become invalid.
func (c *Circuit) Setup(config *sparse.Configuration) error {
	cfg := sparse.DefaultConfiguration()
	if config != nil {
		cfg = *config
	}
	cfg.Translate = false
	cfg.Expandable = true

	matrix, err := sparse.Create(1, &cfg)
	if err != nil {
		return err
	}

	c.Matrix = matrix
	c.Rhs = sparse.NewVector(0)
	c.nodes = make(map[string]int64)
	c.unknowns = c.unknowns[:0]
	c.gminDiags = c.gminDiags[:0]
	c.convergent = c.convergent[:0]
	c.acceptors = c.acceptors[:0]
	c.timeDependent = c.timeDependent[:0]
	c.truncators = c.truncators[:0]
	c.frequency = c.frequency[:0]
	c.breakpointers = c.breakpointers[:0]
	c.nonLinear = false

	for _, d := range c.devices {
		if err := d.Setup(&binder{circuit: c}); err != nil {
			return fmt.Errorf("setup %s: %w", d.Name(), err)
		}
		c.classify(d)
	}

	size := int64(len(c.unknowns))
	if size == 0 {
		return ErrEmpty
	}
	if err := c.Matrix.EnlargeMatrix(size); err != nil {
		return err
	}
	c.Rhs.Resize(size)

	for _, u := range c.unknowns {
		if u.Kind != NodeUnknown {
			continue
		}
		element, err := c.Matrix.Element(u.Index, u.Index)
		if err != nil {
			return err
		}
		c.gminDiags = append(c.gminDiags, element)
	}

	c.isSetup = true
	return nil
}

func (c *Circuit) classify(d device.Device) {
	if v, ok := d.(device.Convergent); ok {
		c.convergent = append(c.convergent, v)
	}
	if v, ok := d.(device.Acceptor); ok {
		c.acceptors = append(c.acceptors, v)
	}
	if v, ok := d.(device.TimeDependent); ok {
		c.timeDependent = append(c.timeDependent, v)
	}
	if v, ok := d.(device.Truncator); ok {
		c.truncators = append(c.truncators, v)
	}
	if v, ok := d.(device.FrequencyLoader); ok {
		c.frequency = append(c.frequency, v)
	}
	if v, ok := d.(device.Breakpointer); ok {
		c.breakpointers = append(c.breakpointers, v)
	}
	if v, ok := d.(device.NonLinear); ok && v.NonLinear() {
		c.nonLinear = true
	}
}

func (c *Circuit) IsSetup() bool { return c.isSetup }

// Size is the number of unknowns.
func (c *Circuit) Size() int64 { return int64(len(c.unknowns)) }

func (c *Circuit) Unknowns() []Unknown { return c.unknowns }

// Unknown describes unknown i, 1-based.
func (c *Circuit) Unknown(i int64) Unknown {
	return c.unknowns[i-1]
}

func (c *Circuit) IsNode(i int64) bool {
	return i >= 1 && i <= c.Size() && c.unknowns[i-1].Kind == NodeUnknown
}

// IsLinear reports whether no device depends on the solution.
func (c *Circuit) IsLinear() bool { return !c.nonLinear }

// NodeIndex returns the unknown of a node name; ground is 0.
func (c *Circuit) NodeIndex(name string) (int64, error) {
	if isGround(name) {
		return 0, nil
	}
	if i, ok := c.nodes[name]; ok {
		return i, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownNode, name)
}

// Voltage reads a node voltage from a solution.
func (c *Circuit) Voltage(solution *sparse.Vector, node string) (float64, error) {
	i, err := c.NodeIndex(node)
	if err != nil {
		return 0.0, err
	}
	if i == 0 {
		return 0.0, nil
	}
	return solution.Real[i], nil
}

// Load clears the system and lets every device stamp for s. A positive
// s.Gmin is added on every node diagonal.
func (c *Circuit) Load(s *device.Status) error {
	if !c.isSetup {
		return ErrNotSetup
	}

	c.Matrix.Clear()
	c.Rhs.Clear()

	for _, d := range c.devices {
		if err := d.Load(s); err != nil {
			return fmt.Errorf("load %s: %w", d.Name(), err)
		}
	}

	if s.Gmin > 0.0 {
		for _, e := range c.gminDiags {
			e.Add(s.Gmin)
		}
	}
	return nil
}

// LoadAC stamps the small-signal model. Devices without one do not stamp.
func (c *Circuit) LoadAC(s *device.Status) error {
	if !c.isSetup {
		return ErrNotSetup
	}

	c.Matrix.Clear()
	c.Rhs.Clear()

	for _, f := range c.frequency {
		if err := f.LoadAC(s); err != nil {
			return fmt.Errorf("load ac %s: %w", f.(device.Device).Name(), err)
		}
	}

	if s.Gmin > 0.0 {
		for _, e := range c.gminDiags {
			e.Add(s.Gmin)
		}
	}
	return nil
}

func (c *Circuit) IsConvergent(s *device.Status) bool {
	for _, d := range c.convergent {
		if !d.IsConvergent(s) {
			return false
		}
	}
	return true
}

func (c *Circuit) Accept(s *device.Status) {
	for _, d := range c.acceptors {
		d.Accept(s)
	}
}

// CreateStates allocates the integrated states of every dynamic device.
func (c *Circuit) CreateStates(pool *integration.StatePool) {
	for _, d := range c.timeDependent {
		d.CreateStates(pool)
	}
}

func (c *Circuit) InitStates(s *device.Status) {
	for _, d := range c.timeDependent {
		d.InitStates(s)
	}
}

// Truncate returns the smallest step proposed by the devices.
func (c *Circuit) Truncate(s *device.Status) float64 {
	step := math.Inf(1)
	for _, d := range c.truncators {
		step = math.Min(step, d.Truncate(s))
	}
	return step
}

func (c *Circuit) Breakpoints(start, stop float64) []float64 {
	var points []float64
	for _, d := range c.breakpointers {
		points = append(points, d.Breakpoints(start, stop)...)
	}
	return points
}

// Sweepable returns the named independent source.
func (c *Circuit) Sweepable(name string) (device.Sweepable, error) {
	d, err := c.Device(name)
	if err != nil {
		return nil, err
	}
	s, ok := d.(device.Sweepable)
	if !ok {
		return nil, fmt.Errorf("circuit: %s is not an independent source", name)
	}
	return s, nil
}

func isGround(name string) bool {
	return name == "0" || name == "gnd" || name == "GND"
}

// binder gives one device access to the circuit during Setup.
type binder struct {
	circuit *Circuit
}

func (b *binder) Node(name string) int64 {
	if isGround(name) {
		return 0
	}
	c := b.circuit
	if i, ok := c.nodes[name]; ok {
		return i
	}
	i := int64(len(c.unknowns)) + 1
	c.nodes[name] = i
	c.unknowns = append(c.unknowns, Unknown{Name: name, Kind: NodeUnknown, Index: i})
	return i
}

func (b *binder) Branch(name string) int64 {
	c := b.circuit
	i := int64(len(c.unknowns)) + 1
	c.unknowns = append(c.unknowns, Unknown{Name: name + "#branch", Kind: BranchUnknown, Index: i})
	return i
}

func (b *binder) GetElement(row, col int64) (*sparse.Element, error) {
	return b.circuit.Matrix.Element(row, col)
}

func (b *binder) GetAdmittance(pos, neg int64, template *sparse.Template) error {
	return b.circuit.Matrix.GetAdmittance(pos, neg, template)
}

func (b *binder) GetRhsElement(index int64) (sparse.VectorElement, error) {
	return b.circuit.Rhs.GetRhsElement(index)
}
