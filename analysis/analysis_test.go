package analysis

import (
	"context"
	"errors"
	"math"
	"math/cmplx"
	"testing"

	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/circuit"
	"github.com/edp1096/sparsesim/device"
	. "github.com/smartystreets/goconvey/convey"
)

// stub drives node "a" to SourceFactor volts through 1 S and lets the test
// decide when it is converged.
type stub struct {
	node     int64
	quad     sparse.Template
	rhs      sparse.VectorElement
	converge func(s *device.Status) bool
	gmins    []float64
}

func (d *stub) Name() string    { return "stub" }
func (d *stub) NonLinear() bool { return true }

func (d *stub) Setup(b device.Binder) (err error) {
	d.node = b.Node("a")
	if err = b.GetAdmittance(d.node, 0, &d.quad); err != nil {
		return err
	}
	d.rhs, err = b.GetRhsElement(d.node)
	return err
}

func (d *stub) Load(s *device.Status) error {
	d.gmins = append(d.gmins, s.Gmin)
	d.quad.AddRealQuad(1.0)
	d.rhs.Add(s.SourceFactor)
	return nil
}

func (d *stub) IsConvergent(s *device.Status) bool {
	return d.converge(s)
}

// guessStage records the guess it starts from and then solves the circuit
// as it is.
type guessStage struct {
	guess []float64
}

func (*guessStage) Name() string { return "guess" }

func (g *guessStage) Parameters(k int, best *sparse.Vector) (StampParameters, bool) {
	if k == 0 {
		g.guess = append([]float64(nil), best.Real...)
	}
	return StampParameters{SourceFactor: 1.0}, k == 0
}

// stepLimit proposes a fixed step and records the steps it is loaded with.
type stepLimit struct {
	limit float64
	steps []float64
}

func (l *stepLimit) Name() string                    { return "limit" }
func (l *stepLimit) Setup(device.Binder) error       { return nil }
func (l *stepLimit) Truncate(*device.Status) float64 { return l.limit }

func (l *stepLimit) Load(s *device.Status) error {
	if s.Mode == device.ModeTransient {
		l.steps = append(l.steps, s.States.Step())
	}
	return nil
}

func newSimulation(t *testing.T, config *Configuration, devices ...device.Device) *Simulation {
	t.Helper()

	c := circuit.New(t.Name())
	if err := c.Add(devices...); err != nil {
		t.Fatalf("add: %v", err)
	}
	sim, err := NewSimulation(c, config)
	if err != nil {
		t.Fatalf("new simulation: %v", err)
	}
	return sim
}

func voltage(t *testing.T, sim *Simulation, x *sparse.Vector, node string) float64 {
	t.Helper()

	v, err := sim.Circuit.Voltage(x, node)
	if err != nil {
		t.Fatalf("voltage %s: %v", node, err)
	}
	return v
}

func TestNewSimulationWithoutCircuit(t *testing.T) {
	if _, err := NewSimulation(nil, nil); !errors.Is(err, ErrNoCircuit) {
		t.Fatalf("err = %v, want ErrNoCircuit", err)
	}
}

func TestVoltageDivider(t *testing.T) {
	Convey("Given a 10 V source across two equal resistors", t, func() {
		sim := newSimulation(t, nil,
			device.NewVoltageSource("V1", "in", "0", device.DC(10.0)),
			device.NewResistor("R1", "in", "out", 1.0e3),
			device.NewResistor("R2", "out", "0", 1.0e3),
		)

		Convey("When the operating point is computed", func() {
			x, err := sim.Op(context.Background())
			So(err, ShouldBeNil)

			Convey("Then the node voltages are exact after one iteration", func() {
				So(voltage(t, sim, x, "out"), ShouldAlmostEqual, 5.0, 1.0e-12)
				So(voltage(t, sim, x, "in"), ShouldAlmostEqual, 10.0, 1.0e-12)
				So(sim.Stats.Iterations, ShouldEqual, 1)
			})
		})
	})
}

func TestIterateLinearConvergesOnce(t *testing.T) {
	Convey("Given a current source driving a resistor chain", t, func() {
		sim := newSimulation(t, nil,
			device.NewCurrentSource("I1", "0", "a", device.DC(1.0e-3)),
			device.NewResistor("R1", "a", "b", 2.0e3),
			device.NewResistor("R2", "b", "0", 3.0e3),
		)

		Convey("When it is iterated twice", func() {
			n, err := sim.Iterate(context.Background(), 50)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			So(voltage(t, sim, sim.Solution(), "a"), ShouldAlmostEqual, 5.0, 1.0e-12)

			_, err = sim.Iterate(context.Background(), 50)
			So(err, ShouldBeNil)

			Convey("Then the second pass reuses the ordering", func() {
				So(sim.Stats.Orderings, ShouldEqual, 1)
				So(sim.Stats.Factorings, ShouldEqual, 1)
			})
		})
	})
}

func TestDiodeOperatingPoint(t *testing.T) {
	Convey("Given a diode fed from 5 V through 1 kΩ", t, func() {
		d := device.NewDiode("D1", "a", "0")
		sim := newSimulation(t, nil,
			device.NewVoltageSource("V1", "in", "0", device.DC(5.0)),
			device.NewResistor("R1", "in", "a", 1.0e3),
			d,
		)

		Convey("When the operating point is computed", func() {
			x, err := sim.Op(context.Background())
			So(err, ShouldBeNil)

			Convey("Then the junction is forward biased and carries the resistor current", func() {
				va := voltage(t, sim, x, "a")
				So(va, ShouldBeBetween, 0.6, 0.8)
				So(sim.Stats.Iterations, ShouldBeGreaterThanOrEqualTo, 2)

				_, id, _ := d.OperatingPoint()
				ir := (5.0 - va) / 1.0e3
				So(id, ShouldAlmostEqual, ir, 1.0e-2*ir)
			})
		})
	})
}

func TestStageParameters(t *testing.T) {
	var gmins []float64
	g := GminStepping{Gmin: 1.0e-12, Steps: 3}
	for k := 0; ; k++ {
		p, ok := g.Parameters(k, nil)
		if !ok {
			break
		}
		if p.SourceFactor != 1.0 {
			t.Errorf("gmin step %d: source factor %g", k, p.SourceFactor)
		}
		gmins = append(gmins, p.Gmin)
	}
	want := []float64{1.0e-9, 1.0e-10, 1.0e-11, 1.0e-12, 0.0}
	if len(gmins) != len(want) {
		t.Fatalf("gmin steps = %v, want %v", gmins, want)
	}
	for i := range want {
		if math.Abs(gmins[i]-want[i]) > 1.0e-6*want[i] {
			t.Errorf("gmin step %d = %g, want %g", i, gmins[i], want[i])
		}
	}

	var factors []float64
	s := SourceStepping{Steps: 4}
	for k := 0; ; k++ {
		p, ok := s.Parameters(k, nil)
		if !ok {
			break
		}
		factors = append(factors, p.SourceFactor)
	}
	if len(factors) != 5 || factors[0] != 0.0 || factors[2] != 0.5 || factors[4] != 1.0 {
		t.Errorf("source factors = %v", factors)
	}

	if _, ok := (DirectStage{}).Parameters(1, nil); ok {
		t.Errorf("direct stage has a second sub-solve")
	}
}

func TestContinuationStages(t *testing.T) {
	Convey("Given a device that refuses to converge without help", t, func() {
		config := DefaultConfiguration()
		config.DCMaxIterations = 20

		Convey("When gmin stepping is what it needs", func() {
			seen := false
			d := &stub{converge: func(s *device.Status) bool {
				seen = seen || s.Gmin > 0.0
				return seen
			}}
			sim := newSimulation(t, &config, d)

			x, err := sim.Op(context.Background())
			So(err, ShouldBeNil)

			Convey("Then the second stage finishes without gmin", func() {
				So(voltage(t, sim, x, "a"), ShouldAlmostEqual, 1.0, 1.0e-12)
				So(sim.Stats.StageRetries, ShouldEqual, 1)
				So(d.gmins[len(d.gmins)-1], ShouldEqual, 0.0)
				So(sim.Status.Gmin, ShouldEqual, 0.0)
				So(sim.Status.SourceFactor, ShouldEqual, 1.0)
			})
		})

		Convey("When source stepping is what it needs", func() {
			seen := false
			d := &stub{converge: func(s *device.Status) bool {
				seen = seen || s.SourceFactor < 1.0
				return seen
			}}
			config.Stages = []ContinuationStage{DirectStage{}, SourceStepping{Steps: 4}}
			sim := newSimulation(t, &config, d)

			x, err := sim.Op(context.Background())
			So(err, ShouldBeNil)
			So(voltage(t, sim, x, "a"), ShouldAlmostEqual, 1.0, 1.0e-12)
		})

		Convey("When a later stage takes over", func() {
			next := &guessStage{}
			d := &stub{converge: func(*device.Status) bool { return next.guess != nil }}
			config.DCMaxIterations = 5
			config.Stages = []ContinuationStage{DirectStage{}, next}
			sim := newSimulation(t, &config, d)

			_, err := sim.Op(context.Background())
			So(err, ShouldBeNil)

			Convey("Then it starts from where the failed stage stopped", func() {
				So(next.guess, ShouldHaveLength, 2)
				So(next.guess[1], ShouldAlmostEqual, 1.0, 1.0e-12)
				So(sim.Stats.StageRetries, ShouldEqual, 1)
			})
		})

		Convey("When no stage helps", func() {
			d := &stub{converge: func(*device.Status) bool { return false }}
			config.DCMaxIterations = 5
			config.GminSteps = 2
			config.SourceSteps = 2
			sim := newSimulation(t, &config, d)

			_, err := sim.Op(context.Background())

			Convey("Then the failure of the last stage is reported with its solution", func() {
				So(errors.Is(err, ErrConvergenceFailure), ShouldBeTrue)
				So(errors.Is(err, ErrIterationLimit), ShouldBeTrue)

				var ce *ConvergenceError
				So(errors.As(err, &ce), ShouldBeTrue)
				So(ce.Stage, ShouldEqual, "source stepping")
				So(ce.Solution, ShouldNotBeNil)
				So(ce.Solution.Size(), ShouldEqual, int64(1))
			})
		})
	})
}

func TestDCSweep(t *testing.T) {
	Convey("Given a divider driven by a 3 V source", t, func() {
		v1 := device.NewVoltageSource("V1", "in", "0", device.DC(3.0))
		sim := newSimulation(t, nil,
			v1,
			device.NewResistor("R1", "in", "out", 1.0e3),
			device.NewResistor("R2", "out", "0", 1.0e3),
		)

		Convey("When the source is swept from 0 to 5 V", func() {
			var points []DCPoint
			err := sim.DC(context.Background(), DCSweep{Source: "V1", Start: 0.0, Stop: 5.0, Step: 1.0}, func(p DCPoint) error {
				points = append(points, p)
				return nil
			})
			So(err, ShouldBeNil)

			Convey("Then every point halves the source and the source is restored", func() {
				So(points, ShouldHaveLength, 6)
				for _, p := range points {
					So(voltage(t, sim, p.Solution, "out"), ShouldAlmostEqual, p.Value/2.0, 1.0e-12)
				}
				So(v1.DCValue(), ShouldEqual, 3.0)
			})
		})
	})
}

func TestDCSweepPoints(t *testing.T) {
	tests := []struct {
		sweep DCSweep
		count int
		fails bool
	}{
		{DCSweep{Start: 0.0, Stop: 1.0, Step: 0.1}, 11, false},
		{DCSweep{Start: 1.0, Stop: -1.0, Step: -0.5}, 5, false},
		{DCSweep{Start: 2.0, Stop: 2.0, Step: 1.0}, 1, false},
		{DCSweep{Start: 0.0, Stop: 1.0, Step: 0.0}, 0, true},
		{DCSweep{Start: 0.0, Stop: 1.0, Step: -0.1}, 0, true},
	}

	for _, tt := range tests {
		points, err := tt.sweep.Points()
		if tt.fails {
			if !errors.Is(err, ErrInvalidSweep) {
				t.Errorf("%+v: err = %v, want ErrInvalidSweep", tt.sweep, err)
			}
			continue
		}
		if err != nil || len(points) != tt.count {
			t.Errorf("%+v: %d points, err %v, want %d", tt.sweep, len(points), err, tt.count)
		}
	}
}

func TestFrequencySweeps(t *testing.T) {
	decade, err := DecadeSweep{Start: 1.0, Stop: 1.0e3, PointsPerDecade: 10}.Points()
	if err != nil {
		t.Fatal(err)
	}
	if len(decade) != 31 {
		t.Errorf("decade points = %d, want 31", len(decade))
	}
	if last := decade[len(decade)-1]; math.Abs(last-1.0e3) > 1.0e-9 {
		t.Errorf("last decade point = %g", last)
	}

	octave, err := OctaveSweep{Start: 100.0, Stop: 800.0, PointsPerOctave: 1}.Points()
	if err != nil {
		t.Fatal(err)
	}
	if len(octave) != 4 || math.Abs(octave[3]-800.0) > 1.0e-9 {
		t.Errorf("octave points = %v", octave)
	}

	linear, err := LinearSweep{Start: 10.0, Stop: 50.0, Count: 5}.Points()
	if err != nil {
		t.Fatal(err)
	}
	if len(linear) != 5 || linear[1] != 20.0 || linear[4] != 50.0 {
		t.Errorf("linear points = %v", linear)
	}

	if _, err := (DecadeSweep{Start: 0.0, Stop: 10.0, PointsPerDecade: 5}).Points(); !errors.Is(err, ErrInvalidSweep) {
		t.Errorf("zero start: err = %v", err)
	}
}

func TestACLowPass(t *testing.T) {
	const r, c = 1.0e3, 1.0e-6

	Convey("Given an RC low-pass with a unit AC source", t, func() {
		sim := newSimulation(t, nil,
			device.NewVoltageSource("V1", "in", "0", device.DC(0.0)).SetAC(1.0, 0.0),
			device.NewResistor("R1", "in", "out", r),
			device.NewCapacitor("C1", "out", "0", c),
		)
		out, err := sim.Circuit.NodeIndex("out")
		So(err, ShouldBeNil)

		Convey("When it is swept over four decades", func() {
			var errs []float64
			err := sim.AC(context.Background(), DecadeSweep{Start: 10.0, Stop: 1.0e5, PointsPerDecade: 5}, func(p ACPoint) error {
				want := 1.0 / complex(1.0, 2.0*math.Pi*p.Frequency*r*c)
				errs = append(errs, cmplx.Abs(p.Solution.ComplexAt(out)-want))
				return nil
			})
			So(err, ShouldBeNil)

			Convey("Then every point matches the transfer function", func() {
				So(errs, ShouldHaveLength, 21)
				for _, e := range errs {
					So(e, ShouldBeLessThan, 1.0e-9)
				}
				So(sim.Circuit.Matrix.Complex, ShouldBeFalse)
			})
		})
	})
}

func TestTransientRC(t *testing.T) {
	const (
		r   = 1.0e4
		c   = 1.0e-6
		tau = r * c
	)

	Convey("Given an uncharged capacitor switched onto 10 V through 10 kΩ", t, func() {
		c1 := device.NewCapacitor("C1", "out", "0", c).SetIC(0.0)
		sim := newSimulation(t, nil,
			device.NewVoltageSource("V1", "in", "0", device.DC(10.0)),
			device.NewResistor("R1", "in", "out", r),
			c1,
		)

		tran := NewTransient(sim, 0.5e-3, 50.0e-3)
		tran.UseIC = true
		maxStep := 0.5e-3

		type sample struct {
			ExportData
			v, i float64
		}
		var points []sample
		tran.OnExport = func(d ExportData) error {
			v, err := sim.Circuit.Voltage(d.Solution, "out")
			points = append(points, sample{ExportData: d, v: v, i: c1.Current()})
			return err
		}

		Convey("When it is integrated for five time constants", func() {
			So(tran.Run(context.Background()), ShouldBeNil)
			So(len(points), ShouldBeGreaterThanOrEqualTo, 50)

			Convey("Then the voltage follows the charging curve up to the stop time", func() {
				So(points[len(points)-1].Time, ShouldEqual, 50.0e-3)
				for _, p := range points {
					So(p.v, ShouldAlmostEqual, 10.0*(1.0-math.Exp(-p.Time/tau)), 0.05)
				}
			})

			Convey("Then the stored capacitor current belongs to the accepted voltage", func() {
				for _, p := range points[1:] {
					So(p.i, ShouldAlmostEqual, (10.0-p.v)/r, 1.0e-9)
					So(p.i, ShouldAlmostEqual, 10.0/r*math.Exp(-p.Time/tau), 1.0e-5)
				}
			})

			Convey("Then no step more than doubles or exceeds the maximum", func() {
				for i := 2; i < len(points); i++ {
					limit := math.Min(2.0*points[i-1].Step, maxStep)
					So(points[i].Step, ShouldBeLessThanOrEqualTo, limit*(1.0+1.0e-9)+1.0e-12)
				}
			})
		})
	})
}

func TestTransientStepWithinTruncationLimit(t *testing.T) {
	const limit = 1.5e-4

	Convey("Given a device whose truncation estimate is a fixed step", t, func() {
		l := &stepLimit{limit: limit}
		sim := newSimulation(t, nil, l, device.NewResistor("R1", "a", "0", 1.0e3))
		tran := NewTransient(sim, 1.0e-3, 2.0e-2)

		var accepted []float64
		tran.OnExport = func(d ExportData) error {
			accepted = append(accepted, d.Step)
			return nil
		}

		Convey("When the transient runs", func() {
			So(tran.Run(context.Background()), ShouldBeNil)

			Convey("Then no trial step exceeds the estimate", func() {
				So(l.steps, ShouldNotBeEmpty)
				for _, h := range l.steps {
					So(h, ShouldBeLessThanOrEqualTo, limit*(1.0+1.0e-9))
				}
				for _, h := range accepted {
					So(h, ShouldBeLessThanOrEqualTo, limit*(1.0+1.0e-9))
				}
				So(sim.Stats.Rejected, ShouldEqual, 0)
			})
		})
	})
}

func TestTransientLandsOnBreakpoints(t *testing.T) {
	Convey("Given an RC filter driven by a pulse", t, func() {
		pulse := device.Pulse{V1: 0.0, V2: 1.0, Delay: 1.0e-3, Rise: 1.0e-6, Fall: 1.0e-6, Width: 2.0e-3}
		sim := newSimulation(t, nil,
			device.NewVoltageSource("V1", "in", "0", pulse),
			device.NewResistor("R1", "in", "out", 1.0e3),
			device.NewCapacitor("C1", "out", "0", 1.0e-6),
		)

		times := make(map[float64]bool)
		tran := NewTransient(sim, 0.1e-3, 5.0e-3)
		tran.OnExport = func(d ExportData) error {
			times[d.Time] = true
			return nil
		}

		Convey("When the transient runs", func() {
			So(tran.Run(context.Background()), ShouldBeNil)

			Convey("Then every pulse corner is a time point", func() {
				for _, bp := range pulse.Breakpoints(0.0, 5.0e-3) {
					So(times[bp], ShouldBeTrue)
				}
			})
		})
	})
}

func TestTransientPerUnknownSine(t *testing.T) {
	const (
		tau  = 1.0e3 * 1.0e-6
		freq = 1.0e3
	)
	omega := 2.0 * math.Pi * freq
	wt := omega * tau

	Convey("Given an RC filter driven by a sine, estimating error on the unknowns", t, func() {
		config := DefaultConfiguration()
		config.Truncation = PerUnknown
		config.Integration.LteAbsTol = 1.0e-3

		sim := newSimulation(t, &config,
			device.NewVoltageSource("V1", "in", "0", device.Sine{Amplitude: 1.0, Frequency: freq}),
			device.NewResistor("R1", "in", "out", 1.0e3),
			device.NewCapacitor("C1", "out", "0", 1.0e-6),
		)

		var errs []float64
		tran := NewTransient(sim, 10.0e-6, 2.0e-3)
		tran.OnExport = func(d ExportData) error {
			want := (math.Sin(omega*d.Time) - wt*math.Cos(omega*d.Time) + wt*math.Exp(-d.Time/tau)) / (1.0 + wt*wt)
			got, err := sim.Circuit.Voltage(d.Solution, "out")
			errs = append(errs, math.Abs(got-want))
			return err
		}

		Convey("When the transient runs", func() {
			So(tran.Run(context.Background()), ShouldBeNil)

			Convey("Then the output follows the analytic response", func() {
				So(sim.Stats.Accepted, ShouldBeGreaterThan, 0)
				for _, e := range errs {
					So(e, ShouldBeLessThanOrEqualTo, 1.0e-3)
				}
			})
		})
	})
}

func TestTransientTimestepTooSmall(t *testing.T) {
	Convey("Given a device that never converges in transient", t, func() {
		d := &stub{converge: func(s *device.Status) bool { return s.Mode != device.ModeTransient }}
		sim := newSimulation(t, nil, d, device.NewResistor("R1", "a", "0", 1.0e3))

		Convey("When the transient runs", func() {
			err := NewTransient(sim, 1.0e-3, 1.0e-2).Run(context.Background())

			Convey("Then halving ends at the step floor at the first point", func() {
				So(errors.Is(err, ErrTimestepTooSmall), ShouldBeTrue)
				So(errors.Is(err, ErrIterationLimit), ShouldBeTrue)

				var te *TimestepError
				So(errors.As(err, &te), ShouldBeTrue)
				So(te.Time, ShouldEqual, 0.0)
			})
		})
	})
}

func TestTransientInvalidParameters(t *testing.T) {
	sim := newSimulation(t, nil, device.NewResistor("R1", "a", "0", 1.0))

	for _, tran := range []*Transient{
		NewTransient(sim, 0.0, 1.0),
		NewTransient(sim, 1.0e-3, 0.0),
		{Simulation: sim, Step: 1.0e-3, Start: 2.0, Stop: 1.0},
	} {
		if err := tran.Run(context.Background()); !errors.Is(err, ErrInvalidTransient) {
			t.Errorf("step %g, start %g, stop %g: err = %v", tran.Step, tran.Start, tran.Stop, err)
		}
	}
}

func TestCancelledContext(t *testing.T) {
	Convey("Given a cancelled context", t, func() {
		sim := newSimulation(t, nil,
			device.NewVoltageSource("V1", "in", "0", device.DC(1.0)),
			device.NewResistor("R1", "in", "0", 1.0e3),
		)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("Then sweeps stop before the first point", func() {
			err := sim.DC(ctx, DCSweep{Source: "V1", Start: 0.0, Stop: 1.0, Step: 0.5}, nil)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)

			err = NewTransient(sim, 1.0e-3, 1.0e-2).Run(ctx)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})
	})
}
