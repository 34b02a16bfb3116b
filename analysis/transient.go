package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/device"
	"github.com/edp1096/sparsesim/integration"
)

// ExportData describes an accepted time point.
type ExportData struct {
	Time     float64
	Step     float64 // Step that led to Time, 0 for the initial point
	Order    int
	Solution *sparse.Vector
}

// Transient integrates a circuit from 0 to Stop. Points before Start are
// computed but not exported.
type Transient struct {
	*Simulation

	Step    float64 // Suggested output step
	Stop    float64
	Start   float64
	MaxStep float64 // Zero selects min(Step, (Stop-Start)/50)
	MinStep float64 // Zero selects 1e-11·MaxStep
	UseIC   bool

	OnExport func(ExportData) error

	pool        *integration.StatePool
	breakpoints *integration.Breakpoints
	unknowns    []*integration.Derivative // PerUnknown histories, index i-1 for unknown i
	previous    *sparse.Vector
}

func NewTransient(sim *Simulation, step, stop float64) *Transient {
	return &Transient{Simulation: sim, Step: step, Stop: stop}
}

// States returns the state pool of the last run.
func (t *Transient) States() *integration.StatePool { return t.pool }

func (t *Transient) validate() error {
	if t.Simulation == nil {
		return ErrNoCircuit
	}
	if !(t.Step > 0.0) || !(t.Stop > 0.0) || t.Start < 0.0 || t.Start >= t.Stop || t.MaxStep < 0.0 || t.MinStep < 0.0 {
		return fmt.Errorf("%w: step %g, start %g, stop %g", ErrInvalidTransient, t.Step, t.Start, t.Stop)
	}
	return nil
}

func (t *Transient) Run(ctx context.Context) error {
	if err := t.validate(); err != nil {
		return err
	}

	cfg := &t.Config
	log := cfg.Logger
	c := t.Circuit

	maxStep := t.MaxStep
	if maxStep == 0.0 {
		maxStep = math.Min(t.Step, (t.Stop-t.Start)/50.0)
	}
	minStep := t.MinStep
	if minStep == 0.0 {
		minStep = 1.0e-11 * maxStep
	}
	delta := math.Min(t.Step, (t.Stop-t.Start)/50.0) / 10.0
	delta = math.Min(delta, maxStep)

	// Initial point
	t.Status.UseIC = t.UseIC
	t.Status.Time = 0.0
	if t.UseIC {
		t.solution.Clear()
	} else if _, err := t.Op(ctx); err != nil {
		return fmt.Errorf("initial operating point: %w", err)
	}

	t.pool = integration.NewStatePool(cfg.Integration)
	c.CreateStates(t.pool)
	t.unknowns = t.unknowns[:0]
	if cfg.Truncation == PerUnknown {
		for i := int64(1); i <= c.Size(); i++ {
			t.unknowns = append(t.unknowns, t.pool.CreateDerivative())
		}
	}
	if err := t.pool.Initialize(delta); err != nil {
		return err
	}

	t.Status.Mode = device.ModeTransient
	t.Status.States = t.pool
	t.Status.Gmin = 0.0
	t.Status.SourceFactor = 1.0
	t.Status.Solution = t.solution
	defer func() {
		t.Status.Mode = device.ModeOP
		t.Status.States = nil
		t.Status.UseIC = false
	}()

	c.InitStates(&t.Status)
	for i, d := range t.unknowns {
		d.Init(t.solution.Real[i+1])
	}
	t.previous = t.solution.Clone()

	t.breakpoints = integration.NewBreakpoints(minStep)
	t.breakpoints.Add(t.Stop)
	t.breakpoints.Add(c.Breakpoints(0.0, t.Stop)...)

	if err := t.export(0.0, 0.0); err != nil {
		return err
	}

	time := 0.0

	for time < t.Stop {
		if err := ctx.Err(); err != nil {
			return err
		}

		next, hasNext := t.breakpoints.Next(time)
		landing := false
		if hasNext {
			gap := next - time
			switch {
			case delta >= gap-minStep:
				delta = gap
				landing = true
			case gap-delta < 0.1*delta:
				// Split what is left instead of leaving a sliver before
				// the breakpoint.
				delta = gap / 2.0
			}
		}
		if delta < minStep {
			return &TimestepError{Time: time, Step: delta}
		}

		if err := t.pool.SetStep(delta); err != nil {
			return err
		}
		t.Status.Time = time + delta

		if _, err := t.Iterate(ctx, cfg.TranMaxIterations); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return err
			}

			t.Stats.Rejected++
			t.solution.CopyFrom(t.previous)
			delta /= 2.0
			log.Printf("tran: t = %g: %v, step %g", time, err, delta)
			if err := t.pool.SetOrder(1); err != nil {
				return err
			}
			if delta < minStep {
				return &TimestepError{Time: time, Step: delta, Err: err}
			}
			continue
		}

		// The last load ran on the guess before the final solve. Load
		// again so the states hold the converged solution.
		if err := c.Load(&t.Status); err != nil {
			return err
		}

		order := t.pool.Order()
		errorBased := t.truncate()
		if errorBased < 0.9*delta {
			t.Stats.Rejected++
			t.solution.CopyFrom(t.previous)
			delta /= 2.0
			log.Printf("tran: t = %g: step %g rejected, truncation allows %g", time, t.pool.Step(), errorBased)
			if delta < minStep {
				return &TimestepError{Time: time, Step: delta, Err: fmt.Errorf("truncation error allows %g", errorBased)}
			}
			continue
		}
		newDelta := math.Min(2.0*delta, errorBased)

		if order < t.pool.MaxOrder() && t.pool.History() >= order+2 {
			if err := t.pool.SetOrder(order + 1); err != nil {
				return err
			}
			if higher := t.truncate(); higher > 1.05*delta {
				newDelta = math.Min(2.0*delta, higher)
			} else if err := t.pool.SetOrder(order); err != nil {
				return err
			}
		}

		// Accept
		time += delta
		if landing {
			time = next
		}
		t.Status.Time = time
		c.Accept(&t.Status)
		for i, d := range t.unknowns {
			d.SetValue(t.solution.Real[i+1])
		}
		t.pool.Accept()
		t.previous.CopyFrom(t.solution)
		t.Stats.Accepted++

		if err := t.export(time, delta); err != nil {
			return err
		}

		if landing {
			t.breakpoints.Drop(time)
			if err := t.pool.SetOrder(1); err != nil {
				return err
			}
			if after, ok := t.breakpoints.Next(time); ok {
				newDelta = math.Min(newDelta, 0.1*(after-time))
			}
		}
		delta = math.Min(newDelta, maxStep)
	}

	return nil
}

// truncate returns the step the error estimate allows at the current order
// of the pool. Devices always have a say. With PerUnknown the unknown
// histories are estimated as well, after they get the new solution.
func (t *Transient) truncate() float64 {
	step := t.Circuit.Truncate(&t.Status)
	if t.Config.Truncation != PerUnknown {
		return step
	}

	params := t.pool.Parameters()
	order := t.pool.Order()
	for i, d := range t.unknowns {
		d.SetValue(t.solution.Real[i+1])
		step = math.Min(step, d.TruncateValue(order, params.LteRelTol, params.LteAbsTol))
	}
	return step
}

func (t *Transient) export(time, step float64) error {
	if t.OnExport == nil || time < t.Start {
		return nil
	}
	return t.OnExport(ExportData{
		Time:     time,
		Step:     step,
		Order:    t.pool.Order(),
		Solution: t.solution.Clone(),
	})
}
