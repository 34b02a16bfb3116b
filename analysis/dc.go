package analysis

import (
	"context"
	"fmt"
	"math"

	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/device"
)

// DCSweep steps an independent source from Start to Stop.
type DCSweep struct {
	Source string
	Start  float64
	Stop   float64
	Step   float64
}

// Points returns the swept values, Stop included when the step lands on it.
func (d DCSweep) Points() ([]float64, error) {
	if d.Step == 0.0 || math.IsNaN(d.Step) || math.IsInf(d.Step, 0) {
		return nil, fmt.Errorf("%w: step %g", ErrInvalidSweep, d.Step)
	}
	span := d.Stop - d.Start
	if span != 0.0 && math.Signbit(span) != math.Signbit(d.Step) {
		return nil, fmt.Errorf("%w: step %g does not reach %g from %g", ErrInvalidSweep, d.Step, d.Stop, d.Start)
	}

	count := int(math.Floor(span/d.Step+1.0e-9)) + 1
	points := make([]float64, count)
	for i := range points {
		points[i] = d.Start + float64(i)*d.Step
	}
	return points, nil
}

type DCPoint struct {
	Value    float64
	Solution *sparse.Vector
}

// DC solves the operating point at every sweep value. Each point starts
// from the solution of the previous one. The source is restored afterwards.
func (s *Simulation) DC(ctx context.Context, sweep DCSweep, export func(DCPoint) error) error {
	points, err := sweep.Points()
	if err != nil {
		return err
	}

	source, err := s.Circuit.Sweepable(sweep.Source)
	if err != nil {
		return err
	}
	defer restoreSource(source)()

	s.Status.Mode = device.ModeDC
	s.solution.Clear()

	for _, value := range points {
		if err := ctx.Err(); err != nil {
			return err
		}

		source.SetDCValue(value)
		if err := s.operatingPoint(ctx); err != nil {
			return fmt.Errorf("%s = %g: %w", sweep.Source, value, err)
		}

		if export != nil {
			if err := export(DCPoint{Value: value, Solution: s.solution.Clone()}); err != nil {
				return err
			}
		}
	}
	return nil
}

func restoreSource(source device.Sweepable) func() {
	switch src := source.(type) {
	case *device.VoltageSource:
		w := src.Waveform
		return func() { src.Waveform = w }
	case *device.CurrentSource:
		w := src.Waveform
		return func() { src.Waveform = w }
	}
	value := source.DCValue()
	return func() { source.SetDCValue(value) }
}
