package analysis

import (
	"context"
	"fmt"
	"math"

	sparse "github.com/edp1096/sparsesim"
	"github.com/edp1096/sparsesim/device"
)

// Sweep lists the frequencies of an AC analysis in Hz.
type Sweep interface {
	Points() ([]float64, error)
}

// LinearSweep places Count evenly spaced points from Start to Stop.
type LinearSweep struct {
	Start float64
	Stop  float64
	Count int
}

func (l LinearSweep) Points() ([]float64, error) {
	if l.Count < 1 || l.Start < 0.0 || l.Stop < l.Start {
		return nil, fmt.Errorf("%w: linear %g..%g with %d points", ErrInvalidSweep, l.Start, l.Stop, l.Count)
	}
	if l.Count == 1 {
		return []float64{l.Start}, nil
	}

	step := (l.Stop - l.Start) / float64(l.Count-1)
	points := make([]float64, l.Count)
	for i := range points {
		points[i] = l.Start + float64(i)*step
	}
	return points, nil
}

// DecadeSweep places PointsPerDecade logarithmic points in every decade.
type DecadeSweep struct {
	Start           float64
	Stop            float64
	PointsPerDecade int
}

func (d DecadeSweep) Points() ([]float64, error) {
	return logPoints(d.Start, d.Stop, d.PointsPerDecade, math.Ln10)
}

// OctaveSweep places PointsPerOctave logarithmic points in every octave.
type OctaveSweep struct {
	Start           float64
	Stop            float64
	PointsPerOctave int
}

func (o OctaveSweep) Points() ([]float64, error) {
	return logPoints(o.Start, o.Stop, o.PointsPerOctave, math.Ln2)
}

func logPoints(start, stop float64, steps int, lnBase float64) ([]float64, error) {
	if steps < 1 || start <= 0.0 || stop < start {
		return nil, fmt.Errorf("%w: logarithmic %g..%g with %d points", ErrInvalidSweep, start, stop, steps)
	}

	delta := math.Exp(lnBase / float64(steps))
	count := int(math.Floor(math.Log(stop/start)/math.Log(delta)+0.25)) + 1

	points := make([]float64, count)
	f := start
	for i := range points {
		points[i] = f
		f *= delta
	}
	return points, nil
}

type ACPoint struct {
	Frequency float64
	Solution  *sparse.Vector // Complex phasors in Real and Imag
}

// AC linearizes the circuit at its operating point and solves the complex
// system at every frequency of sweep.
func (s *Simulation) AC(ctx context.Context, sweep Sweep, export func(ACPoint) error) error {
	frequencies, err := sweep.Points()
	if err != nil {
		return err
	}

	if _, err := s.Op(ctx); err != nil {
		return err
	}

	m := s.Circuit.Matrix
	m.SetComplex(true)
	defer func() {
		m.SetComplex(false)
		s.reorder = true
		s.Status.Mode = device.ModeOP
		s.Status.Omega = 0.0
	}()

	s.Status.Mode = device.ModeAC
	s.reorder = true

	for _, f := range frequencies {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.Status.Omega = 2.0 * math.Pi * f
		if err := s.Circuit.LoadAC(&s.Status); err != nil {
			return err
		}
		if err := s.factor(func() error { return s.Circuit.LoadAC(&s.Status) }); err != nil {
			return fmt.Errorf("f = %g: %w", f, err)
		}

		x, err := m.Solve(s.Circuit.Rhs)
		if err != nil {
			return fmt.Errorf("f = %g: %w", f, err)
		}

		if export != nil {
			if err := export(ACPoint{Frequency: f, Solution: x}); err != nil {
				return err
			}
		}
	}
	return nil
}
