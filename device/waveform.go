package device

import (
	"math"
)

// Waveform is the time function of an independent source.
type Waveform interface {
	Value(t float64) float64
	// Breakpoints returns the corners of the waveform in [start, stop].
	Breakpoints(start, stop float64) []float64
}

type DC float64

func (d DC) Value(float64) float64                 { return float64(d) }
func (DC) Breakpoints(float64, float64) []float64 { return nil }

// Pulse is a trapezoidal pulse train. A zero Period gives a single pulse.
type Pulse struct {
	V1, V2 float64
	Delay  float64
	Rise   float64
	Fall   float64
	Width  float64
	Period float64
}

func (p Pulse) Value(t float64) float64 {
	if t < p.Delay {
		return p.V1
	}

	local := t - p.Delay
	if p.Period > 0.0 {
		local = math.Mod(local, p.Period)
	}

	switch {
	case local < p.Rise:
		return p.V1 + (p.V2-p.V1)*local/p.Rise
	case local < p.Rise+p.Width:
		return p.V2
	case local < p.Rise+p.Width+p.Fall:
		return p.V2 + (p.V1-p.V2)*(local-p.Rise-p.Width)/p.Fall
	}
	return p.V1
}

func (p Pulse) Breakpoints(start, stop float64) []float64 {
	corners := []float64{0.0, p.Rise, p.Rise + p.Width, p.Rise + p.Width + p.Fall}

	var points []float64
	for base := p.Delay; base <= stop; base += p.Period {
		for _, c := range corners {
			if t := base + c; t >= start && t <= stop {
				points = append(points, t)
			}
		}
		if p.Period <= 0.0 {
			break
		}
	}
	return points
}

// Sine is offset + amplitude·sin(2π·freq·(t−delay))·exp(−damping·(t−delay)).
type Sine struct {
	Offset    float64
	Amplitude float64
	Frequency float64
	Delay     float64
	Damping   float64
}

func (s Sine) Value(t float64) float64 {
	if t < s.Delay {
		return s.Offset
	}
	local := t - s.Delay
	return s.Offset + s.Amplitude*math.Sin(2.0*math.Pi*s.Frequency*local)*math.Exp(-s.Damping*local)
}

func (s Sine) Breakpoints(start, stop float64) []float64 {
	if s.Delay > start && s.Delay <= stop {
		return []float64{s.Delay}
	}
	return nil
}
