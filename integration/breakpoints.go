package integration

import (
	"math"

	"golang.org/x/exp/slices"
)

// Breakpoints is a sorted set of times the transient analysis must land on
// exactly. Points closer than MinDistance are merged.
type Breakpoints struct {
	points      []float64
	MinDistance float64
}

func NewBreakpoints(minDistance float64) *Breakpoints {
	return &Breakpoints{MinDistance: math.Abs(minDistance)}
}

func (b *Breakpoints) Add(times ...float64) {
	for _, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			continue
		}

		i, found := slices.BinarySearch(b.points, t)
		if found {
			continue
		}
		if i > 0 && t-b.points[i-1] <= b.MinDistance {
			continue
		}
		if i < len(b.points) && b.points[i]-t <= b.MinDistance {
			continue
		}
		b.points = slices.Insert(b.points, i, t)
	}
}

// Next returns the first breakpoint after t by more than MinDistance.
func (b *Breakpoints) Next(t float64) (float64, bool) {
	i, _ := slices.BinarySearch(b.points, t+b.MinDistance)
	for ; i < len(b.points); i++ {
		if b.points[i] > t+b.MinDistance {
			return b.points[i], true
		}
	}
	return 0.0, false
}

// Drop removes every breakpoint at or before t.
func (b *Breakpoints) Drop(t float64) {
	i, found := slices.BinarySearch(b.points, t)
	if found {
		i++
	}
	b.points = slices.Delete(b.points, 0, i)
}

func (b *Breakpoints) Points() []float64 {
	return slices.Clone(b.points)
}

func (b *Breakpoints) Len() int {
	return len(b.points)
}

func (b *Breakpoints) Clear() {
	b.points = b.points[:0]
}
