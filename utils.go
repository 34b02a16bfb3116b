package sparse

import (
	"math"

	"golang.org/x/exp/constraints"
)

func (m *Matrix) ElementCount() int {
	return m.Elements
}

func (m *Matrix) FillinCount() int {
	return m.Fillins
}

// AllocatedElements reports how many arena slots were handed out.
func (m *Matrix) AllocatedElements() int {
	if m.arena == nil {
		return 0
	}
	return m.arena.count()
}

func (m *Matrix) GetSize(external bool) int64 {
	if m.Config.Translate && external {
		return m.ExtSize
	}
	return m.Size
}

func (m *Matrix) elementMag(e *Element) float64 {
	if m.Complex {
		return math.Abs(e.Real) + math.Abs(e.Imag)
	}
	return math.Abs(e.Real)
}

func grow[T any](s []T, n int) []T {
	if len(s) >= n {
		return s
	}
	grown := make([]T, n)
	copy(grown, s)
	return grown
}

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func swap[T any](s []T, i, j int64) {
	s[i], s[j] = s[j], s[i]
}
