package testutil

import (
	"math"
	"testing"
)

// RequireOpenUnit fails t unless every sample lies strictly inside (-1, 1).
func RequireOpenUnit(t testing.TB, channels ...[]float64) {
	t.Helper()
	for c, data := range channels {
		for i, v := range data {
			if !(v > -1 && v < 1) {
				t.Fatalf("channel %d sample %d = %v, outside (-1, 1)", c, i, v)
			}
		}
	}
}

// RequireMonotonic fails t unless data strictly rises (dir > 0) or falls
// (dir < 0) from one sample to the next.
func RequireMonotonic(t testing.TB, data []float64, dir int) {
	t.Helper()
	for i := 1; i < len(data); i++ {
		d := data[i] - data[i-1]
		if (dir > 0 && d <= 0) || (dir < 0 && d >= 0) {
			t.Fatalf("not monotonic at %d: %v -> %v", i, data[i-1], data[i])
		}
	}
}

// MaxStep returns the largest absolute difference between neighbours.
func MaxStep(data []float64) float64 {
	m := 0.0
	for i := 1; i < len(data); i++ {
		m = math.Max(m, math.Abs(data[i]-data[i-1]))
	}
	return m
}

// Peak returns the largest absolute sample.
func Peak(data []float64) float64 {
	m := 0.0
	for _, v := range data {
		m = math.Max(m, math.Abs(v))
	}
	return m
}
