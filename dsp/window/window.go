// Package window generates analysis windows for the spectrum tap.
package window

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeBlackman
)

// String returns the window name.
func (t Type) String() string {
	switch t {
	case TypeRectangular:
		return "rectangular"
	case TypeHann:
		return "hann"
	case TypeBlackman:
		return "blackman"
	default:
		return fmt.Sprintf("window(%d)", int(t))
	}
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
	alpha    float64
}

// WithPeriodic generates the periodic (DFT-even) variant, dividing by
// size rather than size-1.
func WithPeriodic() Option {
	return func(c *config) { c.periodic = true }
}

// WithAlpha sets the Blackman alpha parameter (default 0.16).
func WithAlpha(alpha float64) Option {
	return func(c *config) { c.alpha = alpha }
}

// Generate returns size coefficients of window t. Unknown types and
// non-positive sizes return nil.
func Generate(t Type, size int, opts ...Option) []float64 {
	if size <= 0 {
		return nil
	}
	cfg := config{alpha: 0.16}
	for _, opt := range opts {
		opt(&cfg)
	}

	out := make([]float64, size)
	if size == 1 {
		out[0] = 1
		return out
	}

	den := float64(size - 1)
	if cfg.periodic {
		den = float64(size)
	}

	a0 := (1 - cfg.alpha) / 2
	a2 := cfg.alpha / 2

	for i := range out {
		x := 2 * math.Pi * float64(i) / den
		switch t {
		case TypeRectangular:
			out[i] = 1
		case TypeHann:
			out[i] = 0.5 - 0.5*math.Cos(x)
		case TypeBlackman:
			out[i] = a0 - 0.5*math.Cos(x) + a2*math.Cos(2*x)
		default:
			return nil
		}
	}
	return out
}

// Gain returns the coherent gain (mean coefficient).
func Gain(coeffs []float64) float64 {
	if len(coeffs) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range coeffs {
		sum += c
	}
	return sum / float64(len(coeffs))
}

// ApplyInPlace multiplies samples by coeffs element-wise.
func ApplyInPlace(samples, coeffs []float64) error {
	if len(samples) != len(coeffs) {
		return fmt.Errorf("window length mismatch: %d samples, %d coefficients", len(samples), len(coeffs))
	}
	vecmath.MulBlockInPlace(samples, coeffs)
	return nil
}
