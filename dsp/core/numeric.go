package core

import "math"

// clipCeiling keeps soft-clipped samples strictly inside (-1, 1); tanh
// rounds to exactly ±1 in float64 for arguments beyond roughly ±19.
const clipCeiling = 0.999999

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// SoftClip saturates x with tanh. The result is strictly inside (-1, 1)
// for every finite input; NaN maps to 0.
func SoftClip(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	y := math.Tanh(x)
	if y > clipCeiling {
		return clipCeiling
	}
	if y < -clipCeiling {
		return -clipCeiling
	}
	return y
}

// FlushDenormals converts tiny denormal-like values to exact zero.
// Recursive filters that decay toward silence call this on their state.
func FlushDenormals(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0
	}

	return x
}

// DBToLinear converts dB to linear amplitude (20*log10 convention).
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}
