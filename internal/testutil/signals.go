// Package testutil holds deterministic signals and sample assertions shared
// by the package tests.
package testutil

import "math"

// Sine returns n samples of a sine at freqHz.
func Sine(freqHz, sampleRate, amplitude float64, n int) []float64 {
	out := make([]float64, n)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DC returns n samples of value.
func DC(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

// Render calls process once on fresh stereo buffers of n frames.
func Render(process func(left, right []float64), n int) (left, right []float64) {
	left = make([]float64, n)
	right = make([]float64, n)
	process(left, right)
	return left, right
}
