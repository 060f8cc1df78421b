package biquad

import "math"

// Lowpass designs an RBJ cookbook lowpass at freq (Hz) with quality factor q.
// freq is limited to just below Nyquist; a non-positive q falls back to
// 1/sqrt(2). Invalid sample rates return zero coefficients.
func Lowpass(freq, q, sampleRate float64) Coefficients {
	if sampleRate <= 0 || freq <= 0 {
		return Coefficients{}
	}
	if maxFreq := 0.49 * sampleRate; freq > maxFreq {
		freq = maxFreq
	}
	if q <= 0 {
		q = 1 / math.Sqrt2
	}

	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)

	a0 := 1 + alpha
	b0 := (1 - cw) / 2 / a0

	return Coefficients{
		B0: b0,
		B1: 2 * b0,
		B2: b0,
		A1: -2 * cw / a0,
		A2: (1 - alpha) / a0,
	}
}
