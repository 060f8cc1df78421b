package frequency

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/cwbudde/algo-focus/dsp/window"
)

// Spectrum is a one-sided averaged power spectrum.
type Spectrum struct {
	Power      []float64 // mean |X[k]|^2 per bin, k in [0, segment/2]
	SampleRate float64
	Segment    int
	Averages   int
}

// BinHz is the width of one bin.
func (s Spectrum) BinHz() float64 {
	return s.SampleRate / float64(s.Segment)
}

// Welch estimates the power spectrum of samples by averaging Hann-windowed
// segments with 50% overlap. segment must be a power of two.
func Welch(samples []float64, sampleRate float64, segment int) (Spectrum, error) {
	if segment < 16 || segment&(segment-1) != 0 {
		return Spectrum{}, fmt.Errorf("welch segment must be a power of two >= 16: %d", segment)
	}
	if sampleRate <= 0 {
		return Spectrum{}, fmt.Errorf("welch sample rate must be positive: %f", sampleRate)
	}
	if len(samples) < segment {
		return Spectrum{}, fmt.Errorf("welch needs at least %d samples, got %d", segment, len(samples))
	}

	fft := fourier.NewFFT(segment)
	win := window.Generate(window.TypeHann, segment, window.WithPeriodic())
	frame := make([]float64, segment)
	var coeffs []complex128

	power := make([]float64, segment/2+1)
	hop := segment / 2
	count := 0

	for start := 0; start+segment <= len(samples); start += hop {
		copy(frame, samples[start:start+segment])
		if err := window.ApplyInPlace(frame, win); err != nil {
			return Spectrum{}, err
		}
		coeffs = fft.Coefficients(coeffs, frame)
		for k, c := range coeffs {
			power[k] += real(c)*real(c) + imag(c)*imag(c)
		}
		count++
	}

	for k := range power {
		power[k] /= float64(count)
	}

	return Spectrum{Power: power, SampleRate: sampleRate, Segment: segment, Averages: count}, nil
}
