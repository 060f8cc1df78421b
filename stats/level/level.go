// Package level meters rendered output in the time domain: DC offset, RMS,
// peak and crest factor, accumulated block by block.
package level

import "math"

// Levels is a snapshot of a Meter.
type Levels struct {
	Frames        int
	DC            float64
	RMS           float64
	Peak          float64
	ZeroCrossings int
}

// RMSdB returns the RMS level in dBFS, -Inf for silence.
func (l Levels) RMSdB() float64 { return toDB(l.RMS) }

// PeakdB returns the peak level in dBFS, -Inf for silence.
func (l Levels) PeakdB() float64 { return toDB(l.Peak) }

// CrestDB is peak over RMS in dB, 0 for silence.
func (l Levels) CrestDB() float64 {
	if l.RMS == 0 {
		return 0
	}
	return toDB(l.Peak / l.RMS)
}

func toDB(v float64) float64 {
	if v == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(math.Abs(v))
}

// Meter accumulates Levels over successive blocks of one channel. The zero
// value is ready to use.
type Meter struct {
	n     int
	mean  float64
	sumSq float64
	peak  float64
	last  float64
	zc    int
}

// Update adds samples to the running measurement.
func (m *Meter) Update(samples []float64) {
	for _, x := range samples {
		m.n++
		m.mean += (x - m.mean) / float64(m.n)
		m.sumSq += x * x
		m.peak = math.Max(m.peak, math.Abs(x))
		if m.n > 1 && m.last*x < 0 {
			m.zc++
		}
		m.last = x
	}
}

// Result returns the levels measured so far.
func (m *Meter) Result() Levels {
	if m.n == 0 {
		return Levels{}
	}
	return Levels{
		Frames:        m.n,
		DC:            m.mean,
		RMS:           math.Sqrt(m.sumSq / float64(m.n)),
		Peak:          m.peak,
		ZeroCrossings: m.zc,
	}
}

// Reset clears the meter.
func (m *Meter) Reset() { *m = Meter{} }

// Measure is a one-shot Meter over samples.
func Measure(samples []float64) Levels {
	var m Meter
	m.Update(samples)
	return m.Result()
}
