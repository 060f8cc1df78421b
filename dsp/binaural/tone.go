package binaural

import (
	"math"

	"github.com/cwbudde/algo-focus/dsp/param"
)

const twoPi = 2 * math.Pi

// Tone renders two free-running sines whose frequencies are automatable.
// Process belongs to the render path; the frequency params may be driven
// from any goroutine.
type Tone struct {
	sampleRate float64
	left       *param.Param
	right      *param.Param
	phaseL     float64
	phaseR     float64
}

// NewTone returns a tone pair resting at leftHz / rightHz.
func NewTone(sampleRate, leftHz, rightHz float64) (*Tone, error) {
	l, err := param.New(sampleRate, leftHz)
	if err != nil {
		return nil, err
	}
	r, err := param.New(sampleRate, rightHz)
	if err != nil {
		return nil, err
	}
	return &Tone{sampleRate: sampleRate, left: l, right: r}, nil
}

// Process renders unit-amplitude sines into left and right.
func (t *Tone) Process(left, right []float64) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	left, right = left[:n], right[:n]

	// The buffers first receive per-frame frequencies, then the sines.
	t.left.Process(left)
	t.right.Process(right)
	step := twoPi / t.sampleRate
	for i := range left {
		fl, fr := left[i], right[i]
		left[i] = math.Sin(t.phaseL)
		right[i] = math.Sin(t.phaseR)
		t.phaseL = wrap(t.phaseL + fl*step)
		t.phaseR = wrap(t.phaseR + fr*step)
	}
}

// Frequencies returns the left and right frequency at the end of the last
// rendered block.
func (t *Tone) Frequencies() (float64, float64) {
	return t.left.Value(), t.right.Value()
}

func wrap(phase float64) float64 {
	if phase >= twoPi {
		phase -= twoPi
	}
	return phase
}
