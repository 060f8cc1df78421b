package source

import "errors"

// Oscillator plays a tone renderer such as a binaural controller.
type Oscillator struct {
	lifecycle

	osc Renderer
}

// NewOscillator wraps osc.
func NewOscillator(osc Renderer) (*Oscillator, error) {
	if osc == nil {
		return nil, errors.New("source: nil oscillator")
	}
	return &Oscillator{osc: osc}, nil
}

// Kind returns KindOscillator.
func (*Oscillator) Kind() Kind { return KindOscillator }

// Process renders the oscillators.
func (s *Oscillator) Process(left, right []float64) {
	if !s.silenceUnlessRunning(left, right) {
		return
	}
	s.osc.Process(left, right)
	s.frames.Add(uint64(len(left)))
}

// Stats returns the rendered frame count.
func (s *Oscillator) Stats() Stats {
	return Stats{Frames: s.frames.Load()}
}
