package source

import (
	"errors"

	"github.com/cwbudde/algo-focus/dsp/buffer"
)

// Looped plays a precomputed loop end to end, forever.
type Looped struct {
	lifecycle

	loop *buffer.Loop
	pos  int
}

// NewLooped wraps loop. The loop is shared read-only.
func NewLooped(loop *buffer.Loop) (*Looped, error) {
	if loop == nil {
		return nil, errors.New("source: nil loop")
	}
	return &Looped{loop: loop}, nil
}

// Kind returns KindLooped.
func (*Looped) Kind() Kind { return KindLooped }

// Process copies the next frames of the loop.
func (s *Looped) Process(left, right []float64) {
	if !s.silenceUnlessRunning(left, right) {
		return
	}
	s.pos = s.loop.Read(left, right, s.pos)
	s.frames.Add(uint64(len(left)))
}

// Stats returns the rendered frame count.
func (s *Looped) Stats() Stats {
	return Stats{Frames: s.frames.Load()}
}
