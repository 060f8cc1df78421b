// Package noise synthesizes colored noise with per-channel persistent
// filter state. Left and right use independent uniform draws, so the stereo
// image stays wide.
package noise

import (
	"fmt"
	"math/rand/v2"

	"github.com/cwbudde/algo-focus/dsp/core"
)

// Option configures a Synthesizer.
type Option func(*options)

type options struct {
	sampleRate float64
	seeded     bool
	seed       uint64
}

// WithSeed makes the draw sequence reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seeded = true
		o.seed = seed
	}
}

// WithSampleRate sets the rate used by time-based layers (rain droplets).
func WithSampleRate(sampleRate float64) Option {
	return func(o *options) {
		if sampleRate > 0 {
			o.sampleRate = sampleRate
		}
	}
}

// Synthesizer renders one noise color. Process may only be called from a
// single goroutine.
type Synthesizer struct {
	color      Color
	sampleRate float64
	rng        *rand.Rand
	state      [2]FilterState
	rain       *rainLayer
}

// New returns a synthesizer with zeroed filter state.
func New(color Color, opts ...Option) (*Synthesizer, error) {
	if !color.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupported, int(color))
	}
	o := options{sampleRate: core.DefaultProcessorConfig().SampleRate}
	for _, opt := range opts {
		opt(&o)
	}

	var src rand.Source
	if o.seeded {
		src = rand.NewPCG(o.seed, o.seed^0x9e3779b97f4a7c15)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	s := &Synthesizer{
		color:      color,
		sampleRate: o.sampleRate,
		rng:        rand.New(src),
		state:      [2]FilterState{newFilterState(color), newFilterState(color)},
	}
	if color == Rain {
		s.rain = newRainLayer(o.sampleRate)
	}
	return s, nil
}

// Color returns the profile this synthesizer renders.
func (s *Synthesizer) Color() Color { return s.color }

// SampleRate returns the configured rate.
func (s *Synthesizer) SampleRate() float64 { return s.sampleRate }

// State returns a copy of the filter state for channel 0 (left) or 1 (right).
func (s *Synthesizer) State(ch int) FilterState {
	return s.state[ch&1]
}

// Process fills left and right with the next samples of an unbounded
// stream. Filter state carries over between calls. Zero-alloc.
func (s *Synthesizer) Process(left, right []float64) {
	s.render(left, right, len(left))
}

// Fill renders a finite loop. It differs from Process only in that rain
// droplets never start within the final droplet length, so none is cut by
// the loop end.
func (s *Synthesizer) Fill(left, right []float64) {
	limit := len(left)
	if s.rain != nil {
		limit -= s.rain.length
	}
	s.render(left, right, limit)
}

func (s *Synthesizer) render(left, right []float64, spawnLimit int) {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	l, r := &s.state[0], &s.state[1]
	for i := 0; i < n; i++ {
		uL := 2*s.rng.Float64() - 1
		uR := 2*s.rng.Float64() - 1
		yL := l.next(s.color, uL)
		yR := r.next(s.color, uR)

		if s.rain != nil {
			s.rain.maybeSpawn(s.rng, i < spawnLimit)
			dL, dR := s.rain.render()
			yL += dL
			yR += dR
		}

		left[i] = core.SoftClip(yL)
		right[i] = core.SoftClip(yR)
	}
}
