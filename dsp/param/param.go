// Package param provides sample-accurate parameter automation shared between
// a control goroutine and the real-time render path.
//
// The control side publishes immutable events through an atomic pointer; the
// render side adopts the newest event at the start of each block and
// advances it per sample. Neither side takes a lock.
package param

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

type eventKind int

const (
	kindSet eventKind = iota
	kindTarget
	kindRamp
	kindHold
)

type event struct {
	kind   eventKind
	value  float64
	coeff  float64
	frames int
	done   chan struct{}
}

// Param is an automatable float64 parameter. The zero value is not usable;
// construct with New.
type Param struct {
	sampleRate float64

	pending atomic.Pointer[event]
	current atomic.Uint64
	target  atomic.Uint64

	// Render-side state.
	active    *event
	value     float64
	rampStep  float64
	rampLeft  int
	coeff     float64
	goal      float64
	following bool
}

// New returns a parameter resting at initial.
func New(sampleRate, initial float64) (*Param, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("param sample rate must be positive: %f", sampleRate)
	}
	p := &Param{sampleRate: sampleRate, value: initial, goal: initial}
	p.current.Store(math.Float64bits(initial))
	p.target.Store(math.Float64bits(initial))
	return p, nil
}

// SampleRate returns the rate the parameter advances at.
func (p *Param) SampleRate() float64 { return p.sampleRate }

// Value returns the value reached at the end of the last rendered block.
func (p *Param) Value() float64 {
	return math.Float64frombits(p.current.Load())
}

// Target returns the most recently requested destination value.
func (p *Param) Target() float64 {
	return math.Float64frombits(p.target.Load())
}

// SetValue jumps to v at the start of the next block.
func (p *Param) SetValue(v float64) {
	p.publish(&event{kind: kindSet, value: v})
}

// SetTarget approaches v exponentially with time constant tc.
// A non-positive tc behaves like SetValue.
func (p *Param) SetTarget(v float64, tc time.Duration) {
	if tc <= 0 {
		p.SetValue(v)
		return
	}
	coeff := 1 - math.Exp(-1/(tc.Seconds()*p.sampleRate))
	p.publish(&event{kind: kindTarget, value: v, coeff: coeff})
}

// LinearRamp moves linearly from the current value to v over d. The
// returned channel is closed when the ramp reaches v or when a later event
// replaces it.
func (p *Param) LinearRamp(v float64, d time.Duration) <-chan struct{} {
	frames := int(d.Seconds() * p.sampleRate)
	if frames < 1 {
		frames = 1
	}
	ev := &event{kind: kindRamp, value: v, frames: frames, done: make(chan struct{})}
	p.publish(ev)
	return ev.done
}

// Cancel drops any scheduled automation and holds the current value.
func (p *Param) Cancel() {
	p.publish(&event{kind: kindHold})
}

func (p *Param) publish(ev *event) {
	if ev.kind != kindHold {
		p.target.Store(math.Float64bits(ev.value))
	}
	// An event replaced before the render side adopted it is owned here.
	if old := p.pending.Swap(ev); old != nil && old.done != nil {
		close(old.done)
	}
}

// Process writes one automation value per frame into dst. It must only be
// called from the render path.
func (p *Param) Process(dst []float64) {
	p.adopt()
	for i := range dst {
		dst[i] = p.advance()
	}
	p.current.Store(math.Float64bits(p.value))
}

// Advance skips n frames, returning the value after the last one. Used by
// stages that only need block-rate values.
func (p *Param) Advance(n int) float64 {
	p.adopt()
	for i := 0; i < n; i++ {
		p.advance()
	}
	p.current.Store(math.Float64bits(p.value))
	return p.value
}

func (p *Param) adopt() {
	ev := p.pending.Swap(nil)
	if ev == nil {
		return
	}
	p.finish()
	switch ev.kind {
	case kindSet:
		p.value = ev.value
		p.following = false
		p.rampLeft = 0
	case kindTarget:
		p.goal = ev.value
		p.coeff = ev.coeff
		p.following = true
		p.rampLeft = 0
	case kindRamp:
		p.following = false
		p.goal = ev.value
		p.rampLeft = ev.frames
		p.rampStep = (ev.value - p.value) / float64(ev.frames)
		p.active = ev
	case kindHold:
		p.following = false
		p.rampLeft = 0
		p.target.Store(math.Float64bits(p.value))
	}
}

func (p *Param) advance() float64 {
	switch {
	case p.rampLeft > 0:
		p.rampLeft--
		if p.rampLeft == 0 {
			p.value = p.goal
			p.finish()
		} else {
			p.value += p.rampStep
		}
	case p.following:
		p.value += (p.goal - p.value) * p.coeff
	}
	return p.value
}

// finish closes the active ramp's completion channel exactly once.
func (p *Param) finish() {
	if p.active != nil {
		close(p.active.done)
		p.active = nil
	}
}
