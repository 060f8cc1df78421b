// Package source defines the closed set of signal sources the graph can
// play. Every variant supports the same lifecycle: Start once, render, Stop.
// Stop is total: it never fails, may be called in any state and any number
// of times, and silences the source immediately.
package source

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrAlreadyStarted is returned by Start on a running source.
	ErrAlreadyStarted = errors.New("source: already started")
	// ErrStopped is returned by Start after Stop; sources are single use.
	ErrStopped = errors.New("source: stopped")
)

// Kind names the variant of a Source.
type Kind int

const (
	KindLooped Kind = iota
	KindStreaming
	KindOscillator
)

func (k Kind) String() string {
	switch k {
	case KindLooped:
		return "looped"
	case KindStreaming:
		return "streaming"
	case KindOscillator:
		return "oscillator"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Renderer produces stereo audio. noise.Synthesizer, binaural.Tone and
// binaural.Controller satisfy it.
type Renderer interface {
	Process(left, right []float64)
}

// Stats are counters maintained by the render path.
type Stats struct {
	Frames   uint64
	Overruns uint64 // blocks that took longer than their real-time budget
	Faults   uint64 // generator panics recovered
}

// Source is implemented only by the variants in this package.
type Source interface {
	Kind() Kind
	Start() error
	Stop()
	Running() bool
	// Process renders the next frames, or silence when not running.
	// Render path only.
	Process(left, right []float64)
	Stats() Stats
	// LastFault returns the most recent recovered generator failure.
	LastFault() error

	sealed()
}

const (
	stateIdle int32 = iota
	stateRunning
	stateStopped
)

// lifecycle is the shared Start/Stop state machine.
type lifecycle struct {
	state  atomic.Int32
	frames atomic.Uint64
}

func (l *lifecycle) Start() error {
	if l.state.CompareAndSwap(stateIdle, stateRunning) {
		return nil
	}
	if l.state.Load() == stateRunning {
		return ErrAlreadyStarted
	}
	return ErrStopped
}

func (l *lifecycle) Stop() {
	l.state.Store(stateStopped)
}

func (l *lifecycle) Running() bool {
	return l.state.Load() == stateRunning
}

// silenceUnlessRunning zeroes the output and reports false when the source
// should not render.
func (l *lifecycle) silenceUnlessRunning(left, right []float64) bool {
	if l.state.Load() == stateRunning {
		return true
	}
	clear(left)
	clear(right)
	return false
}

func (l *lifecycle) LastFault() error { return nil }

func (*lifecycle) sealed() {}
