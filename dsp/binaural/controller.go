package binaural

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// RetuneTimeConstant smooths ordinary beat changes.
	RetuneTimeConstant = 50 * time.Millisecond
	// CorrectionTimeConstant is used when an oscillator has drifted
	// more than DriftToleranceHz away from its target.
	CorrectionTimeConstant = 10 * time.Millisecond
	DriftToleranceHz       = 1.0
)

// Controller keeps a Tone on the pair derived from the current beat.
type Controller struct {
	*Tone

	mu          sync.Mutex
	pair        Pair
	corrections atomic.Int64
}

// NewController returns a controller already resting on beatHz.
func NewController(sampleRate, beatHz float64) (*Controller, error) {
	pair := NewPair(beatHz)
	tone, err := NewTone(sampleRate, pair.LeftHz, pair.RightHz)
	if err != nil {
		return nil, err
	}
	return &Controller{Tone: tone, pair: pair}, nil
}

// SetBeatFrequency clamps hz, glides both oscillators toward the new pair,
// and reissues the approach with the fast time constant when either
// oscillator is more than DriftToleranceHz from its target.
func (c *Controller) SetBeatFrequency(hz float64) Pair {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pair = NewPair(hz)
	c.retune()
	return c.pair
}

// Retune reissues the current targets, correcting any drift accumulated
// while rendering was paused.
func (c *Controller) Retune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retune()
}

func (c *Controller) retune() {
	p := c.pair
	c.left.SetTarget(p.LeftHz, RetuneTimeConstant)
	c.right.SetTarget(p.RightHz, RetuneTimeConstant)

	l, r := c.Frequencies()
	if math.Abs(l-p.LeftHz) > DriftToleranceHz || math.Abs(r-p.RightHz) > DriftToleranceHz {
		// A newer event replaces the pending one before the render path
		// sees it, which drops the slow approach.
		c.left.SetTarget(p.LeftHz, CorrectionTimeConstant)
		c.right.SetTarget(p.RightHz, CorrectionTimeConstant)
		c.corrections.Add(1)
	}
}

// Pair returns the pair currently targeted.
func (c *Controller) Pair() Pair {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair
}

// Category returns the band of the current beat.
func (c *Controller) Category() Category {
	return CategoryOf(c.Pair().BeatHz)
}

// Corrections counts how often drift correction engaged.
func (c *Controller) Corrections() int64 {
	return c.corrections.Load()
}
