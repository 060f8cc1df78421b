package player

import (
	"sync"
	"time"
)

const (
	// DefaultDuration applies when no session length is chosen.
	DefaultDuration = 15 * time.Minute
	// TickInterval is the session clock resolution.
	TickInterval = time.Second
)

// Presets are the selectable session lengths.
var Presets = []time.Duration{15 * time.Minute, 30 * time.Minute, 60 * time.Minute, 90 * time.Minute}

// Ticker delivers clock ticks. *time.Ticker is adapted by NewTicker.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type stdTicker struct{ *time.Ticker }

func (t stdTicker) Chan() <-chan time.Time { return t.C }

// NewTicker is the production ticker factory.
func NewTicker(d time.Duration) Ticker { return stdTicker{time.NewTicker(d)} }

// SessionClock counts played seconds and fires once when the session
// duration is reached. Elapsed time survives Stop, so a paused session
// resumes where it left off.
type SessionClock struct {
	newTicker func(time.Duration) Ticker
	onTick    func(elapsed time.Duration)
	onExpire  func()

	mu       sync.Mutex
	elapsed  time.Duration
	duration time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewSessionClock returns a stopped clock. onTick runs on the clock
// goroutine after every tick; onExpire runs on its own goroutine.
func NewSessionClock(newTicker func(time.Duration) Ticker, onTick func(time.Duration), onExpire func()) *SessionClock {
	if newTicker == nil {
		newTicker = NewTicker
	}
	return &SessionClock{
		newTicker: newTicker,
		onTick:    onTick,
		onExpire:  onExpire,
		duration:  DefaultDuration,
	}
}

// Start begins counting. A session that already ran out starts over.
func (c *SessionClock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		return
	}
	if c.elapsed >= c.duration {
		c.elapsed = 0
	}
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.newTicker(TickInterval), c.stop, c.done)
}

// Stop halts counting and waits for the clock goroutine to exit.
func (c *SessionClock) Stop() {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// Running reports whether the clock is counting.
func (c *SessionClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop != nil
}

// SetDuration changes the session length and resets the elapsed time.
// A non-positive d selects DefaultDuration.
func (c *SessionClock) SetDuration(d time.Duration) {
	if d <= 0 {
		d = DefaultDuration
	}
	c.mu.Lock()
	c.duration = d
	c.elapsed = 0
	c.mu.Unlock()
}

// Elapsed returns the counted time.
func (c *SessionClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elapsed
}

// Duration returns the session length.
func (c *SessionClock) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Remaining returns the time left in the session.
func (c *SessionClock) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return max(c.duration-c.elapsed, 0)
}

func (c *SessionClock) run(t Ticker, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.Chan():
			elapsed, expired := c.advance()
			if c.onTick != nil {
				c.onTick(elapsed)
			}
			if expired {
				if c.onExpire != nil {
					go c.onExpire()
				}
				return
			}
		}
	}
}

func (c *SessionClock) advance() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.elapsed += TickInterval
	if c.elapsed >= c.duration {
		c.elapsed = c.duration
		return c.elapsed, true
	}
	return c.elapsed, false
}
