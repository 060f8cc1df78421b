// Package host is the explicit playback engine: it owns the output device,
// the frame clock and the running/suspended/closed state, and pulls audio
// from whatever renderer the graph installed.
//
// Everything a browser would hide behind a global audio context is a value
// here; callers create one Context and pass it where it is needed.
package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-focus/dsp/core"
)

// ErrClosed is returned by lifecycle calls on a closed Context.
var ErrClosed = errors.New("host: closed")

// State is the engine lifecycle state.
type State int32

const (
	StateSuspended State = iota
	StateRunning
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateSuspended:
		return "suspended"
	case StateRunning:
		return "running"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Capabilities describe which generation paths the device can drive.
type Capabilities struct {
	// Streaming is true when the device pulls small, latency-bounded
	// requests and a generator may run inside every pull.
	Streaming bool
	// BlockSize is the fixed callback size for block-buffered generation,
	// or 0 when block callbacks are unavailable.
	BlockSize int
}

// RenderFunc fills one block of stereo output. It runs on the device's
// audio goroutine and must not block.
type RenderFunc func(left, right []float64)

// Device is an output sink that pulls interleaved stereo float32 frames.
type Device interface {
	SampleRate() float64
	Capabilities() Capabilities
	// Attach hands the device its pull function. Called once.
	Attach(pull func(dst []float32)) error
	Resume() error
	Suspend() error
	Close() error
}

// Context is the playback engine.
type Context struct {
	device     Device
	sampleRate float64

	mu    sync.Mutex // serializes Resume/Suspend/Close
	state atomic.Int32

	render atomic.Pointer[RenderFunc]
	frames atomic.Uint64

	// Render-path scratch, grown on demand.
	left  []float64
	right []float64
}

// New attaches a Context to device. The context starts suspended.
func New(device Device) (*Context, error) {
	if device == nil {
		return nil, errors.New("host: nil device")
	}
	cfg := core.ProcessorConfig{SampleRate: device.SampleRate(), BlockSize: 1}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("host device: %w", err)
	}
	c := &Context{device: device, sampleRate: cfg.SampleRate}
	c.state.Store(int32(StateSuspended))
	if err := device.Attach(c.Render); err != nil {
		return nil, fmt.Errorf("host attach: %w", err)
	}
	return c, nil
}

// SampleRate returns the device rate.
func (c *Context) SampleRate() float64 { return c.sampleRate }

// Capabilities returns the device capabilities.
func (c *Context) Capabilities() Capabilities { return c.device.Capabilities() }

// State returns the current lifecycle state.
func (c *Context) State() State { return State(c.state.Load()) }

// CurrentTime is the amount of audio rendered while running.
func (c *Context) CurrentTime() time.Duration {
	return time.Duration(float64(c.frames.Load()) / c.sampleRate * float64(time.Second))
}

// SetRenderer installs fn as the audio source; nil removes it.
func (c *Context) SetRenderer(fn RenderFunc) {
	if fn == nil {
		c.render.Store(nil)
		return
	}
	c.render.Store(&fn)
}

// Resume starts pulling audio.
func (c *Context) Resume(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateClosed:
		return ErrClosed
	case StateRunning:
		return nil
	}
	if err := c.device.Resume(); err != nil {
		return fmt.Errorf("host resume: %w", err)
	}
	c.state.Store(int32(StateRunning))
	return nil
}

// Suspend stops pulling audio but keeps the device open.
func (c *Context) Suspend(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.State() {
	case StateClosed:
		return ErrClosed
	case StateSuspended:
		return nil
	}
	c.state.Store(int32(StateSuspended))
	if err := c.device.Suspend(); err != nil {
		return fmt.Errorf("host suspend: %w", err)
	}
	return nil
}

// Close releases the device. Further calls are no-ops.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateClosed {
		return nil
	}
	c.state.Store(int32(StateClosed))
	c.render.Store(nil)
	if err := c.device.Close(); err != nil {
		return fmt.Errorf("host close: %w", err)
	}
	return nil
}

// Render fills dst with interleaved stereo frames. Silence is produced while
// suspended or when no renderer is installed. Samples are clamped to [-1, 1].
func (c *Context) Render(dst []float32) {
	frames := len(dst) / 2
	fn := c.render.Load()
	if c.State() != StateRunning || fn == nil || frames == 0 {
		clear(dst)
		return
	}

	if cap(c.left) < frames {
		c.left = make([]float64, frames)
		c.right = make([]float64, frames)
	}
	l, r := c.left[:frames], c.right[:frames]
	(*fn)(l, r)
	core.Interleave(dst, l, r)
	c.frames.Add(uint64(frames))
}
