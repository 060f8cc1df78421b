package host

import (
	"errors"
	"sync"
)

// Offline is a device driven by its owner: nothing plays until Pull is
// called. Tests, file rendering and the browser bridge use it.
type Offline struct {
	sampleRate float64
	caps       Capabilities

	mu        sync.Mutex
	pull      func(dst []float32)
	suspended bool
	closed    bool
	failNext  error
}

// NewOffline returns a device with the given rate and capabilities.
func NewOffline(sampleRate float64, caps Capabilities) *Offline {
	return &Offline{sampleRate: sampleRate, caps: caps, suspended: true}
}

func (d *Offline) SampleRate() float64        { return d.sampleRate }
func (d *Offline) Capabilities() Capabilities { return d.caps }

// Attach implements Device.
func (d *Offline) Attach(pull func(dst []float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pull != nil {
		return errors.New("host: device already attached")
	}
	d.pull = pull
	return nil
}

// FailNextResume makes the next Resume return err.
func (d *Offline) FailNextResume(err error) {
	d.mu.Lock()
	d.failNext = err
	d.mu.Unlock()
}

func (d *Offline) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failNext; err != nil {
		d.failNext = nil
		return err
	}
	d.suspended = false
	return nil
}

func (d *Offline) Suspend() error {
	d.mu.Lock()
	d.suspended = true
	d.mu.Unlock()
	return nil
}

func (d *Offline) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Suspended reports whether the last lifecycle call suspended the device.
func (d *Offline) Suspended() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.suspended
}

// Closed reports whether Close was called.
func (d *Offline) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Pull renders frames stereo frames into dst (grown as needed) and returns it.
func (d *Offline) Pull(dst []float32, frames int) []float32 {
	if cap(dst) < 2*frames {
		dst = make([]float32, 2*frames)
	}
	dst = dst[:2*frames]
	d.mu.Lock()
	pull := d.pull
	d.mu.Unlock()
	if pull == nil {
		clear(dst)
		return dst
	}
	pull(dst)
	return dst
}
