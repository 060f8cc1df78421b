// Package otodev plays a host.Context through the system speakers using
// ebitengine/oto. oto allows a single context per process, so create at
// most one Device.
package otodev

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-focus/internal/host"
)

const bytesPerFrame = 2 * 4 // stereo float32

// Option configures a Device.
type Option func(*options)

type options struct {
	bufferSize time.Duration
	blockSize  int
}

// WithBufferSize sets oto's device buffer. Larger values trade latency for
// resilience against scheduling hiccups.
func WithBufferSize(d time.Duration) Option {
	return func(o *options) { o.bufferSize = d }
}

// WithBlockSize sets the block size advertised for block generation.
func WithBlockSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.blockSize = n
		}
	}
}

// Device is an oto-backed host.Device.
type Device struct {
	sampleRate int
	opts       options
	ctx        *oto.Context

	mu     sync.Mutex // guards player for control calls
	player *oto.Player

	pull atomic.Pointer[func(dst []float32)]
	buf  []float32 // audio goroutine only
}

// New opens the system output at sampleRate and waits until it is ready.
func New(sampleRate int, opts ...Option) (*Device, error) {
	o := options{bufferSize: 40 * time.Millisecond, blockSize: 4096}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   o.bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("otodev open: %w", err)
	}
	<-ready

	return &Device{sampleRate: sampleRate, opts: o, ctx: ctx}, nil
}

func (d *Device) SampleRate() float64 { return float64(d.sampleRate) }

func (d *Device) Capabilities() host.Capabilities {
	return host.Capabilities{Streaming: true, BlockSize: d.opts.blockSize}
}

// Attach implements host.Device.
func (d *Device) Attach(pull func(dst []float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player != nil {
		return errors.New("otodev: already attached")
	}
	d.pull.Store(&pull)
	d.player = d.ctx.NewPlayer(d)
	return nil
}

// Read implements io.Reader for the oto player.
func (d *Device) Read(p []byte) (int, error) {
	pull := d.pull.Load()
	frames := len(p) / bytesPerFrame
	if pull == nil || frames == 0 {
		clear(p)
		return len(p), nil
	}

	n := frames * 2
	if cap(d.buf) < n {
		d.buf = make([]float32, n)
	}
	samples := d.buf[:n]
	(*pull)(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(s))
	}
	clear(p[n*4:])
	return len(p), nil
}

func (d *Device) Resume() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player == nil {
		return errors.New("otodev: not attached")
	}
	d.player.Play()
	return nil
}

func (d *Device) Suspend() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.player != nil {
		d.player.Pause()
	}
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pull.Store(nil)
	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	return err
}
