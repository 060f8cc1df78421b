package stream

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-focus/internal/host"
)

const (
	// Channels is the interleaved channel count of every frame.
	Channels = 2
	// FrameDuration is the length of one pumped frame.
	FrameDuration = 20 * time.Millisecond
)

// FrameSize returns the per-channel samples in one frame at sampleRate.
func FrameSize(sampleRate float64) int {
	return int(math.Round(sampleRate * FrameDuration.Seconds()))
}

// Pump pulls frames from an offline device at the real-time rate.
type Pump struct {
	dev       *host.Offline
	frameSize int
	newTicker func(time.Duration) (<-chan time.Time, func())
}

// PumpOption configures a Pump.
type PumpOption func(*Pump)

// WithTickSource replaces the real-time ticker, for tests.
func WithTickSource(fn func(time.Duration) (<-chan time.Time, func())) PumpOption {
	return func(p *Pump) { p.newTicker = fn }
}

// NewPump returns a pump for dev.
func NewPump(dev *host.Offline, opts ...PumpOption) (*Pump, error) {
	if dev == nil {
		return nil, fmt.Errorf("stream: nil device")
	}
	p := &Pump{
		dev:       dev,
		frameSize: FrameSize(dev.SampleRate()),
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.frameSize <= 0 {
		return nil, fmt.Errorf("stream: sample rate %v too low", dev.SampleRate())
	}
	return p, nil
}

// FrameSize returns the per-channel samples per frame.
func (p *Pump) FrameSize() int { return p.frameSize }

// Run sends one PCM frame per tick to out until ctx ends, then closes out.
// A frame that out cannot take immediately is dropped so the device keeps
// real-time pace.
func (p *Pump) Run(ctx context.Context, out chan<- []int16) {
	defer close(out)
	tick, stop := p.newTicker(FrameDuration)
	defer stop()

	buf := make([]float32, p.frameSize*Channels)
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			buf = p.dev.Pull(buf, p.frameSize)
			frame := make([]int16, len(buf))
			FloatToPCM16(frame, buf)
			select {
			case out <- frame:
			default:
			}
		}
	}
}

// FloatToPCM16 converts samples in [-1, 1] to signed 16-bit PCM.
func FloatToPCM16(dst []int16, src []float32) {
	n := min(len(dst), len(src))
	for i := 0; i < n; i++ {
		v := src[i]
		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}
		dst[i] = int16(math.Round(float64(v) * math.MaxInt16))
	}
}
