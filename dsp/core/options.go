package core

import (
	"fmt"
	"math"
	"time"
)

// ProcessorConfig defines the rendering settings shared by sources, the
// signal graph and the host.
type ProcessorConfig struct {
	SampleRate float64
	// BlockSize is the fixed callback length used by block-buffered
	// generation. Streaming generation ignores it.
	BlockSize int
}

// ProcessorOption mutates a ProcessorConfig.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig returns 48 kHz with 4096-frame blocks.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate: 48000,
		BlockSize:  4096,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// WithBlockSize sets the block-callback length.
func WithBlockSize(blockSize int) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if blockSize > 0 {
			cfg.BlockSize = blockSize
		}
	}
}

// ApplyProcessorOptions applies zero or more options to the default config.
func ApplyProcessorOptions(opts ...ProcessorOption) ProcessorConfig {
	cfg := DefaultProcessorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Validate reports whether the configuration can drive a renderer.
func (c ProcessorConfig) Validate() error {
	if c.SampleRate <= 0 || math.IsNaN(c.SampleRate) || math.IsInf(c.SampleRate, 0) {
		return fmt.Errorf("sample rate must be positive and finite: %f", c.SampleRate)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block size must be > 0: %d", c.BlockSize)
	}
	return nil
}

// Frames converts a duration to a whole number of frames at sampleRate.
// Positive durations always yield at least one frame.
func Frames(d time.Duration, sampleRate float64) int {
	if d <= 0 || sampleRate <= 0 {
		return 0
	}
	n := int(d.Seconds() * sampleRate)
	if n < 1 {
		n = 1
	}
	return n
}

// BlockBudget is the real-time budget of one block of n frames.
func BlockBudget(n int, sampleRate float64) time.Duration {
	if n <= 0 || sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / sampleRate * float64(time.Second))
}
