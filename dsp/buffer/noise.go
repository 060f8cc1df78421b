package buffer

import (
	"time"

	"github.com/cwbudde/algo-focus/dsp/noise"
)

// NoiseDuration is the length of precomputed noise loops.
const NoiseDuration = 5 * time.Second

// NoiseLoop renders a NoiseDuration loop of color. A color the synthesizer
// rejects is rendered as white noise instead; the returned color reports
// what was actually produced.
func NoiseLoop(color noise.Color, sampleRate float64, opts ...noise.Option) (*Loop, noise.Color, error) {
	n := Frames(NoiseDuration, sampleRate)
	left := make([]float64, n)
	right := make([]float64, n)

	opts = append([]noise.Option{noise.WithSampleRate(sampleRate)}, opts...)
	synth, err := noise.New(color, opts...)
	if err != nil {
		color = noise.White
		synth, err = noise.New(noise.White, opts...)
		if err != nil {
			return nil, color, err
		}
	}
	synth.Fill(left, right)

	loop, err := NewLoop(left, right, sampleRate)
	return loop, color, err
}

// NoiseKey is the cache key for a noise loop.
func NoiseKey(color noise.Color) Key {
	return Key{Mode: "noise", Variant: color.String()}
}
