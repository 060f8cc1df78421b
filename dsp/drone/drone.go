// Package drone renders the sustained "om" tone used by the drone mode: a
// low fundamental with a few soft partials and a slow breathing swell, cut
// into a loop whose swell completes exactly once per period.
package drone

import (
	"fmt"
	"math"
	"time"

	"github.com/cwbudde/algo-focus/dsp/buffer"
)

const (
	// Frequency is the drone fundamental in Hz.
	Frequency = 136.1

	// Duration is the loop length.
	Duration = 8 * time.Second

	// stereoDetune offsets the right channel for a slow beating width.
	stereoDetune = 0.125
	peakLevel    = 0.8
)

type partial struct {
	ratio float64
	level float64
}

var partials = []partial{
	{0.5, 0.35},
	{1, 1},
	{2, 0.45},
	{3, 0.2},
	{4, 0.08},
}

// Key is the cache key of the drone loop.
var Key = buffer.Key{Mode: "drone", Variant: "om"}

// Render returns the drone loop at sampleRate.
func Render(sampleRate float64) (*buffer.Loop, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("drone sample rate must be positive: %f", sampleRate)
	}
	n := buffer.Frames(Duration, sampleRate)
	left := make([]float64, n)
	right := make([]float64, n)

	swellHz := 1 / Duration.Seconds()
	peak := 0.0
	for i := range left {
		t := float64(i) / sampleRate
		swell := 0.75 + 0.25*math.Sin(2*math.Pi*swellHz*t-math.Pi/2)
		var l, r float64
		for _, p := range partials {
			f := Frequency * p.ratio
			l += p.level * math.Sin(2*math.Pi*f*t)
			r += p.level * math.Sin(2*math.Pi*(f+stereoDetune*p.ratio)*t)
		}
		left[i] = l * swell
		right[i] = r * swell
		peak = math.Max(peak, math.Max(math.Abs(left[i]), math.Abs(right[i])))
	}

	if peak > 0 {
		g := peakLevel / peak
		for i := range left {
			left[i] *= g
			right[i] *= g
		}
	}
	return buffer.NewLoop(left, right, sampleRate)
}
