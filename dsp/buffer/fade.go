package buffer

import (
	"time"

	"github.com/cwbudde/algo-focus/dsp/core"
)

// FadeDuration is the ramp length applied to both ends of a loop.
const FadeDuration = 50 * time.Millisecond

// FadeFrames returns the fade length in frames at sampleRate.
func FadeFrames(sampleRate float64) int {
	return int(FadeDuration.Seconds() * sampleRate)
}

// ApplyFade scales the first n samples by i/n and the last n samples by the
// mirrored ramp, so buf starts and ends at zero.
func ApplyFade(buf []float64, n int) {
	if n > len(buf)/2 {
		n = len(buf) / 2
	}
	if n <= 0 {
		return
	}
	inv := 1 / float64(n)
	last := len(buf) - 1
	for i := 0; i < n; i++ {
		g := float64(i) * inv
		buf[i] *= g
		buf[last-i] *= g
	}
}

// Frames converts d to frames, returning at least two frames for any
// positive duration so the fade has somewhere to go.
func Frames(d time.Duration, sampleRate float64) int {
	n := core.Frames(d, sampleRate)
	if n > 0 && n < 2 {
		n = 2
	}
	return n
}
