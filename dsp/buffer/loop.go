package buffer

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmpty is returned when a loop would have no frames.
var ErrEmpty = errors.New("buffer: empty loop")

// Loop is an immutable stereo block played end to end.
type Loop struct {
	left       []float64
	right      []float64
	sampleRate float64
}

// NewLoop takes ownership of left and right, applies the edge fades, and
// returns the finished loop. Both channels must have the same length.
func NewLoop(left, right []float64, sampleRate float64) (*Loop, error) {
	if len(left) != len(right) {
		return nil, fmt.Errorf("loop channel length mismatch: %d != %d", len(left), len(right))
	}
	if len(left) == 0 {
		return nil, ErrEmpty
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("loop sample rate must be positive: %f", sampleRate)
	}

	fade := FadeFrames(sampleRate)
	ApplyFade(left, fade)
	ApplyFade(right, fade)

	return &Loop{left: left, right: right, sampleRate: sampleRate}, nil
}

// Len returns the loop length in frames.
func (l *Loop) Len() int { return len(l.left) }

// SampleRate returns the rate the loop was rendered at.
func (l *Loop) SampleRate() float64 { return l.sampleRate }

// Duration returns the loop length in time.
func (l *Loop) Duration() time.Duration {
	return time.Duration(float64(len(l.left)) / l.sampleRate * float64(time.Second))
}

// Frame returns frame i.
func (l *Loop) Frame(i int) (float64, float64) {
	return l.left[i], l.right[i]
}

// Read copies frames starting at pos into left and right, wrapping at the
// loop end, and returns the position after the last frame copied.
func (l *Loop) Read(left, right []float64, pos int) int {
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	size := len(l.left)
	pos %= size
	done := 0
	for done < n {
		chunk := size - pos
		if chunk > n-done {
			chunk = n - done
		}
		copy(left[done:done+chunk], l.left[pos:pos+chunk])
		copy(right[done:done+chunk], l.right[pos:pos+chunk])
		done += chunk
		pos += chunk
		if pos == size {
			pos = 0
		}
	}
	return pos
}
