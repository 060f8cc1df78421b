package source

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-focus/dsp/core"
)

// Streaming pulls from a generator as the host asks for frames.
//
// With a zero block size the generator fills exactly the frames requested.
// With a positive block size the generator always fills whole blocks into
// an internal buffer that the host drains; each block generation is timed
// against the block's real-time budget and overruns are counted.
//
// A generator panic is recovered at the block boundary; from then on the
// fallback renderer (normally white noise) supplies the rest of the session.
type Streaming struct {
	lifecycle

	gen       Renderer
	fallback  Renderer
	failed    bool
	blockSize int
	budget    time.Duration
	blockL    []float64
	blockR    []float64
	readPos   int
	overruns  atomic.Uint64
	faults    atomic.Uint64
	lastFault atomic.Pointer[error]
	clock     func() time.Time
}

// StreamingOption configures a Streaming source.
type StreamingOption func(*Streaming)

// WithClock replaces time.Now for budget measurement.
func WithClock(now func() time.Time) StreamingOption {
	return func(s *Streaming) { s.clock = now }
}

// NewStreaming wraps gen. fallback takes over after a generator panic.
func NewStreaming(gen, fallback Renderer, blockSize int, sampleRate float64, opts ...StreamingOption) (*Streaming, error) {
	if gen == nil || fallback == nil {
		return nil, errors.New("source: nil generator")
	}
	if blockSize < 0 {
		return nil, fmt.Errorf("source block size must be >= 0: %d", blockSize)
	}
	s := &Streaming{
		gen:       gen,
		fallback:  fallback,
		blockSize: blockSize,
		clock:     time.Now,
	}
	if blockSize > 0 {
		s.budget = core.BlockBudget(blockSize, sampleRate)
		s.blockL = make([]float64, blockSize)
		s.blockR = make([]float64, blockSize)
		s.readPos = blockSize
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Kind returns KindStreaming.
func (*Streaming) Kind() Kind { return KindStreaming }

// BlockSize returns the fixed generation block, or 0 for per-request.
func (s *Streaming) BlockSize() int { return s.blockSize }

// Process renders the next frames.
func (s *Streaming) Process(left, right []float64) {
	if !s.silenceUnlessRunning(left, right) {
		return
	}
	n := len(left)
	if len(right) < n {
		n = len(right)
	}
	s.frames.Add(uint64(n))

	if s.blockSize == 0 {
		s.generate(left[:n], right[:n])
		return
	}

	done := 0
	for done < n {
		if s.readPos == s.blockSize {
			start := s.clock()
			s.generate(s.blockL, s.blockR)
			if s.clock().Sub(start) > s.budget {
				s.overruns.Add(1)
			}
			s.readPos = 0
		}
		c := copy(left[done:n], s.blockL[s.readPos:])
		copy(right[done:done+c], s.blockR[s.readPos:s.readPos+c])
		s.readPos += c
		done += c
	}
}

func (s *Streaming) generate(left, right []float64) {
	if s.failed {
		s.fallback.Process(left, right)
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.failed = true
			err := fmt.Errorf("generator panic: %v", r)
			s.lastFault.Store(&err)
			s.faults.Add(1)
			s.fallback.Process(left, right)
		}
	}()
	s.gen.Process(left, right)
}

// Stats returns render counters.
func (s *Streaming) Stats() Stats {
	return Stats{
		Frames:   s.frames.Load(),
		Overruns: s.overruns.Load(),
		Faults:   s.faults.Load(),
	}
}

// LastFault returns the recovered panic, if any.
func (s *Streaming) LastFault() error {
	if p := s.lastFault.Load(); p != nil {
		return *p
	}
	return nil
}
