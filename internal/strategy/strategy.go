// Package strategy picks how a source is generated. Candidates are tried in
// a fixed order, from the lowest-latency path down to a pre-rendered
// fallback that cannot fail; each failure is recorded as an *InitError and
// the next candidate is tried.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cwbudde/algo-focus/dsp/binaural"
	"github.com/cwbudde/algo-focus/dsp/buffer"
	"github.com/cwbudde/algo-focus/dsp/core"
	"github.com/cwbudde/algo-focus/dsp/drone"
	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/internal/host"
	"github.com/cwbudde/algo-focus/internal/source"
)

var (
	// ErrNotAvailable means the host lacks the capability a tier needs.
	ErrNotAvailable = errors.New("strategy: tier not available on this host")
	// ErrUnsupported means the tier cannot produce the requested sound.
	ErrUnsupported = errors.New("strategy: request not supported by tier")
)

// Tier identifies a generation path, in preference order.
type Tier int

const (
	TierStreaming Tier = iota
	TierBlock
	TierLoop
	// TierFallback never fails: white noise for noise requests, a plain
	// oscillator for tone requests.
	TierFallback
)

func (t Tier) String() string {
	switch t {
	case TierStreaming:
		return "streaming"
	case TierBlock:
		return "block"
	case TierLoop:
		return "loop"
	case TierFallback:
		return "fallback"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Request describes the source to build.
type Request struct {
	Mode  Mode
	Color noise.Color
	// Tone renders the binaural pair; required for Binaural requests.
	Tone source.Renderer
	// BeatPair is used by the fallback oscillator when Tone is unusable.
	BeatPair binaural.Pair
}

// InitError records why a tier could not build a source.
type InitError struct {
	Tier Tier
	Err  error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s tier: %v", e.Tier, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Candidate is one entry of the ordered preference list.
type Candidate struct {
	Tier  Tier
	Build func(req Request) (source.Source, error)
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the logger for tier failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSampleRate sets the rendering rate (default 48 kHz).
func WithSampleRate(sampleRate float64) Option {
	return func(s *Selector) {
		if sampleRate > 0 {
			s.sampleRate = sampleRate
		}
	}
}

// WithCandidates replaces the default candidate list. The built-in
// fallback still runs when every candidate fails.
func WithCandidates(c ...Candidate) Option {
	return func(s *Selector) { s.candidates = c }
}

// WithCache shares a loop cache with the caller.
func WithCache(c *buffer.Cache) Option {
	return func(s *Selector) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithNoiseOptions passes options to every noise synthesizer built.
func WithNoiseOptions(opts ...noise.Option) Option {
	return func(s *Selector) { s.noiseOpts = opts }
}

// Selector builds sources for requests.
type Selector struct {
	caps       host.Capabilities
	sampleRate float64
	log        *slog.Logger
	cache      *buffer.Cache
	noiseOpts  []noise.Option
	candidates []Candidate

	whiteOnce sync.Once
	white     *buffer.Loop
	whiteErr  error

	mu       sync.Mutex
	failures []*InitError
}

// New probes caps once and returns a Selector with the default candidates.
func New(caps host.Capabilities, opts ...Option) (*Selector, error) {
	s := &Selector{
		caps:       caps,
		sampleRate: core.DefaultProcessorConfig().SampleRate,
		log:        slog.Default(),
		cache:      buffer.NewCache(),
	}
	s.candidates = s.defaultCandidates()
	for _, opt := range opts {
		opt(s)
	}
	if caps.BlockSize < 0 {
		return nil, fmt.Errorf("strategy block size must be >= 0: %d", caps.BlockSize)
	}
	return s, nil
}

// Capabilities returns the probed host capabilities.
func (s *Selector) Capabilities() host.Capabilities { return s.caps }

// Cache returns the loop cache.
func (s *Selector) Cache() *buffer.Cache { return s.cache }

// Select returns the first source a candidate can build, along with its
// tier. It always returns a usable source.
func (s *Selector) Select(req Request) (source.Source, Tier) {
	var failures []*InitError
	defer func() {
		s.mu.Lock()
		s.failures = failures
		s.mu.Unlock()
	}()

	for _, c := range s.candidates {
		src, err := s.try(c, req)
		if err == nil {
			return src, c.Tier
		}
		ie := &InitError{Tier: c.Tier, Err: err}
		failures = append(failures, ie)
		level := slog.LevelWarn
		if errors.Is(err, ErrNotAvailable) || errors.Is(err, ErrUnsupported) {
			level = slog.LevelDebug
		}
		s.log.Log(context.Background(), level, "generation tier failed", "tier", c.Tier, "mode", req.Mode, "color", req.Color, "err", err)
	}

	src, err := s.fallback(req)
	if err != nil {
		// The pre-rendered white loop is the last resort for every mode.
		failures = append(failures, &InitError{Tier: TierFallback, Err: err})
		s.log.Error("fallback tier failed", "mode", req.Mode, "err", err)
		src = s.mustWhite()
	}
	return src, TierFallback
}

// LastFailures returns the tier failures of the most recent Select.
func (s *Selector) LastFailures() []*InitError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*InitError(nil), s.failures...)
}

// try runs one candidate, converting a panic during construction into an
// error.
func (s *Selector) try(c Candidate, req Request) (src source.Source, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	if c.Build == nil {
		return nil, ErrUnsupported
	}
	src, err = c.Build(req)
	if err == nil && src == nil {
		err = errors.New("candidate returned no source")
	}
	return src, err
}

func (s *Selector) defaultCandidates() []Candidate {
	return []Candidate{
		{Tier: TierStreaming, Build: s.buildStreaming},
		{Tier: TierBlock, Build: s.buildBlock},
		{Tier: TierLoop, Build: s.buildLoop},
	}
}

func (s *Selector) buildStreaming(req Request) (source.Source, error) {
	if !s.caps.Streaming {
		return nil, ErrNotAvailable
	}
	switch req.Mode {
	case Binaural:
		if req.Tone == nil {
			return nil, fmt.Errorf("%w: binaural request without tone", ErrUnsupported)
		}
		return built(source.NewOscillator(req.Tone))
	case Noise:
		return s.streamingNoise(req.Color, 0)
	default:
		return nil, ErrUnsupported
	}
}

func (s *Selector) buildBlock(req Request) (source.Source, error) {
	if s.caps.BlockSize <= 0 {
		return nil, ErrNotAvailable
	}
	switch req.Mode {
	case Binaural:
		if req.Tone == nil {
			return nil, fmt.Errorf("%w: binaural request without tone", ErrUnsupported)
		}
		return built(source.NewStreaming(req.Tone, silence{}, s.caps.BlockSize, s.sampleRate))
	case Noise:
		return s.streamingNoise(req.Color, s.caps.BlockSize)
	default:
		return nil, ErrUnsupported
	}
}

func (s *Selector) streamingNoise(color noise.Color, blockSize int) (source.Source, error) {
	if !color.Streamable() {
		return nil, fmt.Errorf("%w: %s has no streaming form", ErrUnsupported, color)
	}
	gen, err := noise.New(color, s.synthOptions()...)
	if err != nil {
		return nil, err
	}
	white, err := noise.New(noise.White, s.synthOptions()...)
	if err != nil {
		return nil, err
	}
	return built(source.NewStreaming(gen, white, blockSize, s.sampleRate))
}

func (s *Selector) buildLoop(req Request) (source.Source, error) {
	var (
		loop *buffer.Loop
		err  error
	)
	switch req.Mode {
	case Noise:
		loop, err = s.cache.Get(buffer.NoiseKey(req.Color), func() (*buffer.Loop, error) {
			l, got, err := buffer.NoiseLoop(req.Color, s.sampleRate, s.noiseOpts...)
			if err == nil && got != req.Color {
				s.log.Warn("noise loop rendered as white", "color", req.Color)
			}
			return l, err
		})
	case Drone:
		loop, err = s.cache.Get(drone.Key, func() (*buffer.Loop, error) {
			return drone.Render(s.sampleRate)
		})
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, err
	}
	return built(source.NewLooped(loop))
}

func (s *Selector) fallback(req Request) (source.Source, error) {
	switch req.Mode {
	case Drone:
		tone, err := binaural.NewTone(s.sampleRate, drone.Frequency, drone.Frequency)
		if err != nil {
			return nil, err
		}
		return built(source.NewOscillator(tone))
	case Binaural:
		if req.Tone != nil {
			return built(source.NewOscillator(req.Tone))
		}
		p := req.BeatPair
		if p.CarrierHz == 0 {
			p = binaural.NewPair(binaural.DefaultBeatHz)
		}
		tone, err := binaural.NewTone(s.sampleRate, p.LeftHz, p.RightHz)
		if err != nil {
			return nil, err
		}
		return built(source.NewOscillator(tone))
	default:
		return s.mustWhite(), nil
	}
}

// mustWhite returns a fresh looped source over the shared white loop.
func (s *Selector) mustWhite() source.Source {
	s.whiteOnce.Do(func() {
		s.white, _, s.whiteErr = buffer.NoiseLoop(noise.White, s.sampleRate, s.noiseOpts...)
	})
	if s.whiteErr != nil {
		// Only reachable with an invalid sample rate, which New rejects.
		panic(fmt.Sprintf("strategy: white loop: %v", s.whiteErr))
	}
	src, _ := source.NewLooped(s.white)
	return src
}

func (s *Selector) synthOptions() []noise.Option {
	return append([]noise.Option{noise.WithSampleRate(s.sampleRate)}, s.noiseOpts...)
}

// built adapts a concrete constructor result to the sealed interface
// without leaking a typed nil.
func built[T source.Source](src T, err error) (source.Source, error) {
	if err != nil {
		return nil, err
	}
	return src, nil
}

type silence struct{}

func (silence) Process(left, right []float64) {
	clear(left)
	clear(right)
}
