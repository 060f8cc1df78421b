// Package graph owns the signal chain of a playback session: it builds the
// per-mode chain on top of a host context, publishes it to the render path
// and tears it down with a click-free fade.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-focus/dsp/binaural"
	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/dsp/spectrum"
	"github.com/cwbudde/algo-focus/internal/host"
	"github.com/cwbudde/algo-focus/internal/source"
	"github.com/cwbudde/algo-focus/internal/strategy"
)

// Mode is re-exported so callers need not import strategy.
type Mode = strategy.Mode

const (
	Binaural = strategy.Binaural
	Noise    = strategy.Noise
	Drone    = strategy.Drone
)

const (
	// DefaultFadeDuration is the master fade on teardown and the channel
	// fade on a noise swap.
	DefaultFadeDuration = 100 * time.Millisecond
	// DefaultFFTSize is the analyser transform length.
	DefaultFFTSize = 2048

	// fadeGrace bounds how long a fade wait may overrun before the
	// teardown proceeds without it.
	fadeGrace = 150 * time.Millisecond
	// startAttempts is the initial attempt plus one rebuild.
	startAttempts = 2
)

var (
	// ErrBusy is returned by Build while a chain is live.
	ErrBusy = errors.New("graph: already running")
	// ErrIdle is returned by operations that need a live chain.
	ErrIdle = errors.New("graph: not running")
	// ErrWrongMode is returned by SwapNoise outside noise mode.
	ErrWrongMode = errors.New("graph: operation not valid in current mode")
	// ErrSuperseded is returned when a newer swap or teardown cancelled a fade.
	ErrSuperseded = errors.New("graph: superseded")
	// ErrAborted is returned when a swap could not start a replacement
	// source and the manager fell back to idle.
	ErrAborted = errors.New("graph: playback aborted")
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the control-path logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

// WithFadeDuration overrides DefaultFadeDuration.
func WithFadeDuration(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.fade = d
		}
	}
}

// WithFFTSize overrides DefaultFFTSize.
func WithFFTSize(n int) Option {
	return func(m *Manager) { m.fftSize = n }
}

// Manager builds, mutates and tears down the live chain. Control methods
// are safe for concurrent use; Render is the only render-path entry.
type Manager struct {
	host     *host.Context
	selector *strategy.Selector
	log      *slog.Logger
	fade     time.Duration
	fftSize  int
	analyser *spectrum.Analyser

	live atomic.Pointer[chain]

	mu         sync.Mutex
	cur        *chain
	swapCancel context.CancelFunc
	swapGen    uint64
}

// NewManager installs the manager's render function on h.
func NewManager(h *host.Context, sel *strategy.Selector, opts ...Option) (*Manager, error) {
	if h == nil || sel == nil {
		return nil, errors.New("graph: nil host or selector")
	}
	m := &Manager{
		host:     h,
		selector: sel,
		log:      slog.Default(),
		fade:     DefaultFadeDuration,
		fftSize:  DefaultFFTSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	an, err := spectrum.NewAnalyser(m.fftSize)
	if err != nil {
		return nil, fmt.Errorf("graph analyser: %w", err)
	}
	m.analyser = an
	h.SetRenderer(m.Render)
	return m, nil
}

// Render is installed on the host. It never blocks or allocates once the
// scratch buffers have grown to the device block size.
func (m *Manager) Render(left, right []float64) {
	c := m.live.Load()
	if c == nil {
		clear(left)
		clear(right)
		return
	}
	c.render(left, right, m.analyser)
}

// Build constructs the chain for mode, starts its source and resumes the
// host. A start failure triggers one full rebuild; a second failure leaves
// the manager idle and is returned.
func (m *Manager) Build(ctx context.Context, mode Mode, p Params) error {
	if !mode.Valid() {
		return fmt.Errorf("graph build: %w", strategy.ErrUnknownMode)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil {
		return ErrBusy
	}

	var lastErr error
	for attempt := 1; attempt <= startAttempts; attempt++ {
		c, err := m.start(ctx, mode, p)
		if err == nil {
			m.cur = c
			m.log.Info("graph running", "mode", mode, "tier", c.source().tier, "nodes", c.topology.Len())
			return nil
		}
		lastErr = err
		m.log.Warn("graph start failed", "mode", mode, "attempt", attempt, "err", err)
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("graph build %s: %w", mode, lastErr)
}

func (m *Manager) start(ctx context.Context, mode Mode, p Params) (*chain, error) {
	c, err := newChain(mode, p, m.host.SampleRate())
	if err != nil {
		return nil, err
	}
	src, tier := m.selector.Select(c.request())
	if err := src.Start(); err != nil {
		src.Stop()
		return nil, fmt.Errorf("start %s source: %w", tier, err)
	}
	c.slot.Store(&sourceSlot{src: src, tier: tier})
	c.describe(SettingsFor(mode))

	m.analyser.Reset()
	m.live.Store(c)
	if err := m.host.Resume(ctx); err != nil {
		m.live.Store(nil)
		c.release()
		return nil, err
	}
	return c, nil
}

// Teardown fades the master gain out, stops every source, disconnects the
// chain and suspends the host. It is a no-op when idle and always runs to
// completion; ctx only shortens the fade wait.
func (m *Manager) Teardown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.cur
	if c == nil {
		return nil
	}
	m.cancelSwap()

	if m.host.State() == host.StateRunning {
		done := c.master.LinearRamp(0, m.fade)
		if err := m.wait(ctx, done); err != nil {
			m.log.Debug("teardown fade cut short", "err", err)
			c.master.SetValue(0)
		}
	}

	err := m.dispose(ctx, c)
	m.log.Info("graph stopped", "mode", c.mode)
	return err
}

// dispose stops the sources of c, unpublishes it and suspends the host.
// It must be called with mu held.
func (m *Manager) dispose(ctx context.Context, c *chain) error {
	c.release()
	m.live.Store(nil)

	var err error
	if serr := m.host.Suspend(context.WithoutCancel(ctx)); serr != nil && !errors.Is(serr, host.ErrClosed) {
		err = serr
		m.log.Warn("host suspend failed", "err", serr)
	}
	m.cur = nil
	m.analyser.Reset()
	return err
}

// SwapNoise replaces the noise source with color behind a channel fade.
// A newer swap or teardown cancels a fade in flight; the cancelled call
// returns ErrSuperseded.
func (m *Manager) SwapNoise(ctx context.Context, color noise.Color) error {
	if !color.Valid() {
		return fmt.Errorf("graph swap: %w", noise.ErrUnsupported)
	}

	m.mu.Lock()
	c := m.cur
	if c == nil {
		m.mu.Unlock()
		return ErrIdle
	}
	if c.mode != Noise {
		m.mu.Unlock()
		return ErrWrongMode
	}
	m.cancelSwap()
	opCtx, cancel := context.WithCancel(ctx)
	m.swapCancel = cancel
	m.swapGen++
	gen := m.swapGen
	m.mu.Unlock()
	defer cancel()

	outL := c.gainL.LinearRamp(0, m.fade)
	outR := c.gainR.LinearRamp(0, m.fade)
	if err := m.waitAll(opCtx, outL, outR); err != nil {
		return m.superseded(err)
	}

	m.mu.Lock()
	if m.cur != c || m.swapGen != gen {
		m.mu.Unlock()
		return ErrSuperseded
	}
	c.color = color
	src, tier, err := m.startSource(c)
	if err != nil {
		// The channels are already silent; drop to idle rather than keep a
		// muted chain running.
		if derr := m.dispose(ctx, c); derr != nil {
			err = errors.Join(err, derr)
		}
		m.mu.Unlock()
		m.log.Warn("noise swap aborted", "color", color, "err", err)
		return fmt.Errorf("graph swap %s: %w: %w", color, ErrAborted, err)
	}
	old := c.slot.Swap(&sourceSlot{src: src, tier: tier})
	if old != nil {
		old.src.Stop()
	}
	c.describe(SettingsFor(c.mode))
	m.mu.Unlock()
	m.log.Info("noise swapped", "color", color, "tier", tier)

	inL := c.gainL.LinearRamp(ChannelGain, m.fade)
	inR := c.gainR.LinearRamp(ChannelGain, m.fade)
	if err := m.waitAll(opCtx, inL, inR); err != nil {
		// The new source is live; only the fade-in was cut short.
		m.log.Debug("swap fade-in interrupted", "err", err)
	}
	return nil
}

// startSource selects and starts a source for c's request, retrying once
// with a freshly selected source.
func (m *Manager) startSource(c *chain) (source.Source, strategy.Tier, error) {
	var lastErr error
	for attempt := 1; attempt <= startAttempts; attempt++ {
		src, tier := m.selector.Select(c.request())
		err := src.Start()
		if err == nil {
			return src, tier, nil
		}
		src.Stop()
		lastErr = fmt.Errorf("start %s source: %w", tier, err)
		m.log.Warn("source start failed", "attempt", attempt, "err", lastErr)
	}
	return nil, 0, lastErr
}

func (m *Manager) superseded(err error) error {
	if errors.Is(err, context.Canceled) {
		return ErrSuperseded
	}
	return err
}

// cancelSwap must be called with mu held.
func (m *Manager) cancelSwap() {
	if m.swapCancel != nil {
		m.swapCancel()
		m.swapCancel = nil
	}
	m.swapGen++
}

// wait blocks until done closes or ctx ends. A fade that overruns by
// fadeGrace, because the host stopped pulling, is treated as finished.
func (m *Manager) wait(ctx context.Context, done <-chan struct{}) error {
	timer := time.NewTimer(m.fade + fadeGrace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		m.log.Debug("fade wait timed out", "host", m.host.State())
	case <-ctx.Done():
	}
	return ctx.Err()
}

func (m *Manager) waitAll(ctx context.Context, chans ...<-chan struct{}) error {
	for _, ch := range chans {
		if err := m.wait(ctx, ch); err != nil {
			return err
		}
	}
	return nil
}

// SetMuted sets the master gain to 0 or 1.
func (m *Manager) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return
	}
	if muted {
		m.cur.master.SetValue(0)
	} else {
		m.cur.master.SetValue(1)
	}
}

// SetBeatFrequency retunes the live binaural pair. It reports false when
// no binaural chain is running.
func (m *Manager) SetBeatFrequency(hz float64) (binaural.Pair, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil || m.cur.ctrl == nil {
		return binaural.NewPair(hz), false
	}
	return m.cur.ctrl.SetBeatFrequency(hz), true
}

// Retune reissues the binaural targets, used after the host resumes from
// a background suspension.
func (m *Manager) Retune() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur != nil && m.cur.ctrl != nil {
		m.cur.ctrl.Retune()
	}
}

// Frequencies returns the current left and right oscillator frequencies.
func (m *Manager) Frequencies() (float64, float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil || m.cur.ctrl == nil {
		return 0, 0, false
	}
	l, r := m.cur.ctrl.Frequencies()
	return l, r, true
}

// Topology returns a copy of the live node list.
func (m *Manager) Topology() Topology {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return Topology{}
	}
	return m.cur.topology.clone()
}

// NodeCount is the number of connected nodes; zero when idle.
func (m *Manager) NodeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return 0
	}
	return m.cur.topology.Len()
}

// Running reports whether a chain is live.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cur != nil
}

// Mode returns the live mode.
func (m *Manager) Mode() (Mode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return 0, false
	}
	return m.cur.mode, true
}

// Tier returns the generation tier of the live source.
func (m *Manager) Tier() (strategy.Tier, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return 0, false
	}
	slot := m.cur.source()
	if slot == nil {
		return 0, false
	}
	return slot.tier, true
}

// SourceReport describes the live source for diagnostics.
type SourceReport struct {
	Tier  strategy.Tier
	Kind  source.Kind
	Stats source.Stats
	Fault error
}

// Source returns a report on the live source.
func (m *Manager) Source() (SourceReport, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cur == nil {
		return SourceReport{}, false
	}
	slot := m.cur.source()
	if slot == nil {
		return SourceReport{}, false
	}
	return SourceReport{
		Tier:  slot.tier,
		Kind:  slot.src.Kind(),
		Stats: slot.src.Stats(),
		Fault: slot.src.LastFault(),
	}, true
}

// Analyser returns the spectrum tap. It stays valid across rebuilds.
func (m *Manager) Analyser() *spectrum.Analyser { return m.analyser }

// Host returns the host context the manager renders into.
func (m *Manager) Host() *host.Context { return m.host }
