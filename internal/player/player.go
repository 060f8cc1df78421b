// Package player is the control surface of the engine: it holds the user's
// choices (mode, color, beat, mute, session length), turns them into graph
// builds and teardowns, and runs the session clock.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cwbudde/algo-focus/dsp/binaural"
	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/internal/graph"
	"github.com/cwbudde/algo-focus/internal/host"
	"github.com/cwbudde/algo-focus/internal/source"
	"github.com/cwbudde/algo-focus/internal/strategy"
	"github.com/google/uuid"
)

// ErrClosed is returned by every method after Close.
var ErrClosed = errors.New("player: closed")

// ErrUnknownCommand is returned by ParseCommand.
var ErrUnknownCommand = errors.New("player: unknown transport command")

// Command is a media-transport action from a lock screen or remote.
type Command int

const (
	Play Command = iota
	Pause
	StopCommand
)

func (c Command) String() string {
	switch c {
	case Play:
		return "play"
	case Pause:
		return "pause"
	case StopCommand:
		return "stop"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// ParseCommand resolves a transport command name.
func ParseCommand(s string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "play":
		return Play, nil
	case "pause":
		return Pause, nil
	case "stop":
		return StopCommand, nil
	}
	return Play, fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// Stream is the live audio session. At most one exists per Player.
type Stream struct {
	ID      uuid.UUID
	Mode    graph.Mode
	Muted   bool
	Started time.Time
}

// Status is a point-in-time snapshot for a UI.
type Status struct {
	Playing   bool              `json:"playing"`
	StreamID  string            `json:"streamId,omitempty"`
	Mode      graph.Mode        `json:"mode"`
	Color     noise.Color       `json:"color"`
	BeatHz    float64           `json:"beatHz"`
	LeftHz    float64           `json:"leftHz"`
	RightHz   float64           `json:"rightHz"`
	Category  binaural.Category `json:"category"`
	Muted     bool              `json:"muted"`
	Elapsed   time.Duration     `json:"elapsed"`
	Duration  time.Duration     `json:"duration"`
	Tier      string            `json:"tier,omitempty"`
	HostState string            `json:"hostState"`
}

// Option configures a Player.
type Option func(*Player)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Player) {
		if l != nil {
			p.log = l
		}
	}
}

// WithTicker replaces the session clock's ticker factory.
func WithTicker(fn func(time.Duration) Ticker) Option {
	return func(p *Player) { p.newTicker = fn }
}

// WithMode sets the initial mode.
func WithMode(m graph.Mode) Option {
	return func(p *Player) {
		if m.Valid() {
			p.mode = m
		}
	}
}

// WithNoiseColor sets the initial noise color.
func WithNoiseColor(c noise.Color) Option {
	return func(p *Player) {
		if c.Valid() {
			p.color = c
		}
	}
}

// WithBeatFrequency sets the initial binaural beat.
func WithBeatFrequency(hz float64) Option {
	return func(p *Player) { p.beat = binaural.NewPair(hz).BeatHz }
}

// Player drives a graph.Manager from user intents.
type Player struct {
	mgr       *graph.Manager
	log       *slog.Logger
	newTicker func(time.Duration) Ticker
	clock     *SessionClock

	mu     sync.Mutex
	closed bool
	mode   graph.Mode
	color  noise.Color
	beat   float64
	muted  bool
	stream *Stream

	// Touched only by the clock goroutine, which never overlaps itself.
	seen source.Stats
}

// New returns an idle Player in binaural mode at the default beat.
func New(mgr *graph.Manager, opts ...Option) (*Player, error) {
	if mgr == nil {
		return nil, errors.New("player: nil graph manager")
	}
	p := &Player{
		mgr:   mgr,
		log:   slog.Default(),
		mode:  graph.Binaural,
		color: noise.Pink,
		beat:  binaural.DefaultBeatHz,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.clock = NewSessionClock(p.newTicker, p.onTick, p.onExpire)
	return p, nil
}

// Start begins playback of the current mode. It is a no-op while playing.
// A graph that fails to start twice leaves the player idle; the failure is
// logged, not returned.
func (p *Player) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.stream != nil {
		return nil
	}

	params := graph.Params{Color: p.color, BeatHz: p.beat, Muted: p.muted}
	if err := p.mgr.Build(ctx, p.mode, params); err != nil {
		p.log.Error("playback start failed", "mode", p.mode, "err", err)
		return nil
	}
	p.stream = &Stream{ID: uuid.New(), Mode: p.mode, Muted: p.muted, Started: time.Now()}
	p.seen = source.Stats{}
	p.clock.Start()
	p.log.Info("stream started", "id", p.stream.ID, "mode", p.mode)
	return nil
}

// Stop tears the graph down. It is idempotent.
func (p *Player) Stop(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.stopLocked(ctx)
	return nil
}

func (p *Player) stopLocked(ctx context.Context) {
	p.clock.Stop()
	if err := p.mgr.Teardown(ctx); err != nil {
		p.log.Warn("teardown reported errors", "err", err)
	}
	if p.stream != nil {
		p.log.Info("stream stopped", "id", p.stream.ID, "elapsed", p.clock.Elapsed())
		p.stream = nil
	}
}

// SetMode switches mode. A playing session is stopped first; the new mode
// plays on the next Start.
func (p *Player) SetMode(ctx context.Context, m graph.Mode) error {
	if !m.Valid() {
		return fmt.Errorf("player mode %d: %w", int(m), strategy.ErrUnknownMode)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if m == p.mode {
		return nil
	}
	if p.stream != nil {
		p.stopLocked(ctx)
	}
	p.mode = m
	return nil
}

// SetNoiseColor stores the color and, when noise is playing, swaps the
// live source behind a short fade.
func (p *Player) SetNoiseColor(ctx context.Context, c noise.Color) error {
	if !c.Valid() {
		return fmt.Errorf("player color %d: %w", int(c), noise.ErrUnsupported)
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.color = c
	live := p.stream != nil && p.mode == graph.Noise
	p.mu.Unlock()
	if !live {
		return nil
	}

	// Unlocked so a newer color choice can supersede this fade.
	err := p.mgr.SwapNoise(ctx, c)
	switch {
	case err == nil, errors.Is(err, graph.ErrSuperseded), errors.Is(err, graph.ErrIdle):
	case errors.Is(err, graph.ErrAborted):
		p.log.Warn("noise swap failed, playback stopped", "color", c, "err", err)
		p.mu.Lock()
		if p.stream != nil && !p.mgr.Running() {
			p.clock.Stop()
			p.stream = nil
		}
		p.mu.Unlock()
	default:
		p.log.Warn("noise swap failed", "color", c, "err", err)
	}
	return nil
}

// SetBeatFrequency clamps hz to the supported range and retunes a live
// binaural session.
func (p *Player) SetBeatFrequency(hz float64) (binaural.Pair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return binaural.Pair{}, ErrClosed
	}
	pair := binaural.NewPair(hz)
	p.beat = pair.BeatHz
	if p.stream != nil {
		p.mgr.SetBeatFrequency(pair.BeatHz)
	}
	return pair, nil
}

// SetMuted toggles the master gain. The choice persists across sessions.
func (p *Player) SetMuted(muted bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.muted = muted
	if p.stream != nil {
		p.stream.Muted = muted
		p.mgr.SetMuted(muted)
	}
	return nil
}

// SetSessionDuration sets the session length and restarts the count. Zero
// selects DefaultDuration.
func (p *Player) SetSessionDuration(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.clock.SetDuration(d)
	return nil
}

// Spectrum returns a fresh byte spectrum of the output, or nil when idle.
func (p *Player) Spectrum() []uint8 {
	p.mu.Lock()
	playing := p.stream != nil
	p.mu.Unlock()
	if !playing {
		return nil
	}
	return p.mgr.Analyser().ByteFrequencyData(nil)
}

// VisibilityChanged handles the UI returning from the background: a
// suspended host is resumed and the binaural pair retuned.
func (p *Player) VisibilityChanged(ctx context.Context, visible bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if !visible || p.stream == nil {
		return nil
	}
	h := p.mgr.Host()
	if h.State() == host.StateSuspended {
		if err := h.Resume(ctx); err != nil {
			p.log.Warn("host resume after visibility change failed", "err", err)
			return nil
		}
		p.log.Debug("host resumed after visibility change")
	}
	p.mgr.Retune()
	return nil
}

// Transport maps media-key commands onto Start and Stop.
func (p *Player) Transport(ctx context.Context, cmd Command) error {
	switch cmd {
	case Play:
		return p.Start(ctx)
	case Pause, StopCommand:
		return p.Stop(ctx)
	default:
		return fmt.Errorf("%w: %d", ErrUnknownCommand, int(cmd))
	}
}

// Stream returns the live stream, if any.
func (p *Player) Stream() (Stream, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stream == nil {
		return Stream{}, false
	}
	return *p.stream, true
}

// Status returns a snapshot of the player.
func (p *Player) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	pair := binaural.NewPair(p.beat)
	st := Status{
		Playing:   p.stream != nil,
		Mode:      p.mode,
		Color:     p.color,
		BeatHz:    pair.BeatHz,
		LeftHz:    pair.LeftHz,
		RightHz:   pair.RightHz,
		Category:  binaural.CategoryOf(pair.BeatHz),
		Muted:     p.muted,
		Elapsed:   p.clock.Elapsed(),
		Duration:  p.clock.Duration(),
		HostState: p.mgr.Host().State().String(),
	}
	if p.stream != nil {
		st.StreamID = p.stream.ID.String()
		if l, r, ok := p.mgr.Frequencies(); ok {
			st.LeftHz, st.RightHz = l, r
		}
		if rep, ok := p.mgr.Source(); ok {
			st.Tier = rep.Tier.String()
		}
	}
	return st
}

// Close stops playback and releases the host. Later calls return ErrClosed.
func (p *Player) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.stopLocked(ctx)
	p.closed = true
	return p.mgr.Host().Close()
}

func (p *Player) onExpire() {
	p.log.Info("session duration reached")
	if err := p.Stop(context.Background()); err != nil && !errors.Is(err, ErrClosed) {
		p.log.Warn("auto-stop failed", "err", err)
	}
}

// onTick surfaces render-path counters, which the render path itself
// cannot log.
func (p *Player) onTick(time.Duration) {
	rep, ok := p.mgr.Source()
	if !ok {
		return
	}
	if rep.Stats.Faults > p.seen.Faults {
		p.log.Warn("generator failed, playing white noise", "tier", rep.Tier, "err", rep.Fault)
	}
	if rep.Stats.Overruns > p.seen.Overruns {
		p.log.Warn("render block over budget", "tier", rep.Tier, "overruns", rep.Stats.Overruns-p.seen.Overruns)
	}
	p.seen = rep.Stats
}
