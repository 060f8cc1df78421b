package player

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cwbudde/algo-focus/dsp/binaural"
	"github.com/cwbudde/algo-focus/dsp/buffer"
	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/internal/graph"
	"github.com/cwbudde/algo-focus/internal/host"
	"github.com/cwbudde/algo-focus/internal/source"
	"github.com/cwbudde/algo-focus/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 8000

type fakeTicker struct{ ch chan time.Time }

func (f *fakeTicker) Chan() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()                  {}

type fixture struct {
	dev    *host.Offline
	mgr    *graph.Manager
	player *Player
	ticker *fakeTicker
}

func newFixture(t *testing.T, logger *slog.Logger, selOpts ...strategy.Option) *fixture {
	t.Helper()
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	caps := host.Capabilities{Streaming: true, BlockSize: 256}
	dev := host.NewOffline(testRate, caps)
	h, err := host.New(dev)
	require.NoError(t, err)

	selOpts = append([]strategy.Option{
		strategy.WithSampleRate(testRate),
		strategy.WithNoiseOptions(noise.WithSeed(11)),
		strategy.WithLogger(logger),
	}, selOpts...)
	sel, err := strategy.New(caps, selOpts...)
	require.NoError(t, err)
	mgr, err := graph.NewManager(h, sel, graph.WithLogger(logger), graph.WithFadeDuration(5*time.Millisecond))
	require.NoError(t, err)

	ft := &fakeTicker{ch: make(chan time.Time)}
	p, err := New(mgr, WithLogger(logger), WithTicker(func(time.Duration) Ticker { return ft }))
	require.NoError(t, err)
	return &fixture{dev: dev, mgr: mgr, player: p, ticker: ft}
}

func (f *fixture) tick(t *testing.T, n int) {
	t.Helper()
	for range n {
		select {
		case f.ticker.ch <- time.Now():
		case <-time.After(time.Second):
			t.Fatal("session clock is not running")
		}
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.player.Start(ctx))
	st := f.player.Status()
	assert.True(t, st.Playing)
	assert.NotEmpty(t, st.StreamID)
	assert.Equal(t, graph.Binaural, st.Mode)
	assert.Equal(t, strategy.TierStreaming.String(), st.Tier)
	assert.Equal(t, "running", st.HostState)

	stream, ok := f.player.Stream()
	require.True(t, ok)
	require.NoError(t, f.player.Start(ctx))
	again, _ := f.player.Stream()
	assert.Equal(t, stream.ID, again.ID, "Start while playing must not create a stream")

	require.NoError(t, f.player.Stop(ctx))
	require.NoError(t, f.player.Stop(ctx))
	assert.False(t, f.player.Status().Playing)
	assert.Zero(t, f.mgr.NodeCount())
	_, ok = f.player.Stream()
	assert.False(t, ok)
}

func TestSetModeStopsPlayback(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.player.Start(ctx))

	require.NoError(t, f.player.SetMode(ctx, graph.Binaural))
	assert.True(t, f.player.Status().Playing, "same mode is a no-op")

	require.NoError(t, f.player.SetMode(ctx, graph.Drone))
	st := f.player.Status()
	assert.False(t, st.Playing)
	assert.Equal(t, graph.Drone, st.Mode)

	require.NoError(t, f.player.Start(ctx))
	assert.Equal(t, strategy.TierLoop.String(), f.player.Status().Tier)

	assert.Error(t, f.player.SetMode(ctx, graph.Mode(9)))
}

func TestSetNoiseColor(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.player.SetNoiseColor(ctx, noise.Brown))
	require.NoError(t, f.player.SetMode(ctx, graph.Noise))
	require.NoError(t, f.player.Start(ctx))
	assert.Equal(t, noise.Brown, f.player.Status().Color)

	require.NoError(t, f.player.SetNoiseColor(ctx, noise.Rain))
	st := f.player.Status()
	assert.True(t, st.Playing)
	assert.Equal(t, noise.Rain, st.Color)
	assert.Equal(t, strategy.TierLoop.String(), st.Tier)

	assert.Error(t, f.player.SetNoiseColor(ctx, noise.Color(42)))
}

func TestSetBeatFrequency(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		in       float64
		want     float64
		category binaural.Category
	}{
		{0.5, 1, binaural.Delta},
		{6, 6, binaural.Theta},
		{12, 12, binaural.Alpha},
		{45, 30, binaural.Beta},
	}
	for _, tt := range tests {
		pair, err := f.player.SetBeatFrequency(tt.in)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, pair.BeatHz, 1e-12)
		st := f.player.Status()
		assert.InDelta(t, tt.want, st.BeatHz, 1e-12)
		assert.Equal(t, tt.category, st.Category)
	}

	require.NoError(t, f.player.Start(context.Background()))
	pair, err := f.player.SetBeatFrequency(20)
	require.NoError(t, err)
	f.dev.Pull(nil, testRate/2)
	st := f.player.Status()
	assert.InDelta(t, pair.LeftHz, st.LeftHz, 0.5)
	assert.InDelta(t, pair.RightHz, st.RightHz, 0.5)
}

func TestMutePersistsAcrossSessions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.player.SetMuted(true))
	require.NoError(t, f.player.Start(ctx))

	out := f.dev.Pull(nil, 256)
	for _, v := range out {
		require.Zero(t, v)
	}
	stream, _ := f.player.Stream()
	assert.True(t, stream.Muted)

	require.NoError(t, f.player.SetMuted(false))
	out = f.dev.Pull(nil, 256)
	var energy float64
	for _, v := range out {
		energy += float64(v) * float64(v)
	}
	assert.Positive(t, energy)
}

func TestSessionAutoStop(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.player.SetSessionDuration(3*time.Second))
	require.NoError(t, f.player.Start(ctx))

	f.tick(t, 3)
	require.Eventually(t, func() bool { return !f.player.Status().Playing }, time.Second, 5*time.Millisecond)
	st := f.player.Status()
	assert.Equal(t, 3*time.Second, st.Elapsed)
	assert.Zero(t, f.mgr.NodeCount())

	// A finished session starts over.
	require.NoError(t, f.player.Start(ctx))
	assert.Zero(t, f.player.Status().Elapsed)
}

func TestElapsedSurvivesPause(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.player.SetSessionDuration(10*time.Second))

	require.NoError(t, f.player.Transport(ctx, Play))
	f.tick(t, 2)
	require.Eventually(t, func() bool { return f.player.Status().Elapsed == 2*time.Second }, time.Second, 5*time.Millisecond)
	require.NoError(t, f.player.Transport(ctx, Pause))

	require.NoError(t, f.player.Transport(ctx, Play))
	f.tick(t, 1)
	require.Eventually(t, func() bool { return f.player.Status().Elapsed == 3*time.Second }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.player.SetSessionDuration(0))
	st := f.player.Status()
	assert.Equal(t, DefaultDuration, st.Duration)
	assert.Zero(t, st.Elapsed)
	require.NoError(t, f.player.Transport(ctx, StopCommand))
}

func TestSpectrum(t *testing.T) {
	f := newFixture(t, nil)
	assert.Nil(t, f.player.Spectrum())

	require.NoError(t, f.player.SetMode(context.Background(), graph.Noise))
	require.NoError(t, f.player.Start(context.Background()))
	f.dev.Pull(nil, 4096)
	data := f.player.Spectrum()
	assert.Len(t, data, graph.DefaultFFTSize/2)
}

func TestVisibilityResumesHost(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.player.Start(ctx))

	h := f.mgr.Host()
	require.NoError(t, h.Suspend(ctx))
	require.NoError(t, f.player.VisibilityChanged(ctx, false))
	assert.Equal(t, host.StateSuspended, h.State())

	require.NoError(t, f.player.VisibilityChanged(ctx, true))
	assert.Equal(t, host.StateRunning, h.State())
}

func TestClose(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	require.NoError(t, f.player.Start(ctx))
	require.NoError(t, f.player.Close(ctx))

	assert.True(t, f.dev.Closed())
	assert.ErrorIs(t, f.player.Start(ctx), ErrClosed)
	assert.ErrorIs(t, f.player.Stop(ctx), ErrClosed)
	assert.ErrorIs(t, f.player.Close(ctx), ErrClosed)
	_, err := f.player.SetBeatFrequency(4)
	assert.ErrorIs(t, err, ErrClosed)
}

type panicky struct{}

func (panicky) Process(_, _ []float64) { panic("generator exploded") }

type syncBuffer struct {
	mu sync.Mutex
	bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Buffer.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Buffer.String()
}

func TestClockLogsGeneratorFaults(t *testing.T) {
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	faulty := strategy.Candidate{Tier: strategy.TierStreaming, Build: func(strategy.Request) (source.Source, error) {
		white, err := noise.New(noise.White, noise.WithSampleRate(testRate))
		if err != nil {
			return nil, err
		}
		src, err := source.NewStreaming(panicky{}, white, 0, testRate)
		if err != nil {
			return nil, err
		}
		return src, nil
	}}
	f := newFixture(t, logger, strategy.WithCandidates(faulty))
	ctx := context.Background()

	require.NoError(t, f.player.SetMode(ctx, graph.Noise))
	require.NoError(t, f.player.Start(ctx))
	out := f.dev.Pull(nil, 256)
	assert.NotZero(t, out[len(out)-1], "fallback should keep playing")

	f.tick(t, 1)
	require.Eventually(t, func() bool {
		return bytes.Contains([]byte(logs.String()), []byte("generator failed"))
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, f.player.Stop(ctx))
}

func TestFailedSwapClearsStream(t *testing.T) {
	loop, err := buffer.NewLoop(make([]float64, 256), make([]float64, 256), testRate)
	require.NoError(t, err)
	builds := 0
	stale := strategy.Candidate{Tier: strategy.TierLoop, Build: func(strategy.Request) (source.Source, error) {
		builds++
		src, err := source.NewLooped(loop)
		if err != nil {
			return nil, err
		}
		if builds > 1 {
			src.Stop()
		}
		return src, nil
	}}
	f := newFixture(t, nil, strategy.WithCandidates(stale))
	ctx := context.Background()

	require.NoError(t, f.player.SetMode(ctx, graph.Noise))
	require.NoError(t, f.player.Start(ctx))
	require.NoError(t, f.player.SetNoiseColor(ctx, noise.Brown))

	st := f.player.Status()
	assert.False(t, st.Playing)
	assert.Equal(t, noise.Brown, st.Color)
	assert.Equal(t, "suspended", st.HostState)
	_, ok := f.player.Stream()
	assert.False(t, ok)
	require.NoError(t, f.player.Stop(ctx))
}

func TestParseCommand(t *testing.T) {
	for in, want := range map[string]Command{"play": Play, "PAUSE": Pause, " stop": StopCommand} {
		got, err := ParseCommand(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCommand("rewind")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}
