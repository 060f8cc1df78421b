package main

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/internal/config"
	"github.com/cwbudde/algo-focus/internal/engine"
	"github.com/cwbudde/algo-focus/internal/graph"
	"github.com/cwbudde/algo-focus/internal/host"
	"github.com/cwbudde/algo-focus/internal/player"
)

func newPlayer(t *testing.T) *player.Player {
	t.Helper()
	dev := host.NewOffline(8000, host.Capabilities{Streaming: true, BlockSize: 256})
	cfg := config.Config{
		SampleRate: 8000,
		Mode:       "binaural",
		Color:      "pink",
		BeatHz:     10,
		FFTSize:    256,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := engine.New(dev, cfg, log, engine.Options{
		Graph: []graph.Option{graph.WithFadeDuration(10 * time.Millisecond)},
	})
	require.NoError(t, err)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]float32, 2*64)
		for {
			select {
			case <-stop:
				return
			default:
				buf = dev.Pull(buf, 64)
				time.Sleep(time.Millisecond)
			}
		}
	}()
	t.Cleanup(func() {
		_ = p.Close(context.Background())
		close(stop)
		<-done
	})
	return p
}

func press(t *testing.T, p *player.Player, keys string) {
	t.Helper()
	for i := 0; i < len(keys); i++ {
		quit, err := handleKey(context.Background(), p, keys[i])
		require.NoError(t, err)
		require.False(t, quit)
	}
}

func TestSpaceTogglesPlayback(t *testing.T) {
	p := newPlayer(t)
	press(t, p, " ")
	assert.True(t, p.Status().Playing)
	press(t, p, " ")
	assert.False(t, p.Status().Playing)
}

func TestModeKeys(t *testing.T) {
	p := newPlayer(t)
	press(t, p, "n")
	assert.Equal(t, graph.Noise, p.Status().Mode)
	press(t, p, "d")
	assert.Equal(t, graph.Drone, p.Status().Mode)
	press(t, p, "b")
	assert.Equal(t, graph.Binaural, p.Status().Mode)
}

func TestColorCycles(t *testing.T) {
	p := newPlayer(t)
	press(t, p, "n c")
	st := p.Status()
	assert.Equal(t, noise.Brown, st.Color)
	assert.True(t, st.Playing)

	assert.Equal(t, noise.White, nextColor(noise.Rain))
}

func TestBeatKeys(t *testing.T) {
	p := newPlayer(t)
	press(t, p, "++-+")
	assert.InDelta(t, 11, p.Status().BeatHz, 1e-9)

	for i := 0; i < 80; i++ {
		press(t, p, "+")
	}
	assert.InDelta(t, 30, p.Status().BeatHz, 1e-9)
}

func TestMuteAndDurationKeys(t *testing.T) {
	p := newPlayer(t)
	press(t, p, "m3")
	st := p.Status()
	assert.True(t, st.Muted)
	assert.Equal(t, time.Hour, st.Duration)
	press(t, p, "m")
	assert.False(t, p.Status().Muted)
}

func TestQuitKey(t *testing.T) {
	p := newPlayer(t)
	for _, k := range []byte{'q', 'Q', 3} {
		quit, err := handleKey(context.Background(), p, k)
		require.NoError(t, err)
		assert.True(t, quit)
	}
}

func TestStatusLine(t *testing.T) {
	line := statusLine(player.Status{
		Playing:  true,
		Mode:     graph.Noise,
		Color:    noise.Rain,
		Muted:    true,
		Elapsed:  61 * time.Second,
		Duration: 15 * time.Minute,
		Tier:     "loop",
	})
	for _, want := range []string{"> ", "noise rain", "01:01 / 15:00", "muted", "[loop]"} {
		assert.True(t, strings.Contains(line, want), "missing %q in %q", want, line)
	}
}
