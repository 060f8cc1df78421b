package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/internal/config"
	"github.com/cwbudde/algo-focus/internal/graph"
	"github.com/cwbudde/algo-focus/internal/host"
	"github.com/cwbudde/algo-focus/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		Mode:    "noise",
		Color:   "brown",
		BeatHz:  6,
		Session: 30 * time.Minute,
		FFTSize: 512,
	}
}

func TestNewAppliesConfig(t *testing.T) {
	dev := host.NewOffline(16000, host.Capabilities{Streaming: true})
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p, err := New(dev, testConfig(), log, Options{
		Strategy: []strategy.Option{strategy.WithNoiseOptions(noise.WithSeed(5))},
		Graph:    []graph.Option{graph.WithFadeDuration(5 * time.Millisecond)},
	})
	require.NoError(t, err)

	st := p.Status()
	assert.Equal(t, graph.Noise, st.Mode)
	assert.Equal(t, noise.Brown, st.Color)
	assert.InDelta(t, 6, st.BeatHz, 1e-12)
	assert.Equal(t, 30*time.Minute, st.Duration)

	ctx := context.Background()
	require.NoError(t, p.Start(ctx))
	dev.Pull(nil, 1024)
	assert.Len(t, p.Spectrum(), 256)
	require.NoError(t, p.Close(ctx))
	assert.True(t, dev.Closed())
}

func TestNewRejectsBadNames(t *testing.T) {
	cfg := testConfig()
	cfg.Mode = "karaoke"
	_, err := New(host.NewOffline(16000, host.Capabilities{}), cfg, nil, Options{})
	assert.ErrorIs(t, err, strategy.ErrUnknownMode)

	cfg = testConfig()
	cfg.Color = "purple"
	_, err = New(host.NewOffline(16000, host.Capabilities{}), cfg, nil, Options{})
	assert.ErrorIs(t, err, noise.ErrUnsupported)
}

func TestNewRejectsBadFFTSize(t *testing.T) {
	cfg := testConfig()
	cfg.FFTSize = 1000
	_, err := New(host.NewOffline(16000, host.Capabilities{}), cfg, nil, Options{})
	assert.Error(t, err)
}
