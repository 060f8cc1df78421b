package strategy

import (
	"errors"
	"testing"

	"github.com/cwbudde/algo-focus/dsp/binaural"
	"github.com/cwbudde/algo-focus/dsp/noise"
	"github.com/cwbudde/algo-focus/internal/host"
	"github.com/cwbudde/algo-focus/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRate = 8000

func newSelector(t *testing.T, caps host.Capabilities, opts ...Option) *Selector {
	t.Helper()
	opts = append([]Option{WithSampleRate(testRate), WithNoiseOptions(noise.WithSeed(7))}, opts...)
	s, err := New(caps, opts...)
	require.NoError(t, err)
	return s
}

func TestSelectNoiseTiers(t *testing.T) {
	tests := []struct {
		name     string
		caps     host.Capabilities
		color    noise.Color
		wantTier Tier
		wantKind source.Kind
	}{
		{"streaming host", host.Capabilities{Streaming: true, BlockSize: 4096}, noise.Pink, TierStreaming, source.KindStreaming},
		{"block only", host.Capabilities{BlockSize: 4096}, noise.Brown, TierBlock, source.KindStreaming},
		{"no callbacks", host.Capabilities{}, noise.Green, TierLoop, source.KindLooped},
		{"rain skips streaming", host.Capabilities{Streaming: true, BlockSize: 4096}, noise.Rain, TierLoop, source.KindLooped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSelector(t, tt.caps)
			src, tier := s.Select(Request{Mode: Noise, Color: tt.color})
			require.NotNil(t, src)
			assert.Equal(t, tt.wantTier, tier)
			assert.Equal(t, tt.wantKind, src.Kind())
		})
	}
}

func TestSelectRecordsSkippedTiers(t *testing.T) {
	s := newSelector(t, host.Capabilities{})
	_, tier := s.Select(Request{Mode: Noise, Color: noise.Pink})
	require.Equal(t, TierLoop, tier)

	failures := s.LastFailures()
	require.Len(t, failures, 2)
	assert.Equal(t, TierStreaming, failures[0].Tier)
	assert.ErrorIs(t, failures[0], ErrNotAvailable)
	assert.Equal(t, TierBlock, failures[1].Tier)
}

func TestSelectFallsBackToWhite(t *testing.T) {
	broken := errors.New("broken")
	s := newSelector(t, host.Capabilities{Streaming: true}, WithCandidates(
		Candidate{Tier: TierStreaming, Build: func(Request) (source.Source, error) { return nil, broken }},
		Candidate{Tier: TierLoop, Build: func(Request) (source.Source, error) { panic("boom") }},
	))

	src, tier := s.Select(Request{Mode: Noise, Color: noise.Pink})
	require.NotNil(t, src)
	assert.Equal(t, TierFallback, tier)
	assert.Equal(t, source.KindLooped, src.Kind())

	failures := s.LastFailures()
	require.Len(t, failures, 2)
	assert.ErrorIs(t, failures[0], broken)
	assert.Contains(t, failures[1].Error(), "panic")

	require.NoError(t, src.Start())
	left := make([]float64, 256)
	right := make([]float64, 256)
	src.Process(left, right)
	assert.NotZero(t, energy(left))
}

func TestSelectBinaural(t *testing.T) {
	ctrl, err := binaural.NewController(testRate, 10)
	require.NoError(t, err)

	s := newSelector(t, host.Capabilities{Streaming: true, BlockSize: 512})
	src, tier := s.Select(Request{Mode: Binaural, Tone: ctrl})
	assert.Equal(t, TierStreaming, tier)
	assert.Equal(t, source.KindOscillator, src.Kind())

	s = newSelector(t, host.Capabilities{BlockSize: 512})
	src, tier = s.Select(Request{Mode: Binaural, Tone: ctrl})
	assert.Equal(t, TierBlock, tier)
	assert.Equal(t, source.KindStreaming, src.Kind())

	s = newSelector(t, host.Capabilities{})
	src, tier = s.Select(Request{Mode: Binaural, BeatPair: binaural.NewPair(6)})
	assert.Equal(t, TierFallback, tier)
	assert.Equal(t, source.KindOscillator, src.Kind())
}

func TestSelectDrone(t *testing.T) {
	s := newSelector(t, host.Capabilities{Streaming: true, BlockSize: 512})
	src, tier := s.Select(Request{Mode: Drone})
	assert.Equal(t, TierLoop, tier)
	assert.Equal(t, source.KindLooped, src.Kind())

	// A second request reuses the cached loop.
	_, _ = s.Select(Request{Mode: Drone})
	assert.Equal(t, 1, s.Cache().Builds())

	s = newSelector(t, host.Capabilities{}, WithCandidates())
	src, tier = s.Select(Request{Mode: Drone})
	assert.Equal(t, TierFallback, tier)
	assert.Equal(t, source.KindOscillator, src.Kind())
}

func TestLoopCacheFollowsColor(t *testing.T) {
	s := newSelector(t, host.Capabilities{})
	_, _ = s.Select(Request{Mode: Noise, Color: noise.Pink})
	_, _ = s.Select(Request{Mode: Noise, Color: noise.Pink})
	assert.Equal(t, 1, s.Cache().Builds())

	_, _ = s.Select(Request{Mode: Noise, Color: noise.Brown})
	assert.Equal(t, 2, s.Cache().Builds())
}

func TestNewRejectsNegativeBlockSize(t *testing.T) {
	_, err := New(host.Capabilities{BlockSize: -1})
	require.Error(t, err)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"binaural": Binaural, "Noise": Noise, "om": Drone, " drone ": Drone} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("chant")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func energy(buf []float64) float64 {
	var e float64
	for _, v := range buf {
		e += v * v
	}
	return e
}
