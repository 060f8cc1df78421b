package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-focus/dsp/buffer"
)

type constRenderer float64

func (c constRenderer) Process(left, right []float64) {
	for i := range left {
		left[i] = float64(c)
		right[i] = float64(c)
	}
}

type panicAfter struct {
	calls int
	limit int
}

func (p *panicAfter) Process(left, right []float64) {
	p.calls++
	if p.calls > p.limit {
		panic("generator exploded")
	}
	constRenderer(0.25).Process(left, right)
}

func newLoop(t *testing.T) *buffer.Loop {
	t.Helper()
	l := make([]float64, 48000)
	r := make([]float64, 48000)
	for i := range l {
		l[i], r[i] = 0.5, -0.5
	}
	loop, err := buffer.NewLoop(l, r, 48000)
	require.NoError(t, err)
	return loop
}

func allSources(t *testing.T) []Source {
	t.Helper()
	looped, err := NewLooped(newLoop(t))
	require.NoError(t, err)
	streaming, err := NewStreaming(constRenderer(0.3), constRenderer(0), 0, 48000)
	require.NoError(t, err)
	block, err := NewStreaming(constRenderer(0.3), constRenderer(0), 256, 48000)
	require.NoError(t, err)
	osc, err := NewOscillator(constRenderer(0.1))
	require.NoError(t, err)
	return []Source{looped, streaming, block, osc}
}

func TestLifecycleIsUniform(t *testing.T) {
	for _, s := range allSources(t) {
		t.Run(s.Kind().String(), func(t *testing.T) {
			left := make([]float64, 100)
			right := make([]float64, 100)

			s.Process(left, right)
			assert.Equal(t, make([]float64, 100), left, "idle source must be silent")

			require.NoError(t, s.Start())
			assert.ErrorIs(t, s.Start(), ErrAlreadyStarted)
			assert.True(t, s.Running())

			s.Stop()
			s.Stop()
			assert.False(t, s.Running())
			assert.ErrorIs(t, s.Start(), ErrStopped)

			for i := range left {
				left[i] = 1
			}
			s.Process(left, right)
			assert.Equal(t, make([]float64, 100), left, "stopped source must be silent")
		})
	}
}

func TestStopBeforeStart(t *testing.T) {
	for _, s := range allSources(t) {
		s.Stop()
		assert.ErrorIs(t, s.Start(), ErrStopped)
	}
}

func TestLoopedWrapsAndCounts(t *testing.T) {
	s, err := NewLooped(newLoop(t))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	left := make([]float64, 1000)
	right := make([]float64, 1000)
	for i := 0; i < 60; i++ {
		s.Process(left, right)
	}
	assert.Equal(t, uint64(60000), s.Stats().Frames)
	// Position 12000 is past the fade and inside the second lap.
	assert.InDelta(t, 0.5, left[0], 1e-12)
}

func TestStreamingBlockModeServesOddRequests(t *testing.T) {
	gen := &panicAfter{limit: 1000}
	s, err := NewStreaming(gen, constRenderer(0), 256, 48000)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	left := make([]float64, 100)
	right := make([]float64, 100)
	for i := 0; i < 10; i++ {
		s.Process(left, right)
	}
	// 1000 frames need four 256-frame blocks.
	assert.Equal(t, 4, gen.calls)
	assert.Equal(t, 0.25, left[99])
}

func TestStreamingCountsBudgetOverruns(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time {
		now = now.Add(10 * time.Millisecond)
		return now
	}
	// 256 frames at 48 kHz is a 5.33 ms budget; each block "takes" 10 ms.
	s, err := NewStreaming(constRenderer(0.1), constRenderer(0), 256, 48000, WithClock(clock))
	require.NoError(t, err)
	require.NoError(t, s.Start())

	left := make([]float64, 512)
	right := make([]float64, 512)
	s.Process(left, right)
	assert.Equal(t, uint64(2), s.Stats().Overruns)
}

func TestStreamingRecoversPanicWithFallback(t *testing.T) {
	gen := &panicAfter{limit: 2}
	s, err := NewStreaming(gen, constRenderer(-0.75), 0, 48000)
	require.NoError(t, err)
	require.NoError(t, s.Start())

	left := make([]float64, 64)
	right := make([]float64, 64)
	s.Process(left, right)
	s.Process(left, right)
	assert.Equal(t, 0.25, left[0])

	require.NotPanics(t, func() { s.Process(left, right) })
	assert.Equal(t, -0.75, left[0])
	s.Process(left, right)
	assert.Equal(t, 3, gen.calls, "failed generator must not be called again")

	st := s.Stats()
	assert.Equal(t, uint64(1), st.Faults)
	assert.ErrorContains(t, s.LastFault(), "generator exploded")
}

func TestConstructorsRejectNil(t *testing.T) {
	_, err := NewLooped(nil)
	assert.Error(t, err)
	_, err = NewOscillator(nil)
	assert.Error(t, err)
	_, err = NewStreaming(nil, constRenderer(0), 0, 48000)
	assert.Error(t, err)
	_, err = NewStreaming(constRenderer(0), constRenderer(0), -1, 48000)
	assert.Error(t, err)
}
