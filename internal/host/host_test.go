package host

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (*Context, *Offline) {
	t.Helper()
	dev := NewOffline(48000, Capabilities{Streaming: true, BlockSize: 4096})
	c, err := New(dev)
	require.NoError(t, err)
	return c, dev
}

func TestContextStartsSuspendedAndSilent(t *testing.T) {
	c, dev := newTestContext(t)
	assert.Equal(t, StateSuspended, c.State())

	c.SetRenderer(func(l, r []float64) {
		for i := range l {
			l[i], r[i] = 0.5, 0.5
		}
	})
	out := dev.Pull(nil, 16)
	assert.Equal(t, make([]float32, 32), out)
	assert.Zero(t, c.CurrentTime())
}

func TestContextRendersAndClamps(t *testing.T) {
	c, dev := newTestContext(t)
	c.SetRenderer(func(l, r []float64) {
		for i := range l {
			l[i], r[i] = 3, -0.25
		}
	})
	require.NoError(t, c.Resume(context.Background()))
	assert.False(t, dev.Suspended())

	out := dev.Pull(nil, 4800)
	assert.Equal(t, float32(1), out[0])
	assert.Equal(t, float32(-0.25), out[1])
	assert.Equal(t, 100*time.Millisecond, c.CurrentTime())
}

func TestContextLifecycle(t *testing.T) {
	c, dev := newTestContext(t)
	ctx := context.Background()

	require.NoError(t, c.Resume(ctx))
	require.NoError(t, c.Resume(ctx))
	require.NoError(t, c.Suspend(ctx))
	assert.True(t, dev.Suspended())
	require.NoError(t, c.Suspend(ctx))

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, dev.Closed())
	assert.ErrorIs(t, c.Resume(ctx), ErrClosed)
	assert.ErrorIs(t, c.Suspend(ctx), ErrClosed)
}

func TestResumeFailureLeavesSuspended(t *testing.T) {
	c, dev := newTestContext(t)
	boom := errors.New("device busy")
	dev.FailNextResume(boom)

	err := c.Resume(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateSuspended, c.State())
	require.NoError(t, c.Resume(context.Background()))
}

func TestNewRejectsBadDevice(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
	_, err = New(NewOffline(0, Capabilities{}))
	assert.Error(t, err)

	dev := NewOffline(48000, Capabilities{})
	_, err = New(dev)
	require.NoError(t, err)
	_, err = New(dev)
	assert.Error(t, err, "second attach must fail")
}

func TestResumeHonorsCanceledContext(t *testing.T) {
	c, _ := newTestContext(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Resume(ctx), context.Canceled)
}
