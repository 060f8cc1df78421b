// Package stream publishes rendered audio to network listeners: a pump
// pulls 20 ms PCM frames from an offline host device in real time, a
// broadcaster fans them out, and a WebRTC handler encodes them as Opus.
package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

// listenerBuffer holds about three seconds of 20 ms frames.
const listenerBuffer = 150

// Broadcaster fans frames from one pump out to any number of listeners.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
}

// Listener receives frames until it is unsubscribed.
type Listener struct {
	C       chan []int16
	done    chan struct{}
	dropped atomic.Uint64
}

// Done is closed when the listener is unsubscribed.
func (l *Listener) Done() <-chan struct{} { return l.done }

// Dropped counts frames skipped because the listener fell behind.
func (l *Listener) Dropped() uint64 { return l.dropped.Load() }

// NewBroadcaster returns a broadcaster with no listeners.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[*Listener]struct{})}
}

// Subscribe registers a listener.
func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C:    make(chan []int16, listenerBuffer),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe removes l and closes its Done channel. Repeated calls are
// no-ops.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	_, ok := b.listeners[l]
	delete(b.listeners, l)
	b.mu.Unlock()
	if ok {
		close(l.done)
	}
}

// ListenerCount returns the number of subscribed listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Run forwards frames from src until ctx ends or src closes. Slow
// listeners lose frames instead of stalling the others.
func (b *Broadcaster) Run(ctx context.Context, src <-chan []int16) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-src:
			if !ok {
				return
			}
			b.mu.RLock()
			for l := range b.listeners {
				select {
				case l.C <- frame:
				default:
					l.dropped.Add(1)
				}
			}
			b.mu.RUnlock()
		}
	}
}
