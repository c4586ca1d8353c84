// Package eventbus is an in-process publish-subscribe bus for pipeline
// observability events. It has no persistence of its own: listeners that
// need durability (e.g. the Slack messenger) subscribe and do their own
// I/O.
package eventbus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/reelforge/pipeline/pkg/domain"
)

// Listener receives every event published on the bus. A listener error is
// logged and swallowed — one broken listener never blocks the publisher or
// other listeners.
type Listener func(ctx context.Context, event domain.PipelineEvent) error

// Bus is a sequential-dispatch publish-subscribe event bus. Safe for
// concurrent use.
type Bus struct {
	mu        sync.RWMutex
	listeners []namedListener
}

type namedListener struct {
	name string
	fn   Listener
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers a listener to receive every subsequently published
// event. name identifies the listener in logs when it fails.
func (b *Bus) Subscribe(name string, fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, namedListener{name: name, fn: fn})
}

// ListenerCount reports how many listeners are currently registered.
func (b *Bus) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Publish dispatches event to every listener in subscription order,
// sequentially. A listener that returns an error, or panics, is logged and
// skipped; Publish never returns an error itself.
func (b *Bus) Publish(ctx context.Context, event domain.PipelineEvent) {
	b.mu.RLock()
	listeners := make([]namedListener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, l := range listeners {
		b.dispatchOne(ctx, l, event)
	}
}

func (b *Bus) dispatchOne(ctx context.Context, l namedListener, event domain.PipelineEvent) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event listener panicked",
				"listener", l.name, "event", event.Name, "recover", r)
		}
	}()

	if err := l.fn(ctx, event); err != nil {
		slog.Error("event listener failed",
			"listener", l.name, "event", event.Name, "error", err)
	}
}
