// Package events provides the in-process event bus connecting the engine to
// interested consumers. Publication is fire-and-forget; delivery guarantees
// live in the consumer's retry policy, not here.
package events

import (
	"context"
	"log/slog"
	"sync"
)

// Envelope is one published event.
type Envelope struct {
	Event   string
	Payload any
}

const subscriberBuffer = 64

// Bus fans published events out to subscriber channels. A subscriber that
// cannot keep up has events dropped (and logged) rather than blocking the
// publisher.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Envelope
	logger *slog.Logger
}

// NewBus creates an event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs:   make(map[string][]chan Envelope),
		logger: logger,
	}
}

// Subscribe returns a channel receiving the named events. Subscriptions are
// expected at wiring time, before publishing starts.
func (b *Bus) Subscribe(eventNames ...string) <-chan Envelope {
	ch := make(chan Envelope, subscriberBuffer)
	b.mu.Lock()
	for _, name := range eventNames {
		b.subs[name] = append(b.subs[name], ch)
	}
	b.mu.Unlock()
	return ch
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(ctx context.Context, event string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[event] {
		select {
		case ch <- Envelope{Event: event, Payload: payload}:
		default:
			b.logger.Warn("event subscriber backlog full, dropping", "event", event)
		}
	}
}
