package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Handler processes one event. It must be idempotent: the consumer re-runs
// it on failure.
type Handler func(ctx context.Context, event string, payload any) error

// Consumer drains a subscription channel and applies the handler with
// exponential backoff retry. It owns the error/retry policy so the engine's
// API stays free of it.
type Consumer struct {
	ch              <-chan Envelope
	handler         Handler
	maxRetries      uint64
	initialInterval time.Duration
	logger          *slog.Logger
}

// ConsumerConfig tunes a consumer.
type ConsumerConfig struct {
	// MaxRetries is how many times a failing event is retried before it is
	// dropped (default 5).
	MaxRetries uint64
	// InitialInterval is the first retry delay (default 200ms).
	InitialInterval time.Duration
	Logger          *slog.Logger
}

// NewConsumer creates a consumer over a subscription channel.
func NewConsumer(ch <-chan Envelope, handler Handler, cfg ConsumerConfig) *Consumer {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 200 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Consumer{
		ch:              ch,
		handler:         handler,
		maxRetries:      cfg.MaxRetries,
		initialInterval: cfg.InitialInterval,
		logger:          cfg.Logger,
	}
}

// Run consumes until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-c.ch:
			if !ok {
				return
			}
			c.process(ctx, env)
		}
	}
}

func (c *Consumer) process(ctx context.Context, env Envelope) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx)

	op := func() error {
		return c.handler(ctx, env.Event, env.Payload)
	}
	if err := backoff.Retry(op, policy); err != nil {
		c.logger.Error("event handler exhausted retries, dropping event",
			"event", env.Event, "error", err)
	}
}
