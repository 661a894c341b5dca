package broker

import (
	"context"

	"confide/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, event models.EventEnvelope) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
}

// HandlerFunc processes one domain event. A fatal error (validation,
// unknown shape) commits and skips the event; anything else is retried
// before the consumer gives up and commits.
type HandlerFunc func(ctx context.Context, event models.EventEnvelope) error
