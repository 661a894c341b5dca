package dlq

import "context"

// Store persists dead-letter records in insertion order. List uses an
// inclusive [start, end] index range over that order; total is the full
// store size regardless of the page.
type Store interface {
	Push(ctx context.Context, record *Record) error
	List(ctx context.Context, start, end int) ([]*Record, int, error)
	Get(ctx context.Context, id string) (*Record, error)
	Remove(ctx context.Context, id string) error
	Drain(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}
