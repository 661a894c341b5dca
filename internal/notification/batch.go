package notification

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"confide/internal/constants"
)

// BatchCounter tracks how many message notifications a user has accrued
// inside the current batching window.
type BatchCounter interface {
	// Incr adds one to the user's counter and returns the new value. The
	// first increment arms the window; the counter expires with it.
	Incr(ctx context.Context, userID string, window time.Duration) (int64, error)
	Reset(ctx context.Context, userID string) error
}

type RedisBatchCounter struct {
	client *redis.Client
}

func NewRedisBatchCounter(client *redis.Client) *RedisBatchCounter {
	return &RedisBatchCounter{client: client}
}

func (c *RedisBatchCounter) Incr(ctx context.Context, userID string, window time.Duration) (int64, error) {
	key := constants.RedisKeyBatchCount + userID

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (c *RedisBatchCounter) Reset(ctx context.Context, userID string) error {
	return c.client.Del(ctx, constants.RedisKeyBatchCount+userID).Err()
}

type memoryBatchEntry struct {
	count    int64
	expireAt time.Time
}

// MemoryBatchCounter is the fallback when Redis is not configured. State
// is per-process only.
type MemoryBatchCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryBatchEntry
	now     func() time.Time
}

func NewMemoryBatchCounter() *MemoryBatchCounter {
	return &MemoryBatchCounter{
		entries: make(map[string]*memoryBatchEntry),
		now:     time.Now,
	}
}

func (c *MemoryBatchCounter) Incr(_ context.Context, userID string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.entries[userID]
	if !ok || now.After(e.expireAt) {
		e = &memoryBatchEntry{expireAt: now.Add(window)}
		c.entries[userID] = e
	}
	e.count++
	return e.count, nil
}

func (c *MemoryBatchCounter) Reset(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}
