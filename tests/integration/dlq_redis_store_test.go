package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confide/internal/dlq"
	"confide/internal/notification"
	"confide/pkg/errors"
)

func makeRecord(i int) *dlq.Record {
	return &dlq.Record{
		ID:            fmt.Sprintf("rec-%d", i),
		OriginalJobID: fmt.Sprintf("job-%d", i),
		FailedAt:      time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
		AttemptsMade:  5,
		LastError:     "downstream refused",
		Job: notification.Job{
			ID:          fmt.Sprintf("job-%d", i),
			UserID:      fmt.Sprintf("user-%d", i),
			Type:        notification.TypeMessage,
			Title:       "New Message",
			Body:        "psst",
			MaxAttempts: 5,
			EnqueuedAt:  time.Date(2026, 3, 1, 11, 0, i, 0, time.UTC),
			Metadata: notification.Metadata{
				Message: &notification.MessageMeta{
					MessageID:         fmt.Sprintf("m-%d", i),
					SenderAnonymousID: "anon-3",
				},
			},
		},
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := dlq.NewRedisStore(infra.RedisClient)
	ctx := context.Background()

	rec := makeRecord(1)
	require.NoError(t, store.Push(ctx, rec))

	got, err := store.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, rec.OriginalJobID, got.OriginalJobID)
	assert.Equal(t, rec.LastError, got.LastError)
	assert.True(t, rec.FailedAt.Equal(got.FailedAt))
	assert.Equal(t, "user-1", got.Job.UserID)
	require.NotNil(t, got.Job.Metadata.Message)
	assert.Equal(t, "m-1", got.Job.Metadata.Message.MessageID)

	_, err = store.Get(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
}

func TestRedisStoreListOrderAndPaging(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := dlq.NewRedisStore(infra.RedisClient)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		require.NoError(t, store.Push(ctx, makeRecord(i)))
	}

	records, total, err := store.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, records, 3)
	assert.Equal(t, "rec-0", records[0].ID)
	assert.Equal(t, "rec-2", records[2].ID)

	records, total, err = store.List(ctx, 4, 100)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, records, 2)
	assert.Equal(t, "rec-5", records[1].ID)

	records, total, err = store.List(ctx, 50, 60)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Empty(t, records)
}

func TestRedisStoreRemoveAndDrain(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	store := dlq.NewRedisStore(infra.RedisClient)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Push(ctx, makeRecord(i)))
	}

	require.NoError(t, store.Remove(ctx, "rec-1"))
	assert.True(t, errors.IsNotFound(store.Remove(ctx, "rec-1")))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records, _, err := store.List(ctx, 0, 49)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec-0", records[0].ID)
	assert.Equal(t, "rec-2", records[1].ID)

	removed, err := store.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRedisBatchCounter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	infra := SetupTestInfra(t)
	counter := notification.NewRedisBatchCounter(infra.RedisClient)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := counter.Incr(ctx, "u1", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// Separate users keep separate counters.
	n, err := counter.Incr(ctx, "u2", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, counter.Reset(ctx, "u1"))
	n, err = counter.Incr(ctx, "u1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
