package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confide/internal/config"
	"confide/internal/logger"
	"confide/pkg/errors"
	"confide/pkg/models"
)

type captureQueue struct {
	mu   sync.Mutex
	jobs []*Job
}

func (q *captureQueue) Enqueue(job *Job) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	if job.ID == "" {
		job.ID = "id-1"
	}
	q.jobs = append(q.jobs, job)
	return job.ID
}

func (q *captureQueue) all() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Job(nil), q.jobs...)
}

func newTestService(threshold int) (*Service, *captureQueue) {
	queue := &captureQueue{}
	cfg := config.NotificationsConfig{
		Batch: config.BatchConfig{Threshold: threshold, WindowMinutes: 10},
	}
	svc := NewService(queue, NewMemoryBatchCounter(), cfg, logger.NopLogger())
	return svc, queue
}

func TestHandleEventReaction(t *testing.T) {
	svc, queue := newTestService(5)

	env := models.EventEnvelope{
		ID:   "ev-1",
		Type: models.EventReactionCreated,
		Payload: map[string]interface{}{
			"user_id":              "u1",
			"confession_id":        "c1",
			"reactor_anonymous_id": "anon-9",
			"emoji":                "heart",
		},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), env))

	jobs := queue.all()
	require.Len(t, jobs, 1)
	job := jobs[0]
	assert.Equal(t, "u1", job.UserID)
	assert.Equal(t, TypeReaction, job.Type)
	require.NotNil(t, job.Metadata.Reaction)
	assert.Equal(t, "c1", job.Metadata.Reaction.ConfessionID)
	assert.Equal(t, "heart", job.Metadata.Reaction.Emoji)
	assert.Nil(t, job.Metadata.Message, "only the matching variant is set")
}

func TestHandleEventMissingUserIsFatal(t *testing.T) {
	svc, queue := newTestService(5)

	env := models.EventEnvelope{
		ID:      "ev-1",
		Type:    models.EventReactionCreated,
		Payload: map[string]interface{}{"confession_id": "c1"},
	}
	err := svc.HandleEvent(context.Background(), env)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	var fatalErr interface{ IsFatal() bool }
	require.ErrorAs(t, err, &fatalErr)
	assert.True(t, fatalErr.IsFatal(), "malformed events must not be retried")
	assert.Empty(t, queue.all())
}

func TestHandleEventUnknownTypeIsSkipped(t *testing.T) {
	svc, queue := newTestService(5)

	env := models.EventEnvelope{
		ID:      "ev-1",
		Type:    "confession.created",
		Payload: map[string]interface{}{"user_id": "u1"},
	}
	require.NoError(t, svc.HandleEvent(context.Background(), env))
	assert.Empty(t, queue.all())
}

func TestMessageBatchingCollapsesAtThreshold(t *testing.T) {
	svc, queue := newTestService(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.NotifyMessage(ctx, MessageEvent{
			UserID:    "u1",
			MessageID: "m1",
			Preview:   "psst",
		}))
	}

	jobs := queue.all()
	require.Len(t, jobs, 3)

	assert.Equal(t, TypeMessage, jobs[0].Type)
	assert.Equal(t, "psst", jobs[0].Body)
	assert.Equal(t, TypeMessage, jobs[1].Type)

	// The third message trips the threshold and becomes the batch.
	batch := jobs[2]
	assert.Equal(t, TypeMessageBatch, batch.Type)
	assert.Equal(t, "3 New Messages", batch.Title)
	require.NotNil(t, batch.Metadata.Batch)
	assert.Equal(t, 3, batch.Metadata.Batch.MessageCount)

	// The counter reset: the next message is individual again.
	require.NoError(t, svc.NotifyMessage(ctx, MessageEvent{UserID: "u1"}))
	jobs = queue.all()
	require.Len(t, jobs, 4)
	assert.Equal(t, TypeMessage, jobs[3].Type)
}

func TestMessageBatchingIsPerUser(t *testing.T) {
	svc, queue := newTestService(2)
	ctx := context.Background()

	require.NoError(t, svc.NotifyMessage(ctx, MessageEvent{UserID: "u1"}))
	require.NoError(t, svc.NotifyMessage(ctx, MessageEvent{UserID: "u2"}))

	for _, job := range queue.all() {
		assert.Equal(t, TypeMessage, job.Type, "separate users never share a batch window")
	}
}

func TestNotifyDirectValidatesType(t *testing.T) {
	svc, queue := newTestService(5)

	_, err := svc.NotifyDirect(context.Background(), "u1", Type("bogus"), "t", "b")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Empty(t, queue.all())

	id, err := svc.NotifyDirect(context.Background(), "u1", TypeSystem, "Maintenance", "Tonight")
	require.NoError(t, err)
	assert.Equal(t, "id-1", id)
}

func TestMemoryBatchCounterWindowExpiry(t *testing.T) {
	counter := NewMemoryBatchCounter()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	counter.now = func() time.Time { return now }

	ctx := context.Background()
	n, err := counter.Incr(ctx, "u1", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = counter.Incr(ctx, "u1", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	now = now.Add(11 * time.Minute)
	n, err = counter.Incr(ctx, "u1", 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired window restarts the count")
}
