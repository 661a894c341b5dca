package queue

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confide/internal/config"
	"confide/internal/logger"
	"confide/internal/notification"
	"confide/pkg/errors"
)

// delivererFunc adapts a function to the delivery.Deliverer interface.
type delivererFunc func(ctx context.Context, job *notification.Job) error

func (f delivererFunc) Deliver(ctx context.Context, job *notification.Job) error {
	return f(ctx, job)
}

func TestProcessTimeoutCountsAsFailure(t *testing.T) {
	blocking := delivererFunc(func(ctx context.Context, _ *notification.Job) error {
		<-ctx.Done()
		return ctx.Err()
	})
	p := NewProcessor(blocking, config.QueueConfig{
		AttemptTimeout:       20 * time.Millisecond,
		SlowAttemptThreshold: time.Second,
	}, logger.NopLogger())

	start := time.Now()
	err := p.Process(context.Background(), &notification.Job{ID: "j1", Type: notification.TypeMessage})
	elapsed := time.Since(start)

	require.Error(t, err)
	var appErr *errors.Error
	require.True(t, stderrors.As(err, &appErr))
	assert.Equal(t, "TIMEOUT", appErr.Code)
	assert.True(t, appErr.IsRetryable(), "a timed-out attempt must stay eligible for retry")
	assert.Less(t, elapsed, time.Second, "attempt must be cut off at the configured timeout")
}

func TestProcessPassesDelivererErrorThrough(t *testing.T) {
	cause := stderrors.New("endpoint returned 503")
	failing := delivererFunc(func(context.Context, *notification.Job) error {
		return cause
	})
	p := NewProcessor(failing, config.QueueConfig{}, logger.NopLogger())

	err := p.Process(context.Background(), &notification.Job{ID: "j2", Type: notification.TypeSystem})

	require.ErrorIs(t, err, cause)
	var appErr *errors.Error
	assert.False(t, stderrors.As(err, &appErr), "plain failures are not rewrapped")
}

func TestProcessSuccess(t *testing.T) {
	var got *notification.Job
	ok := delivererFunc(func(_ context.Context, job *notification.Job) error {
		got = job
		return nil
	})
	p := NewProcessor(ok, config.QueueConfig{}, logger.NopLogger())

	job := &notification.Job{ID: "j3", Type: notification.TypeReaction}
	require.NoError(t, p.Process(context.Background(), job))
	assert.Same(t, job, got)
}

func TestProcessCallerCancellation(t *testing.T) {
	blocking := delivererFunc(func(ctx context.Context, _ *notification.Job) error {
		<-ctx.Done()
		return ctx.Err()
	})
	p := NewProcessor(blocking, config.QueueConfig{AttemptTimeout: time.Minute}, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := p.Process(ctx, &notification.Job{ID: "j4", Type: notification.TypeMessage})

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.Canceled))
}
