// Package queue implements the in-process notification delivery queue:
// a buffered channel feeding a worker pool, bounded retry with backoff,
// and dead-letter handoff when a job exhausts its attempts.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"confide/internal/config"
	"confide/internal/logger"
	"confide/internal/notification"
	"confide/pkg/errors"
	"confide/pkg/logging"
	"confide/pkg/metrics"
)

// Processor performs exactly one delivery attempt for a job and reports
// the outcome as an error return.
type Processor interface {
	Process(ctx context.Context, job *notification.Job) error
}

// DeadLetterer takes custody of a job whose attempts are exhausted.
type DeadLetterer interface {
	Quarantine(ctx context.Context, job *notification.Job, cause error) error
}

type Queue struct {
	cfg        config.QueueConfig
	jobs       chan *notification.Job
	processor  Processor
	deadLetter DeadLetterer
	logger     logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	depth   atomic.Int64
	running atomic.Bool
}

func New(cfg config.QueueConfig, processor Processor, log logger.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 256
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Backoff.InitialInterval <= 0 {
		cfg.Backoff.InitialInterval = time.Second
	}
	if cfg.Backoff.MaxInterval <= 0 {
		cfg.Backoff.MaxInterval = time.Minute
	}
	if cfg.Backoff.Multiplier < 1.0 {
		cfg.Backoff.Multiplier = 2.0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		cfg:       cfg,
		jobs:      make(chan *notification.Job, cfg.BufferSize),
		processor: processor,
		logger:    log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetDeadLetterer wires the dead-letter service. The queue and the DLQ
// service reference each other (retry re-enqueues), so one side is bound
// after construction. Must be called before Start.
func (q *Queue) SetDeadLetterer(dl DeadLetterer) {
	q.deadLetter = dl
}

func (q *Queue) Start() {
	if !q.running.CompareAndSwap(false, true) {
		return
	}
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.logger.Infow("Delivery queue started",
		"workers", q.cfg.Workers,
		"buffer_size", q.cfg.BufferSize,
		"max_attempts", q.cfg.MaxAttempts,
	)
}

// Enqueue accepts a job, assigning an id and attempt budget if unset, and
// returns the id. The call never blocks the producer: when the buffer is
// full the handoff moves to a goroutine.
func (q *Queue) Enqueue(job *notification.Job) string {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.MaxAttempts <= 0 {
		job.MaxAttempts = q.cfg.MaxAttempts
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now().UTC()
	}

	metrics.NotificationsEnqueuedTotal.WithLabelValues(string(job.Type)).Inc()
	q.incDepth()

	select {
	case q.jobs <- job:
	default:
		go func() {
			select {
			case q.jobs <- job:
			case <-q.ctx.Done():
				q.decDepth()
			}
		}()
	}

	return job.ID
}

func (q *Queue) Depth() int {
	return int(q.depth.Load())
}

func (q *Queue) Running() bool {
	return q.running.Load()
}

// Stop cancels the workers and pending retry timers, then waits for the
// workers to finish their in-flight attempt or the context to expire.
func (q *Queue) Stop(ctx context.Context) error {
	if !q.running.CompareAndSwap(true, false) {
		return nil
	}
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.logger.Info("Delivery queue stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.handle(job)
		}
	}
}

// handle runs one attempt. The worker owns the job for the duration, so
// AttemptsMade mutations are serialized: the count is updated before the
// job can re-enter the queue or reach the dead-letter store.
func (q *Queue) handle(job *notification.Job) {
	q.decDepth()

	ctx := logging.WithJobID(q.ctx, job.ID)
	attempt := job.AttemptsMade + 1

	q.logger.DebugwCtx(ctx, "Delivery attempt started",
		"attempt", attempt,
		"max_attempts", job.MaxAttempts,
		"type", string(job.Type),
	)

	err := q.process(ctx, job)
	if err == nil {
		q.logger.InfowCtx(ctx, "Notification delivered",
			"attempt", attempt,
			"user_id", job.UserID,
		)
		return
	}

	job.AttemptsMade++

	q.logger.WarnwCtx(ctx, "Delivery attempt failed",
		"attempt", job.AttemptsMade,
		"max_attempts", job.MaxAttempts,
		"error", err.Error(),
	)

	if job.AttemptsMade < job.MaxAttempts {
		delay := retryDelay(q.cfg.Backoff, job.AttemptsMade)
		metrics.RetriesScheduledTotal.Inc()
		q.incDepth()
		q.scheduleRetry(job, delay)
		return
	}

	q.quarantine(ctx, job, err)
}

// process shields the worker from a panicking attempt: the panic becomes
// a failed attempt so the retry and dead-letter policy applies to it like
// any other failure.
func (q *Queue) process(ctx context.Context, job *notification.Job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.RecoverPanic(rec)
			q.logger.ErrorwCtx(ctx, "Panic recovered during delivery attempt",
				"error", err.Error(),
			)
		}
	}()
	return q.processor.Process(ctx, job)
}

func (q *Queue) scheduleRetry(job *notification.Job, delay time.Duration) {
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			select {
			case q.jobs <- job:
			case <-q.ctx.Done():
				q.decDepth()
			}
		case <-q.ctx.Done():
			q.decDepth()
		}
	}()
}

func (q *Queue) quarantine(ctx context.Context, job *notification.Job, cause error) {
	if q.deadLetter == nil {
		q.logger.ErrorwCtx(ctx, "No dead-letter store wired, dropping exhausted job",
			"user_id", job.UserID,
			"error", cause.Error(),
		)
		return
	}

	if err := q.deadLetter.Quarantine(ctx, job, cause); err != nil {
		q.logger.ErrorwCtx(ctx, "Failed to quarantine exhausted job",
			"user_id", job.UserID,
			"error", err.Error(),
		)
		return
	}

	metrics.DeadLetteredTotal.WithLabelValues(string(job.Type)).Inc()
	q.logger.ErrorwCtx(ctx, "Job moved to dead-letter store",
		"attempts_made", job.AttemptsMade,
		"user_id", job.UserID,
		"last_error", cause.Error(),
	)
}

func (q *Queue) incDepth() {
	metrics.SetQueueDepth(int(q.depth.Add(1)))
}

func (q *Queue) decDepth() {
	metrics.SetQueueDepth(int(q.depth.Add(-1)))
}
