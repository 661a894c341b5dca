package dlq

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"confide/internal/constants"
	"confide/internal/logger"
	"confide/internal/notification"
	"confide/pkg/metrics"
	"confide/pkg/models"
)

// Enqueuer re-admits a job into the delivery queue.
type Enqueuer interface {
	Enqueue(job *notification.Job) string
}

// Announcer publishes dead-letter lifecycle events back to the broker.
type Announcer interface {
	Publish(ctx context.Context, topic string, event models.EventEnvelope) error
}

// Service owns the quarantine lifecycle. Operator mutations (retry,
// remove, drain) are serialized under mu so a record cannot be retried
// twice concurrently.
type Service struct {
	mu        sync.Mutex
	store     Store
	queue     Enqueuer
	announcer Announcer
	topic     string
	logger    logger.Logger
	now       func() time.Time
}

func NewService(store Store, queue Enqueuer, log logger.Logger) *Service {
	return &Service{
		store:  store,
		queue:  queue,
		logger: log,
		now:    time.Now,
	}
}

// SetAnnouncer wires an optional broker producer for lifecycle events.
// Without one the service stays silent.
func (s *Service) SetAnnouncer(announcer Announcer, topic string) {
	if topic == "" {
		topic = constants.DefaultOutputTopic
	}
	s.announcer = announcer
	s.topic = topic
}

// Quarantine stores an exhausted job with its failure context.
func (s *Service) Quarantine(ctx context.Context, job *notification.Job, cause error) error {
	record := &Record{
		ID:            uuid.NewString(),
		Job:           *job,
		OriginalJobID: job.ID,
		FailedAt:      s.now().UTC(),
		AttemptsMade:  job.AttemptsMade,
		LastError:     cause.Error(),
	}

	if err := s.store.Push(ctx, record); err != nil {
		return err
	}

	s.refreshSizeGauge(ctx)
	s.announce(ctx, models.EventNotificationDeadLettered, map[string]interface{}{
		"record_id":     record.ID,
		"job_id":        record.OriginalJobID,
		"user_id":       record.Job.UserID,
		"type":          string(record.Job.Type),
		"attempts_made": record.AttemptsMade,
		"last_error":    record.LastError,
	})
	return nil
}

// List returns one page of records plus the store total. Negative or
// inverted ranges fall back to the default first page; oversized pages
// are clamped.
func (s *Service) List(ctx context.Context, start, end int) ([]*Record, int, error) {
	if start < 0 || end < start {
		start = 0
		end = constants.DefaultDLQPageSize - 1
	}
	if end-start+1 > constants.MaxDLQPageSize {
		end = start + constants.MaxDLQPageSize - 1
	}
	return s.store.List(ctx, start, end)
}

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.store.Get(ctx, id)
}

// Retry re-enqueues a quarantined job with a fresh id and a reset
// attempt budget, then removes the record. The record is only removed
// after the queue has accepted the new job, so a failed removal leaves a
// visible record rather than a lost job.
func (s *Service) Retry(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}

	job := record.Job
	job.ID = ""
	job.AttemptsMade = 0
	job.EnqueuedAt = time.Time{}

	newJobID := s.queue.Enqueue(&job)

	if err := s.store.Remove(ctx, id); err != nil {
		s.logger.ErrorwCtx(ctx, "Re-enqueued DLQ job but failed to remove record",
			"record_id", id,
			"new_job_id", newJobID,
			"error", err.Error(),
		)
		return "", err
	}

	metrics.DLQRequeuedTotal.Inc()
	s.refreshSizeGauge(ctx)
	s.announce(ctx, models.EventNotificationRequeued, map[string]interface{}{
		"record_id":  id,
		"job_id":     record.OriginalJobID,
		"new_job_id": newJobID,
		"user_id":    record.Job.UserID,
		"type":       string(record.Job.Type),
	})

	s.logger.InfowCtx(ctx, "DLQ record re-enqueued",
		"record_id", id,
		"new_job_id", newJobID,
	)
	return newJobID, nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Remove(ctx, id); err != nil {
		return err
	}
	s.refreshSizeGauge(ctx)
	return nil
}

func (s *Service) Drain(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, err := s.store.Drain(ctx)
	if err != nil {
		return 0, err
	}
	metrics.SetDLQSize(0)

	s.logger.InfowCtx(ctx, "DLQ drained", "removed", removed)
	return removed, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}

func (s *Service) refreshSizeGauge(ctx context.Context) {
	if count, err := s.store.Count(ctx); err == nil {
		metrics.SetDLQSize(count)
	}
}

// announce publishes a lifecycle event on a best-effort basis: the DLQ
// operation has already committed, so a publish failure is logged and
// swallowed.
func (s *Service) announce(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.announcer == nil {
		return
	}

	event := models.EventEnvelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "notify-service",
		Timestamp: s.now().UTC(),
		Payload:   payload,
	}

	if err := s.announcer.Publish(ctx, s.topic, event); err != nil {
		s.logger.WarnwCtx(ctx, "Failed to publish DLQ lifecycle event",
			"event_type", eventType,
			"error", err.Error(),
		)
	}
}
