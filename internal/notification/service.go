package notification

import (
	"context"
	"fmt"
	"time"

	"confide/internal/config"
	"confide/internal/logger"
	"confide/pkg/errors"
	"confide/pkg/models"
)

// Enqueuer accepts a job into the delivery queue and returns its assigned id.
type Enqueuer interface {
	Enqueue(job *Job) string
}

// Service turns domain events and API requests into delivery jobs.
type Service struct {
	queue   Enqueuer
	batches BatchCounter
	cfg     config.NotificationsConfig
	logger  logger.Logger
}

func NewService(queue Enqueuer, batches BatchCounter, cfg config.NotificationsConfig, log logger.Logger) *Service {
	if cfg.Batch.Threshold <= 0 {
		cfg.Batch.Threshold = 5
	}
	if cfg.Batch.WindowMinutes <= 0 {
		cfg.Batch.WindowMinutes = 10
	}
	return &Service{
		queue:   queue,
		batches: batches,
		cfg:     cfg,
		logger:  log,
	}
}

// HandleEvent dispatches a consumed domain event to the matching notify
// path. Unknown event types are skipped without error so the consumer can
// commit and move on.
func (s *Service) HandleEvent(ctx context.Context, env models.EventEnvelope) error {
	switch env.Type {
	case models.EventReactionCreated:
		ev, err := decodeReactionEvent(env)
		if err != nil {
			return err
		}
		return s.NotifyReaction(ctx, ev)
	case models.EventMessageCreated:
		ev, err := decodeMessageEvent(env)
		if err != nil {
			return err
		}
		return s.NotifyMessage(ctx, ev)
	case models.EventModerationAction:
		ev, err := decodeModerationEvent(env)
		if err != nil {
			return err
		}
		return s.NotifyModeration(ctx, ev)
	case models.EventSystemAnnouncement:
		ev, err := decodeSystemEvent(env)
		if err != nil {
			return err
		}
		return s.NotifySystem(ctx, ev)
	default:
		s.logger.DebugwCtx(ctx, "Skipping unhandled event type",
			"event_type", env.Type,
			"event_id", env.ID,
		)
		return nil
	}
}

func (s *Service) NotifyReaction(ctx context.Context, ev ReactionEvent) error {
	job := &Job{
		UserID: ev.UserID,
		Type:   TypeReaction,
		Title:  "New Reaction",
		Body:   "Someone reacted to your confession",
		Metadata: Metadata{
			Reaction: &ReactionMeta{
				ConfessionID:       ev.ConfessionID,
				ReactorAnonymousID: ev.ReactorAnonymousID,
				Emoji:              ev.Emoji,
			},
		},
	}
	s.enqueue(ctx, job)
	return nil
}

// NotifyMessage enqueues an individual message notification, unless the
// user has hit the batch threshold inside the window. In that case the
// Nth individual notification is replaced by a single batch notification
// and the counter is reset.
func (s *Service) NotifyMessage(ctx context.Context, ev MessageEvent) error {
	window := time.Duration(s.cfg.Batch.WindowMinutes) * time.Minute

	count, err := s.batches.Incr(ctx, ev.UserID, window)
	if err != nil {
		// Counter trouble must not drop the notification itself.
		s.logger.WarnwCtx(ctx, "Batch counter unavailable, sending individually",
			"user_id", ev.UserID,
			"error", err.Error(),
		)
		count = 1
	}

	if count >= int64(s.cfg.Batch.Threshold) {
		if err := s.batches.Reset(ctx, ev.UserID); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to reset batch counter",
				"user_id", ev.UserID,
				"error", err.Error(),
			)
		}
		job := &Job{
			UserID: ev.UserID,
			Type:   TypeMessageBatch,
			Title:  fmt.Sprintf("%d New Messages", count),
			Body:   fmt.Sprintf("You have %d new messages waiting", count),
			Metadata: Metadata{
				Batch: &BatchMeta{MessageCount: int(count)},
			},
		}
		s.enqueue(ctx, job)
		return nil
	}

	body := ev.Preview
	if body == "" {
		body = "You received a new anonymous message"
	}
	job := &Job{
		UserID: ev.UserID,
		Type:   TypeMessage,
		Title:  "New Message",
		Body:   body,
		Metadata: Metadata{
			Message: &MessageMeta{
				MessageID:         ev.MessageID,
				SenderAnonymousID: ev.SenderAnonymousID,
			},
		},
	}
	s.enqueue(ctx, job)
	return nil
}

func (s *Service) NotifyModeration(ctx context.Context, ev ModerationEvent) error {
	job := &Job{
		UserID: ev.UserID,
		Type:   TypeModeration,
		Title:  "Moderation Notice",
		Body:   fmt.Sprintf("A moderator has taken action on your confession: %s", ev.Action),
		Metadata: Metadata{
			Moderation: &ModerationMeta{
				Action:       ev.Action,
				Reason:       ev.Reason,
				ConfessionID: ev.ConfessionID,
			},
		},
	}
	s.enqueue(ctx, job)
	return nil
}

func (s *Service) NotifySystem(ctx context.Context, ev SystemEvent) error {
	job := &Job{
		UserID: ev.UserID,
		Type:   TypeSystem,
		Title:  ev.Title,
		Body:   ev.Body,
	}
	s.enqueue(ctx, job)
	return nil
}

// NotifyDirect serves the trigger API. The type must be one of the known
// notification types.
func (s *Service) NotifyDirect(ctx context.Context, userID string, typ Type, title, body string) (string, error) {
	if !typ.Valid() {
		return "", errors.ErrValidation.
			WithDetail("message", fmt.Sprintf("unknown notification type %q", typ)).
			AsFatal()
	}
	job := &Job{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
	}
	id := s.enqueue(ctx, job)
	return id, nil
}

func (s *Service) enqueue(ctx context.Context, job *Job) string {
	id := s.queue.Enqueue(job)
	s.logger.InfowCtx(ctx, "Notification enqueued",
		"job_id", id,
		"user_id", job.UserID,
		"type", string(job.Type),
	)
	return id
}
