package delivery

import (
	"context"

	"confide/internal/logger"
	"confide/internal/notification"
)

// LogDeliverer writes the notification to the log and succeeds. Used in
// development and as the default when no endpoint is configured.
type LogDeliverer struct {
	logger logger.Logger
}

func NewLogDeliverer(log logger.Logger) *LogDeliverer {
	return &LogDeliverer{logger: log}
}

func (d *LogDeliverer) Deliver(ctx context.Context, job *notification.Job) error {
	d.logger.InfowCtx(ctx, "Delivering notification (log mode)",
		"user_id", job.UserID,
		"type", string(job.Type),
		"title", job.Title,
	)
	return nil
}
