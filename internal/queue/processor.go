package queue

import (
	"context"
	stderrors "errors"
	"time"

	"confide/internal/config"
	"confide/internal/delivery"
	"confide/internal/logger"
	"confide/internal/notification"
	"confide/pkg/errors"
	"confide/pkg/metrics"
)

// DeliveryProcessor performs a single delivery attempt against the
// configured deliverer, bounded by the per-attempt timeout. A timeout is
// a failed attempt like any other.
type DeliveryProcessor struct {
	deliverer     delivery.Deliverer
	timeout       time.Duration
	slowThreshold time.Duration
	logger        logger.Logger
}

func NewProcessor(deliverer delivery.Deliverer, cfg config.QueueConfig, log logger.Logger) *DeliveryProcessor {
	timeout := cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	slow := cfg.SlowAttemptThreshold
	if slow <= 0 {
		slow = 5 * time.Second
	}
	return &DeliveryProcessor{
		deliverer:     deliverer,
		timeout:       timeout,
		slowThreshold: slow,
		logger:        log,
	}
}

func (p *DeliveryProcessor) Process(ctx context.Context, job *notification.Job) error {
	attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	err := p.deliverer.Deliver(attemptCtx, job)
	elapsed := time.Since(start)

	if elapsed > p.slowThreshold {
		p.logger.WarnwCtx(ctx, "Slow delivery attempt",
			"duration_ms", elapsed.Milliseconds(),
			"threshold_ms", p.slowThreshold.Milliseconds(),
		)
	}

	if err != nil {
		metrics.DeliveryAttemptsTotal.WithLabelValues("failure").Inc()
		metrics.ObserveDeliveryDuration(elapsed, "failure")
		if stderrors.Is(err, context.DeadlineExceeded) {
			return errors.ErrTimeout.
				WithDetail("message", "delivery attempt timed out").
				WithCause(err)
		}
		return err
	}

	metrics.DeliveryAttemptsTotal.WithLabelValues("success").Inc()
	metrics.ObserveDeliveryDuration(elapsed, "success")
	return nil
}
