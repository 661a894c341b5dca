package delivery

import (
	"context"

	"golang.org/x/time/rate"

	"confide/internal/notification"
)

// PacedDeliverer smooths the outbound send rate with a token bucket so a
// burst of retries cannot hammer the downstream.
type PacedDeliverer struct {
	inner   Deliverer
	limiter *rate.Limiter
}

func NewPacedDeliverer(inner Deliverer, rps float64, burst int) *PacedDeliverer {
	if burst <= 0 {
		burst = 1
	}
	return &PacedDeliverer{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (d *PacedDeliverer) Deliver(ctx context.Context, job *notification.Job) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	return d.inner.Deliver(ctx, job)
}
