package delivery

import (
	"context"

	"github.com/sony/gobreaker"

	"confide/internal/config"
	"confide/internal/notification"
	"confide/pkg/circuitbreaker"
)

// BreakerDeliverer short-circuits attempts while the downstream is
// failing. A rejected attempt is a failed attempt and burns through the
// job's budget the same as a real refusal.
type BreakerDeliverer struct {
	inner   Deliverer
	breaker *circuitbreaker.Wrapper
}

func NewBreakerDeliverer(inner Deliverer, cfg config.CircuitBreakerConfig) *BreakerDeliverer {
	cbCfg := circuitbreaker.DefaultConfig("delivery")
	if cfg.MaxRequests > 0 {
		cbCfg.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbCfg.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbCfg.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		ratio := cfg.FailureRatio
		min := cfg.MinRequests
		cbCfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= min && failureRatio >= ratio
		}
	}

	return &BreakerDeliverer{
		inner:   inner,
		breaker: circuitbreaker.NewWrapper(cbCfg),
	}
}

func (d *BreakerDeliverer) Deliver(ctx context.Context, job *notification.Job) error {
	_, err := d.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return nil, d.inner.Deliver(ctx, job)
	})
	d.breaker.RecordRequest(err == nil)
	return err
}

func (d *BreakerDeliverer) IsOpen() bool {
	return d.breaker.IsOpen()
}
