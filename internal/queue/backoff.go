package queue

import (
	"math/rand"
	"time"

	"confide/internal/config"
	"confide/pkg/retry"
)

// retryDelay computes the wait before re-enqueueing a job that has made
// `attempt` failed attempts (attempt >= 1). The base doubles per attempt
// and is capped at the max; half the base is kept and the other half is
// jittered so the lower bound still grows monotonically while concurrent
// retries spread out.
func retryDelay(cfg config.BackoffConfig, attempt int) time.Duration {
	base := retry.CalculateBackoffDuration(attempt-1, cfg.InitialInterval, cfg.Multiplier, cfg.MaxInterval)
	if base <= 0 {
		return 0
	}
	half := base / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}
