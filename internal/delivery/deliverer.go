// Package delivery holds the outbound side of the pipeline: the
// Deliverer collaborator the queue workers call once per attempt, with
// webhook and log implementations plus pacing and circuit-breaker
// decorators.
package delivery

import (
	"context"

	"confide/internal/notification"
)

// Deliverer pushes one notification to its destination. Implementations
// must honor ctx cancellation; a non-nil return marks the attempt failed.
type Deliverer interface {
	Deliver(ctx context.Context, job *notification.Job) error
}
