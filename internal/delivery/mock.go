package delivery

import (
	"context"
	"sync"

	"confide/internal/notification"
)

// MockDeliverer is a scriptable deliverer for tests and local runs. By
// default every attempt succeeds; FailFirst makes the first N attempts
// per job fail, and Err forces a permanent failure.
type MockDeliverer struct {
	mu        sync.Mutex
	attempts  map[string]int
	delivered []notification.Job

	FailFirst int
	Err       error
}

func NewMockDeliverer() *MockDeliverer {
	return &MockDeliverer{
		attempts: make(map[string]int),
	}
}

func (d *MockDeliverer) Deliver(_ context.Context, job *notification.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.attempts[job.ID]++
	if d.Err != nil {
		return d.Err
	}
	if d.attempts[job.ID] <= d.FailFirst {
		return errAttemptRefused
	}

	d.delivered = append(d.delivered, *job)
	return nil
}

// Delivered returns a copy of the successfully delivered jobs.
func (d *MockDeliverer) Delivered() []notification.Job {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]notification.Job, len(d.delivered))
	copy(out, d.delivered)
	return out
}

// Attempts reports how many times a job id was attempted.
func (d *MockDeliverer) Attempts(jobID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts[jobID]
}

type refusedError struct{}

func (refusedError) Error() string { return "delivery refused" }

var errAttemptRefused = refusedError{}
