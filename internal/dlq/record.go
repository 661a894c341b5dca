// Package dlq implements the dead-letter quarantine: a store of jobs
// that exhausted their delivery attempts, plus the operator API to
// inspect, re-enqueue, and purge them.
package dlq

import (
	"time"

	"confide/internal/notification"
)

// Record preserves an exhausted job with its failure context. Records
// are immutable once stored; operator retry creates a fresh job rather
// than mutating the record.
type Record struct {
	ID            string           `json:"id"`
	Job           notification.Job `json:"job"`
	OriginalJobID string           `json:"original_job_id"`
	FailedAt      time.Time        `json:"failed_at"`
	AttemptsMade  int              `json:"attempts_made"`
	LastError     string           `json:"last_error"`
}

// View is the wire shape returned by the operator API.
type View struct {
	ID           string                `json:"id"`
	UserID       string                `json:"userId"`
	Type         string                `json:"type"`
	Title        string                `json:"title"`
	Body         string                `json:"body"`
	Metadata     notification.Metadata `json:"metadata"`
	FailedAt     time.Time             `json:"failedAt"`
	AttemptsMade int                   `json:"attemptsMade"`
	LastError    string                `json:"lastError"`
	EnqueuedAt   time.Time             `json:"enqueuedAt"`
}

func (r *Record) ToView() View {
	return View{
		ID:           r.ID,
		UserID:       r.Job.UserID,
		Type:         string(r.Job.Type),
		Title:        r.Job.Title,
		Body:         r.Job.Body,
		Metadata:     r.Job.Metadata,
		FailedAt:     r.FailedAt,
		AttemptsMade: r.AttemptsMade,
		LastError:    r.LastError,
		EnqueuedAt:   r.Job.EnqueuedAt,
	}
}
