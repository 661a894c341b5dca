package notification

import "time"

type Type string

const (
	TypeReaction     Type = "reaction"
	TypeMessage      Type = "message"
	TypeMessageBatch Type = "message_batch"
	TypeModeration   Type = "moderation"
	TypeSystem       Type = "system"
)

func (t Type) Valid() bool {
	switch t {
	case TypeReaction, TypeMessage, TypeMessageBatch, TypeModeration, TypeSystem:
		return true
	}
	return false
}

// Metadata is a tagged union: exactly the variant matching the job's Type
// is populated, the rest stay nil.
type Metadata struct {
	Reaction   *ReactionMeta   `json:"reaction,omitempty"`
	Message    *MessageMeta    `json:"message,omitempty"`
	Batch      *BatchMeta      `json:"batch,omitempty"`
	Moderation *ModerationMeta `json:"moderation,omitempty"`
}

type ReactionMeta struct {
	ConfessionID       string `json:"confession_id"`
	ReactorAnonymousID string `json:"reactor_anonymous_id"`
	Emoji              string `json:"emoji"`
}

type MessageMeta struct {
	MessageID         string `json:"message_id"`
	SenderAnonymousID string `json:"sender_anonymous_id"`
}

type BatchMeta struct {
	MessageCount int `json:"message_count"`
}

type ModerationMeta struct {
	Action       string `json:"action"`
	Reason       string `json:"reason,omitempty"`
	ConfessionID string `json:"confession_id,omitempty"`
}

// Job is the unit of work flowing through the delivery queue. A job lives
// in exactly one place at a time: the queue, a worker, or the dead-letter
// store.
type Job struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Type         Type      `json:"type"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Metadata     Metadata  `json:"metadata"`
	AttemptsMade int       `json:"attempts_made"`
	MaxAttempts  int       `json:"max_attempts"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}
