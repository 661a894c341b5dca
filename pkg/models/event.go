package models

import "time"

// EventEnvelope is the wire format for domain events published by the
// confession platform. The notification service consumes these and turns
// them into delivery jobs.
type EventEnvelope struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
	Metadata  EventMetadata          `json:"metadata"`
}

type EventMetadata struct {
	TraceID string `json:"trace_id,omitempty"`
}

// Domain event types emitted by the platform.
const (
	EventReactionCreated    = "reaction.created"
	EventMessageCreated     = "message.created"
	EventModerationAction   = "moderation.action"
	EventSystemAnnouncement = "system.announcement"
)

// Lifecycle event types emitted by the notification service itself, so
// the platform can observe jobs entering and leaving the dead-letter
// store.
const (
	EventNotificationDeadLettered = "notification.dead_lettered"
	EventNotificationRequeued     = "notification.requeued"
)
