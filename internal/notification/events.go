package notification

import (
	"fmt"

	"confide/pkg/errors"
	"confide/pkg/models"
)

// ReactionEvent is emitted when someone reacts to a confession.
type ReactionEvent struct {
	UserID             string
	ConfessionID       string
	ReactorAnonymousID string
	Emoji              string
}

// MessageEvent is emitted when an anonymous message is sent to a user.
type MessageEvent struct {
	UserID            string
	MessageID         string
	SenderAnonymousID string
	Preview           string
}

// ModerationEvent is emitted when a moderator acts on a user's confession.
type ModerationEvent struct {
	UserID       string
	Action       string
	Reason       string
	ConfessionID string
}

// SystemEvent is a platform announcement addressed to a single user.
type SystemEvent struct {
	UserID string
	Title  string
	Body   string
}

func decodeReactionEvent(env models.EventEnvelope) (ReactionEvent, error) {
	userID, err := stringField(env.Payload, "user_id")
	if err != nil {
		return ReactionEvent{}, err
	}
	return ReactionEvent{
		UserID:             userID,
		ConfessionID:       optionalStringField(env.Payload, "confession_id"),
		ReactorAnonymousID: optionalStringField(env.Payload, "reactor_anonymous_id"),
		Emoji:              optionalStringField(env.Payload, "emoji"),
	}, nil
}

func decodeMessageEvent(env models.EventEnvelope) (MessageEvent, error) {
	userID, err := stringField(env.Payload, "user_id")
	if err != nil {
		return MessageEvent{}, err
	}
	return MessageEvent{
		UserID:            userID,
		MessageID:         optionalStringField(env.Payload, "message_id"),
		SenderAnonymousID: optionalStringField(env.Payload, "sender_anonymous_id"),
		Preview:           optionalStringField(env.Payload, "preview"),
	}, nil
}

func decodeModerationEvent(env models.EventEnvelope) (ModerationEvent, error) {
	userID, err := stringField(env.Payload, "user_id")
	if err != nil {
		return ModerationEvent{}, err
	}
	action, err := stringField(env.Payload, "action")
	if err != nil {
		return ModerationEvent{}, err
	}
	return ModerationEvent{
		UserID:       userID,
		Action:       action,
		Reason:       optionalStringField(env.Payload, "reason"),
		ConfessionID: optionalStringField(env.Payload, "confession_id"),
	}, nil
}

func decodeSystemEvent(env models.EventEnvelope) (SystemEvent, error) {
	userID, err := stringField(env.Payload, "user_id")
	if err != nil {
		return SystemEvent{}, err
	}
	title, err := stringField(env.Payload, "title")
	if err != nil {
		return SystemEvent{}, err
	}
	return SystemEvent{
		UserID: userID,
		Title:  title,
		Body:   optionalStringField(env.Payload, "body"),
	}, nil
}

func stringField(payload map[string]interface{}, key string) (string, error) {
	v, ok := payload[key]
	if !ok {
		return "", errors.ErrValidation.
			WithDetail("message", fmt.Sprintf("missing required field %q", key)).
			AsFatal()
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", errors.ErrValidation.
			WithDetail("message", fmt.Sprintf("field %q must be a non-empty string", key)).
			AsFatal()
	}
	return s, nil
}

func optionalStringField(payload map[string]interface{}, key string) string {
	if s, ok := payload[key].(string); ok {
		return s
	}
	return ""
}
