package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a workflow lifecycle event. Consumers (notification
// dispatch, real-time fan-out, audit trail) subscribe independently; the
// engine never waits on them.
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	ContentID     string                 `json:"content_id"`
	StageID       string                 `json:"stage_id,omitempty"`
	UserID        string                 `json:"user_id,omitempty"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// New creates a lifecycle event with a generated ID and timestamp.
func New(eventType Type, contentID string, payload map[string]interface{}) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		ContentID:     contentID,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: uuid.NewString(),
	}
}

// WithStage returns the event with the stage identifier set.
func (e *Event) WithStage(stageID string) *Event {
	e.StageID = stageID
	return e
}

// WithUser returns the event with the acting user set.
func (e *Event) WithUser(userID string) *Event {
	e.UserID = userID
	return e
}

// GetPayloadString retrieves a string value from the payload.
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
