package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is something that happened in the review or assistant workflow
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	Subject   string                 `json:"subject"` // invoice ID or ticket, when there is one
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// New creates an event with a generated ID and the current time
func New(eventType Type, subject string, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// WithPayload returns a copy of e with key set in its payload
func (e *Event) WithPayload(key string, value interface{}) *Event {
	payload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		payload[k] = v
	}
	payload[key] = value

	cp := *e
	cp.Payload = payload
	return &cp
}

// String reads a string payload value, or "" if missing
func (e *Event) String(key string) string {
	if s, ok := e.Payload[key].(string); ok {
		return s
	}
	return ""
}

// Value reads a payload value of type T, reporting whether it was present
func Value[T any](e *Event, key string) (T, bool) {
	v, ok := e.Payload[key].(T)
	return v, ok
}
