package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type identifiers.
const (
	// EventTypeTaskAssigned is published when a task gains a new assignee.
	// It fires on create-with-assignee and on the dedicated assignment
	// operation, but not when a full update happens to change the assignee.
	EventTypeTaskAssigned = "task.assigned"
)

// Event is the envelope published by services after a state change. It
// carries the event-specific data as serialized JSON so emitters and
// handlers need no direct dependency on domain types.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened, e.g. EventTypeTaskAssigned
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// OccurredAt is the timestamp when the event was created
	OccurredAt time.Time `json:"occurred_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates a new Event with the specified type and payload.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	// Serialize the payload to JSON
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		Payload:    payloadBytes,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// TaskAssignedPayload is the payload of an EventTypeTaskAssigned event. It
// snapshots everything a notification needs; handlers never go back to the
// database for these fields.
type TaskAssignedPayload struct {
	TaskID    int64  `json:"task_id"`
	TaskTitle string `json:"task_title"`
	UserID    int64  `json:"user_id"`
	UserEmail string `json:"user_email"`
	Username  string `json:"username"`
}

// NewTaskAssignedEvent builds an EventTypeTaskAssigned event for the given
// task and assignee.
func NewTaskAssignedEvent(
	taskID int64,
	taskTitle string,
	userID int64,
	userEmail string,
	username string,
) (*Event, error) {
	return NewEvent(EventTypeTaskAssigned, TaskAssignedPayload{
		TaskID:    taskID,
		TaskTitle: taskTitle,
		UserID:    userID,
		UserEmail: userEmail,
		Username:  username,
	})
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
