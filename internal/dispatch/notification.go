package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskmgmt-api/internal/events"
)

// Common errors
var (
	ErrNilLogger      = errors.New("logger cannot be nil")
	ErrEmptyRecipient = errors.New("notification recipient cannot be empty")
)

// AssignmentNotification implements the Job interface for telling a user
// that a task was assigned to them. The payload snapshots everything needed
// at assignment time, so delivery never reads the tasks or users tables.
//
// Delivery here is a structured log line standing in for an outbound channel
// (email, push). Swapping in a real sender only touches Execute.
type AssignmentNotification struct {
	id      uuid.UUID
	details events.TaskAssignedPayload
	logger  *slog.Logger
	status  JobStatus
}

// NewAssignmentNotification creates a new assignment notification job for
// the given event payload.
func NewAssignmentNotification(
	details events.TaskAssignedPayload,
	logger *slog.Logger,
) (*AssignmentNotification, error) {
	if logger == nil {
		return nil, ErrNilLogger
	}
	if details.UserEmail == "" {
		return nil, ErrEmptyRecipient
	}

	return &AssignmentNotification{
		id:      uuid.New(),
		details: details,
		logger:  logger.With("job_type", JobTypeAssignmentNotification),
		status:  JobStatusPending,
	}, nil
}

// ID returns the job's unique identifier
func (n *AssignmentNotification) ID() uuid.UUID {
	return n.id
}

// Type returns the job type identifier
func (n *AssignmentNotification) Type() string {
	return JobTypeAssignmentNotification
}

// Status returns the current job status
func (n *AssignmentNotification) Status() JobStatus {
	return n.status
}

// Payload returns the serialized notification details
func (n *AssignmentNotification) Payload() []byte {
	data, err := json.Marshal(n.details)
	if err != nil {
		// TaskAssignedPayload contains only marshalable fields, so this
		// cannot happen at runtime
		n.logger.Error("failed to marshal notification payload", "error", err)
		return []byte("{}")
	}
	return data
}

// Execute delivers the notification.
func (n *AssignmentNotification) Execute(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.logger.Info("delivering task assignment notification",
		"job_id", n.id,
		"task_id", n.details.TaskID,
		"task_title", n.details.TaskTitle,
		"user_id", n.details.UserID,
		"username", n.details.Username)

	n.logger.Info("notification sent",
		"job_id", n.id,
		"recipient", n.details.UserEmail,
		"message", fmt.Sprintf("Hello %s, the task %q has been assigned to you.",
			n.details.Username, n.details.TaskTitle))

	return nil
}

// NewRecoveryFactory returns a JobFactory that reconstitutes notification
// jobs loaded from the database during crash recovery.
func NewRecoveryFactory(logger *slog.Logger) JobFactory {
	return func(id uuid.UUID, jobType string, payload []byte, status JobStatus) (Job, error) {
		if jobType != JobTypeAssignmentNotification {
			return nil, fmt.Errorf("unknown job type: %s", jobType)
		}

		var details events.TaskAssignedPayload
		if err := json.Unmarshal(payload, &details); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification payload: %w", err)
		}

		job, err := NewAssignmentNotification(details, logger)
		if err != nil {
			return nil, err
		}
		job.id = id
		job.status = status
		return job, nil
	}
}
