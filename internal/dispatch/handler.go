package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskmgmt-api/internal/events"
)

// JobSubmitter is the part of the Runner the event handler depends on.
type JobSubmitter interface {
	Submit(ctx context.Context, job Job) error
}

// NotificationEventHandler implements the events.EventHandler interface.
// It converts task-assigned events into notification jobs and hands them to
// the runner. Submission uses a context detached from the request, so an
// already-answered HTTP request cannot cancel the persist step.
type NotificationEventHandler struct {
	runner JobSubmitter
	logger *slog.Logger
}

// NewNotificationEventHandler creates a new event handler that submits
// assignment notifications to the provided runner.
func NewNotificationEventHandler(runner JobSubmitter, logger *slog.Logger) *NotificationEventHandler {
	return &NotificationEventHandler{
		runner: runner,
		logger: logger.With("component", "notification_event_handler"),
	}
}

// HandleEvent processes task-assigned events by creating and submitting
// notification jobs. Events of any other type are ignored.
func (h *NotificationEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.EventTypeTaskAssigned {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var details events.TaskAssignedPayload
	if err := event.UnmarshalPayload(&details); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	job, err := NewAssignmentNotification(details, h.logger)
	if err != nil {
		h.logger.Error("failed to create notification job",
			"error", err,
			"task_id", details.TaskID,
			"event_id", event.ID)
		return fmt.Errorf("failed to create notification job: %w", err)
	}

	// Detach from the request context: the assignment is already committed,
	// so the caller disconnecting must not lose the notification.
	if err := h.runner.Submit(context.WithoutCancel(ctx), job); err != nil {
		h.logger.Error("failed to submit notification job",
			"error", err,
			"job_id", job.ID(),
			"task_id", details.TaskID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit notification job: %w", err)
	}

	h.logger.Info("notification job submitted",
		"job_id", job.ID(),
		"task_id", details.TaskID,
		"user_id", details.UserID,
		"event_id", event.ID)
	return nil
}

// Ensure NotificationEventHandler implements events.EventHandler
var _ events.EventHandler = (*NotificationEventHandler)(nil)
