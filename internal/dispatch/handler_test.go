package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskmgmt-api/internal/events"
)

// mockSubmitter records submitted jobs for inspection
type mockSubmitter struct {
	submitted []Job
	submitErr error
}

func (m *mockSubmitter) Submit(ctx context.Context, job Job) error {
	if m.submitErr != nil {
		return m.submitErr
	}
	m.submitted = append(m.submitted, job)
	return nil
}

func TestNotificationEventHandler_HandleEvent(t *testing.T) {
	t.Parallel()

	t.Run("submits a job for task assigned events", func(t *testing.T) {
		t.Parallel()

		submitter := &mockSubmitter{}
		handler := NewNotificationEventHandler(submitter, testLogger())

		event, err := events.NewTaskAssignedEvent(42, "Prepare release notes", 7, "casey@example.com", "casey")
		require.NoError(t, err)

		err = handler.HandleEvent(context.Background(), event)
		require.NoError(t, err)

		require.Len(t, submitter.submitted, 1)
		assert.Equal(t, JobTypeAssignmentNotification, submitter.submitted[0].Type())
	})

	t.Run("ignores other event types", func(t *testing.T) {
		t.Parallel()

		submitter := &mockSubmitter{}
		handler := NewNotificationEventHandler(submitter, testLogger())

		event, err := events.NewEvent("something.else", map[string]string{"key": "value"})
		require.NoError(t, err)

		err = handler.HandleEvent(context.Background(), event)
		assert.NoError(t, err)
		assert.Empty(t, submitter.submitted)
	})

	t.Run("propagates submit failures", func(t *testing.T) {
		t.Parallel()

		submitter := &mockSubmitter{submitErr: errors.New("queue is full")}
		handler := NewNotificationEventHandler(submitter, testLogger())

		event, err := events.NewTaskAssignedEvent(42, "Prepare release notes", 7, "casey@example.com", "casey")
		require.NoError(t, err)

		err = handler.HandleEvent(context.Background(), event)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to submit notification job")
	})

	t.Run("rejects malformed payloads", func(t *testing.T) {
		t.Parallel()

		submitter := &mockSubmitter{}
		handler := NewNotificationEventHandler(submitter, testLogger())

		event := &events.Event{
			Type:    events.EventTypeTaskAssigned,
			Payload: []byte("not json"),
		}

		err := handler.HandleEvent(context.Background(), event)
		assert.Error(t, err)
		assert.Empty(t, submitter.submitted)
	})
}
