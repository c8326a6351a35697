package service

import (
	"context"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskmgmt-api/internal/domain"
	"github.com/phrazzld/taskmgmt-api/internal/events"
)

func newAssignmentService(
	t *testing.T,
	tasks *mockTaskStore,
	users *mockUserStore,
	emitter *mockEventEmitter,
) (AssignmentService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc, err := NewAssignmentService(db, tasks, users, emitter, slog.Default())
	require.NoError(t, err)
	return svc, mock
}

func TestAssign(t *testing.T) {
	t.Run("new assignment updates task and emits event", func(t *testing.T) {
		emitter := &mockEventEmitter{}
		tasks := &mockTaskStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.Task, error) {
				return testTask(id), nil
			},
		}
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return testUser(id), nil
			},
		}
		svc, mock := newAssignmentService(t, tasks, users, emitter)

		mock.ExpectBegin()
		mock.ExpectCommit()

		task, err := svc.Assign(context.Background(), 7, 42)
		require.NoError(t, err)
		require.NotNil(t, task.UserID)
		assert.Equal(t, int64(42), *task.UserID)
		assert.Equal(t, 1, tasks.UpdateCalls)

		require.Len(t, emitter.Events(), 1)
		event := emitter.Events()[0]
		assert.Equal(t, events.EventTypeTaskAssigned, event.Type)

		var payload events.TaskAssignedPayload
		require.NoError(t, event.UnmarshalPayload(&payload))
		assert.Equal(t, int64(7), payload.TaskID)
		assert.Equal(t, int64(42), payload.UserID)
		assert.Equal(t, "jdoe@example.com", payload.UserEmail)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("re-assigning the same owner is a no-op without event", func(t *testing.T) {
		emitter := &mockEventEmitter{}
		owner := int64(42)
		tasks := &mockTaskStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.Task, error) {
				task := testTask(id)
				task.UserID = &owner
				return task, nil
			},
		}
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return testUser(id), nil
			},
		}
		svc, mock := newAssignmentService(t, tasks, users, emitter)

		mock.ExpectBegin()
		mock.ExpectCommit()

		task, err := svc.Assign(context.Background(), 7, 42)
		require.NoError(t, err)
		require.NotNil(t, task.UserID)
		assert.Equal(t, int64(42), *task.UserID)
		assert.Zero(t, tasks.UpdateCalls)
		assert.Empty(t, emitter.Events())
	})

	t.Run("reassignment to a different user emits event", func(t *testing.T) {
		emitter := &mockEventEmitter{}
		previousOwner := int64(13)
		tasks := &mockTaskStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.Task, error) {
				task := testTask(id)
				task.UserID = &previousOwner
				return task, nil
			},
		}
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return testUser(id), nil
			},
		}
		svc, mock := newAssignmentService(t, tasks, users, emitter)

		mock.ExpectBegin()
		mock.ExpectCommit()

		task, err := svc.Assign(context.Background(), 7, 42)
		require.NoError(t, err)
		assert.Equal(t, int64(42), *task.UserID)
		assert.Equal(t, 1, tasks.UpdateCalls)
		assert.Len(t, emitter.Events(), 1)
	})

	t.Run("unknown task", func(t *testing.T) {
		svc, mock := newAssignmentService(t, &mockTaskStore{}, &mockUserStore{}, &mockEventEmitter{})

		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := svc.Assign(context.Background(), 99, 42)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		tasks := &mockTaskStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.Task, error) {
				return testTask(id), nil
			},
		}
		emitter := &mockEventEmitter{}
		svc, mock := newAssignmentService(t, tasks, &mockUserStore{}, emitter)

		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := svc.Assign(context.Background(), 7, 99)
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Zero(t, tasks.UpdateCalls)
		assert.Empty(t, emitter.Events())
	})
}

func TestUnassign(t *testing.T) {
	t.Run("clears owner without emitting", func(t *testing.T) {
		emitter := &mockEventEmitter{}
		owner := int64(42)
		tasks := &mockTaskStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.Task, error) {
				task := testTask(id)
				task.UserID = &owner
				return task, nil
			},
		}
		svc, mock := newAssignmentService(t, tasks, &mockUserStore{}, emitter)

		mock.ExpectBegin()
		mock.ExpectCommit()

		task, err := svc.Unassign(context.Background(), 7)
		require.NoError(t, err)
		assert.Nil(t, task.UserID)
		assert.Equal(t, 1, tasks.UpdateCalls)
		assert.Empty(t, emitter.Events())
	})

	t.Run("already unowned task is a no-op", func(t *testing.T) {
		tasks := &mockTaskStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.Task, error) {
				return testTask(id), nil
			},
		}
		svc, mock := newAssignmentService(t, tasks, &mockUserStore{}, &mockEventEmitter{})

		mock.ExpectBegin()
		mock.ExpectCommit()

		task, err := svc.Unassign(context.Background(), 7)
		require.NoError(t, err)
		assert.Nil(t, task.UserID)
		assert.Zero(t, tasks.UpdateCalls)
	})

	t.Run("unknown task", func(t *testing.T) {
		svc, mock := newAssignmentService(t, &mockTaskStore{}, &mockUserStore{}, &mockEventEmitter{})

		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := svc.Unassign(context.Background(), 99)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}
