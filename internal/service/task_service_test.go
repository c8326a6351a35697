package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskmgmt-api/internal/domain"
	"github.com/phrazzld/taskmgmt-api/internal/events"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

func testTask(id int64) *domain.Task {
	due := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	task, err := domain.NewTask("Prepare quarterly report", "Compile Q3 figures", domain.PriorityHigh, due)
	if err != nil {
		panic(err)
	}
	task.ID = id
	return task
}

func testUser(id int64) *domain.User {
	user, err := domain.NewUser("jdoe", "jdoe@example.com", "password1")
	if err != nil {
		panic(err)
	}
	user.ID = id
	user.HashedPassword = "$2a$10$fakehash"
	user.Password = ""
	return user
}

func newTaskService(
	t *testing.T,
	tasks *mockTaskStore,
	users *mockUserStore,
	emitter *mockEventEmitter,
) (TaskService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc, err := NewTaskService(db, tasks, users, emitter, slog.Default())
	require.NoError(t, err)
	return svc, mock
}

func TestNewTaskServiceValidatesDependencies(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = NewTaskService(nil, &mockTaskStore{}, &mockUserStore{}, &mockEventEmitter{}, nil)
	assert.Error(t, err)

	_, err = NewTaskService(db, nil, &mockUserStore{}, &mockEventEmitter{}, nil)
	assert.Error(t, err)

	_, err = NewTaskService(db, &mockTaskStore{}, nil, &mockEventEmitter{}, nil)
	assert.Error(t, err)

	_, err = NewTaskService(db, &mockTaskStore{}, &mockUserStore{}, nil, nil)
	assert.Error(t, err)

	svc, err := NewTaskService(db, &mockTaskStore{}, &mockUserStore{}, &mockEventEmitter{}, nil)
	assert.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestTaskServiceFindByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		tasks := &mockTaskStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.Task, error) {
				return testTask(id), nil
			},
		}
		svc, _ := newTaskService(t, tasks, &mockUserStore{}, &mockEventEmitter{})

		task, err := svc.FindByID(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), task.ID)
	})

	t.Run("not found maps to service sentinel", func(t *testing.T) {
		svc, _ := newTaskService(t, &mockTaskStore{}, &mockUserStore{}, &mockEventEmitter{})

		_, err := svc.FindByID(context.Background(), 99)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}

func TestTaskServiceFindAll(t *testing.T) {
	t.Run("returns page from store", func(t *testing.T) {
		tasks := &mockTaskStore{
			ListFn: func(ctx context.Context, req store.PageRequest) (store.Page[*domain.Task], error) {
				return store.NewPage([]*domain.Task{testTask(1), testTask(2)}, 12, req), nil
			},
		}
		svc, _ := newTaskService(t, tasks, &mockUserStore{}, &mockEventEmitter{})

		page, err := svc.FindAll(context.Background(), store.DefaultPageRequest())
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Equal(t, int64(12), page.TotalElements)
	})

	t.Run("offset violation surfaces unchanged", func(t *testing.T) {
		tasks := &mockTaskStore{
			ListFn: func(ctx context.Context, req store.PageRequest) (store.Page[*domain.Task], error) {
				return store.Page[*domain.Task]{}, store.ErrOffsetOutOfRange
			},
		}
		svc, _ := newTaskService(t, tasks, &mockUserStore{}, &mockEventEmitter{})

		_, err := svc.FindAll(context.Background(), store.PageRequest{Page: 1 << 30, Size: 100})
		assert.ErrorIs(t, err, store.ErrOffsetOutOfRange)
	})
}

func TestTaskServiceFindByPriority(t *testing.T) {
	svc, _ := newTaskService(t, &mockTaskStore{}, &mockUserStore{}, &mockEventEmitter{})

	_, err := svc.FindByPriority(context.Background(), domain.Priority("URGENT"), store.DefaultPageRequest())
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestTaskServiceSearchRejectsBlankQuery(t *testing.T) {
	searched := false
	tasks := &mockTaskStore{
		SearchFn: func(ctx context.Context, query string, req store.PageRequest) (store.Page[*domain.Task], error) {
			searched = true
			return store.Page[*domain.Task]{}, nil
		},
	}
	svc, _ := newTaskService(t, tasks, &mockUserStore{}, &mockEventEmitter{})

	_, err := svc.Search(context.Background(), "   ", store.DefaultPageRequest())
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.False(t, searched, "blank query must never reach the store")
}

func TestTaskServiceFindByUserID(t *testing.T) {
	t.Run("unknown user maps to service sentinel", func(t *testing.T) {
		svc, _ := newTaskService(t, &mockTaskStore{}, &mockUserStore{}, &mockEventEmitter{})

		_, err := svc.FindByUserID(context.Background(), 42, store.DefaultPageRequest())
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("existing user with no tasks yields empty page", func(t *testing.T) {
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return testUser(id), nil
			},
		}
		tasks := &mockTaskStore{
			FindByUserIDFn: func(ctx context.Context, userID int64, req store.PageRequest) (store.Page[*domain.Task], error) {
				return store.NewPage([]*domain.Task{}, 0, req), nil
			},
		}
		svc, _ := newTaskService(t, tasks, users, &mockEventEmitter{})

		page, err := svc.FindByUserID(context.Background(), 42, store.DefaultPageRequest())
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Zero(t, page.TotalElements)
	})
}

func TestTaskServiceCreate(t *testing.T) {
	t.Run("unassigned task emits no event", func(t *testing.T) {
		emitter := &mockEventEmitter{}
		tasks := &mockTaskStore{}
		svc, mock := newTaskService(t, tasks, &mockUserStore{}, emitter)

		mock.ExpectBegin()
		mock.ExpectCommit()

		task := testTask(0)
		created, err := svc.Create(context.Background(), task)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		assert.Empty(t, emitter.Events())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("task created with assignee emits assignment event", func(t *testing.T) {
		emitter := &mockEventEmitter{}
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return testUser(id), nil
			},
		}
		svc, mock := newTaskService(t, &mockTaskStore{}, users, emitter)

		mock.ExpectBegin()
		mock.ExpectCommit()

		task := testTask(0)
		userID := int64(42)
		task.UserID = &userID

		created, err := svc.Create(context.Background(), task)
		require.NoError(t, err)
		require.Len(t, emitter.Events(), 1)

		event := emitter.Events()[0]
		assert.Equal(t, events.EventTypeTaskAssigned, event.Type)

		var payload events.TaskAssignedPayload
		require.NoError(t, event.UnmarshalPayload(&payload))
		assert.Equal(t, created.ID, payload.TaskID)
		assert.Equal(t, created.Title, payload.TaskTitle)
		assert.Equal(t, int64(42), payload.UserID)
		assert.Equal(t, "jdoe@example.com", payload.UserEmail)
		assert.Equal(t, "jdoe", payload.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown assignee aborts the transaction", func(t *testing.T) {
		emitter := &mockEventEmitter{}
		tasks := &mockTaskStore{}
		svc, mock := newTaskService(t, tasks, &mockUserStore{}, emitter)

		mock.ExpectBegin()
		mock.ExpectRollback()

		task := testTask(0)
		userID := int64(42)
		task.UserID = &userID

		_, err := svc.Create(context.Background(), task)
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.Zero(t, tasks.CreateCalls)
		assert.Empty(t, emitter.Events())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("emit failure does not fail the request", func(t *testing.T) {
		emitter := &mockEventEmitter{err: errors.New("handler down")}
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return testUser(id), nil
			},
		}
		svc, mock := newTaskService(t, &mockTaskStore{}, users, emitter)

		mock.ExpectBegin()
		mock.ExpectCommit()

		task := testTask(0)
		userID := int64(42)
		task.UserID = &userID

		created, err := svc.Create(context.Background(), task)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
	})
}

func TestTaskServiceUpdate(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		svc, mock := newTaskService(t, &mockTaskStore{}, &mockUserStore{}, &mockEventEmitter{})

		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := svc.Update(context.Background(), 99, testTask(0))
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})

	t.Run("reassignment through update emits no event", func(t *testing.T) {
		emitter := &mockEventEmitter{}
		tasks := &mockTaskStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.Task, error) {
				return testTask(id), nil
			},
		}
		svc, mock := newTaskService(t, tasks, &mockUserStore{}, emitter)

		mock.ExpectBegin()
		mock.ExpectCommit()

		updated := testTask(0)
		updated.Title = "Prepare annual report"
		userID := int64(42)
		updated.UserID = &userID

		task, err := svc.Update(context.Background(), 7, updated)
		require.NoError(t, err)
		assert.Equal(t, "Prepare annual report", task.Title)
		require.NotNil(t, task.UserID)
		assert.Equal(t, int64(42), *task.UserID)
		assert.Equal(t, 1, tasks.UpdateCalls)
		assert.Empty(t, emitter.Events())
	})
}

func TestTaskServiceSetCompleted(t *testing.T) {
	tasks := &mockTaskStore{
		GetByIDFn: func(ctx context.Context, id int64) (*domain.Task, error) {
			return testTask(id), nil
		},
	}
	svc, mock := newTaskService(t, tasks, &mockUserStore{}, &mockEventEmitter{})

	mock.ExpectBegin()
	mock.ExpectCommit()

	task, err := svc.SetCompleted(context.Background(), 7, true)
	require.NoError(t, err)
	assert.True(t, task.Completed)
	assert.Equal(t, 1, tasks.UpdateCalls)
}

func TestTaskServiceDelete(t *testing.T) {
	t.Run("deletes existing task", func(t *testing.T) {
		tasks := &mockTaskStore{}
		svc, _ := newTaskService(t, tasks, &mockUserStore{}, &mockEventEmitter{})

		require.NoError(t, svc.Delete(context.Background(), 7))
		assert.Equal(t, 1, tasks.DeleteCalls)
	})

	t.Run("not found", func(t *testing.T) {
		tasks := &mockTaskStore{
			DeleteFn: func(ctx context.Context, id int64) error {
				return store.ErrTaskNotFound
			},
		}
		svc, _ := newTaskService(t, tasks, &mockUserStore{}, &mockEventEmitter{})

		err := svc.Delete(context.Background(), 99)
		assert.ErrorIs(t, err, ErrTaskNotFound)
	})
}
