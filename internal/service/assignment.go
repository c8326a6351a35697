package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/phrazzld/taskmgmt-api/internal/domain"
	"github.com/phrazzld/taskmgmt-api/internal/events"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// AssignmentService manages the task-user ownership relationship. The task
// row is the single source of truth for the relationship, so both operations
// work by loading the task and rewriting its owner reference in one
// transaction.
type AssignmentService interface {
	// Assign sets the user as the task's owner. Re-assigning a task that the
	// user already owns is a no-op and emits no event; assigning a task that
	// is unowned or owned by someone else emits an assignment event after
	// the transaction commits.
	Assign(ctx context.Context, taskID, userID int64) (*domain.Task, error)

	// Unassign clears the task's owner. Unassigning an already unowned task
	// is a no-op. Unassignment never emits an event.
	Unassign(ctx context.Context, taskID int64) (*domain.Task, error)
}

// assignmentManager implements the AssignmentService interface
type assignmentManager struct {
	db           *sql.DB
	taskStore    store.TaskStore
	userStore    store.UserStore
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewAssignmentService creates a new AssignmentService.
// It returns an error if any of the required dependencies are nil.
func NewAssignmentService(
	db *sql.DB,
	taskStore store.TaskStore,
	userStore store.UserStore,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (AssignmentService, error) {
	if db == nil {
		return nil, &TaskServiceError{
			Operation: "create_assignment_service",
			Message:   "db cannot be nil",
		}
	}
	if taskStore == nil {
		return nil, &TaskServiceError{
			Operation: "create_assignment_service",
			Message:   "taskStore cannot be nil",
		}
	}
	if userStore == nil {
		return nil, &TaskServiceError{
			Operation: "create_assignment_service",
			Message:   "userStore cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &TaskServiceError{
			Operation: "create_assignment_service",
			Message:   "eventEmitter cannot be nil",
		}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &assignmentManager{
		db:           db,
		taskStore:    taskStore,
		userStore:    userStore,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "assignment_service"),
	}, nil
}

// Assign sets the user as the task's owner.
func (m *assignmentManager) Assign(
	ctx context.Context,
	taskID, userID int64,
) (*domain.Task, error) {
	var (
		task     *domain.Task
		assignee *domain.User
		newOwner bool
	)

	err := store.RunInTransaction(ctx, m.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := m.taskStore.WithTx(tx)
		txUsers := m.userStore.WithTx(tx)

		existing, err := txTasks.GetByID(ctx, taskID)
		if err != nil {
			if errors.Is(err, store.ErrTaskNotFound) {
				return ErrTaskNotFound
			}
			return NewTaskServiceError("assign_task", "failed to retrieve task", err)
		}

		user, err := txUsers.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return NewTaskServiceError("assign_task", "failed to retrieve user", err)
		}

		newOwner = existing.AssignTo(user.ID)
		if newOwner {
			if err := txTasks.Update(ctx, existing); err != nil {
				return NewTaskServiceError("assign_task", "failed to save task", err)
			}
		}

		task = existing
		assignee = user
		return nil
	})

	if err != nil {
		return nil, err
	}

	if !newOwner {
		m.logger.Debug("task already assigned to user, nothing to do",
			"task_id", taskID,
			"user_id", userID)
		return task, nil
	}

	m.logger.Info("task assigned",
		"task_id", taskID,
		"user_id", userID)

	emitTaskAssigned(ctx, m.eventEmitter, m.logger, task, assignee)
	return task, nil
}

// Unassign clears the task's owner.
func (m *assignmentManager) Unassign(ctx context.Context, taskID int64) (*domain.Task, error) {
	var task *domain.Task

	err := store.RunInTransaction(ctx, m.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := m.taskStore.WithTx(tx)

		existing, err := txTasks.GetByID(ctx, taskID)
		if err != nil {
			if errors.Is(err, store.ErrTaskNotFound) {
				return ErrTaskNotFound
			}
			return NewTaskServiceError("unassign_task", "failed to retrieve task", err)
		}

		if existing.Unassign() {
			if err := txTasks.Update(ctx, existing); err != nil {
				return NewTaskServiceError("unassign_task", "failed to save task", err)
			}
		}

		task = existing
		return nil
	})

	if err != nil {
		return nil, err
	}

	m.logger.Info("task unassigned", "task_id", taskID)
	return task, nil
}

// emitTaskAssigned emits an assignment event after the owning transaction has
// committed. Emission failures are logged, not returned: the assignment is
// already durable and the notification pipeline has its own retry surface.
func emitTaskAssigned(
	ctx context.Context,
	emitter events.EventEmitter,
	logger *slog.Logger,
	task *domain.Task,
	assignee *domain.User,
) {
	event, err := events.NewTaskAssignedEvent(
		task.ID,
		task.Title,
		assignee.ID,
		assignee.Email,
		assignee.Username,
	)
	if err != nil {
		logger.Error("failed to create task assignment event",
			"error", err,
			"task_id", task.ID,
			"user_id", assignee.ID)
		return
	}

	if err := emitter.EmitEvent(ctx, event); err != nil {
		logger.Error("failed to emit task assignment event",
			"error", err,
			"task_id", task.ID,
			"user_id", assignee.ID,
			"event_id", event.ID)
		return
	}

	logger.Info("task assignment event emitted",
		"task_id", task.ID,
		"user_id", assignee.ID,
		"event_id", event.ID)
}
