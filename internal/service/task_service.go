package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/taskmgmt-api/internal/domain"
	"github.com/phrazzld/taskmgmt-api/internal/events"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// TaskService provides task-related operations
type TaskService interface {
	// FindAll retrieves a page of all tasks
	FindAll(ctx context.Context, req store.PageRequest) (store.Page[*domain.Task], error)

	// Search retrieves a page of tasks whose title or description contains
	// the query string (case-insensitive)
	Search(ctx context.Context, query string, req store.PageRequest) (store.Page[*domain.Task], error)

	// FindByCompleted retrieves a page of tasks filtered by completion state
	FindByCompleted(ctx context.Context, completed bool, req store.PageRequest) (store.Page[*domain.Task], error)

	// FindByPriority retrieves a page of tasks filtered by priority
	FindByPriority(ctx context.Context, priority domain.Priority, req store.PageRequest) (store.Page[*domain.Task], error)

	// FindByUserID retrieves a page of tasks assigned to the given user
	FindByUserID(ctx context.Context, userID int64, req store.PageRequest) (store.Page[*domain.Task], error)

	// FindByID retrieves a task by its ID
	FindByID(ctx context.Context, id int64) (*domain.Task, error)

	// Create persists a new task. When the task carries an assignee, the
	// assignee is validated in the same transaction and an assignment event
	// is emitted after the task is committed.
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)

	// Update replaces all mutable attributes of an existing task, including
	// its assignee reference. No assignment event is emitted; explicit
	// assignment goes through the AssignmentService.
	Update(ctx context.Context, id int64, updated *domain.Task) (*domain.Task, error)

	// SetCompleted sets the completion flag of an existing task
	SetCompleted(ctx context.Context, id int64, completed bool) (*domain.Task, error)

	// Delete removes a task by its ID
	Delete(ctx context.Context, id int64) error
}

// TaskServiceError wraps errors from the task service with context.
type TaskServiceError struct {
	// Operation is the operation that failed (e.g., "create_task", "update_task")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
// It returns known sentinel errors directly without wrapping, mapping
// store-level sentinels to their service-level equivalents.
func NewTaskServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	// Check for service-defined sentinel errors
	if errors.Is(err, ErrTaskNotFound) || errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrInvalidArgument) {
		return err
	}

	// Check for store-level sentinel errors that should be mapped to service-level ones
	if errors.Is(err, store.ErrTaskNotFound) {
		return ErrTaskNotFound
	}
	if errors.Is(err, store.ErrUserNotFound) {
		return ErrUserNotFound
	}

	// Pagination bound violations surface unchanged so the API layer can
	// map them to a client error
	if errors.Is(err, store.ErrOffsetOutOfRange) {
		return err
	}

	// If not a sentinel to be returned directly, wrap it
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	db           *sql.DB
	taskStore    store.TaskStore
	userStore    store.UserStore
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	db *sql.DB,
	taskStore store.TaskStore,
	userStore store.UserStore,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	// Validate dependencies
	if db == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "db cannot be nil",
		}
	}
	if taskStore == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "taskStore cannot be nil",
		}
	}
	if userStore == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "userStore cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &TaskServiceError{
			Operation: "create_service",
			Message:   "eventEmitter cannot be nil",
		}
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		db:           db,
		taskStore:    taskStore,
		userStore:    userStore,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "task_service"),
	}, nil
}

// FindAll retrieves a page of all tasks
func (s *taskServiceImpl) FindAll(
	ctx context.Context,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	page, err := s.taskStore.List(ctx, req)
	if err != nil {
		return store.Page[*domain.Task]{}, NewTaskServiceError(
			"list_tasks",
			"failed to list tasks",
			err,
		)
	}
	return page, nil
}

// Search retrieves a page of tasks matching the query string
func (s *taskServiceImpl) Search(
	ctx context.Context,
	query string,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	query = strings.TrimSpace(query)
	if query == "" {
		// Rejected before the store is ever consulted
		return store.Page[*domain.Task]{}, fmt.Errorf(
			"%w: search query cannot be blank", ErrInvalidArgument)
	}

	page, err := s.taskStore.Search(ctx, query, req)
	if err != nil {
		return store.Page[*domain.Task]{}, NewTaskServiceError(
			"search_tasks",
			"failed to search tasks",
			err,
		)
	}
	return page, nil
}

// FindByCompleted retrieves a page of tasks filtered by completion state
func (s *taskServiceImpl) FindByCompleted(
	ctx context.Context,
	completed bool,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	page, err := s.taskStore.FindByCompleted(ctx, completed, req)
	if err != nil {
		return store.Page[*domain.Task]{}, NewTaskServiceError(
			"list_tasks_by_completed",
			"failed to list tasks by completion state",
			err,
		)
	}
	return page, nil
}

// FindByPriority retrieves a page of tasks filtered by priority
func (s *taskServiceImpl) FindByPriority(
	ctx context.Context,
	priority domain.Priority,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	if !priority.IsValid() {
		return store.Page[*domain.Task]{}, fmt.Errorf(
			"%w: unknown priority %q", ErrInvalidArgument, priority)
	}
	page, err := s.taskStore.FindByPriority(ctx, priority, req)
	if err != nil {
		return store.Page[*domain.Task]{}, NewTaskServiceError(
			"list_tasks_by_priority",
			"failed to list tasks by priority",
			err,
		)
	}
	return page, nil
}

// FindByUserID retrieves a page of tasks assigned to the given user
func (s *taskServiceImpl) FindByUserID(
	ctx context.Context,
	userID int64,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	// Distinguish "user has no tasks" from "user does not exist"
	if _, err := s.userStore.GetByID(ctx, userID); err != nil {
		return store.Page[*domain.Task]{}, NewTaskServiceError(
			"list_tasks_by_user",
			"failed to load task owner",
			err,
		)
	}

	page, err := s.taskStore.FindByUserID(ctx, userID, req)
	if err != nil {
		return store.Page[*domain.Task]{}, NewTaskServiceError(
			"list_tasks_by_user",
			"failed to list tasks by user",
			err,
		)
	}
	return page, nil
}

// FindByID retrieves a task by its ID
func (s *taskServiceImpl) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// Create persists a new task, validating the assignee (if any) in the same
// transaction. The assignment event is emitted only after the transaction
// commits, so a notification can never reference an uncommitted task.
func (s *taskServiceImpl) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	var assignee *domain.User

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.taskStore.WithTx(tx)

		if task.UserID != nil {
			txUsers := s.userStore.WithTx(tx)
			user, err := txUsers.GetByID(ctx, *task.UserID)
			if err != nil {
				s.logger.Error("failed to load assignee for new task",
					"error", err,
					"user_id", *task.UserID)
				return NewTaskServiceError("create_task", "failed to load assignee", err)
			}
			assignee = user
		}

		if err := txTasks.Create(ctx, task); err != nil {
			s.logger.Error("failed to create task in transaction",
				"error", err,
				"title", task.Title)
			return NewTaskServiceError("create_task", "failed to save task", err)
		}
		return nil
	})

	if err != nil {
		// Error is already wrapped in the transaction
		return nil, err
	}

	s.logger.Info("task created successfully",
		"task_id", task.ID,
		"assigned", assignee != nil)

	if assignee != nil {
		emitTaskAssigned(ctx, s.eventEmitter, s.logger, task, assignee)
	}

	return task, nil
}

// Update replaces the mutable attributes of an existing task.
func (s *taskServiceImpl) Update(
	ctx context.Context,
	id int64,
	updated *domain.Task,
) (*domain.Task, error) {
	var task *domain.Task

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.taskStore.WithTx(tx)

		existing, err := txTasks.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrTaskNotFound) {
				return ErrTaskNotFound
			}
			return NewTaskServiceError("update_task", "failed to retrieve task", err)
		}

		existing.Title = updated.Title
		existing.Description = updated.Description
		existing.Completed = updated.Completed
		existing.DueDate = updated.DueDate
		existing.Priority = updated.Priority
		existing.UserID = updated.UserID

		if err := txTasks.Update(ctx, existing); err != nil {
			s.logger.Error("failed to update task",
				"error", err,
				"task_id", id)
			return NewTaskServiceError("update_task", "failed to save task", err)
		}

		task = existing
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("task updated successfully", "task_id", id)
	return task, nil
}

// SetCompleted sets the completion flag of an existing task.
func (s *taskServiceImpl) SetCompleted(
	ctx context.Context,
	id int64,
	completed bool,
) (*domain.Task, error) {
	var task *domain.Task

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.taskStore.WithTx(tx)

		existing, err := txTasks.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrTaskNotFound) {
				return ErrTaskNotFound
			}
			return NewTaskServiceError("set_task_completed", "failed to retrieve task", err)
		}

		existing.SetCompleted(completed)

		if err := txTasks.Update(ctx, existing); err != nil {
			return NewTaskServiceError("set_task_completed", "failed to save task", err)
		}

		task = existing
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("task completion updated",
		"task_id", id,
		"completed", completed)
	return task, nil
}

// Delete removes a task by its ID
func (s *taskServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.taskStore.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	s.logger.Info("task deleted successfully", "task_id", id)
	return nil
}
