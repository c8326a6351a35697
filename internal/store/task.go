package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/taskmgmt-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store and fills in its server-assigned
	// ID. Returns ErrInvalidEntity if the task references a user that does
	// not exist, or validation errors from the domain Task if data is
	// invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Task, error)

	// Update overwrites an existing task's mutable fields, including the
	// owning-user reference. This is the single persisted write for
	// assign/reassign/unassign transitions.
	// Returns ErrTaskNotFound if the task does not exist and
	// ErrInvalidEntity if the referenced user does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task from the store by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	// This is a hard delete; no cascading is required on the user side
	// because the user's task collection is derived by query.
	Delete(ctx context.Context, id int64) error

	// List retrieves one page of tasks ordered per the request.
	List(ctx context.Context, req PageRequest) (Page[*domain.Task], error)

	// Search retrieves one page of tasks whose title or description
	// contains the query, matched case-insensitively.
	Search(ctx context.Context, query string, req PageRequest) (Page[*domain.Task], error)

	// FindByCompleted retrieves one page of tasks filtered by completion flag.
	FindByCompleted(ctx context.Context, completed bool, req PageRequest) (Page[*domain.Task], error)

	// FindByPriority retrieves one page of tasks filtered by priority.
	FindByPriority(ctx context.Context, priority domain.Priority, req PageRequest) (Page[*domain.Task], error)

	// FindByUserID retrieves one page of tasks owned by the given user.
	FindByUserID(ctx context.Context, userID int64, req PageRequest) (Page[*domain.Task], error)

	// ListByUserID retrieves all tasks owned by the given user, unpaged.
	// This is the derived "task collection" view of the task-user
	// relationship.
	ListByUserID(ctx context.Context, userID int64) ([]*domain.Task, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service) via RunInTransaction.
	WithTx(tx *sql.Tx) TaskStore
}
