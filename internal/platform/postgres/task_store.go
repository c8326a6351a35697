package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskmgmt-api/internal/domain"
	"github.com/phrazzld/taskmgmt-api/internal/platform/logger"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// taskColumns is the canonical column list used by every task SELECT.
const taskColumns = "id, title, description, completed, due_date, priority, user_id, created_at, updated_at"

// taskSortColumns maps API-level sort field names to the columns they are
// allowed to order by. Anything outside this map falls back to the primary
// key, which keeps user-supplied sort fields out of the generated SQL.
var taskSortColumns = map[string]string{
	"id":        "id",
	"title":     "title",
	"completed": "completed",
	"dueDate":   "due_date",
	"priority":  "priority",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// taskSortColumn resolves a requested sort field to a whitelisted column name.
func taskSortColumn(field string) string {
	if col, ok := taskSortColumns[field]; ok {
		return col
	}
	return taskSortColumns[store.FallbackSortField]
}

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
// It returns a new TaskStore that runs all operations on the given transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskStore.Create
// It saves a new task to the database and fills in the generated ID.
// Returns validation errors from the domain Task if data is invalid.
// Returns store.ErrInvalidEntity if the assigned user doesn't exist (foreign key violation).
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate task data
	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("title", task.Title))
		return err
	}

	query := `
		INSERT INTO tasks (title, description, completed, due_date, priority, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := s.db.QueryRowContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.Completed,
		task.DueDate,
		task.Priority,
		task.UserID,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during task creation",
				slog.String("error", err.Error()),
				slog.Any("user_id", task.UserID))
			return fmt.Errorf("%w: assigned user does not exist",
				store.ErrInvalidEntity)
		}

		// Log the error
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("title", task.Title))

		return MapError(err)
	}

	log.Info("task created successfully",
		slog.Int64("task_id", task.ID),
		slog.String("priority", string(task.Priority)))
	return nil
}

// GetByID implements store.TaskStore.GetByID
// It retrieves a task by its unique ID.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving task by ID", slog.Int64("task_id", id))

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.Int64("task_id", id))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return nil, err
	}

	return task, nil
}

// Update implements store.TaskStore.Update
// It saves all mutable task fields in a single write, including the user_id
// column, so assignment, reassignment, and unassignment are one UPDATE.
// Returns store.ErrTaskNotFound if the task does not exist.
// Returns store.ErrInvalidEntity if the assigned user doesn't exist (foreign key violation).
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate task data
	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.Int64("task_id", task.ID))
		return err
	}

	task.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tasks
		SET title = $1, description = $2, completed = $3, due_date = $4,
		    priority = $5, user_id = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.Completed,
		task.DueDate,
		task.Priority,
		task.UserID,
		task.UpdatedAt,
		task.ID,
	)

	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Warn("foreign key violation during task update",
				slog.String("error", err.Error()),
				slog.Int64("task_id", task.ID),
				slog.Any("user_id", task.UserID))
			return fmt.Errorf("%w: assigned user does not exist",
				store.ErrInvalidEntity)
		}

		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", task.ID))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		log.Debug("task not found for update", slog.Int64("task_id", task.ID))
		return store.ErrTaskNotFound
	}

	log.Info("task updated successfully",
		slog.Int64("task_id", task.ID),
		slog.Bool("completed", task.Completed))
	return nil
}

// Delete implements store.TaskStore.Delete
// It removes a task from the database.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Delete(ctx context.Context, id int64) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM tasks
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.Int64("task_id", id))
		return err
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		log.Debug("task not found for delete", slog.Int64("task_id", id))
		return store.ErrTaskNotFound
	}

	log.Info("task deleted successfully", slog.Int64("task_id", id))
	return nil
}

// List implements store.TaskStore.List
// It retrieves a page of tasks ordered according to the page request.
func (s *PostgresTaskStore) List(
	ctx context.Context,
	pr store.PageRequest,
) (store.Page[*domain.Task], error) {
	return s.listPage(ctx, "", nil, pr)
}

// Search implements store.TaskStore.Search
// It retrieves a page of tasks whose title or description contains the query
// string, matched case-insensitively.
func (s *PostgresTaskStore) Search(
	ctx context.Context,
	query string,
	pr store.PageRequest,
) (store.Page[*domain.Task], error) {
	where := "WHERE title ILIKE $1 OR description ILIKE $1"
	return s.listPage(ctx, where, []interface{}{"%" + query + "%"}, pr)
}

// FindByCompleted implements store.TaskStore.FindByCompleted
// It retrieves a page of tasks filtered by completion state.
func (s *PostgresTaskStore) FindByCompleted(
	ctx context.Context,
	completed bool,
	pr store.PageRequest,
) (store.Page[*domain.Task], error) {
	return s.listPage(ctx, "WHERE completed = $1", []interface{}{completed}, pr)
}

// FindByPriority implements store.TaskStore.FindByPriority
// It retrieves a page of tasks filtered by priority.
func (s *PostgresTaskStore) FindByPriority(
	ctx context.Context,
	priority domain.Priority,
	pr store.PageRequest,
) (store.Page[*domain.Task], error) {
	return s.listPage(ctx, "WHERE priority = $1", []interface{}{priority}, pr)
}

// FindByUserID implements store.TaskStore.FindByUserID
// It retrieves a page of tasks assigned to the given user.
func (s *PostgresTaskStore) FindByUserID(
	ctx context.Context,
	userID int64,
	pr store.PageRequest,
) (store.Page[*domain.Task], error) {
	return s.listPage(ctx, "WHERE user_id = $1", []interface{}{userID}, pr)
}

// ListByUserID implements store.TaskStore.ListByUserID
// It retrieves every task assigned to the given user without pagination.
// The user's task collection is always derived from the tasks table, so a
// task reassigned elsewhere disappears from this result automatically.
func (s *PostgresTaskStore) ListByUserID(ctx context.Context, userID int64) ([]*domain.Task, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		log.Error("failed to query tasks by user",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID))
		return nil, err
	}
	defer closeRows(rows, log)

	tasks, err := scanTaskRows(rows)
	if err != nil {
		log.Error("failed to scan task rows",
			slog.String("error", err.Error()),
			slog.Int64("user_id", userID))
		return nil, err
	}

	log.Debug("found tasks by user",
		slog.Int64("user_id", userID),
		slog.Int("count", len(tasks)))
	return tasks, nil
}

// listPage runs a paged task query for the given WHERE clause and arguments.
// It normalizes the page request, rejects offsets past the supported maximum,
// counts the matching rows, and fetches the requested page.
func (s *PostgresTaskStore) listPage(
	ctx context.Context,
	where string,
	args []interface{},
	pr store.PageRequest,
) (store.Page[*domain.Task], error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	pr = pr.Normalize()
	if err := pr.Validate(); err != nil {
		log.Warn("rejected page request",
			slog.String("error", err.Error()),
			slog.Int("page", pr.Page),
			slog.Int("size", pr.Size))
		return store.Page[*domain.Task]{}, err
	}

	countQuery := "SELECT COUNT(*) FROM tasks"
	if where != "" {
		countQuery += " " + where
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks",
			slog.String("error", err.Error()))
		return store.Page[*domain.Task]{}, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM tasks %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		taskColumns,
		where,
		taskSortColumn(pr.SortBy),
		pr.Direction,
		len(args)+1,
		len(args)+2,
	)
	args = append(args, pr.Size, pr.Offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query task page",
			slog.String("error", err.Error()),
			slog.Int("page", pr.Page),
			slog.Int("size", pr.Size))
		return store.Page[*domain.Task]{}, err
	}
	defer closeRows(rows, log)

	tasks, err := scanTaskRows(rows)
	if err != nil {
		log.Error("failed to scan task rows",
			slog.String("error", err.Error()))
		return store.Page[*domain.Task]{}, err
	}

	log.Debug("task page retrieved",
		slog.Int("page", pr.Page),
		slog.Int("size", pr.Size),
		slog.Int("count", len(tasks)),
		slog.Int64("total", total))
	return store.NewPage(tasks, total, pr), nil
}

// scanTask reads a single task row.
func scanTask(row *sql.Row) (*domain.Task, error) {
	var task domain.Task
	var userID sql.NullInt64
	var priority string

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&task.DueDate,
		&priority,
		&userID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Priority = domain.Priority(priority)
	if userID.Valid {
		task.UserID = &userID.Int64
	}
	return &task, nil
}

// scanTaskRows reads all task rows from a result set.
// Returns an empty slice instead of nil when no rows match.
func scanTaskRows(rows *sql.Rows) ([]*domain.Task, error) {
	tasks := []*domain.Task{}
	for rows.Next() {
		var task domain.Task
		var userID sql.NullInt64
		var priority string

		err := rows.Scan(
			&task.ID,
			&task.Title,
			&task.Description,
			&task.Completed,
			&task.DueDate,
			&priority,
			&userID,
			&task.CreatedAt,
			&task.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		task.Priority = domain.Priority(priority)
		if userID.Valid {
			task.UserID = &userID.Int64
		}
		tasks = append(tasks, &task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// closeRows closes a result set and logs any close error.
func closeRows(rows *sql.Rows, log *slog.Logger) {
	if err := rows.Close(); err != nil {
		log.Error("failed to close rows", slog.String("error", err.Error()))
	}
}
