package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskmgmt-api/internal/domain"
	"github.com/phrazzld/taskmgmt-api/internal/platform/logger"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// userColumns is the canonical column list used by every user SELECT.
const userColumns = "id, username, email, hashed_password, role, enabled, account_locked, created_at, updated_at"

// userSortColumns maps API-level sort field names to the columns they are
// allowed to order by.
var userSortColumns = map[string]string{
	"id":        "id",
	"username":  "username",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// userSortColumn resolves a requested sort field to a whitelisted column name.
func userSortColumn(field string) string {
	if col, ok := userSortColumns[field]; ok {
		return col
	}
	return userSortColumns[store.FallbackSortField]
}

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	// Validate inputs
	if db == nil {
		panic("db cannot be nil")
	}

	// Use provided logger or create default
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.WithTx
// It returns a new UserStore that runs all operations on the given transaction.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{
		db:     tx,
		logger: s.logger,
	}
}

// mapUserUniqueViolation translates a unique constraint violation on the
// users table into the matching sentinel error. The constraint name tells
// apart email and username collisions.
func mapUserUniqueViolation(err error) error {
	if !IsUniqueViolation(err) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.Contains(pgErr.ConstraintName, "email") {
			return fmt.Errorf("%w: %v", store.ErrEmailExists, err)
		}
		if strings.Contains(pgErr.ConstraintName, "username") {
			return fmt.Errorf("%w: %v", store.ErrUsernameExists, err)
		}
	}
	return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
}

// Create implements store.UserStore.Create
// It saves a new user to the database and fills in the generated ID.
// Returns validation errors from the domain User if data is invalid.
// Returns store.ErrEmailExists or store.ErrUsernameExists when a unique
// constraint on the corresponding column is violated.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate user data
	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during create",
			slog.String("error", err.Error()),
			slog.String("username", user.Username))
		return err
	}

	query := `
		INSERT INTO users (username, email, hashed_password, role, enabled, account_locked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := s.db.QueryRowContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.HashedPassword,
		user.Role,
		user.Enabled,
		user.AccountLocked,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate user during create",
				slog.String("error", err.Error()),
				slog.String("username", user.Username))
			return mapUserUniqueViolation(err)
		}

		log.Error("failed to create user",
			slog.String("error", err.Error()),
			slog.String("username", user.Username))
		return MapError(err)
	}

	log.Info("user created successfully",
		slog.Int64("user_id", user.ID),
		slog.String("role", string(user.Role)))
	return nil
}

// GetByID implements store.UserStore.GetByID
// Returns store.ErrUserNotFound if the user does not exist.
func (s *PostgresUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving user by ID", slog.Int64("user_id", id))

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	return s.getOne(ctx, log, query, id)
}

// GetByUsername implements store.UserStore.GetByUsername
// Returns store.ErrUserNotFound if the user does not exist.
func (s *PostgresUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving user by username")

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1
	`

	return s.getOne(ctx, log, query, username)
}

// GetByEmail implements store.UserStore.GetByEmail
// Returns store.ErrUserNotFound if the user does not exist.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	log.Debug("retrieving user by email")

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1
	`

	return s.getOne(ctx, log, query, email)
}

// getOne runs a single-row user query and maps sql.ErrNoRows to ErrUserNotFound.
func (s *PostgresUserStore) getOne(
	ctx context.Context,
	log *slog.Logger,
	query string,
	arg interface{},
) (*domain.User, error) {
	var user domain.User
	var role string

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.HashedPassword,
		&role,
		&user.Enabled,
		&user.AccountLocked,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("user not found")
			return nil, store.ErrUserNotFound
		}
		log.Error("failed to get user", slog.String("error", err.Error()))
		return nil, err
	}

	user.Role = domain.Role(role)
	return &user, nil
}

// Update implements store.UserStore.Update
// It saves all mutable user fields except the password hash.
// Returns store.ErrUserNotFound if the user does not exist.
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	// Validate user data
	if err := user.Validate(); err != nil {
		log.Warn("user validation failed during update",
			slog.String("error", err.Error()),
			slog.Int64("user_id", user.ID))
		return err
	}

	user.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE users
		SET username = $1, email = $2, role = $3, enabled = $4,
		    account_locked = $5, updated_at = $6
		WHERE id = $7
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		user.Username,
		user.Email,
		user.Role,
		user.Enabled,
		user.AccountLocked,
		user.UpdatedAt,
		user.ID,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Warn("duplicate user during update",
				slog.String("error", err.Error()),
				slog.Int64("user_id", user.ID))
			return mapUserUniqueViolation(err)
		}

		log.Error("failed to update user",
			slog.String("error", err.Error()),
			slog.Int64("user_id", user.ID))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "user"); err != nil {
		log.Debug("user not found for update", slog.Int64("user_id", user.ID))
		return store.ErrUserNotFound
	}

	log.Info("user updated successfully", slog.Int64("user_id", user.ID))
	return nil
}

// UpdatePassword implements store.UserStore.UpdatePassword
// It replaces the stored password hash for the user.
// Returns store.ErrUserNotFound if the user does not exist.
func (s *PostgresUserStore) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE users
		SET hashed_password = $1, updated_at = $2
		WHERE id = $3
	`

	result, err := s.db.ExecContext(ctx, query, hashedPassword, time.Now().UTC(), id)
	if err != nil {
		log.Error("failed to update password",
			slog.String("error", err.Error()),
			slog.Int64("user_id", id))
		return err
	}

	if err := CheckRowsAffected(result, "user"); err != nil {
		log.Debug("user not found for password update", slog.Int64("user_id", id))
		return store.ErrUserNotFound
	}

	log.Info("password updated successfully", slog.Int64("user_id", id))
	return nil
}

// Delete implements store.UserStore.Delete
// It removes a user from the database. The tasks table declares its user_id
// foreign key ON DELETE SET NULL, so tasks owned by the user are released
// rather than removed.
// Returns store.ErrUserNotFound if the user does not exist.
func (s *PostgresUserStore) Delete(ctx context.Context, id int64) error {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		DELETE FROM users
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete user",
			slog.String("error", err.Error()),
			slog.Int64("user_id", id))
		return err
	}

	if err := CheckRowsAffected(result, "user"); err != nil {
		log.Debug("user not found for delete", slog.Int64("user_id", id))
		return store.ErrUserNotFound
	}

	log.Info("user deleted successfully", slog.Int64("user_id", id))
	return nil
}

// List implements store.UserStore.List
// It retrieves a page of users ordered according to the page request.
func (s *PostgresUserStore) List(
	ctx context.Context,
	pr store.PageRequest,
) (store.Page[*domain.User], error) {
	// Get the logger from context or use default
	log := logger.FromContextOrDefault(ctx, s.logger)

	pr = pr.Normalize()
	if err := pr.Validate(); err != nil {
		log.Warn("rejected page request",
			slog.String("error", err.Error()),
			slog.Int("page", pr.Page),
			slog.Int("size", pr.Size))
		return store.Page[*domain.User]{}, err
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&total); err != nil {
		log.Error("failed to count users", slog.String("error", err.Error()))
		return store.Page[*domain.User]{}, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM users ORDER BY %s %s LIMIT $1 OFFSET $2",
		userColumns,
		userSortColumn(pr.SortBy),
		pr.Direction,
	)

	rows, err := s.db.QueryContext(ctx, query, pr.Size, pr.Offset())
	if err != nil {
		log.Error("failed to query user page",
			slog.String("error", err.Error()),
			slog.Int("page", pr.Page),
			slog.Int("size", pr.Size))
		return store.Page[*domain.User]{}, err
	}
	defer closeRows(rows, log)

	users := []*domain.User{}
	for rows.Next() {
		var user domain.User
		var role string

		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Email,
			&user.HashedPassword,
			&role,
			&user.Enabled,
			&user.AccountLocked,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan user row", slog.String("error", err.Error()))
			return store.Page[*domain.User]{}, err
		}

		user.Role = domain.Role(role)
		users = append(users, &user)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows", slog.String("error", err.Error()))
		return store.Page[*domain.User]{}, err
	}

	log.Debug("user page retrieved",
		slog.Int("page", pr.Page),
		slog.Int("count", len(users)),
		slog.Int64("total", total))
	return store.NewPage(users, total, pr), nil
}
