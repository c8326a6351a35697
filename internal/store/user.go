package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/taskmgmt-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user to the store and fills in its server-assigned
	// ID. The caller must have hashed the password already; the plaintext
	// Password field is never persisted.
	// Returns ErrEmailExists or ErrUsernameExists on unique violations and
	// validation errors from the domain User if data is invalid.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by their unique username.
	// Returns ErrUserNotFound if the user does not exist.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user's details. The password hash is not
	// touched; use UpdatePassword for credential changes.
	// Returns ErrUserNotFound if the user does not exist and
	// ErrEmailExists/ErrUsernameExists when updating to a taken value.
	Update(ctx context.Context, user *domain.User) error

	// UpdatePassword replaces the stored password hash for the user.
	// Returns ErrUserNotFound if the user does not exist.
	UpdatePassword(ctx context.Context, id int64, hashedPassword string) error

	// Delete removes a user from the store by their ID. Tasks owned by the
	// user are released (their owner reference cleared) in the same
	// transaction, never deleted.
	// Returns ErrUserNotFound if the user does not exist.
	Delete(ctx context.Context, id int64) error

	// List retrieves one page of users ordered per the request.
	List(ctx context.Context, req PageRequest) (Page[*domain.User], error)

	// WithTx returns a new UserStore instance that uses the provided
	// transaction. The transaction should be created and managed by the
	// caller (typically a service) via RunInTransaction.
	WithTx(tx *sql.Tx) UserStore
}
