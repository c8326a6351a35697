package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskmgmt-api/internal/domain"
	"github.com/phrazzld/taskmgmt-api/internal/service/auth"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// UserService provides user-related operations including registration,
// authentication, and account maintenance.
type UserService interface {
	// Register creates a new account from the given user object. The user's
	// plaintext Password field is hashed before storage and cleared on the
	// returned user.
	Register(ctx context.Context, user *domain.User) (*domain.User, error)

	// Authenticate verifies the username/password pair and returns the
	// matching user. Returns auth.ErrInvalidCredentials when the pair does
	// not match, and auth.ErrAccountDisabled/auth.ErrAccountLocked for
	// accounts that exist but may not log in.
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)

	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID int64) (*domain.User, error)

	// GetUserByUsername retrieves a user by their username
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// ListUsers retrieves a page of users
	ListUsers(ctx context.Context, req store.PageRequest) (store.Page[*domain.User], error)

	// UpdateUserProfile changes a user's username and email
	UpdateUserProfile(ctx context.Context, userID int64, username, email string) (*domain.User, error)

	// UpdateUserRole changes a user's authorization role
	UpdateUserRole(ctx context.Context, userID int64, role domain.Role) (*domain.User, error)

	// UpdateUserPassword replaces a user's password after verifying the
	// current one
	UpdateUserPassword(ctx context.Context, userID int64, currentPassword, newPassword string) error

	// DeleteUser deletes a user by their ID. Tasks assigned to the user are
	// released, not deleted.
	DeleteUser(ctx context.Context, userID int64) error
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	hasher    auth.PasswordHasher
	verifier  auth.PasswordVerifier
	logger    *slog.Logger
	db        *sql.DB
}

// NewUserService creates a new UserService
func NewUserService(
	userStore store.UserStore,
	db *sql.DB,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	logger *slog.Logger,
) UserService {
	return &UserServiceImpl{
		userStore: userStore,
		db:        db,
		hasher:    hasher,
		verifier:  verifier,
		logger:    logger.With("component", "user_service"),
	}
}

// mapUserStoreError converts store-level sentinels to their service-level
// equivalents, wrapping anything else with the given message.
func mapUserStoreError(message string, err error) error {
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, store.ErrEmailExists):
		return ErrEmailTaken
	case errors.Is(err, store.ErrUsernameExists):
		return ErrUsernameTaken
	default:
		return fmt.Errorf("%s: %w", message, err)
	}
}

// Register creates a new account, hashing the plaintext password before the
// user reaches the store.
func (s *UserServiceImpl) Register(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := user.Validate(); err != nil {
		s.logger.Debug("user registration failed validation",
			"error", err,
			"username", user.Username)
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	hashed, err := s.hasher.Hash(user.Password)
	if err != nil {
		s.logger.Error("failed to hash password",
			"error", err,
			"username", user.Username)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	// Use a transaction for the user creation
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// Get a transaction-aware store
		txStore := s.userStore.WithTx(tx)

		// Create the user within the transaction
		return txStore.Create(ctx, user)
	})

	if err != nil {
		if store.IsDuplicateError(err) {
			s.logger.Debug("attempted to register duplicate user",
				"username", user.Username)
		} else {
			s.logger.Error("failed to save user to database",
				"error", err,
				"username", user.Username)
		}
		return nil, mapUserStoreError("failed to create user", err)
	}

	s.logger.Info("user registered successfully",
		"user_id", user.ID,
		"username", user.Username,
		"role", user.Role)

	return user, nil
}

// Authenticate verifies the username/password pair and account state.
func (s *UserServiceImpl) Authenticate(
	ctx context.Context,
	username, password string,
) (*domain.User, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("authentication failed: unknown username",
				"username", username)
			// Same error as a bad password so callers cannot probe for
			// account existence
			return nil, auth.ErrInvalidCredentials
		}
		s.logger.Error("failed to load user for authentication",
			"error", err,
			"username", username)
		return nil, fmt.Errorf("failed to authenticate user: %w", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("authentication failed: password mismatch",
			"username", username)
		return nil, auth.ErrInvalidCredentials
	}

	if !user.Enabled {
		s.logger.Debug("authentication rejected: account disabled",
			"user_id", user.ID)
		return nil, auth.ErrAccountDisabled
	}
	if user.AccountLocked {
		s.logger.Debug("authentication rejected: account locked",
			"user_id", user.ID)
		return nil, auth.ErrAccountLocked
	}

	s.logger.Info("user authenticated successfully",
		"user_id", user.ID,
		"username", username)

	return user, nil
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("failed to retrieve user",
			"error", err,
			"user_id", userID)
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}

	s.logger.Debug("retrieved user successfully",
		"user_id", userID,
		"username", user.Username)

	return user, nil
}

// GetUserByUsername retrieves a user by their username
func (s *UserServiceImpl) GetUserByUsername(
	ctx context.Context,
	username string,
) (*domain.User, error) {
	user, err := s.userStore.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.logger.Debug("user not found by username",
				"username", username)
			return nil, ErrUserNotFound
		}
		s.logger.Error("failed to retrieve user by username",
			"error", err,
			"username", username)
		return nil, fmt.Errorf("failed to retrieve user by username: %w", err)
	}

	return user, nil
}

// ListUsers retrieves a page of users
func (s *UserServiceImpl) ListUsers(
	ctx context.Context,
	req store.PageRequest,
) (store.Page[*domain.User], error) {
	page, err := s.userStore.List(ctx, req)
	if err != nil {
		if errors.Is(err, store.ErrOffsetOutOfRange) {
			return store.Page[*domain.User]{}, err
		}
		s.logger.Error("failed to list users", "error", err)
		return store.Page[*domain.User]{}, fmt.Errorf("failed to list users: %w", err)
	}
	return page, nil
}

// UpdateUserProfile changes a user's username and email
// Following the pattern of getting the complete user first, then updating the specific fields
// Uses a transaction to ensure atomicity of the operation
func (s *UserServiceImpl) UpdateUserProfile(
	ctx context.Context,
	userID int64,
	username, email string,
) (*domain.User, error) {
	var user *domain.User
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// Get a transaction-aware store
		txStore := s.userStore.WithTx(tx)

		// First, retrieve the current user to get the complete user object
		current, err := txStore.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return ErrUserNotFound
			}
			s.logger.Error("failed to retrieve user for profile update",
				"error", err,
				"user_id", userID)
			return fmt.Errorf("failed to retrieve user for update: %w", err)
		}

		// Update only the profile fields
		current.Username = username
		current.Email = email

		if err := current.Validate(); err != nil {
			return fmt.Errorf("invalid user: %w", err)
		}

		if err := txStore.Update(ctx, current); err != nil {
			if store.IsDuplicateError(err) {
				s.logger.Debug("attempted to update profile to taken username/email",
					"user_id", userID)
			} else {
				s.logger.Error("failed to update user profile",
					"error", err,
					"user_id", userID)
			}
			return mapUserStoreError("failed to update user profile", err)
		}

		user = current
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("user profile updated successfully in transaction",
		"user_id", userID)

	return user, nil
}

// UpdateUserRole changes a user's authorization role
// Following the pattern of getting the complete user first, then updating the specific field
// Uses a transaction to ensure atomicity of the operation
func (s *UserServiceImpl) UpdateUserRole(
	ctx context.Context,
	userID int64,
	role domain.Role,
) (*domain.User, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	var user *domain.User
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// Get a transaction-aware store
		txStore := s.userStore.WithTx(tx)

		// First, retrieve the current user to get the complete user object
		current, err := txStore.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return ErrUserNotFound
			}
			s.logger.Error("failed to retrieve user for role update",
				"error", err,
				"user_id", userID)
			return fmt.Errorf("failed to retrieve user for update: %w", err)
		}

		// Update only the role field
		current.Role = role

		if err := txStore.Update(ctx, current); err != nil {
			s.logger.Error("failed to update user role",
				"error", err,
				"user_id", userID,
				"new_role", role)
			return mapUserStoreError("failed to update user role", err)
		}

		user = current
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("user role updated successfully in transaction",
		"user_id", userID,
		"new_role", role)

	return user, nil
}

// UpdateUserPassword replaces a user's password after verifying the current one.
// Uses a transaction to ensure atomicity of the operation
func (s *UserServiceImpl) UpdateUserPassword(
	ctx context.Context,
	userID int64,
	currentPassword, newPassword string,
) error {
	if len(newPassword) < domain.MinPasswordLength {
		return domain.ErrPasswordTooShort
	}
	if len(newPassword) > domain.MaxPasswordLength {
		return domain.ErrPasswordTooLong
	}

	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// Get a transaction-aware store
		txStore := s.userStore.WithTx(tx)

		// First, retrieve the current user to get the stored hash
		user, err := txStore.GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				return ErrUserNotFound
			}
			s.logger.Error("failed to retrieve user for password update",
				"error", err,
				"user_id", userID)
			return fmt.Errorf("failed to retrieve user for password update: %w", err)
		}

		if err := s.verifier.Compare(user.HashedPassword, currentPassword); err != nil {
			s.logger.Debug("password update rejected: current password mismatch",
				"user_id", userID)
			return auth.ErrInvalidCredentials
		}

		hashed, err := s.hasher.Hash(newPassword)
		if err != nil {
			s.logger.Error("failed to hash new password",
				"error", err,
				"user_id", userID)
			return fmt.Errorf("failed to hash new password: %w", err)
		}

		if err := txStore.UpdatePassword(ctx, userID, hashed); err != nil {
			s.logger.Error("failed to update user password",
				"error", err,
				"user_id", userID)
			return fmt.Errorf("failed to update user password: %w", err)
		}

		s.logger.Info("user password updated successfully in transaction",
			"user_id", userID)

		return nil
	})
}

// DeleteUser deletes a user by their ID. The tasks FK is declared ON DELETE
// SET NULL, so the user's tasks survive as unassigned rather than being
// deleted with the account.
func (s *UserServiceImpl) DeleteUser(ctx context.Context, userID int64) error {
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		// Get a transaction-aware store
		txStore := s.userStore.WithTx(tx)

		// Delete the user within the transaction
		err := txStore.Delete(ctx, userID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				s.logger.Debug("attempted to delete non-existent user",
					"user_id", userID)
				return ErrUserNotFound
			}
			s.logger.Error("failed to delete user",
				"error", err,
				"user_id", userID)
			return fmt.Errorf("failed to delete user: %w", err)
		}

		s.logger.Info("user deleted successfully in transaction",
			"user_id", userID)

		return nil
	})
}
