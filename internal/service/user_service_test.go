package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskmgmt-api/internal/domain"
	"github.com/phrazzld/taskmgmt-api/internal/service/auth"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// fakeHasher produces deterministic "hashes" so tests can assert on the
// stored value without paying bcrypt cost.
type fakeHasher struct{ err error }

func (f fakeHasher) Hash(password string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "hashed:" + password, nil
}

type fakeVerifier struct{}

func (fakeVerifier) Compare(hashedPassword, password string) error {
	if hashedPassword == "hashed:"+password {
		return nil
	}
	return errors.New("crypto/bcrypt: hashedPassword is not the hash of the given password")
}

func newUserService(t *testing.T, users *mockUserStore) (UserService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewUserService(users, db, fakeHasher{}, fakeVerifier{}, slog.Default()), mock
}

func registeredUser(id int64, password string) *domain.User {
	user, err := domain.NewUser("jdoe", "jdoe@example.com", password)
	if err != nil {
		panic(err)
	}
	user.ID = id
	user.HashedPassword = "hashed:" + password
	user.Password = ""
	return user
}

func TestRegister(t *testing.T) {
	t.Run("hashes password and clears plaintext", func(t *testing.T) {
		var stored *domain.User
		users := &mockUserStore{
			CreateFn: func(ctx context.Context, user *domain.User) error {
				user.ID = 1
				stored = user
				return nil
			},
		}
		svc, mock := newUserService(t, users)

		mock.ExpectBegin()
		mock.ExpectCommit()

		user, err := domain.NewUser("jdoe", "jdoe@example.com", "password1")
		require.NoError(t, err)

		created, err := svc.Register(context.Background(), user)
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		assert.Empty(t, created.Password)
		assert.Equal(t, "hashed:password1", stored.HashedPassword)
		assert.Equal(t, domain.RoleUser, created.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email maps to ErrEmailTaken", func(t *testing.T) {
		users := &mockUserStore{
			CreateFn: func(ctx context.Context, user *domain.User) error {
				return store.ErrEmailExists
			},
		}
		svc, mock := newUserService(t, users)

		mock.ExpectBegin()
		mock.ExpectRollback()

		user, err := domain.NewUser("jdoe", "jdoe@example.com", "password1")
		require.NoError(t, err)

		_, err = svc.Register(context.Background(), user)
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("duplicate username maps to ErrUsernameTaken", func(t *testing.T) {
		users := &mockUserStore{
			CreateFn: func(ctx context.Context, user *domain.User) error {
				return store.ErrUsernameExists
			},
		}
		svc, mock := newUserService(t, users)

		mock.ExpectBegin()
		mock.ExpectRollback()

		user, err := domain.NewUser("jdoe", "jdoe@example.com", "password1")
		require.NoError(t, err)

		_, err = svc.Register(context.Background(), user)
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("invalid user rejected before any store call", func(t *testing.T) {
		users := &mockUserStore{}
		svc, _ := newUserService(t, users)

		bad := &domain.User{Username: "jdoe", Email: "not-an-email", Role: domain.RoleUser}
		_, err := svc.Register(context.Background(), bad)
		assert.Error(t, err)
		assert.Zero(t, users.CreateCalls)
	})
}

func TestAuthenticate(t *testing.T) {
	users := &mockUserStore{
		GetByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			if username != "jdoe" {
				return nil, store.ErrUserNotFound
			}
			return registeredUser(1, "password1"), nil
		},
	}

	t.Run("valid credentials", func(t *testing.T) {
		svc, _ := newUserService(t, users)
		user, err := svc.Authenticate(context.Background(), "jdoe", "password1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), user.ID)
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, _ := newUserService(t, users)
		_, err := svc.Authenticate(context.Background(), "jdoe", "wrong")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown username returns same error as wrong password", func(t *testing.T) {
		svc, _ := newUserService(t, users)
		_, err := svc.Authenticate(context.Background(), "nobody", "password1")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("disabled account", func(t *testing.T) {
		disabled := &mockUserStore{
			GetByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
				user := registeredUser(1, "password1")
				user.Enabled = false
				return user, nil
			},
		}
		svc, _ := newUserService(t, disabled)
		_, err := svc.Authenticate(context.Background(), "jdoe", "password1")
		assert.ErrorIs(t, err, auth.ErrAccountDisabled)
	})

	t.Run("locked account", func(t *testing.T) {
		locked := &mockUserStore{
			GetByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
				user := registeredUser(1, "password1")
				user.AccountLocked = true
				return user, nil
			},
		}
		svc, _ := newUserService(t, locked)
		_, err := svc.Authenticate(context.Background(), "jdoe", "password1")
		assert.ErrorIs(t, err, auth.ErrAccountLocked)
	})
}

func TestGetUser(t *testing.T) {
	t.Run("not found maps to service sentinel", func(t *testing.T) {
		svc, _ := newUserService(t, &mockUserStore{})
		_, err := svc.GetUser(context.Background(), 99)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("found", func(t *testing.T) {
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return registeredUser(id, "password1"), nil
			},
		}
		svc, _ := newUserService(t, users)
		user, err := svc.GetUser(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
	})
}

func TestListUsers(t *testing.T) {
	users := &mockUserStore{
		ListFn: func(ctx context.Context, req store.PageRequest) (store.Page[*domain.User], error) {
			return store.NewPage([]*domain.User{registeredUser(1, "password1")}, 1, req), nil
		},
	}
	svc, _ := newUserService(t, users)

	page, err := svc.ListUsers(context.Background(), store.DefaultPageRequest())
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(1), page.TotalElements)
}

func TestUpdateUserProfile(t *testing.T) {
	t.Run("updates username and email", func(t *testing.T) {
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return registeredUser(id, "password1"), nil
			},
		}
		svc, mock := newUserService(t, users)

		mock.ExpectBegin()
		mock.ExpectCommit()

		user, err := svc.UpdateUserProfile(context.Background(), 7, "jsmith", "jsmith@example.com")
		require.NoError(t, err)
		assert.Equal(t, "jsmith", user.Username)
		assert.Equal(t, "jsmith@example.com", user.Email)
		assert.Equal(t, 1, users.UpdateCalls)
	})

	t.Run("taken email maps to ErrEmailTaken", func(t *testing.T) {
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return registeredUser(id, "password1"), nil
			},
			UpdateFn: func(ctx context.Context, user *domain.User) error {
				return store.ErrEmailExists
			},
		}
		svc, mock := newUserService(t, users)

		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := svc.UpdateUserProfile(context.Background(), 7, "jsmith", "taken@example.com")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("invalid email rejected before update", func(t *testing.T) {
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return registeredUser(id, "password1"), nil
			},
		}
		svc, mock := newUserService(t, users)

		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := svc.UpdateUserProfile(context.Background(), 7, "jsmith", "not-an-email")
		assert.Error(t, err)
		assert.Zero(t, users.UpdateCalls)
	})
}

func TestUpdateUserRole(t *testing.T) {
	t.Run("updates role", func(t *testing.T) {
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return registeredUser(id, "password1"), nil
			},
		}
		svc, mock := newUserService(t, users)

		mock.ExpectBegin()
		mock.ExpectCommit()

		user, err := svc.UpdateUserRole(context.Background(), 7, domain.RoleTeamLeader)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleTeamLeader, user.Role)
		assert.Equal(t, 1, users.UpdateCalls)
	})

	t.Run("invalid role rejected before any store call", func(t *testing.T) {
		users := &mockUserStore{}
		svc, _ := newUserService(t, users)

		_, err := svc.UpdateUserRole(context.Background(), 7, domain.Role("ADMIN"))
		assert.ErrorIs(t, err, domain.ErrInvalidRole)
		assert.Zero(t, users.UpdateCalls)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, mock := newUserService(t, &mockUserStore{})

		mock.ExpectBegin()
		mock.ExpectRollback()

		_, err := svc.UpdateUserRole(context.Background(), 99, domain.RoleTeamLeader)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUpdateUserPassword(t *testing.T) {
	t.Run("replaces password after verifying current", func(t *testing.T) {
		var storedHash string
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return registeredUser(id, "password1"), nil
			},
			UpdatePasswordFn: func(ctx context.Context, id int64, hashedPassword string) error {
				storedHash = hashedPassword
				return nil
			},
		}
		svc, mock := newUserService(t, users)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := svc.UpdateUserPassword(context.Background(), 7, "password1", "newpassword")
		require.NoError(t, err)
		assert.Equal(t, "hashed:newpassword", storedHash)
	})

	t.Run("wrong current password", func(t *testing.T) {
		users := &mockUserStore{
			GetByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
				return registeredUser(id, "password1"), nil
			},
		}
		svc, mock := newUserService(t, users)

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := svc.UpdateUserPassword(context.Background(), 7, "wrong", "newpassword")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.Zero(t, users.UpdatePasswordCalls)
	})

	t.Run("new password too short", func(t *testing.T) {
		users := &mockUserStore{}
		svc, _ := newUserService(t, users)

		err := svc.UpdateUserPassword(context.Background(), 7, "password1", "abc")
		assert.ErrorIs(t, err, domain.ErrPasswordTooShort)
		assert.Zero(t, users.UpdatePasswordCalls)
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("deletes existing user", func(t *testing.T) {
		users := &mockUserStore{}
		svc, mock := newUserService(t, users)

		mock.ExpectBegin()
		mock.ExpectCommit()

		require.NoError(t, svc.DeleteUser(context.Background(), 7))
		assert.Equal(t, 1, users.DeleteCalls)
	})

	t.Run("unknown user", func(t *testing.T) {
		users := &mockUserStore{
			DeleteFn: func(ctx context.Context, id int64) error {
				return store.ErrUserNotFound
			},
		}
		svc, mock := newUserService(t, users)

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := svc.DeleteUser(context.Background(), 99)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
