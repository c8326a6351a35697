package api

import (
	"context"

	"github.com/phrazzld/taskmgmt-api/internal/domain"
	"github.com/phrazzld/taskmgmt-api/internal/service"
	"github.com/phrazzld/taskmgmt-api/internal/service/auth"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// mockTaskService implements service.TaskService with per-method function
// fields so each test stubs only what it touches.
type mockTaskService struct {
	FindAllFn         func(ctx context.Context, req store.PageRequest) (store.Page[*domain.Task], error)
	SearchFn          func(ctx context.Context, query string, req store.PageRequest) (store.Page[*domain.Task], error)
	FindByCompletedFn func(ctx context.Context, completed bool, req store.PageRequest) (store.Page[*domain.Task], error)
	FindByPriorityFn  func(ctx context.Context, priority domain.Priority, req store.PageRequest) (store.Page[*domain.Task], error)
	FindByUserIDFn    func(ctx context.Context, userID int64, req store.PageRequest) (store.Page[*domain.Task], error)
	FindByIDFn        func(ctx context.Context, id int64) (*domain.Task, error)
	CreateFn          func(ctx context.Context, task *domain.Task) (*domain.Task, error)
	UpdateFn          func(ctx context.Context, id int64, updated *domain.Task) (*domain.Task, error)
	SetCompletedFn    func(ctx context.Context, id int64, completed bool) (*domain.Task, error)
	DeleteFn          func(ctx context.Context, id int64) error
}

var _ service.TaskService = (*mockTaskService)(nil)

func (m *mockTaskService) FindAll(
	ctx context.Context,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	if m.FindAllFn != nil {
		return m.FindAllFn(ctx, req)
	}
	return store.NewPage([]*domain.Task{}, 0, req), nil
}

func (m *mockTaskService) Search(
	ctx context.Context,
	query string,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, req)
	}
	return store.NewPage([]*domain.Task{}, 0, req), nil
}

func (m *mockTaskService) FindByCompleted(
	ctx context.Context,
	completed bool,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	if m.FindByCompletedFn != nil {
		return m.FindByCompletedFn(ctx, completed, req)
	}
	return store.NewPage([]*domain.Task{}, 0, req), nil
}

func (m *mockTaskService) FindByPriority(
	ctx context.Context,
	priority domain.Priority,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	if m.FindByPriorityFn != nil {
		return m.FindByPriorityFn(ctx, priority, req)
	}
	return store.NewPage([]*domain.Task{}, 0, req), nil
}

func (m *mockTaskService) FindByUserID(
	ctx context.Context,
	userID int64,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	if m.FindByUserIDFn != nil {
		return m.FindByUserIDFn(ctx, userID, req)
	}
	return store.NewPage([]*domain.Task{}, 0, req), nil
}

func (m *mockTaskService) FindByID(ctx context.Context, id int64) (*domain.Task, error) {
	if m.FindByIDFn != nil {
		return m.FindByIDFn(ctx, id)
	}
	return nil, service.ErrTaskNotFound
}

func (m *mockTaskService) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	task.ID = 1
	return task, nil
}

func (m *mockTaskService) Update(
	ctx context.Context,
	id int64,
	updated *domain.Task,
) (*domain.Task, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, updated)
	}
	return nil, service.ErrTaskNotFound
}

func (m *mockTaskService) SetCompleted(
	ctx context.Context,
	id int64,
	completed bool,
) (*domain.Task, error) {
	if m.SetCompletedFn != nil {
		return m.SetCompletedFn(ctx, id, completed)
	}
	return nil, service.ErrTaskNotFound
}

func (m *mockTaskService) Delete(ctx context.Context, id int64) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// mockAssignmentService implements service.AssignmentService.
type mockAssignmentService struct {
	AssignFn   func(ctx context.Context, taskID, userID int64) (*domain.Task, error)
	UnassignFn func(ctx context.Context, taskID int64) (*domain.Task, error)
}

var _ service.AssignmentService = (*mockAssignmentService)(nil)

func (m *mockAssignmentService) Assign(
	ctx context.Context,
	taskID, userID int64,
) (*domain.Task, error) {
	if m.AssignFn != nil {
		return m.AssignFn(ctx, taskID, userID)
	}
	return nil, service.ErrTaskNotFound
}

func (m *mockAssignmentService) Unassign(ctx context.Context, taskID int64) (*domain.Task, error) {
	if m.UnassignFn != nil {
		return m.UnassignFn(ctx, taskID)
	}
	return nil, service.ErrTaskNotFound
}

// mockUserService implements service.UserService.
type mockUserService struct {
	RegisterFn           func(ctx context.Context, user *domain.User) (*domain.User, error)
	AuthenticateFn       func(ctx context.Context, username, password string) (*domain.User, error)
	GetUserFn            func(ctx context.Context, userID int64) (*domain.User, error)
	GetUserByUsernameFn  func(ctx context.Context, username string) (*domain.User, error)
	ListUsersFn          func(ctx context.Context, req store.PageRequest) (store.Page[*domain.User], error)
	UpdateUserProfileFn  func(ctx context.Context, userID int64, username, email string) (*domain.User, error)
	UpdateUserRoleFn     func(ctx context.Context, userID int64, role domain.Role) (*domain.User, error)
	UpdateUserPasswordFn func(ctx context.Context, userID int64, currentPassword, newPassword string) error
	DeleteUserFn         func(ctx context.Context, userID int64) error
}

var _ service.UserService = (*mockUserService)(nil)

func (m *mockUserService) Register(ctx context.Context, user *domain.User) (*domain.User, error) {
	if m.RegisterFn != nil {
		return m.RegisterFn(ctx, user)
	}
	user.ID = 1
	return user, nil
}

func (m *mockUserService) Authenticate(
	ctx context.Context,
	username, password string,
) (*domain.User, error) {
	if m.AuthenticateFn != nil {
		return m.AuthenticateFn(ctx, username, password)
	}
	return nil, auth.ErrInvalidCredentials
}

func (m *mockUserService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	if m.GetUserFn != nil {
		return m.GetUserFn(ctx, userID)
	}
	return nil, service.ErrUserNotFound
}

func (m *mockUserService) GetUserByUsername(
	ctx context.Context,
	username string,
) (*domain.User, error) {
	if m.GetUserByUsernameFn != nil {
		return m.GetUserByUsernameFn(ctx, username)
	}
	return nil, service.ErrUserNotFound
}

func (m *mockUserService) ListUsers(
	ctx context.Context,
	req store.PageRequest,
) (store.Page[*domain.User], error) {
	if m.ListUsersFn != nil {
		return m.ListUsersFn(ctx, req)
	}
	return store.NewPage([]*domain.User{}, 0, req), nil
}

func (m *mockUserService) UpdateUserProfile(
	ctx context.Context,
	userID int64,
	username, email string,
) (*domain.User, error) {
	if m.UpdateUserProfileFn != nil {
		return m.UpdateUserProfileFn(ctx, userID, username, email)
	}
	return nil, service.ErrUserNotFound
}

func (m *mockUserService) UpdateUserRole(
	ctx context.Context,
	userID int64,
	role domain.Role,
) (*domain.User, error) {
	if m.UpdateUserRoleFn != nil {
		return m.UpdateUserRoleFn(ctx, userID, role)
	}
	return nil, service.ErrUserNotFound
}

func (m *mockUserService) UpdateUserPassword(
	ctx context.Context,
	userID int64,
	currentPassword, newPassword string,
) error {
	if m.UpdateUserPasswordFn != nil {
		return m.UpdateUserPasswordFn(ctx, userID, currentPassword, newPassword)
	}
	return nil
}

func (m *mockUserService) DeleteUser(ctx context.Context, userID int64) error {
	if m.DeleteUserFn != nil {
		return m.DeleteUserFn(ctx, userID)
	}
	return nil
}

// mockJWTService implements auth.JWTService for handler tests.
type mockJWTService struct {
	GenerateTokenFn        func(ctx context.Context, userID int64, username, role string) (string, error)
	ValidateTokenFn        func(ctx context.Context, tokenString string) (*auth.Claims, error)
	GenerateRefreshTokenFn func(ctx context.Context, userID int64, username, role string) (string, error)
	ValidateRefreshTokenFn func(ctx context.Context, tokenString string) (*auth.Claims, error)
}

var _ auth.JWTService = (*mockJWTService)(nil)

func (m *mockJWTService) GenerateToken(
	ctx context.Context,
	userID int64,
	username, role string,
) (string, error) {
	if m.GenerateTokenFn != nil {
		return m.GenerateTokenFn(ctx, userID, username, role)
	}
	return "test-access-token", nil
}

func (m *mockJWTService) ValidateToken(
	ctx context.Context,
	tokenString string,
) (*auth.Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, tokenString)
	}
	return &auth.Claims{UserID: 1, Username: "testuser", Role: "USER"}, nil
}

func (m *mockJWTService) GenerateRefreshToken(
	ctx context.Context,
	userID int64,
	username, role string,
) (string, error) {
	if m.GenerateRefreshTokenFn != nil {
		return m.GenerateRefreshTokenFn(ctx, userID, username, role)
	}
	return "test-refresh-token", nil
}

func (m *mockJWTService) ValidateRefreshToken(
	ctx context.Context,
	tokenString string,
) (*auth.Claims, error) {
	if m.ValidateRefreshTokenFn != nil {
		return m.ValidateRefreshTokenFn(ctx, tokenString)
	}
	return &auth.Claims{UserID: 1, Username: "testuser", Role: "USER", TokenType: "refresh"}, nil
}
