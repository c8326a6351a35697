package service

import (
	"context"
	"database/sql"
	"sync"

	"github.com/phrazzld/taskmgmt-api/internal/domain"
	"github.com/phrazzld/taskmgmt-api/internal/events"
	"github.com/phrazzld/taskmgmt-api/internal/store"
)

// mockTaskStore is a function-field mock of store.TaskStore. Tests override
// only the calls they expect; WithTx returns the mock itself so the same
// expectations apply inside transactions.
type mockTaskStore struct {
	CreateFn          func(ctx context.Context, task *domain.Task) error
	GetByIDFn         func(ctx context.Context, id int64) (*domain.Task, error)
	UpdateFn          func(ctx context.Context, task *domain.Task) error
	DeleteFn          func(ctx context.Context, id int64) error
	ListFn            func(ctx context.Context, req store.PageRequest) (store.Page[*domain.Task], error)
	SearchFn          func(ctx context.Context, query string, req store.PageRequest) (store.Page[*domain.Task], error)
	FindByCompletedFn func(ctx context.Context, completed bool, req store.PageRequest) (store.Page[*domain.Task], error)
	FindByPriorityFn  func(ctx context.Context, priority domain.Priority, req store.PageRequest) (store.Page[*domain.Task], error)
	FindByUserIDFn    func(ctx context.Context, userID int64, req store.PageRequest) (store.Page[*domain.Task], error)
	ListByUserIDFn    func(ctx context.Context, userID int64) ([]*domain.Task, error)

	CreateCalls int
	UpdateCalls int
	DeleteCalls int
}

var _ store.TaskStore = (*mockTaskStore)(nil)

func (m *mockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.CreateCalls++
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	task.ID = 1
	return nil
}

func (m *mockTaskStore) GetByID(ctx context.Context, id int64) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, store.ErrTaskNotFound
}

func (m *mockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	m.UpdateCalls++
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, task)
	}
	return nil
}

func (m *mockTaskStore) Delete(ctx context.Context, id int64) error {
	m.DeleteCalls++
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

func (m *mockTaskStore) List(
	ctx context.Context,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, req)
	}
	return store.Page[*domain.Task]{}, nil
}

func (m *mockTaskStore) Search(
	ctx context.Context,
	query string,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, req)
	}
	return store.Page[*domain.Task]{}, nil
}

func (m *mockTaskStore) FindByCompleted(
	ctx context.Context,
	completed bool,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	if m.FindByCompletedFn != nil {
		return m.FindByCompletedFn(ctx, completed, req)
	}
	return store.Page[*domain.Task]{}, nil
}

func (m *mockTaskStore) FindByPriority(
	ctx context.Context,
	priority domain.Priority,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	if m.FindByPriorityFn != nil {
		return m.FindByPriorityFn(ctx, priority, req)
	}
	return store.Page[*domain.Task]{}, nil
}

func (m *mockTaskStore) FindByUserID(
	ctx context.Context,
	userID int64,
	req store.PageRequest,
) (store.Page[*domain.Task], error) {
	if m.FindByUserIDFn != nil {
		return m.FindByUserIDFn(ctx, userID, req)
	}
	return store.Page[*domain.Task]{}, nil
}

func (m *mockTaskStore) ListByUserID(ctx context.Context, userID int64) ([]*domain.Task, error) {
	if m.ListByUserIDFn != nil {
		return m.ListByUserIDFn(ctx, userID)
	}
	return []*domain.Task{}, nil
}

func (m *mockTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return m }

// mockUserStore is a function-field mock of store.UserStore.
type mockUserStore struct {
	CreateFn         func(ctx context.Context, user *domain.User) error
	GetByIDFn        func(ctx context.Context, id int64) (*domain.User, error)
	GetByUsernameFn  func(ctx context.Context, username string) (*domain.User, error)
	GetByEmailFn     func(ctx context.Context, email string) (*domain.User, error)
	UpdateFn         func(ctx context.Context, user *domain.User) error
	UpdatePasswordFn func(ctx context.Context, id int64, hashedPassword string) error
	DeleteFn         func(ctx context.Context, id int64) error
	ListFn           func(ctx context.Context, req store.PageRequest) (store.Page[*domain.User], error)

	CreateCalls         int
	UpdateCalls         int
	UpdatePasswordCalls int
	DeleteCalls         int
}

var _ store.UserStore = (*mockUserStore)(nil)

func (m *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	m.CreateCalls++
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	user.ID = 1
	return nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, store.ErrUserNotFound
}

func (m *mockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.GetByUsernameFn != nil {
		return m.GetByUsernameFn(ctx, username)
	}
	return nil, store.ErrUserNotFound
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	return nil, store.ErrUserNotFound
}

func (m *mockUserStore) Update(ctx context.Context, user *domain.User) error {
	m.UpdateCalls++
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, user)
	}
	return nil
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	m.UpdatePasswordCalls++
	if m.UpdatePasswordFn != nil {
		return m.UpdatePasswordFn(ctx, id, hashedPassword)
	}
	return nil
}

func (m *mockUserStore) Delete(ctx context.Context, id int64) error {
	m.DeleteCalls++
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

func (m *mockUserStore) List(
	ctx context.Context,
	req store.PageRequest,
) (store.Page[*domain.User], error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, req)
	}
	return store.Page[*domain.User]{}, nil
}

func (m *mockUserStore) WithTx(tx *sql.Tx) store.UserStore { return m }

// mockEventEmitter records emitted events and optionally fails emission.
type mockEventEmitter struct {
	mu      sync.Mutex
	emitted []*events.Event
	err     error
}

var _ events.EventEmitter = (*mockEventEmitter)(nil)

func (m *mockEventEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.emitted = append(m.emitted, event)
	return nil
}

func (m *mockEventEmitter) Events() []*events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*events.Event, len(m.emitted))
	copy(out, m.emitted)
	return out
}
