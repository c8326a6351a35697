package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MaxTitleLength is the maximum number of characters allowed in a task title.
const MaxTitleLength = 100

// Task-specific validation errors
var (
	// ErrTitleEmpty is returned when a task's title is empty or blank.
	ErrTitleEmpty = errors.New("task title cannot be blank")

	// ErrTitleTooLong is returned when a task's title exceeds MaxTitleLength.
	ErrTitleTooLong = fmt.Errorf("task title cannot be longer than %d characters", MaxTitleLength)

	// ErrDueDateRequired is returned when a task has no due date.
	ErrDueDateRequired = errors.New("task due date cannot be empty")

	// ErrInvalidPriority is returned when a priority value is not one of
	// LOW, MEDIUM, or HIGH.
	ErrInvalidPriority = errors.New("invalid task priority")
)

// Priority represents the urgency level of a task.
type Priority string

// Valid priority values, ordered from least to most urgent.
const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority converts a string to a Priority, accepting any casing.
// Returns ErrInvalidPriority if the value is not a known priority.
func ParsePriority(s string) (Priority, error) {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
}

// IsValid reports whether the priority is one of the known values.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a unit of work with a title, priority, due date, completion
// flag, and an optional owning user.
//
// The task record is the source of truth for the task-user relationship:
// UserID is the foreign-key side, and a user's task collection is always
// derived by querying tasks by owner id. Task IDs are assigned by the
// database on insert (BIGSERIAL), so a zero ID marks an unsaved task.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Completed   bool      `json:"completed"`
	DueDate     time.Time `json:"due_date"`
	Priority    Priority  `json:"priority"`
	UserID      *int64    `json:"user_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask creates a new, unsaved Task with the given attributes and sets the
// creation/update timestamps. The ID is left zero for the store to assign.
// Returns an error if validation fails.
func NewTask(title, description string, priority Priority, dueDate time.Time) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		Title:       title,
		Description: description,
		Completed:   false,
		DueDate:     dueDate,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrTitleEmpty
	}

	if len(t.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}

	if !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}

	if t.DueDate.IsZero() {
		return ErrDueDateRequired
	}

	return nil
}

// AssignTo sets the task's owning-user reference and refreshes the update
// timestamp. Returns true if this is a new assignment, i.e. the task was
// previously unowned or owned by a different user.
func (t *Task) AssignTo(userID int64) bool {
	newAssignment := t.UserID == nil || *t.UserID != userID
	t.UserID = &userID
	t.UpdatedAt = time.Now().UTC()
	return newAssignment
}

// Unassign clears the task's owning-user reference. Unassigning an already
// unowned task is a no-op; the method reports whether the owner changed.
func (t *Task) Unassign() bool {
	if t.UserID == nil {
		return false
	}
	t.UserID = nil
	t.UpdatedAt = time.Now().UTC()
	return true
}

// SetCompleted sets the task's completion flag and refreshes the update
// timestamp.
func (t *Task) SetCompleted(completed bool) {
	t.Completed = completed
	t.UpdatedAt = time.Now().UTC()
}

// IsAssigned reports whether the task currently has an owning user.
func (t *Task) IsAssigned() bool {
	return t.UserID != nil
}
