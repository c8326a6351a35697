package api

import (
	"time"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID int64 `json:"user_id"`

	// Username echoes the authenticated identity for client display
	Username string `json:"username"`

	// Role is the user's authorization role
	Role string `json:"role"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	// RefreshToken is the JWT refresh token to be used to obtain a new token pair
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	// AccessToken is the new JWT token used for API authorization
	AccessToken string `json:"access_token"`

	// RefreshToken is the new JWT token used to obtain future access tokens
	RefreshToken string `json:"refresh_token"`
}

// TaskRequest defines the payload for creating or replacing a task.
type TaskRequest struct {
	Title       string     `json:"title"       validate:"required,max=100"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	DueDate     *time.Time `json:"dueDate"     validate:"required"`
	Priority    string     `json:"priority"    validate:"required"`

	// UserID optionally assigns the task to a user at creation time.
	UserID *int64 `json:"userId,omitempty"`
}

// CompleteTaskRequest defines the payload for the completion-toggle endpoint.
// The pointer distinguishes an explicit false from an absent field.
type CompleteTaskRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// AssignedUser is the embedded representation of a task's owner. It exposes
// only identity fields, never credentials or contact details.
type AssignedUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TaskResponse defines the representation of a task returned by the API.
type TaskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	DueDate     time.Time `json:"dueDate"`
	Priority    string    `json:"priority"`

	// AssignedUser is nil for unassigned tasks.
	AssignedUser *AssignedUser `json:"assignedUser"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserRequest defines the payload for updating a user's profile.
type UserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email"    validate:"required,email"`
}

// UserResponse defines the representation of a user returned by the API.
// Password hashes are never serialized.
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RoleUpdateRequest defines the payload for changing a user's role.
type RoleUpdateRequest struct {
	Role string `json:"role" validate:"required,oneof=USER TEAM_LEADER"`
}

// PasswordUpdateRequest defines the payload for changing a user's password.
type PasswordUpdateRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=6,max=72"`
}
