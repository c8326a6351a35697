package service

import "errors"

// Common service errors - sentinel errors used across service implementations.
// These errors represent common conditions that callers may want to check for with errors.Is().
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrInvalidArgument indicates that a caller-supplied argument is
	// unusable (blank search query, unknown priority, malformed input).
	// API layer should map this to HTTP 400 Bad Request.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTaskNotFound indicates that the requested task does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")

	// ErrUserNotFound indicates that the requested user does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken indicates that another account already uses the email address.
	// API layer should map this to HTTP 409 Conflict.
	ErrEmailTaken = errors.New("email already in use")

	// ErrUsernameTaken indicates that another account already uses the username.
	// API layer should map this to HTTP 409 Conflict.
	ErrUsernameTaken = errors.New("username already in use")
)
