package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Username length bounds.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
)

// Password length bounds. The upper bound is bcrypt's practical input limit.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// Common validation errors
var (
	ErrUsernameEmpty       = errors.New("username cannot be blank")
	ErrUsernameLength      = fmt.Errorf("username must be between %d and %d characters", MinUsernameLength, MaxUsernameLength)
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrEmptyHashedPassword = errors.New("hashed password cannot be empty")
	ErrInvalidRole         = errors.New("invalid user role")
)

// Role represents a user's authorization level.
type Role string

// Valid role values.
const (
	RoleUser       Role = "USER"
	RoleTeamLeader Role = "TEAM_LEADER"
)

// ParseRole converts a string to a Role, accepting any casing.
// Returns ErrInvalidRole if the value is not a known role.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleTeamLeader:
		return RoleTeamLeader, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// IsValid reports whether the role is one of the known values.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleTeamLeader:
		return true
	}
	return false
}

// User represents a registered account with credentials, a role, and zero or
// more owned tasks. The owned-task collection is never stored on the user:
// it is derived by querying tasks by owner id, which keeps the task side of
// the relationship the single source of truth.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // Plaintext password, used temporarily during registration/updates
	HashedPassword string    `json:"-"` // Never expose password hash in JSON
	Role           Role      `json:"role"`
	Enabled        bool      `json:"enabled"`
	AccountLocked  bool      `json:"account_locked"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewUser creates a new, unsaved User with the given credentials, the default
// USER role, and an enabled, unlocked account. The ID is left zero for the
// store to assign.
//
// NOTE: This function only sets up the user structure with the plaintext
// password. The caller is responsible for hashing the password before
// storing the user.
func NewUser(username, email, password string) (*User, error) {
	now := time.Now().UTC()
	user := &User{
		Username:      username,
		Email:         email,
		Password:      password, // Plaintext password - must be hashed before storage
		Role:          RoleUser,
		Enabled:       true,
		AccountLocked: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := user.Validate(); err != nil {
		return nil, err
	}

	return user, nil
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrUsernameEmpty
	}

	if len(u.Username) < MinUsernameLength || len(u.Username) > MaxUsernameLength {
		return ErrUsernameLength
	}

	if u.Email == "" {
		return ErrEmptyEmail
	}

	if !validateEmailFormat(u.Email) {
		return ErrInvalidEmail
	}

	if !u.Role.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, u.Role)
	}

	// During user creation/update we need to validate the provided password
	if u.Password != "" {
		if len(u.Password) < MinPasswordLength {
			return ErrPasswordTooShort
		}
		if len(u.Password) > MaxPasswordLength {
			return ErrPasswordTooLong
		}
	} else {
		// When no plaintext password is provided, the user must have a hashed
		// password (the case for existing users loaded from the database).
		if u.HashedPassword == "" {
			return ErrEmptyPassword
		}
	}

	return nil
}

// validateEmailFormat performs basic validation of email format.
// Returns true if the email appears to be in a valid format.
// Stricter RFC 5322 validation happens at the API boundary via the
// validator package; this is a domain-level sanity check.
func validateEmailFormat(email string) bool {
	atIndex := strings.IndexByte(email, '@')
	if atIndex <= 0 || atIndex == len(email)-1 {
		return false
	}

	domainPart := email[atIndex+1:]
	if len(domainPart) < 3 { // minimum would be "a.b"
		return false
	}

	dotIndex := strings.IndexByte(domainPart, '.')
	return dotIndex > 0 && dotIndex < len(domainPart)-1
}
