package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("alice", "alice@example.com", "supersecret")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.ID != 0 {
		t.Errorf("Expected zero ID before persistence, got %d", user.ID)
	}

	if user.Username != "alice" {
		t.Errorf("Expected username alice, got %s", user.Username)
	}

	if user.Role != RoleUser {
		t.Errorf("Expected default role USER, got %s", user.Role)
	}

	if !user.Enabled {
		t.Error("Expected new account to be enabled")
	}

	if user.AccountLocked {
		t.Error("Expected new account to be unlocked")
	}

	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Expected non-zero timestamps")
	}
}

func TestNewUserValidation(t *testing.T) {
	_, err := NewUser("", "a@example.com", "supersecret")
	if !errors.Is(err, ErrUsernameEmpty) {
		t.Errorf("Expected ErrUsernameEmpty, got %v", err)
	}

	_, err = NewUser("ab", "a@example.com", "supersecret")
	if !errors.Is(err, ErrUsernameLength) {
		t.Errorf("Expected ErrUsernameLength, got %v", err)
	}

	_, err = NewUser(strings.Repeat("a", MaxUsernameLength+1), "a@example.com", "supersecret")
	if !errors.Is(err, ErrUsernameLength) {
		t.Errorf("Expected ErrUsernameLength for long username, got %v", err)
	}

	_, err = NewUser("alice", "", "supersecret")
	if !errors.Is(err, ErrEmptyEmail) {
		t.Errorf("Expected ErrEmptyEmail, got %v", err)
	}

	_, err = NewUser("alice", "not-an-email", "supersecret")
	if !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("Expected ErrInvalidEmail, got %v", err)
	}

	_, err = NewUser("alice", "a@example.com", "short")
	if !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("Expected ErrPasswordTooShort, got %v", err)
	}

	_, err = NewUser("alice", "a@example.com", strings.Repeat("p", MaxPasswordLength+1))
	if !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Expected ErrPasswordTooLong, got %v", err)
	}
}

func TestUserValidateHashedPassword(t *testing.T) {
	user := User{
		Username:       "alice",
		Email:          "alice@example.com",
		HashedPassword: "$2a$10$abcdefghijklmnopqrstuv",
		Role:           RoleUser,
	}

	// A stored user has no plaintext password but carries a hash.
	if err := user.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	user.HashedPassword = ""
	if err := user.Validate(); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("Expected ErrEmptyPassword, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("team_leader")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if role != RoleTeamLeader {
		t.Errorf("Expected TEAM_LEADER, got %s", role)
	}

	if _, err := ParseRole("ADMIN"); !errors.Is(err, ErrInvalidRole) {
		t.Errorf("Expected ErrInvalidRole, got %v", err)
	}
}
