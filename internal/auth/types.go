package auth

import (
	"errors"
	"regexp"
	"time"
)

// emailPattern is a pragmatic format check; deliverability is not verified.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxEmailLength is the maximum accepted email length.
const maxEmailLength = 254

// IsValidEmail checks whether an email address meets format requirements.
func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// Identity is the authenticated account identity handed to the relay core.
// It is immutable for the lifetime of a session.
type Identity struct {
	// ID is the account id; it doubles as the relay channel key.
	ID string `json:"id"`

	// Label is a human-readable name for logging and display.
	Label string `json:"label"`
}

// User represents a stored account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the relay identity for this account.
func (u *User) Identity() Identity {
	label := u.DisplayName
	if label == "" {
		label = u.Email
	}
	return Identity{ID: u.ID, Label: label}
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrTokenInvalid       = errors.New("invalid token")
)
