package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJWTProvider_Validate(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteUserRepository(db)
	user := seedTestUser(t, db, "jack@example.com")

	provider := NewJWTProvider(repo, testSecret)

	token, err := GenerateAccessToken(user, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	identity, err := provider.Validate(context.Background(), token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if identity.ID != user.ID {
		t.Errorf("identity ID = %q, want %q", identity.ID, user.ID)
	}
	if identity.Label != user.DisplayName {
		t.Errorf("identity Label = %q, want %q", identity.Label, user.DisplayName)
	}
}

func TestJWTProvider_Validate_UnknownSubject(t *testing.T) {
	db := testDB(t)
	provider := NewJWTProvider(NewSQLiteUserRepository(db), testSecret)

	// Token valid in itself, but the account was never stored.
	ghost := &User{ID: "usr-deleted1", Email: "ghost@example.com"}
	token, err := GenerateAccessToken(ghost, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if _, err := provider.Validate(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Validate() unknown subject = %v, want ErrTokenInvalid", err)
	}
}

func TestJWTProvider_Validate_BadToken(t *testing.T) {
	db := testDB(t)
	provider := NewJWTProvider(NewSQLiteUserRepository(db), testSecret)

	if _, err := provider.Validate(context.Background(), "not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Validate() garbage = %v, want ErrTokenInvalid", err)
	}
}

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"jack@example.com", true},
		{"a@b.co", true},
		{"no-at-sign", false},
		{"spaces in@example.com", false},
		{"@example.com", false},
		{"jack@", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidEmail(tt.email); got != tt.want {
			t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
		}
	}
}
