package auth

import (
	"context"
	"errors"
	"testing"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteUserRepository(db)

	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	user := &User{
		Email:        "Jack@Example.com",
		DisplayName:  "Jack",
		PasswordHash: hash,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.ID == "" {
		t.Fatal("Create() should assign an id")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("Create() should assign timestamps")
	}

	got, err := repo.GetByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Email != "jack@example.com" {
		t.Errorf("email should be stored lowercased, got %q", got.Email)
	}
	if got.DisplayName != "Jack" {
		t.Errorf("DisplayName = %q, want Jack", got.DisplayName)
	}
}

func TestUserRepository_GetByEmail_CaseInsensitive(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteUserRepository(db)
	user := seedTestUser(t, db, "emma@example.com")

	got, err := repo.GetByEmail(context.Background(), "EMMA@example.COM")
	if err != nil {
		t.Fatalf("GetByEmail() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("GetByEmail() id = %q, want %q", got.ID, user.ID)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteUserRepository(db)
	seedTestUser(t, db, "taken@example.com")

	dup := &User{
		Email:        "taken@example.com",
		DisplayName:  "Other",
		PasswordHash: "x",
	}
	if err := repo.Create(context.Background(), dup); !errors.Is(err, ErrEmailExists) {
		t.Errorf("Create() duplicate = %v, want ErrEmailExists", err)
	}
}

func TestUserRepository_NotFound(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteUserRepository(db)

	if _, err := repo.GetByID(context.Background(), "usr-missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() missing = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.GetByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByEmail() missing = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Count(t *testing.T) {
	db := testDB(t)
	repo := NewSQLiteUserRepository(db)

	n, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}

	seedTestUser(t, db, "one@example.com")
	seedTestUser(t, db, "two@example.com")

	n, err = repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}
