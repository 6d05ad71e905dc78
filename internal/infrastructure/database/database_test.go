package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
)

// openTestDB opens a database in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := Open(Config{Path: path, WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
}

func TestHealthCheck(t *testing.T) {
	db := openTestDB(t)

	if err := db.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestMigrate_AppliesPendingInOrder(t *testing.T) {
	fsys := fstest.MapFS{
		"002_add_note.sql": &fstest.MapFile{
			Data: []byte("ALTER TABLE things ADD COLUMN note TEXT;"),
		},
		"001_things.sql": &fstest.MapFile{
			Data: []byte("CREATE TABLE things (id TEXT PRIMARY KEY) STRICT;"),
		},
	}

	db := openTestDB(t)
	if err := db.migrateFrom(context.Background(), fsys, "."); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// The note column only exists if 001 ran before 002.
	if _, err := db.ExecContext(context.Background(),
		"INSERT INTO things (id, note) VALUES ('t1', 'hello')"); err != nil {
		t.Fatalf("insert after migration failed: %v", err)
	}

	// Re-running must be a no-op.
	if err := db.migrateFrom(context.Background(), fsys, "."); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	var count int
	if err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("counting migrations: %v", err)
	}
	if count != 2 {
		t.Errorf("applied migrations = %d, want 2", count)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{"valid", "001_users.sql", "001", "users", true},
		{"multi underscore", "002_add_device_table.sql", "002", "add_device_table", true},
		{"no underscore", "001.sql", "", "", false},
		{"empty name", "001_.sql", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			version, migName, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if version != tt.wantVersion {
				t.Errorf("version = %q, want %q", version, tt.wantVersion)
			}
			if migName != tt.wantName {
				t.Errorf("name = %q, want %q", migName, tt.wantName)
			}
		})
	}
}
