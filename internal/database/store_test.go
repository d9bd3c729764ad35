package database_test

import (
	"path/filepath"
	"testing"

	"stockbook/internal/database"
)

func openStore(t *testing.T) *database.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.db")
	store, err := database.Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Open(t *testing.T) {
	t.Run("configures the connection", func(t *testing.T) {
		store := openStore(t)

		var mode string
		if err := store.DB().QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
			t.Fatalf("reading journal_mode: %v", err)
		}
		if mode != "wal" {
			t.Errorf("journal_mode = %q, want wal", mode)
		}

		var fk int
		if err := store.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("reading foreign_keys: %v", err)
		}
		if fk != 1 {
			t.Errorf("foreign_keys = %d, want 1", fk)
		}
	})

	t.Run("remembers its path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.db")
		store, err := database.Open(path)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer store.Close()

		if store.Path() != path {
			t.Errorf("Path() = %q, want %q", store.Path(), path)
		}
	})
}

func TestStore_Migrations(t *testing.T) {
	store := openStore(t)

	// A fresh store has no schema version yet.
	if err := store.CheckMigrations(); err == nil {
		t.Error("CheckMigrations() on a fresh store = nil, want error")
	}

	if err := store.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}
	if err := store.CheckMigrations(); err != nil {
		t.Errorf("CheckMigrations() after MigrateUp() error = %v", err)
	}

	// MigrateUp is idempotent.
	if err := store.MigrateUp(); err != nil {
		t.Errorf("second MigrateUp() error = %v", err)
	}

	for _, table := range []string{"auth_user", "auth_sessions", "categories", "items"} {
		var name string
		err := store.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after migration: %v", table, err)
		}
	}
}

func TestStore_Checkpoint(t *testing.T) {
	store := openStore(t)
	if err := store.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	if _, err := store.DB().Exec("INSERT INTO categories (id, name, created_at) VALUES ('c1', 'Hardware', '2024-01-01')"); err != nil {
		t.Fatalf("inserting row: %v", err)
	}

	if err := store.Checkpoint(); err != nil {
		t.Errorf("Checkpoint() error = %v", err)
	}
}
