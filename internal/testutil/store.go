package testutil

import (
	"path/filepath"
	"testing"

	"stockbook/internal/database"
)

// NewTestStore opens a migrated file-backed store in a temp directory and
// closes it when the test ends. A file (not :memory:) keeps the snapshot
// engine usable against the same store.
func NewTestStore(t *testing.T) *database.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	store, err := database.Open(path)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.MigrateUp(); err != nil {
		t.Fatalf("migrating test store: %v", err)
	}
	return store
}
