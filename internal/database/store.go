package database

import (
	"database/sql"
	"fmt"

	"stockbook/internal/database/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Store owns the single connection to the embedded store file. The process
// holds exactly one Store per file; no other component opens a second
// connection while it is live.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens and configures the store at path. path can be a file path or
// ":memory:" for an in-memory store (tests). The file is created on first
// write if it does not exist.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// WAL keeps readers and writers from blocking each other; the snapshot
	// engine checkpoints the log back into the main file before copying.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	return &Store{db: db, path: path}, nil
}

// DB exposes the underlying connection for repositories.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the store file path (or ":memory:" for in-memory stores).
func (s *Store) Path() string {
	return s.path
}

// MigrateUp brings the schema to the latest version.
func (s *Store) MigrateUp() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the schema is up-to-date.
func (s *Store) CheckMigrations() error {
	return migrations.CheckMigrationStatus(s.db)
}

// Checkpoint merges the write-ahead log into the main store file. A raw file
// copy taken without this can miss writes still sitting in the log.
func (s *Store) Checkpoint() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("checkpointing write-ahead log: %w", err)
	}
	return nil
}

// Close closes the store connection. This is the single teardown path;
// callers must sequence it after any close-triggered snapshot.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
