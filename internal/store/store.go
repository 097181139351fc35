// Package store provides durable on-device persistence for progress and
// trial records, backed by SQLite. It is the single write path to the local
// database; nothing above it touches the file directly.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding local progress.
type Store struct {
	db *sql.DB
}

// Open creates a Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates the schema if missing.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// applyPragmas configures SQLite for single-user desktop use.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS progress (
  user_id    TEXT NOT NULL,
  set_id     TEXT NOT NULL,
  trial_id   TEXT NOT NULL DEFAULT '',
  state_json TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (user_id, set_id, trial_id)
);

CREATE TABLE IF NOT EXISTS trials (
  user_id      TEXT NOT NULL,
  set_id       TEXT NOT NULL,
  trial_id     TEXT NOT NULL,
  trial_number INTEGER NOT NULL,
  status       TEXT NOT NULL,
  started_at   TEXT NOT NULL,
  completed_at TEXT,
  summary_json TEXT,
  PRIMARY KEY (user_id, set_id, trial_id)
);

CREATE TABLE IF NOT EXISTS active_trials (
  user_id  TEXT NOT NULL,
  set_id   TEXT NOT NULL,
  trial_id TEXT NOT NULL,
  PRIMARY KEY (user_id, set_id)
);
`

func createSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}

// DefaultDBPath resolves the database file path in priority order:
// 1. EXAMDRILL_DB environment variable
// 2. $XDG_DATA_HOME/examdrill/examdrill.db
// 3. ~/.local/share/examdrill/examdrill.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("EXAMDRILL_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "examdrill", "examdrill.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it does not exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	return nil
}
