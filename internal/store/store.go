// Package store persists exam history in SQLite: one row per exam, an
// append-only submission log, and lifecycle events ordered by a global
// sequence.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store wraps the SQLite handle and hands out repositories.
type Store struct {
	db  *sql.DB
	seq *sequenceCounter
}

// Open connects to the SQLite database at dsn, applies recommended pragmas,
// and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ExamRepo returns the exam repository backed by this store.
func (s *Store) ExamRepo() ExamRepo {
	return &examRepo{db: s.db}
}

// SubmissionRepo returns the submission repository backed by this store.
func (s *Store) SubmissionRepo() SubmissionRepo {
	return &submissionRepo{db: s.db, seq: s.seq}
}

// EventRepo returns the lifecycle event repository backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{db: s.db, seq: s.seq}
}

// applyPragmas configures SQLite for optimal single-user performance.
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

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS exams (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			highest_level TEXT NOT NULL DEFAULT '',
			overall_score REAL NOT NULL DEFAULT 0,
			certificate_eligible INTEGER NOT NULL DEFAULT 0,
			report_json TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			sequence INTEGER PRIMARY KEY,
			exam_id TEXT NOT NULL REFERENCES exams(id),
			instance_id TEXT NOT NULL,
			question_id TEXT NOT NULL,
			level TEXT NOT NULL,
			question_type TEXT NOT NULL,
			triggered_by TEXT NOT NULL,
			mime_type TEXT NOT NULL DEFAULT '',
			size_bytes INTEGER NOT NULL DEFAULT 0,
			duration_secs REAL NOT NULL DEFAULT 0,
			overall_score REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS submissions_exam_idx ON submissions (exam_id)`,
		`CREATE TABLE IF NOT EXISTS exam_events (
			sequence INTEGER PRIMARY KEY,
			exam_id TEXT NOT NULL REFERENCES exams(id),
			kind TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS exam_events_exam_idx ON exam_events (exam_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. LINGOQUESTO_DB environment variable
// 2. $XDG_DATA_HOME/lingoquesto/placement.db
// 3. ~/.local/share/lingoquesto/placement.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("LINGOQUESTO_DB"); p != "" {
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

	p := filepath.Join(dataHome, "lingoquesto", "placement.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
