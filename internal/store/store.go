// Package store exports one index snapshot to SQLite for offline
// inspection. Each write replaces the previous export; the server never
// reads it back.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for the snapshot export.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// tables lists every table in dependency order; deletes run in reverse.
var tables = []string{
	"units", "files", "symbols", "record_types", "record_members", "packages", "diagnostics",
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS units (
  id              TEXT PRIMARY KEY,
  created_at      TIMESTAMP,
  iterations      INTEGER,
  duration_ms     INTEGER
);

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  path            TEXT NOT NULL UNIQUE,
  user_loaded     BOOLEAN DEFAULT FALSE,
  modified        BOOLEAN DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS symbols (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  scope           TEXT,
  type_name       TEXT,
  record_name     TEXT,
  array_levels    INTEGER DEFAULT 0,
  kind            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS record_types (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL UNIQUE,
  signature       TEXT
);

CREATE TABLE IF NOT EXISTS record_members (
  id              INTEGER PRIMARY KEY,
  record_id       INTEGER NOT NULL REFERENCES record_types(id),
  ordinal         INTEGER NOT NULL,
  name            TEXT NOT NULL,
  type_name       TEXT,
  record_name     TEXT,
  array_levels    INTEGER DEFAULT 0,
  kind            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS packages (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  ordinal         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnostics (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  ordinal         INTEGER NOT NULL,
  code            TEXT,
  message         TEXT NOT NULL,
  severity        TEXT NOT NULL,
  start_line      INTEGER,
  start_col       INTEGER,
  end_line        INTEGER,
  end_col         INTEGER
);

CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_record_members_record ON record_members(record_id);
CREATE INDEX IF NOT EXISTS idx_diagnostics_file ON diagnostics(file_id);
`
