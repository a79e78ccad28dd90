// Package store provides the SQLite persistence used by kassist: the query
// log recorded for every processed question, and the durable copy of the
// local vector index so it can be reopened without re-embedding the corpus.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrNoIndex is returned by LoadIndex when no index has been saved yet.
var ErrNoIndex = errors.New("store: no persisted index")

// SQLiteStore is backed by a single local SQLite database file.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns ~/.kassist/<name>, creating the directory if needed.
func DefaultDBPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".kassist")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, name), nil
}

// Open opens (or creates) a SQLiteStore at path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); path != ":memory:" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// One connection: a single writer avoids SQLITE_BUSY and keeps ":memory:"
	// databases from splitting across connections.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS query_log (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    query         TEXT    NOT NULL,
    route         TEXT    NOT NULL,
    path          TEXT    NOT NULL,
    answer        TEXT    NOT NULL,
    context_count INTEGER NOT NULL,
    duration_ms   INTEGER NOT NULL,
    created_at    INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_query_log_created ON query_log (created_at);

CREATE TABLE IF NOT EXISTS index_meta (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    model      TEXT    NOT NULL,
    dimension  INTEGER NOT NULL,
    distance   TEXT    NOT NULL,
    built_at   INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS index_entries (
    seq        INTEGER PRIMARY KEY,
    chunk_id   TEXT    NOT NULL,
    source     TEXT    NOT NULL,
    content    TEXT    NOT NULL,
    metadata   TEXT    NOT NULL,  -- JSON object
    vector     BLOB    NOT NULL   -- little-endian float32
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
