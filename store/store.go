// Package store is a content-addressed cache of parsed trees and backend
// artifacts, keyed by the tree hash from compiler/hash. It persists to
// SQLite through the pure-Go modernc driver.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a key has no cached entry.
var ErrNotFound = errors.New("store: not found")

const schema = `
CREATE TABLE IF NOT EXISTS trees (
	key    TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	ast    BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS artifacts (
	key     TEXT NOT NULL,
	backend TEXT NOT NULL,
	output  TEXT NOT NULL,
	PRIMARY KEY (key, backend)
);`

// Store indexes encoded trees and backend outputs by content hash.
type Store struct {
	db   *sql.DB
	path string
}

// Stats summarizes the store contents.
type Stats struct {
	Trees     int
	Artifacts int
}

// Open opens (creating if needed) the SQLite database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s: %w", dir, err)
		}
	}
	return open(ctx, "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
}

// OpenMemory opens a private in-memory store.
func OpenMemory(ctx context.Context) (*Store, error) {
	return open(ctx, ":memory:", ":memory:")
}

func open(ctx context.Context, dsn, path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutTree records the encoded tree and the source it was parsed from.
// An existing entry for the key is kept.
func (s *Store) PutTree(ctx context.Context, key, source string, ast []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO trees (key, source, ast) VALUES (?, ?, ?)`,
		key, source, ast)
	if err != nil {
		return fmt.Errorf("store: put tree %s: %w", short(key), err)
	}
	return nil
}

// Tree returns the encoded tree and original source for a key.
func (s *Store) Tree(ctx context.Context, key string) (source string, ast []byte, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT source, ast FROM trees WHERE key = ?`, key).Scan(&source, &ast)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("store: get tree %s: %w", short(key), err)
	}
	return source, ast, nil
}

// PutArtifact records a backend's output for a key, replacing any
// previous output.
func (s *Store) PutArtifact(ctx context.Context, key, backend, output string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO artifacts (key, backend, output) VALUES (?, ?, ?)`,
		key, backend, output)
	if err != nil {
		return fmt.Errorf("store: put artifact %s/%s: %w", short(key), backend, err)
	}
	return nil
}

// Artifact returns a cached backend output.
func (s *Store) Artifact(ctx context.Context, key, backend string) (string, error) {
	var output string
	err := s.db.QueryRowContext(ctx,
		`SELECT output FROM artifacts WHERE key = ? AND backend = ?`,
		key, backend).Scan(&output)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: get artifact %s/%s: %w", short(key), backend, err)
	}
	return output, nil
}

// Stats counts stored trees and artifacts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trees`).Scan(&st.Trees); err != nil {
		return st, fmt.Errorf("store: stats: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artifacts`).Scan(&st.Artifacts); err != nil {
		return st, fmt.Errorf("store: stats: %w", err)
	}
	return st, nil
}

func short(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
