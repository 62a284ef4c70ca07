// Package store caches restriction bundles fetched from the backend in a
// local SQLite file, so a project can be reopened offline.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrNotFound is returned by Get for an id that was never stored.
var ErrNotFound = errors.New("bundle not cached")

const schema = `
CREATE TABLE IF NOT EXISTS bundles (
    restricao_id INTEGER PRIMARY KEY,
    body         BLOB NOT NULL,
    fetched_at   TEXT NOT NULL
);`

// Store is the bundle cache.
type Store struct {
	db *sql.DB
}

// Entry is one cached bundle.
type Entry struct {
	RestricaoID int
	Body        []byte
	FetchedAt   time.Time
}

// Open opens or creates the cache at path. ":memory:" keeps it in memory.
func Open(path string) (*Store, error) {
	dsn := "file::memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir cache dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout=5000", path)
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Put stores or replaces the bundle of a restriction.
func (s *Store) Put(ctx context.Context, id int, body []byte) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO bundles (restricao_id, body, fetched_at)
        VALUES (?, ?, ?)
        ON CONFLICT(restricao_id) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at
    `, id, body, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("store bundle %d: %w", id, err)
	}
	return nil
}

// Get returns the cached bundle of a restriction.
func (s *Store) Get(ctx context.Context, id int) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT restricao_id, body, fetched_at
        FROM bundles
        WHERE restricao_id = ?
    `, id)

	var (
		e       Entry
		fetched string
	)
	if err := row.Scan(&e.RestricaoID, &e.Body, &fetched); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, fetched)
	if err != nil {
		return nil, fmt.Errorf("bad fetched_at %q: %w", fetched, err)
	}
	e.FetchedAt = t
	return &e, nil
}

// Delete drops a cached bundle. Missing ids are not an error.
func (s *Store) Delete(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM bundles WHERE restricao_id = ?`, id)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}
