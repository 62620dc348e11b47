// Package store persists tracks and render jobs in SQLite and implements the
// queue's claim protocol.
//
// All cross-worker coordination is expressed as conditional UPDATEs on the
// audio_jobs status column: a claim succeeds only when the row is still
// pending, progress writes succeed only while the claimant's processing state
// holds, and terminal states are never overwritten. There are no explicit
// locks and no transactions spanning multiple jobs.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages queue and track persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the database at path and verifies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure data dir: %w", err)
		}
	}

	// Pragmas go in the DSN so the driver applies them to every pooled
	// connection; a plain Exec would configure only the one connection it
	// happens to run on.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies database connectivity for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timeLayout is fixed-width (fractional seconds are never trimmed) so that
// the lexicographic comparisons SQLite performs on timestamp columns, in
// ORDER BY created_at and the reaper's started_at cutoff, match
// chronological order. RFC3339Nano drops trailing zeros and breaks that
// property within a second.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
