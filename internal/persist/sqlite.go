// Package persist keeps cache snapshots in a local SQLite database so the
// last known items can be shown while the remote store is unreachable.
package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tasksync/internal/service"
)

// SQLite stores one snapshot per collection.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// Saves arrive from several goroutines; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS snapshots (
			collection TEXT PRIMARY KEY,
			items TEXT NOT NULL,
			saved_at TEXT NOT NULL
		);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate cache database: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load returns the saved snapshot for coll.
func (s *SQLite) Load(ctx context.Context, coll service.Collection) (service.Snapshot, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT items FROM snapshots WHERE collection = ?`, string(coll)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	var snap service.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return nil, false, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap.Clone(), true, nil
}

// SavedAt returns when the snapshot for coll was last written.
func (s *SQLite) SavedAt(ctx context.Context, coll service.Collection) (time.Time, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT saved_at FROM snapshots WHERE collection = ?`, string(coll)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load snapshot time: %w", err)
	}
	t, ok := service.ParseTime(raw)
	return t, ok, nil
}

// Save replaces the saved snapshot for coll.
func (s *SQLite) Save(ctx context.Context, coll service.Collection, snap service.Snapshot) error {
	data, err := json.Marshal(snap.Clone())
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (collection, items, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(collection) DO UPDATE SET items = excluded.items, saved_at = excluded.saved_at`,
		string(coll), string(data), service.FormatTime(s.now()))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Purge deletes the saved snapshot for coll.
func (s *SQLite) Purge(ctx context.Context, coll service.Collection) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE collection = ?`, string(coll)); err != nil {
		return fmt.Errorf("failed to purge snapshot: %w", err)
	}
	return nil
}
