// Package storage persists roster snapshots in a local sqlite database so
// the attendee table can show the last good fetch before the network is
// touched again.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Thomah/le-ptit-terminal/internal/eventbrite"
)

var ErrNoSnapshot = errors.New("no snapshot")

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	event_name TEXT NOT NULL,
	event_date TEXT NOT NULL,
	event_url TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	attendees TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_snapshots_fetched_at ON snapshots(fetched_at);
`

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, roster *eventbrite.Roster) error {
	if roster == nil {
		return fmt.Errorf("roster is required")
	}
	fetchedAt := roster.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}
	attendees, err := json.Marshal(roster.Attendees)
	if err != nil {
		return fmt.Errorf("marshal attendees: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO snapshots(event_id, event_name, event_date, event_url, fetched_at, attendees)
VALUES (?, ?, ?, ?, ?, ?)
`, roster.EventID, roster.EventName, roster.EventDate, roster.EventURL,
		fetchedAt.UTC().Format(time.RFC3339Nano), string(attendees))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recently fetched roster, or ErrNoSnapshot when
// nothing has ever been saved.
func (s *Store) Latest(ctx context.Context) (*eventbrite.Roster, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT event_id, event_name, event_date, event_url, fetched_at, attendees
FROM snapshots ORDER BY id DESC LIMIT 1
`)
	var roster eventbrite.Roster
	var fetchedAt string
	var attendees string
	err := row.Scan(&roster.EventID, &roster.EventName, &roster.EventDate,
		&roster.EventURL, &fetchedAt, &attendees)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}
	if parsed, parseErr := time.Parse(time.RFC3339Nano, fetchedAt); parseErr == nil {
		roster.FetchedAt = parsed
	}
	if err := json.Unmarshal([]byte(attendees), &roster.Attendees); err != nil {
		return nil, fmt.Errorf("decode snapshot attendees: %w", err)
	}
	return &roster, nil
}

// Prune drops everything except the most recent keep snapshots.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep < 1 {
		keep = 1
	}
	_, err := s.db.ExecContext(ctx, `
DELETE FROM snapshots WHERE id NOT IN (
	SELECT id FROM snapshots ORDER BY id DESC LIMIT ?
)
`, keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
