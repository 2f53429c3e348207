package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/glebarez/sqlite"

	"poolzap/core/types"
)

// Storage wraps the zapd event journal persistence layer.
type Storage struct {
	db *sql.DB
}

// ErrPathRequired is returned when the backing store path is missing.
var ErrPathRequired = errors.New("zapd storage path must be configured")

const defaultFilePragmas = "mode=rwc&_busy_timeout=5000&_journal_mode=WAL"

const schema = `
CREATE TABLE IF NOT EXISTS events (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    type       TEXT NOT NULL,
    attributes TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS events_type_idx ON events (type);
`

// FileDSN converts a filesystem path into an on-disk SQLite DSN with
// sensible defaults. Callers must ensure the path is non-empty.
func FileDSN(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", ErrPathRequired
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve storage path: %w", err)
	}
	return fmt.Sprintf("file:%s?%s", abs, defaultFilePragmas), nil
}

// Open initialises the backing store using a sqlite-compatible DSN.
func Open(dsn string) (*Storage, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return nil, ErrPathRequired
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close releases database resources.
func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record is a journalled event with its sequence and timestamp.
type Record struct {
	Seq       int64       `json:"seq"`
	CreatedAt int64       `json:"createdAt"`
	Event     types.Event `json:"event"`
}

// AppendEvent journals the supplied event.
func (s *Storage) AppendEvent(ctx context.Context, evt *types.Event, now int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage not initialised")
	}
	if evt == nil {
		return fmt.Errorf("event required")
	}
	attrs := evt.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	encoded, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encode attributes: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (type, attributes, created_at) VALUES (?, ?, ?)`,
		evt.Type, string(encoded), now,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// ListEvents returns up to limit journalled events with seq greater than
// after, oldest first.
func (s *Storage) ListEvents(ctx context.Context, after int64, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage not initialised")
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, type, attributes, created_at FROM events WHERE seq > ? ORDER BY seq ASC LIMIT ?`,
		after, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var (
			record  Record
			encoded string
		)
		if err := rows.Scan(&record.Seq, &record.Event.Type, &encoded, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &record.Event.Attributes); err != nil {
			return nil, fmt.Errorf("decode attributes: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
