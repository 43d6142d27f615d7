// Package journal keeps a history of the transfers savesync performed, so
// users can see what happened to a save and when.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/savesync/savesync/internal/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key TEXT NOT NULL,
    action TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    at TEXT NOT NULL -- RFC3339 with nanoseconds
);

CREATE INDEX IF NOT EXISTS idx_history_key ON history(key);
`

const DefaultLimit = 20

type Action string

const (
	ActionUpload   Action = "upload"
	ActionDownload Action = "download"
	ActionConflict Action = "conflict"
	ActionFailed   Action = "failed"
	ActionDelete   Action = "delete"
	ActionRename   Action = "rename"
)

type Entry struct {
	ID     int64
	Key    string
	Action Action
	Detail string
	Time   time.Time
}

// dbEntry is the row shape; time is stored as TEXT.
type dbEntry struct {
	ID     int64  `db:"id"`
	Key    string `db:"key"`
	Action string `db:"action"`
	Detail string `db:"detail"`
	At     string `db:"at"`
}

type Journal struct {
	db *sqlx.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	database, err := db.NewSqliteDB(db.WithPath(path), db.WithMaxOpenConns(1))
	if err != nil {
		return nil, fmt.Errorf("open history journal: %w", err)
	}

	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return &Journal{db: database}, nil
}

func (j *Journal) Close() error {
	if j.db == nil {
		return errors.New("history journal not open")
	}
	if err := j.db.Close(); err != nil {
		return err
	}
	j.db = nil
	return nil
}

// Record appends an entry. Entries are never rewritten.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	row := dbEntry{
		Key:    e.Key,
		Action: string(e.Action),
		Detail: e.Detail,
		At:     e.Time.UTC().Format(time.RFC3339Nano),
	}

	_, err := j.db.NamedExecContext(ctx,
		`INSERT INTO history (key, action, detail, at) VALUES (:key, :action, :detail, :at)`, row)
	if err != nil {
		return fmt.Errorf("record history for %s: %w", e.Key, err)
	}
	slog.Debug("history recorded", "key", e.Key, "action", e.Action)
	return nil
}

// List returns up to limit entries, newest first. An empty key lists every
// save.
func (j *Journal) List(ctx context.Context, key string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	var rows []dbEntry
	var err error
	if key == "" {
		err = j.db.SelectContext(ctx, &rows,
			"SELECT id, key, action, detail, at FROM history ORDER BY id DESC LIMIT ?", limit)
	} else {
		err = j.db.SelectContext(ctx, &rows,
			"SELECT id, key, action, detail, at FROM history WHERE key = ? ORDER BY id DESC LIMIT ?", key, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		at, err := time.Parse(time.RFC3339Nano, row.At)
		if err != nil {
			slog.Error("failed to parse history timestamp", "id", row.ID, "value", row.At, "error", err)
			continue
		}
		entries = append(entries, Entry{
			ID:     row.ID,
			Key:    row.Key,
			Action: Action(row.Action),
			Detail: row.Detail,
			Time:   at,
		})
	}
	return entries, nil
}

// RenameKey moves the history of oldKey to newKey after a save is renamed.
func (j *Journal) RenameKey(ctx context.Context, oldKey, newKey string) error {
	if _, err := j.db.ExecContext(ctx, "UPDATE history SET key = ? WHERE key = ?", newKey, oldKey); err != nil {
		return fmt.Errorf("rename history %s: %w", oldKey, err)
	}
	return nil
}
