// Package snapshot persists named record-collection snapshots to a local
// SQLite database. Saving is an explicit opt-in; nothing in the explorer
// writes here on its own.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sdg-tools/crosswalk-cli/internal/record"
)

// Snapshot describes a stored collection.
type Snapshot struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Records   int       `json:"records"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a SQLite-backed snapshot store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the snapshot database and configures WAL mode.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "snapshot: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS snapshots (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL UNIQUE,
	record_count INTEGER NOT NULL,
	payload      TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_snapshots_name ON snapshots(name);
`

// Migrate creates the schema if needed.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "snapshot: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save stores the collection under the given name, replacing any snapshot
// with the same name.
func (s *Store) Save(ctx context.Context, name string, records []record.Record) (*Snapshot, error) {
	if records == nil {
		records = []record.Record{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: marshal records")
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, name, record_count, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			record_count = excluded.record_count,
			payload      = excluded.payload,
			created_at   = excluded.created_at`,
		id, name, len(records), string(payload), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: save %s", name)
	}

	return &Snapshot{ID: id, Name: name, Records: len(records), CreatedAt: now}, nil
}

// List returns all snapshots, newest first.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, record_count, created_at FROM snapshots ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "snapshot: list")
	}
	defer rows.Close() //nolint:errcheck

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.Name, &snap.Records, &snap.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "snapshot: scan row")
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "snapshot: iterate rows")
	}
	return out, nil
}

// Restore loads the named snapshot's record collection.
func (s *Store) Restore(ctx context.Context, name string) ([]record.Record, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM snapshots WHERE name = ?`, name,
	).Scan(&payload)
	if err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, eris.Errorf("snapshot: %s not found", name)
		}
		return nil, eris.Wrapf(err, "snapshot: restore %s", name)
	}

	records, err := record.ImportCollection([]byte(payload))
	if err != nil {
		return nil, eris.Wrapf(err, "snapshot: decode %s", name)
	}
	return records, nil
}

// Delete removes the named snapshot.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	if err != nil {
		return eris.Wrapf(err, "snapshot: delete %s", name)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "snapshot: rows affected")
	}
	if n == 0 {
		return eris.Errorf("snapshot: %s not found", name)
	}
	return nil
}
