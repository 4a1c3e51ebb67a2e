// Package sqlite is the append-only archive journal. The in-memory
// store stays authoritative; the journal exists so audit history,
// support threads, and maintenance windows survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/mutualref/mutualref/internal/model"

	_ "modernc.org/sqlite"
)

type Archive struct {
	db *sql.DB
}

func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	identity INTEGER NOT NULL,
	at INTEGER NOT NULL,
	text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_identity ON events(identity);

CREATE TABLE IF NOT EXISTS support_messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	identity INTEGER NOT NULL,
	at INTEGER NOT NULL,
	role INTEGER NOT NULL,
	author_id INTEGER NOT NULL,
	author_name TEXT NOT NULL DEFAULT '',
	text TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_support_identity ON support_messages(identity);

CREATE TABLE IF NOT EXISTS maintenance_windows (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	actor TEXT NOT NULL DEFAULT '',
	started_at INTEGER NOT NULL,
	ends_at INTEGER NOT NULL,
	ended_at INTEGER,
	reason TEXT NOT NULL DEFAULT '',
	completed INTEGER NOT NULL DEFAULT 0
);
`,
	// Future migrations go here.
}

func applySchema(db *sql.DB) error {
	// Create schema_version table to track migrations
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`); err != nil {
		return err
	}

	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	var currentVersion int
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	// Apply pending migrations
	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return err
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) RecordEvent(ctx context.Context, identity int64, entry model.HistoryEntry) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO events (identity, at, text) VALUES (?, ?, ?)`,
		identity, entry.At.Unix(), entry.Text)
	return err
}

func (a *Archive) RecordSupport(ctx context.Context, identity int64, msg model.SupportMessage) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO support_messages (identity, at, role, author_id, author_name, text)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		identity, msg.At.Unix(), int(msg.Role), msg.AuthorID, msg.AuthorName, msg.Text)
	return err
}

func (a *Archive) RecordMaintenance(ctx context.Context, rec model.MaintenanceRecord) error {
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO maintenance_windows (actor, started_at, ends_at, reason, completed)
		 VALUES (?, ?, ?, ?, 0)`,
		rec.Actor, rec.StartedAt.Unix(), rec.EndsAt.Unix(), rec.Reason)
	return err
}

// CompleteMaintenance closes the latest open window.
func (a *Archive) CompleteMaintenance(ctx context.Context, endedAt time.Time) error {
	_, err := a.db.ExecContext(ctx,
		`UPDATE maintenance_windows SET completed = 1, ended_at = ?
		 WHERE id = (SELECT MAX(id) FROM maintenance_windows WHERE completed = 0)`,
		endedAt.Unix())
	return err
}

// Events returns the journaled history of one identity, oldest first.
func (a *Archive) Events(ctx context.Context, identity int64) ([]model.HistoryEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT at, text FROM events WHERE identity = ? ORDER BY id`, identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.HistoryEntry
	for rows.Next() {
		var at int64
		var e model.HistoryEntry
		if err := rows.Scan(&at, &e.Text); err != nil {
			return nil, err
		}
		e.At = time.Unix(at, 0)
		out = append(out, e)
	}
	return out, rows.Err()
}

// SupportThread returns the journaled support thread, oldest first.
func (a *Archive) SupportThread(ctx context.Context, identity int64) ([]model.SupportMessage, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT at, role, author_id, author_name, text FROM support_messages
		 WHERE identity = ? ORDER BY id`, identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SupportMessage
	for rows.Next() {
		var at int64
		var role int
		var m model.SupportMessage
		if err := rows.Scan(&at, &role, &m.AuthorID, &m.AuthorName, &m.Text); err != nil {
			return nil, err
		}
		m.At = time.Unix(at, 0)
		m.Role = model.AuthorRole(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

// MaintenanceWindows returns all journaled windows, oldest first.
func (a *Archive) MaintenanceWindows(ctx context.Context) ([]model.MaintenanceRecord, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT actor, started_at, ends_at, ended_at, reason, completed
		 FROM maintenance_windows ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MaintenanceRecord
	for rows.Next() {
		var started, ends int64
		var ended sql.NullInt64
		var completed int
		var r model.MaintenanceRecord
		if err := rows.Scan(&r.Actor, &started, &ends, &ended, &r.Reason, &completed); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(started, 0)
		r.EndsAt = time.Unix(ends, 0)
		if ended.Valid {
			r.EndedAt = time.Unix(ended.Int64, 0)
		}
		r.Completed = completed == 1
		out = append(out, r)
	}
	return out, rows.Err()
}
