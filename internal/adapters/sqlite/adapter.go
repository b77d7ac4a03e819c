// Package sqlite provides a SQLite-backed implementation of the history port.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ewilliams-labs/vocalis/internal/core/domain"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
	_ "modernc.org/sqlite"          // registers "sqlite"
)

// Storage drivers accepted by NewAdapter.
const (
	DriverCgo  = "sqlite"
	DriverPure = "sqlite-pure"
)

// fixed width so rows sort by text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Adapter implements the history port for SQLite
type Adapter struct {
	db *sql.DB
}

// NewAdapter creates a connection and runs the schema migration. driver is
// DriverCgo (mattn/go-sqlite3) or DriverPure (modernc.org/sqlite).
func NewAdapter(driver, storagePath string) (*Adapter, error) {
	var sqlDriver string
	switch driver {
	case DriverCgo, "":
		sqlDriver = "sqlite3"
	case DriverPure:
		sqlDriver = "sqlite"
	default:
		return nil, fmt.Errorf("sqlite: unknown driver %q", driver)
	}

	db, err := sql.Open(sqlDriver, storagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if storagePath == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	// Verify connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

// Append stores one history row.
func (a *Adapter) Append(ctx context.Context, e domain.HistoryEntry) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO history (id, mood, activity, goal, hour, task, music, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Mood,
		e.Activity,
		e.Goal,
		e.Hour,
		e.Task,
		e.Music,
		e.Status,
		e.CreatedAt.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("failed to insert history row %s: %w", e.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction commit failed: %w", err)
	}
	return nil
}

// List returns up to limit rows, newest first. A limit <= 0 returns all rows.
func (a *Adapter) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, mood, activity, IFNULL(goal, ''), hour, task, music, status, created_at
		FROM history
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var e domain.HistoryEntry
		var created string
		if err := rows.Scan(&e.ID, &e.Mood, &e.Activity, &e.Goal, &e.Hour, &e.Task, &e.Music, &e.Status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("failed to parse created_at %q: %w", created, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		mood TEXT NOT NULL,
		activity TEXT NOT NULL,
		goal TEXT,
		hour INTEGER NOT NULL,
		task TEXT NOT NULL,
		music TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS history_created_at ON history(created_at);
	`
	_, err := a.db.Exec(query)
	return err
}
