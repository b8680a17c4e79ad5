package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// WindowState is the persisted geometry record for one logical window
// role. When IsMaximized is true the coordinates hold the pre-maximize
// geometry to restore later.
type WindowState struct {
	WindowID    string
	X           int
	Y           int
	Width       int
	Height      int
	IsMaximized bool
}

// Valid reports whether the record can be applied to a real window.
// Dimensions must be positive; coordinates may be negative (multi-monitor).
func (s WindowState) Valid() bool {
	return s.WindowID != "" && s.Width > 0 && s.Height > 0
}

// Store persists window geometry in SQLite, one record per window id.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the window-state database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection keeps in-memory databases consistent and is
	// plenty for this write rate.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS window_state (
			window_id TEXT PRIMARY KEY,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			is_maximized BOOLEAN NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Get returns the record for windowID. The second return value is false
// when no record exists, which is not an error.
func (s *Store) Get(ctx context.Context, windowID string) (WindowState, bool, error) {
	query := `
		SELECT window_id, x, y, width, height, is_maximized
		FROM window_state
		WHERE window_id = ?
	`

	var ws WindowState
	err := s.db.QueryRowContext(ctx, query, windowID).Scan(
		&ws.WindowID,
		&ws.X,
		&ws.Y,
		&ws.Width,
		&ws.Height,
		&ws.IsMaximized,
	)
	if err == sql.ErrNoRows {
		return WindowState{}, false, nil
	}
	if err != nil {
		return WindowState{}, false, fmt.Errorf("failed to query window state: %w", err)
	}

	return ws, true, nil
}

// Upsert writes the record, replacing any existing record for the same
// window id. Records are never duplicated or deleted, only overwritten.
func (s *Store) Upsert(ctx context.Context, ws WindowState) error {
	query := `
		INSERT INTO window_state (window_id, x, y, width, height, is_maximized, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(window_id) DO UPDATE SET
			x = excluded.x,
			y = excluded.y,
			width = excluded.width,
			height = excluded.height,
			is_maximized = excluded.is_maximized,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		ws.WindowID,
		ws.X,
		ws.Y,
		ws.Width,
		ws.Height,
		ws.IsMaximized,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert window state: %w", err)
	}

	return nil
}
