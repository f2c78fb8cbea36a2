// Package db provides SQLite persistence for the task tracker.
//
// The database is stored at ~/.tasks/tasks.db by default.
// Use Open() to connect and Init() to create the schema.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id INTEGER PRIMARY KEY,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	description TEXT,
	status TEXT NOT NULL DEFAULT 'NEW',
	start_time TEXT,
	duration_ns INTEGER,
	epic_id INTEGER REFERENCES items(id) DEFERRABLE INITIALLY DEFERRED,
	position INTEGER
);

CREATE TABLE IF NOT EXISTS history (
	position INTEGER PRIMARY KEY,
	item_id INTEGER NOT NULL REFERENCES items(id) DEFERRABLE INITIALLY DEFERRED
);

CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_kind ON items(kind);
CREATE INDEX IF NOT EXISTS idx_items_epic ON items(epic_id);
`

// DB wraps a SQL database connection with tracker-specific operations.
type DB struct {
	*sql.DB
}

// DefaultPath returns the default database path (~/.tasks/tasks.db)
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".tasks", "tasks.db"), nil
}

// Open opens or creates the database at the given path
func Open(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps PRAGMA settings and transactions on the same handle.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// Init creates the schema and migrates databases created before subtask
// positions were stored.
func (db *DB) Init() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.migratePositions(); err != nil {
		return fmt.Errorf("failed to migrate positions: %w", err)
	}

	return nil
}

// migratePositions adds items.position to older databases. Existing subtasks
// keep a NULL position and load in id order.
func (db *DB) migratePositions() error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('items') WHERE name = 'position'`).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = db.Exec(`ALTER TABLE items ADD COLUMN position INTEGER`)
	return err
}
