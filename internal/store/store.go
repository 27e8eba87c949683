// Package store provides the embedded SQLite storage layer for worktrack.
//
// The database holds three groups of tables:
//   - Directory tables: users, projects, assignments (CRUD, seeded on bootstrap)
//   - Reconciliation state: task_status_cache (last observed status per
//     external row id) and sync_settings (singleton: spreadsheet id,
//     credential pair, last sync timestamp)
//   - Activity ledger: activity_logs, an append-only event log that is the
//     system of record for all reporting aggregates
//
// The database runs in embedded mode using SQLite with WAL enabled so the
// HTTP report endpoints can read concurrently while a reconciliation cycle
// is writing.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the SQLite database connection with worktrack-specific operations.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a new database connection at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// If the database doesn't exist, it will be created; call InitSchema to
// create the tables.
//
// The caller MUST call Close() when done to ensure proper cleanup.
//
// Example:
//
//	db, err := store.Open("worktrack.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s", path)
	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn: conn,
		path: path,
	}

	// WAL mode lets report readers proceed while the poller writes
	if _, err := db.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// RawDB returns the underlying sql.DB connection.
// This is useful for integrating with other libraries that expect *sql.DB.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the database schema if it doesn't exist.
//
// This creates the directory tables, the activity ledger, the task status
// cache and the sync settings singleton, along with the indexes the report
// queries need. Idempotent - safe to call multiple times.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	schema := `
	-- Directory tables
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		role TEXT,
		department TEXT
	);

	CREATE TABLE IF NOT EXISTS projects (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Active',
		priority TEXT NOT NULL DEFAULT 'Medium',
		deadline TEXT,
		description TEXT,
		daily_target INTEGER NOT NULL DEFAULT 100
	);

	CREATE TABLE IF NOT EXISTS assignments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		project_id INTEGER,
		hours_per_week INTEGER NOT NULL DEFAULT 40,
		FOREIGN KEY (user_id) REFERENCES users(id),
		FOREIGN KEY (project_id) REFERENCES projects(id)
	);

	-- Append-only activity ledger (write-once, read-many)
	CREATE TABLE IF NOT EXISTS activity_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_name TEXT NOT NULL,
		project_name TEXT NOT NULL,
		task TEXT,
		manhours REAL NOT NULL DEFAULT 0,
		timestamp TEXT NOT NULL
	);

	-- Singleton sync configuration (id is always 1)
	CREATE TABLE IF NOT EXISTS sync_settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		spreadsheet_id TEXT,
		access_token TEXT,
		refresh_token TEXT,
		last_sync TEXT
	);

	-- Last observed status per external row id, used purely as a dedupe
	-- fence for transition detection. Entries are never deleted.
	CREATE TABLE IF NOT EXISTS task_status_cache (
		id TEXT PRIMARY KEY,
		last_status TEXT NOT NULL
	);

	-- Indexes for report range scans
	CREATE INDEX IF NOT EXISTS idx_activity_timestamp ON activity_logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_activity_user ON activity_logs(user_name);
	CREATE INDEX IF NOT EXISTS idx_activity_project ON activity_logs(project_name);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}
