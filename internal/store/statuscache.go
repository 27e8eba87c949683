package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetCachedStatus returns the last observed status for an external row id.
//
// The second return value reports whether the id has been seen before.
// An absent entry is not an error - it means the row is being observed
// for the first time.
func (db *DB) GetCachedStatus(ctx context.Context, id string) (string, bool, error) {
	var status string
	err := db.conn.QueryRowContext(ctx,
		`SELECT last_status FROM task_status_cache WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query status cache for %s: %w", id, err)
	}
	return status, true, nil
}

// SetCachedStatus upserts the last observed status for an external row id.
//
// Last-write-wins: the entry is overwritten on every poll that sees the id,
// whether or not a ledger entry was emitted. Entries are created on first
// sighting and never deleted, so the cache survives sheet row removal and
// keeps acting as a dedupe fence.
func (db *DB) SetCachedStatus(ctx context.Context, id, status string) error {
	query := `
	INSERT INTO task_status_cache (id, last_status)
	VALUES (?, ?)
	ON CONFLICT(id) DO UPDATE SET last_status = excluded.last_status
	`
	if _, err := db.conn.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("failed to upsert status cache for %s: %w", id, err)
	}
	return nil
}

// StatusCacheSize returns the number of tracked external row ids.
func (db *DB) StatusCacheSize(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM task_status_cache`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count status cache: %w", err)
	}
	return count, nil
}
