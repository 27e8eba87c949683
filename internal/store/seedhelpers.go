package store

import (
	"context"
	"fmt"
	"time"
)

// SeedActivity inserts a ledger entry with an explicit timestamp.
//
// This exists only for bootstrap seeding of historical data; everything
// else appends through AppendActivity, which assigns the timestamp at
// insert time.
func (db *DB) SeedActivity(ctx context.Context, entry *ActivityEntry, ts time.Time) error {
	query := `
	INSERT INTO activity_logs (user_name, project_name, task, manhours, timestamp)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err := db.conn.ExecContext(ctx, query,
		entry.UserName,
		entry.ProjectName,
		entry.Task,
		entry.Manhours,
		ts.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to seed activity entry: %w", err)
	}
	return nil
}
