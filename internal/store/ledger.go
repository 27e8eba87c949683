package store

import (
	"context"
	"fmt"
	"time"
)

// ActivityEntry is one logged work event in the append-only ledger.
//
// Multiple entries may share user/project/task; there is no uniqueness
// constraint. The ledger is a pure event log, not a keyed table: once
// written an entry is immutable and no update or delete is exposed.
type ActivityEntry struct {
	ID          int64     `json:"id"`
	UserName    string    `json:"user_name"`
	ProjectName string    `json:"project_name"`
	Task        string    `json:"task"`
	Manhours    float64   `json:"manhours"`
	Timestamp   time.Time `json:"timestamp"`
}

// AggregateGroup selects the grouping key for AggregateActivity.
type AggregateGroup string

const (
	// GroupByUser aggregates manhours per user name.
	GroupByUser AggregateGroup = "user"
	// GroupByProject aggregates manhours per project name.
	GroupByProject AggregateGroup = "project"
)

// AggregateRow is one (key, day) bucket of summed manhours.
type AggregateRow struct {
	Key      string
	Day      string // YYYY-MM-DD
	Manhours float64
}

// AppendActivity appends an entry to the activity ledger and returns the
// assigned id.
//
// The timestamp is assigned here, at insert time, so insertion order and
// timestamp order agree. The caller's Timestamp field is ignored.
func (db *DB) AppendActivity(ctx context.Context, entry *ActivityEntry) (int64, error) {
	now := time.Now().UTC()
	query := `
	INSERT INTO activity_logs (user_name, project_name, task, manhours, timestamp)
	VALUES (?, ?, ?, ?, ?)
	`
	res, err := db.conn.ExecContext(ctx, query,
		entry.UserName,
		entry.ProjectName,
		entry.Task,
		entry.Manhours,
		now.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append activity entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get activity entry id: %w", err)
	}

	entry.ID = id
	entry.Timestamp = now
	return id, nil
}

// ListActivity returns the most recent ledger entries, newest first.
// A limit of 0 means no limit.
func (db *DB) ListActivity(ctx context.Context, limit int) ([]*ActivityEntry, error) {
	query := `
	SELECT id, user_name, project_name, task, manhours, timestamp
	FROM activity_logs
	ORDER BY timestamp DESC, id DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	defer rows.Close()

	var entries []*ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var ts string
		if err := rows.Scan(&e.ID, &e.UserName, &e.ProjectName, &e.Task, &e.Manhours, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity entries: %w", err)
	}

	return entries, nil
}

// AggregateActivity sums manhours per (key, day) for entries at or after
// the since timestamp, where key is the user or project name depending on
// groupBy. The timestamp index makes this a range scan.
func (db *DB) AggregateActivity(ctx context.Context, groupBy AggregateGroup, since time.Time) ([]AggregateRow, error) {
	var keyCol string
	switch groupBy {
	case GroupByUser:
		keyCol = "user_name"
	case GroupByProject:
		keyCol = "project_name"
	default:
		return nil, fmt.Errorf("unknown aggregate group %q", groupBy)
	}

	query := fmt.Sprintf(`
	SELECT %s, substr(timestamp, 1, 10) AS day, SUM(manhours)
	FROM activity_logs
	WHERE timestamp >= ?
	GROUP BY %s, day
	ORDER BY %s ASC, day ASC
	`, keyCol, keyCol, keyCol)

	rows, err := db.conn.QueryContext(ctx, query, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate activity: %w", err)
	}
	defer rows.Close()

	var result []AggregateRow
	for rows.Next() {
		var r AggregateRow
		if err := rows.Scan(&r.Key, &r.Day, &r.Manhours); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		result = append(result, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregate rows: %w", err)
	}

	return result, nil
}

// ActivityCount returns the total number of ledger entries.
func (db *DB) ActivityCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_logs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count activity entries: %w", err)
	}
	return count, nil
}
