// Package sheet provides the external spreadsheet row model and the
// snapshot fetcher used by the reconciliation poller.
//
// The source of truth for rows lives entirely outside worktrack; the
// poller only ever reads a snapshot per cycle. Rows are fixed-width
// tuples (user, project, task, manhours, status, uniqueId) and any cell
// may be absent.
package sheet

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// ReadRange is the fixed range descriptor polled each cycle.
// Column layout: User, Project, Task, Manhours, Status, UniqueID.
const ReadRange = "Sheet1!A2:F"

// StatusCompleted is the status label whose transition edge triggers a
// ledger append.
const StatusCompleted = "Completed"

// Row is one snapshot row from the external spreadsheet.
//
// Hours is kept as the raw cell text; use ParseHours when logging so a
// malformed cell defaults to zero instead of failing the row.
type Row struct {
	User     string
	Project  string
	Task     string
	Hours    string
	Status   string
	UniqueID string
}

// Tracked reports whether the row carries an identifier. Rows without one
// cannot be deduped across polls and are skipped entirely.
func (r *Row) Tracked() bool {
	return r.UniqueID != ""
}

// RowFromValues builds a Row from a sheets API values row.
// Missing trailing cells are treated as empty strings.
func RowFromValues(values []interface{}) Row {
	cell := func(i int) string {
		if i >= len(values) || values[i] == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(values[i]))
	}

	return Row{
		User:     cell(0),
		Project:  cell(1),
		Task:     cell(2),
		Hours:    cell(3),
		Status:   cell(4),
		UniqueID: cell(5),
	}
}

// ParseHours parses a manhours cell as a non-negative real number.
// Unparseable, missing or negative values yield zero rather than an error.
func ParseHours(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// Fetcher returns the current full snapshot of rows for a spreadsheet.
//
// Implementations must return rows in the order the source returns them
// and must not retain the slice between calls. A fetch failure leaves the
// caller's state untouched; the next cycle is the retry.
type Fetcher interface {
	FetchRows(ctx context.Context, spreadsheetID string) ([]Row, error)
}
