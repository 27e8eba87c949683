package poller

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/worktrackhq/worktrack/internal/sheet"
	"github.com/worktrackhq/worktrack/internal/store"
)

// Reconciler runs one reconciliation cycle at a time against the store.
//
// It holds no implicit global state: the sync configuration is re-read
// from the store at the start of every cycle, so configuration changes
// made through the HTTP surface take effect on the next tick.
type Reconciler struct {
	db      *store.DB
	fetcher sheet.Fetcher
	logger  *log.Logger

	// OnActivity, if set, is called for every ledger entry the reconciler
	// appends. The dashboard uses this to broadcast live updates. Must not
	// block.
	OnActivity func(entry *store.ActivityEntry)
}

// CycleResult reports what one cycle did.
type CycleResult struct {
	// Skipped is true when the cycle was a configuration-absent no-op.
	Skipped bool
	// Rows is the number of snapshot rows examined.
	Rows int
	// Logged is the number of ledger entries appended.
	Logged int
}

// NewReconciler creates a reconciler.
//
// If logger is nil, a default logger writing to stderr is used.
func NewReconciler(db *store.DB, fetcher sheet.Fetcher, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.New(os.Stderr, "[poller] ", log.LstdFlags)
	}
	return &Reconciler{
		db:      db,
		fetcher: fetcher,
		logger:  logger,
	}
}

// RunCycle executes one reconciliation cycle.
//
// A configuration-absent skip returns a result with Skipped set and a nil
// error. A fetch failure returns the error with no state modified. Row
// level malformations are handled locally and never surface as an error;
// a storage failure aborts the remaining rows and is returned.
func (r *Reconciler) RunCycle(ctx context.Context) (CycleResult, error) {
	var result CycleResult

	// CHECK_CONFIG
	state, err := r.db.GetSyncState(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to read sync state: %w", err)
	}
	if !state.Configured() {
		result.Skipped = true
		return result, nil
	}

	// FETCH
	rows, err := r.fetcher.FetchRows(ctx, state.SpreadsheetID)
	if err != nil {
		return result, fmt.Errorf("fetch failed: %w", err)
	}

	// RECONCILE
	result.Rows = len(rows)
	for i := range rows {
		logged, err := r.reconcileRow(ctx, &rows[i])
		if err != nil {
			// Storage failures are fatal to the cycle: the cache entry for
			// this row was not advanced, so the next cycle reprocesses it.
			return result, fmt.Errorf("row %s: %w", rows[i].UniqueID, err)
		}
		if logged {
			result.Logged++
		}
	}

	// COMMIT
	if err := r.db.StampLastSync(ctx, time.Now()); err != nil {
		return result, fmt.Errorf("failed to stamp last sync: %w", err)
	}

	return result, nil
}

// reconcileRow processes a single snapshot row. Returns whether a ledger
// entry was appended. Only storage failures are returned as errors; a row
// without an identifier is skipped silently.
func (r *Reconciler) reconcileRow(ctx context.Context, row *sheet.Row) (bool, error) {
	if !row.Tracked() {
		return false, nil
	}

	cached, found, err := r.db.GetCachedStatus(ctx, row.UniqueID)
	if err != nil {
		return false, err
	}

	// The transition edge: observed Completed while the cached prior
	// status was absent or anything other than Completed. Re-observing
	// Completed never re-emits.
	shouldLog := row.Status == sheet.StatusCompleted &&
		(!found || cached != sheet.StatusCompleted)

	logged := false
	if shouldLog {
		entry := &store.ActivityEntry{
			UserName:    row.User,
			ProjectName: row.Project,
			Task:        row.Task,
			Manhours:    sheet.ParseHours(row.Hours),
		}

		// Ledger append strictly before the cache upsert: a reader must
		// never observe the row marked Completed without the hours logged.
		if _, err := r.db.AppendActivity(ctx, entry); err != nil {
			return false, err
		}
		logged = true

		r.logger.Printf("Status changed to %s for task %s, logged %.1f hours",
			sheet.StatusCompleted, row.UniqueID, entry.Manhours)

		if r.OnActivity != nil {
			r.OnActivity(entry)
		}
	}

	if err := r.db.SetCachedStatus(ctx, row.UniqueID, row.Status); err != nil {
		return logged, err
	}

	return logged, nil
}
