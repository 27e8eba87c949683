// Package poller implements the spreadsheet reconciliation loop.
//
// On a fixed cadence the poller fetches the current snapshot of rows from
// the external spreadsheet, compares each row's status against the durable
// status cache, and appends exactly one activity ledger entry per distinct
// transition of a row into the "Completed" status. The cache records the
// last observed status per external row id, so edge detection is stateless
// across polls: correctness depends only on the previously cached value,
// never on retained history. Row reordering, insertion and deletion in the
// external sheet cannot corrupt dedupe state because the comparison key is
// the external identifier, not the row position.
//
// One cycle is a small state machine:
//
//	IDLE -> CHECK_CONFIG -> FETCH -> RECONCILE -> COMMIT -> IDLE
//
// CHECK_CONFIG skips the cycle silently when no spreadsheet id or refresh
// credential is configured - an expected idle state, not an error. A FETCH
// failure aborts the cycle leaving all state untouched. During RECONCILE a
// failure processing one row never aborts the remaining rows; a storage
// failure aborts the rest of the cycle but not the process. COMMIT stamps
// the last-sync timestamp only after a fetch-level-clean cycle.
//
// For each qualifying row the ledger append happens strictly before the
// cache upsert, so a reader can never observe a row already marked
// Completed without the corresponding hours logged.
//
// The Daemon wraps the reconciler in a ticker loop with a single in-flight
// guard (an overlapping tick skips rather than queuing) and exponential
// backoff on repeated fetch failures.
package poller
