package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SyncState is the singleton sync configuration record.
//
// SpreadsheetID and the credential pair are written by the configuration
// surface (HTTP API); LastSync is stamped by the poller after each
// successful reconciliation cycle.
type SyncState struct {
	SpreadsheetID string     `json:"spreadsheet_id"`
	AccessToken   string     `json:"-"`
	RefreshToken  string     `json:"-"`
	LastSync      *time.Time `json:"last_sync"`
}

// Configured reports whether the poller has enough state to run a cycle:
// a spreadsheet to poll and a refresh credential to authorize the fetch.
func (s *SyncState) Configured() bool {
	return s.SpreadsheetID != "" && s.RefreshToken != ""
}

// GetSyncState reads the singleton sync configuration.
// Returns a zero-valued state if none has been written yet.
func (db *DB) GetSyncState(ctx context.Context) (*SyncState, error) {
	var state SyncState
	var spreadsheetID, access, refresh, lastSync sql.NullString

	err := db.conn.QueryRowContext(ctx, `
	SELECT spreadsheet_id, access_token, refresh_token, last_sync
	FROM sync_settings WHERE id = 1
	`).Scan(&spreadsheetID, &access, &refresh, &lastSync)
	if errors.Is(err, sql.ErrNoRows) {
		return &state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}

	state.SpreadsheetID = spreadsheetID.String
	state.AccessToken = access.String
	state.RefreshToken = refresh.String
	if lastSync.Valid {
		if t, err := time.Parse(time.RFC3339, lastSync.String); err == nil {
			state.LastSync = &t
		}
	}
	return &state, nil
}

// SetSpreadsheetID stores the spreadsheet to poll, preserving any stored
// credentials.
func (db *DB) SetSpreadsheetID(ctx context.Context, spreadsheetID string) error {
	query := `
	INSERT INTO sync_settings (id, spreadsheet_id)
	VALUES (1, ?)
	ON CONFLICT(id) DO UPDATE SET spreadsheet_id = excluded.spreadsheet_id
	`
	if _, err := db.conn.ExecContext(ctx, query, spreadsheetID); err != nil {
		return fmt.Errorf("failed to set spreadsheet id: %w", err)
	}
	return nil
}

// SetCredentials stores the access/refresh token pair, preserving the
// configured spreadsheet id.
func (db *DB) SetCredentials(ctx context.Context, accessToken, refreshToken string) error {
	query := `
	INSERT INTO sync_settings (id, access_token, refresh_token)
	VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		access_token = excluded.access_token,
		refresh_token = excluded.refresh_token
	`
	if _, err := db.conn.ExecContext(ctx, query, accessToken, refreshToken); err != nil {
		return fmt.Errorf("failed to set credentials: %w", err)
	}
	return nil
}

// StampLastSync records the completion time of a successful reconciliation
// cycle. A no-op if the singleton row has never been created, which cannot
// happen in practice: a cycle only runs once a spreadsheet id is configured.
func (db *DB) StampLastSync(ctx context.Context, t time.Time) error {
	query := `UPDATE sync_settings SET last_sync = ? WHERE id = 1`
	if _, err := db.conn.ExecContext(ctx, query, t.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to stamp last sync: %w", err)
	}
	return nil
}
