package store

import (
	"context"
	"testing"
	"time"
)

func TestGetSyncState_Empty(t *testing.T) {
	db := testDB(t)

	state, err := db.GetSyncState(context.Background())
	if err != nil {
		t.Fatalf("GetSyncState() failed: %v", err)
	}
	if state.Configured() {
		t.Error("empty state should not be configured")
	}
	if state.LastSync != nil {
		t.Error("expected nil last sync")
	}
}

func TestSetSpreadsheetID_PreservesCredentials(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.SetCredentials(ctx, "access", "refresh"); err != nil {
		t.Fatalf("SetCredentials() failed: %v", err)
	}
	if err := db.SetSpreadsheetID(ctx, "sheet-1"); err != nil {
		t.Fatalf("SetSpreadsheetID() failed: %v", err)
	}

	state, err := db.GetSyncState(ctx)
	if err != nil {
		t.Fatalf("GetSyncState() failed: %v", err)
	}
	if state.SpreadsheetID != "sheet-1" {
		t.Errorf("spreadsheet id = %q, want sheet-1", state.SpreadsheetID)
	}
	if state.RefreshToken != "refresh" || state.AccessToken != "access" {
		t.Errorf("credentials lost on spreadsheet update: %+v", state)
	}
	if !state.Configured() {
		t.Error("state with sheet and refresh token should be configured")
	}
}

func TestSetCredentials_PreservesSpreadsheetID(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.SetSpreadsheetID(ctx, "sheet-1"); err != nil {
		t.Fatalf("SetSpreadsheetID() failed: %v", err)
	}
	if err := db.SetCredentials(ctx, "access", "refresh"); err != nil {
		t.Fatalf("SetCredentials() failed: %v", err)
	}

	state, err := db.GetSyncState(ctx)
	if err != nil {
		t.Fatalf("GetSyncState() failed: %v", err)
	}
	if state.SpreadsheetID != "sheet-1" {
		t.Errorf("spreadsheet id lost on credential update: %q", state.SpreadsheetID)
	}
}

func TestStampLastSync(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.SetSpreadsheetID(ctx, "sheet-1"); err != nil {
		t.Fatalf("SetSpreadsheetID() failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	if err := db.StampLastSync(ctx, now); err != nil {
		t.Fatalf("StampLastSync() failed: %v", err)
	}

	state, err := db.GetSyncState(ctx)
	if err != nil {
		t.Fatalf("GetSyncState() failed: %v", err)
	}
	if state.LastSync == nil || !state.LastSync.Equal(now) {
		t.Errorf("last sync = %v, want %v", state.LastSync, now)
	}
}

func TestSyncState_ConfiguredRequiresBoth(t *testing.T) {
	cases := []struct {
		name  string
		state SyncState
		want  bool
	}{
		{"empty", SyncState{}, false},
		{"sheet only", SyncState{SpreadsheetID: "s"}, false},
		{"refresh only", SyncState{RefreshToken: "r"}, false},
		{"both", SyncState{SpreadsheetID: "s", RefreshToken: "r"}, true},
	}
	for _, tc := range cases {
		if got := tc.state.Configured(); got != tc.want {
			t.Errorf("%s: Configured() = %v, want %v", tc.name, got, tc.want)
		}
	}
}
