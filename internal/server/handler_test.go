package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/worktrackhq/worktrack/internal/store"
)

// newTestServer builds a server around a fresh temporary database and
// returns it with its handler for httptest-driven requests.
func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	s := NewServer(db, &Config{Logger: log.New(io.Discard, "", 0)})
	return s, s.routes()
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestStop_BeforeStart(t *testing.T) {
	s, _ := newTestServer(t)

	if err := s.Stop(); err != nil {
		t.Errorf("Stop() on a never-started server failed: %v", err)
	}
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestCreateAndListUsers(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/users",
		`{"name":"Alice","email":"alice@example.com","role":"Lead","department":"Engineering"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created store.User
	decodeBody(t, rec, &created)
	if created.ID == 0 {
		t.Error("created user has no id")
	}

	rec = doJSON(t, h, http.MethodGet, "/api/users", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}

	var users []*store.User
	decodeBody(t, rec, &users)
	if len(users) != 1 || users[0].Name != "Alice" {
		t.Errorf("unexpected users: %+v", users)
	}
}

func TestCreateUser_BadJSON(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/users", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateAndListProjects(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/projects", `{"name":"P1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var created store.Project
	decodeBody(t, rec, &created)
	if created.Status != "Active" || created.DailyTarget != 100 {
		t.Errorf("defaults not applied: %+v", created)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/projects", "")
	var projects []*store.Project
	decodeBody(t, rec, &projects)
	if len(projects) != 1 || projects[0].Name != "P1" {
		t.Errorf("unexpected projects: %+v", projects)
	}
}

func TestListUsers_EmptyIsArray(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/users", "")
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty listing = %q, want []", got)
	}
}

func TestActivity_Limit(t *testing.T) {
	s, h := newTestServer(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := s.db.AppendActivity(ctx, &store.ActivityEntry{
			UserName: "alice", ProjectName: "P1", Task: "t", Manhours: 1,
		}); err != nil {
			t.Fatalf("AppendActivity failed: %v", err)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/api/activity?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var entries []*store.ActivityEntry
	decodeBody(t, rec, &entries)
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestUserPerformanceReport(t *testing.T) {
	s, h := newTestServer(t)
	ctx := context.Background()

	if _, err := s.db.CreateUser(ctx, &store.User{Name: "alice", Email: "alice@example.com"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), 1, 10, 0, 0, 0, time.UTC)
	for _, hours := range []float64{5, 3} {
		err := s.db.SeedActivity(ctx, &store.ActivityEntry{
			UserName: "alice", ProjectName: "P1", Task: "t", Manhours: hours,
		}, day)
		if err != nil {
			t.Fatalf("SeedActivity failed: %v", err)
		}
	}

	rec := doJSON(t, h, http.MethodGet, "/api/reports/user-performance", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data []performanceRow `json:"data"`
	}
	decodeBody(t, rec, &body)
	if len(body.Data) != 1 {
		t.Fatalf("got %d report rows, want 1", len(body.Data))
	}
	if body.Data[0].Name != "alice" || body.Data[0].Total != 8 {
		t.Errorf("unexpected report row: %+v", body.Data[0])
	}

	dayKey := day.Format("2006-01-02")
	if body.Data[0].Daily[dayKey] != 8 {
		t.Errorf("daily bucket %s = %v, want 8", dayKey, body.Data[0].Daily[dayKey])
	}
}

func TestUserPerformanceReport_BadSince(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/reports/user-performance?since=%21%21%21", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUtilizationReport(t *testing.T) {
	s, h := newTestServer(t)
	ctx := context.Background()

	if _, err := s.db.CreateProject(ctx, &store.Project{Name: "P1", DailyTarget: 100}); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	now := time.Now().UTC()
	day := time.Date(now.Year(), now.Month(), 1, 10, 0, 0, 0, time.UTC)
	err := s.db.SeedActivity(ctx, &store.ActivityEntry{
		UserName: "alice", ProjectName: "P1", Task: "t", Manhours: 250,
	}, day)
	if err != nil {
		t.Fatalf("SeedActivity failed: %v", err)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/reports/utilization", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		WorkingDays        int              `json:"workingDays"`
		OverallUtilization string           `json:"overallUtilization"`
		Data               []utilizationRow `json:"data"`
	}
	decodeBody(t, rec, &body)
	if body.WorkingDays != workingDays {
		t.Errorf("workingDays = %d, want %d", body.WorkingDays, workingDays)
	}
	if len(body.Data) != 1 {
		t.Fatalf("got %d report rows, want 1", len(body.Data))
	}

	// 250 hours against 100 * 25 target hours is 10 percent
	if body.Data[0].Utilization != "10.00" {
		t.Errorf("utilization = %s, want 10.00", body.Data[0].Utilization)
	}
	if body.OverallUtilization != "10.00" {
		t.Errorf("overall = %s, want 10.00", body.OverallUtilization)
	}
}

func TestSyncSettingsAndStatus(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/api/sync/settings", `{"spreadsheetId":"sheet-42"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("settings status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var ack map[string]bool
	decodeBody(t, rec, &ack)
	if !ack["success"] {
		t.Error("expected success acknowledgement")
	}

	rec = doJSON(t, h, http.MethodGet, "/api/sync/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status status = %d, want 200", rec.Code)
	}

	var state store.SyncState
	decodeBody(t, rec, &state)
	if state.SpreadsheetID != "sheet-42" {
		t.Errorf("spreadsheet id = %q, want sheet-42", state.SpreadsheetID)
	}
}

func TestAuthURL_Unconfigured(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/api/auth/google/url", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestAuthCallback_MissingCode(t *testing.T) {
	_, h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/auth/google/callback", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 without oauth configured", rec.Code)
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	t.Run("empty defaults to start of month", func(t *testing.T) {
		got, err := parseSince("", now)
		if err != nil {
			t.Fatalf("parseSince failed: %v", err)
		}
		want := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		if !got.Equal(want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("plain date", func(t *testing.T) {
		got, err := parseSince("2026-07-04", now)
		if err != nil {
			t.Fatalf("parseSince failed: %v", err)
		}
		if got.Format("2006-01-02") != "2026-07-04" {
			t.Errorf("got %v", got)
		}
	})

	t.Run("rfc3339", func(t *testing.T) {
		got, err := parseSince("2026-07-04T08:00:00Z", now)
		if err != nil {
			t.Fatalf("parseSince failed: %v", err)
		}
		if got.Hour() != 8 {
			t.Errorf("got %v", got)
		}
	})

	t.Run("human phrase", func(t *testing.T) {
		got, err := parseSince("3 days ago", now)
		if err != nil {
			t.Fatalf("parseSince failed: %v", err)
		}
		if got.After(now) {
			t.Errorf("phrase resolved into the future: %v", got)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := parseSince("!!!", now); err == nil {
			t.Error("expected error for unparseable value")
		}
	})
}
