package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/worktrackhq/worktrack/internal/store"
)

// workingDays is the divisor for monthly utilization: the assumed number
// of working days in the reporting window.
const workingDays = 25

// defaultActivityLimit caps the /api/activity listing.
const defaultActivityLimit = 100

// whenParser parses human phrases like "last monday" in the reports'
// since parameter.
var whenParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Printf("Request error: %v", err)
	s.writeJSON(w, status, map[string]string{"error": http.StatusText(status)})
}

// parseSince resolves the reports' time window start. An absent parameter
// means the start of the current month; otherwise an RFC3339 timestamp, a
// plain date, or a human phrase ("last monday", "3 days ago") is accepted.
func parseSince(raw string, now time.Time) (time.Time, error) {
	if raw == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	r, err := whenParser.Parse(raw, now)
	if err == nil && r != nil {
		return r.Time, nil
	}
	return time.Time{}, fmt.Errorf("unparseable since value %q", raw)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"clients": s.ClientCount(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.db.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if users == nil {
		users = []*store.User{}
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var u store.User
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.db.CreateUser(r.Context(), &u); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, &u)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.db.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if projects == nil {
		projects = []*store.Project{}
	}
	s.writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p store.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if _, err := s.db.CreateProject(r.Context(), &p); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, &p)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.db.ListActivity(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if entries == nil {
		entries = []*store.ActivityEntry{}
	}
	s.writeJSON(w, http.StatusOK, entries)
}

// performanceRow is one user's slice of the user-performance report.
type performanceRow struct {
	Name  string             `json:"name"`
	Total float64            `json:"total"`
	Daily map[string]float64 `json:"daily"`
}

func (s *Server) handleUserPerformance(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"), time.Now())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	users, err := s.db.ListUsers(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	agg, err := s.db.AggregateActivity(r.Context(), store.GroupByUser, since)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	byUser := make(map[string][]store.AggregateRow)
	for _, row := range agg {
		byUser[row.Key] = append(byUser[row.Key], row)
	}

	report := make([]performanceRow, 0, len(users))
	for _, u := range users {
		row := performanceRow{Name: u.Name, Daily: map[string]float64{}}
		for _, a := range byUser[u.Name] {
			row.Total += a.Manhours
			row.Daily[a.Day] += a.Manhours
		}
		report = append(report, row)
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{"data": report})
}

// utilizationRow is one project's slice of the utilization report.
type utilizationRow struct {
	Name        string             `json:"name"`
	DailyTarget int                `json:"daily_target"`
	Total       float64            `json:"total"`
	Utilization string             `json:"utilization"`
	Daily       map[string]float64 `json:"daily"`
}

func (s *Server) handleUtilization(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r.URL.Query().Get("since"), time.Now())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	projects, err := s.db.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	agg, err := s.db.AggregateActivity(r.Context(), store.GroupByProject, since)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	byProject := make(map[string][]store.AggregateRow)
	for _, row := range agg {
		byProject[row.Key] = append(byProject[row.Key], row)
	}

	report := make([]utilizationRow, 0, len(projects))
	var overall float64
	for _, p := range projects {
		row := utilizationRow{
			Name:        p.Name,
			DailyTarget: p.DailyTarget,
			Daily:       map[string]float64{},
		}
		for _, a := range byProject[p.Name] {
			row.Total += a.Manhours
			row.Daily[a.Day] += a.Manhours
		}
		var utilization float64
		if p.DailyTarget > 0 {
			utilization = row.Total / (float64(p.DailyTarget) * workingDays) * 100
		}
		row.Utilization = strconv.FormatFloat(utilization, 'f', 2, 64)
		overall += utilization
		report = append(report, row)
	}

	if len(report) > 0 {
		overall /= float64(len(report))
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"workingDays":        workingDays,
		"overallUtilization": strconv.FormatFloat(overall, 'f', 2, 64),
		"data":               report,
	})
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.db.GetSyncState(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleSyncSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SpreadsheetID string `json:"spreadsheetId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.db.SetSpreadsheetID(r.Context(), req.SpreadsheetID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.Broadcast(Message{Type: MessageTypeSyncStatus, Timestamp: time.Now()})
	s.writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		s.writeError(w, http.StatusServiceUnavailable, fmt.Errorf("google oauth is not configured"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"url": s.auth.AuthURL()})
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		http.Error(w, "Google OAuth is not configured", http.StatusServiceUnavailable)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return
	}

	tok, err := s.auth.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Printf("Google auth error: %v", err)
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	if err := s.db.SetCredentials(r.Context(), tok.AccessToken, tok.RefreshToken); err != nil {
		s.logger.Printf("Failed to store credentials: %v", err)
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	s.Broadcast(Message{Type: MessageTypeSyncStatus, Timestamp: time.Now()})

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<html>
  <body>
    <script>
      window.opener.postMessage({ type: 'GOOGLE_AUTH_SUCCESS' }, '*');
      window.close();
    </script>
    <p>Authentication successful! You can close this window.</p>
  </body>
</html>`)
}
