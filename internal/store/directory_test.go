package store

import (
	"context"
	"testing"
)

func TestCreateUser_Validation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.CreateUser(ctx, &User{Email: "a@example.com"}); err == nil {
		t.Error("expected error for missing name")
	}
	if _, err := db.CreateUser(ctx, &User{Name: "A"}); err == nil {
		t.Error("expected error for missing email")
	}
}

func TestListUsers_WithAssignment(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	userID, err := db.CreateUser(ctx, &User{Name: "Alice", Email: "alice@example.com", Role: "Lead"})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	projectID, err := db.CreateProject(ctx, &Project{Name: "P1"})
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	if err := db.Assign(ctx, userID, projectID); err != nil {
		t.Fatalf("Assign() failed: %v", err)
	}

	users, err := db.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers() failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("got %d users, want 1", len(users))
	}
	if users[0].ProjectName != "P1" {
		t.Errorf("project name = %q, want P1", users[0].ProjectName)
	}
}

func TestCreateProject_Defaults(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	p := &Project{Name: "P1"}
	if _, err := db.CreateProject(ctx, p); err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}

	if p.Status != "Active" || p.Priority != "Medium" || p.DailyTarget != 100 {
		t.Errorf("defaults not applied: %+v", p)
	}
}

func TestListProjects_TeamSize(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	projectID, err := db.CreateProject(ctx, &Project{Name: "P1"})
	if err != nil {
		t.Fatalf("CreateProject() failed: %v", err)
	}
	for _, email := range []string{"a@x.com", "b@x.com"} {
		userID, err := db.CreateUser(ctx, &User{Name: email, Email: email})
		if err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
		if err := db.Assign(ctx, userID, projectID); err != nil {
			t.Fatalf("Assign() failed: %v", err)
		}
	}

	projects, err := db.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects() failed: %v", err)
	}
	if len(projects) != 1 {
		t.Fatalf("got %d projects, want 1", len(projects))
	}
	if projects[0].TeamSize != 2 {
		t.Errorf("team size = %d, want 2", projects[0].TeamSize)
	}
}

func TestGetStats(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, p := range []*Project{
		{Name: "P1", Status: "Active"},
		{Name: "P2", Status: "Active"},
		{Name: "P3", Status: "On Hold"},
	} {
		if _, err := db.CreateProject(ctx, p); err != nil {
			t.Fatalf("CreateProject() failed: %v", err)
		}
	}
	userID, err := db.CreateUser(ctx, &User{Name: "A", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if err := db.Assign(ctx, userID, 1); err != nil {
		t.Fatalf("Assign() failed: %v", err)
	}

	stats, err := db.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats() failed: %v", err)
	}
	if stats.TotalUsers != 1 || stats.TotalProjects != 3 || stats.ActiveAssignments != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	byStatus := map[string]int{}
	for _, sc := range stats.ProjectStatuses {
		byStatus[sc.Status] = sc.Count
	}
	if byStatus["Active"] != 2 || byStatus["On Hold"] != 1 {
		t.Errorf("unexpected status histogram: %v", byStatus)
	}
}
