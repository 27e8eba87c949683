package store

import (
	"context"
	"database/sql"
	"fmt"
)

// User is a tracked team member.
type User struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role,omitempty"`
	Department  string `json:"department,omitempty"`
	ProjectName string `json:"project_name,omitempty"` // from assignment join
}

// Project is a tracked project.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	Deadline    string `json:"deadline,omitempty"`
	Description string `json:"description,omitempty"`
	DailyTarget int    `json:"daily_target"`
	TeamSize    int    `json:"team_size"` // from assignment join
}

// Validate checks required fields before insert.
func (u *User) Validate() error {
	if u.Name == "" {
		return fmt.Errorf("name is required")
	}
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	return nil
}

// Validate checks required fields and applies defaults before insert.
func (p *Project) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Status == "" {
		p.Status = "Active"
	}
	if p.Priority == "" {
		p.Priority = "Medium"
	}
	if p.DailyTarget == 0 {
		p.DailyTarget = 100
	}
	return nil
}

// StatusCount is one bucket of the project status histogram.
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Stats summarizes the directory tables for the dashboard landing page.
type Stats struct {
	TotalUsers        int           `json:"totalUsers"`
	TotalProjects     int           `json:"totalProjects"`
	ProjectStatuses   []StatusCount `json:"projectStatuses"`
	ActiveAssignments int           `json:"activeAssignments"`
}

// CreateUser inserts a user and returns the assigned id.
func (db *DB) CreateUser(ctx context.Context, u *User) (int64, error) {
	if err := u.Validate(); err != nil {
		return 0, fmt.Errorf("invalid user: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, `
	INSERT INTO users (name, email, role, department) VALUES (?, ?, ?, ?)
	`, u.Name, u.Email, u.Role, u.Department)
	if err != nil {
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get user id: %w", err)
	}
	u.ID = id
	return id, nil
}

// ListUsers returns all users with their assigned project name, if any.
func (db *DB) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := db.conn.QueryContext(ctx, `
	SELECT u.id, u.name, u.email, u.role, u.department, p.name
	FROM users u
	LEFT JOIN assignments a ON u.id = a.user_id
	LEFT JOIN projects p ON a.project_id = p.id
	ORDER BY u.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		var role, department, projectName sql.NullString
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &role, &department, &projectName); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Role = role.String
		u.Department = department.String
		u.ProjectName = projectName.String
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// CreateProject inserts a project and returns the assigned id.
func (db *DB) CreateProject(ctx context.Context, p *Project) (int64, error) {
	if err := p.Validate(); err != nil {
		return 0, fmt.Errorf("invalid project: %w", err)
	}

	res, err := db.conn.ExecContext(ctx, `
	INSERT INTO projects (name, status, priority, deadline, description, daily_target)
	VALUES (?, ?, ?, ?, ?, ?)
	`, p.Name, p.Status, p.Priority, p.Deadline, p.Description, p.DailyTarget)
	if err != nil {
		return 0, fmt.Errorf("failed to create project: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get project id: %w", err)
	}
	p.ID = id
	return id, nil
}

// ListProjects returns all projects with their team size.
func (db *DB) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := db.conn.QueryContext(ctx, `
	SELECT p.id, p.name, p.status, p.priority, p.deadline, p.description,
	       p.daily_target, COUNT(a.user_id)
	FROM projects p
	LEFT JOIN assignments a ON p.id = a.project_id
	GROUP BY p.id
	ORDER BY p.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var deadline, description sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.Status, &p.Priority, &deadline,
			&description, &p.DailyTarget, &p.TeamSize); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.Deadline = deadline.String
		p.Description = description.String
		projects = append(projects, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// Assign links a user to a project.
func (db *DB) Assign(ctx context.Context, userID, projectID int64) error {
	_, err := db.conn.ExecContext(ctx, `
	INSERT INTO assignments (user_id, project_id) VALUES (?, ?)
	`, userID, projectID)
	if err != nil {
		return fmt.Errorf("failed to assign user %d to project %d: %w", userID, projectID, err)
	}
	return nil
}

// GetStats returns directory counts and the project status histogram.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	var stats Stats

	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&stats.TotalProjects); err != nil {
		return nil, fmt.Errorf("failed to count projects: %w", err)
	}
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments`).Scan(&stats.ActiveAssignments); err != nil {
		return nil, fmt.Errorf("failed to count assignments: %w", err)
	}

	rows, err := db.conn.QueryContext(ctx, `
	SELECT status, COUNT(*) FROM projects GROUP BY status ORDER BY status ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query project statuses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Status, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		stats.ProjectStatuses = append(stats.ProjectStatuses, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}
	return &stats, nil
}

// UserCount returns the number of users. Used by the seeder to decide
// whether the database needs bootstrap data.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
