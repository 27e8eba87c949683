// Package seed bootstraps an empty database with sample directory data
// and activity history so the dashboard has something to show on first
// run.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/worktrackhq/worktrack/internal/store"
)

const (
	sampleUsers    = 95
	sampleProjects = 32
	historyDays    = 10
)

// Fixture is an optional YAML description of seed data that replaces the
// generated sample set.
type Fixture struct {
	Users []struct {
		Name       string `yaml:"name"`
		Email      string `yaml:"email"`
		Role       string `yaml:"role"`
		Department string `yaml:"department"`
	} `yaml:"users"`
	Projects []struct {
		Name        string `yaml:"name"`
		Status      string `yaml:"status"`
		Priority    string `yaml:"priority"`
		Deadline    string `yaml:"deadline"`
		Description string `yaml:"description"`
		DailyTarget int    `yaml:"daily_target"`
	} `yaml:"projects"`
	Assignments []struct {
		User    int64 `yaml:"user"`    // 1-based user index
		Project int64 `yaml:"project"` // 1-based project index
	} `yaml:"assignments"`
}

// LoadFixture reads and parses a YAML seed fixture.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Run seeds the database if the users table is empty. Idempotent: a
// populated database is left untouched. When fixturePath is non-empty the
// YAML fixture replaces the generated sample set (no activity history is
// generated for fixtures).
func Run(ctx context.Context, db *store.DB, fixturePath string, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(os.Stderr, "[seed] ", log.LstdFlags)
	}

	count, err := db.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("failed to check user count: %w", err)
	}
	if count > 0 {
		return nil
	}

	if fixturePath != "" {
		fixture, err := LoadFixture(fixturePath)
		if err != nil {
			return err
		}
		return runFixture(ctx, db, fixture, logger)
	}

	return runGenerated(ctx, db, logger)
}

func runFixture(ctx context.Context, db *store.DB, f *Fixture, logger *log.Logger) error {
	logger.Printf("Seeding database from fixture: %d users, %d projects", len(f.Users), len(f.Projects))

	userIDs := make([]int64, 0, len(f.Users))
	for _, u := range f.Users {
		id, err := db.CreateUser(ctx, &store.User{
			Name:       u.Name,
			Email:      u.Email,
			Role:       u.Role,
			Department: u.Department,
		})
		if err != nil {
			return fmt.Errorf("fixture user %s: %w", u.Email, err)
		}
		userIDs = append(userIDs, id)
	}

	projectIDs := make([]int64, 0, len(f.Projects))
	for _, p := range f.Projects {
		id, err := db.CreateProject(ctx, &store.Project{
			Name:        p.Name,
			Status:      p.Status,
			Priority:    p.Priority,
			Deadline:    p.Deadline,
			Description: p.Description,
			DailyTarget: p.DailyTarget,
		})
		if err != nil {
			return fmt.Errorf("fixture project %s: %w", p.Name, err)
		}
		projectIDs = append(projectIDs, id)
	}

	for _, a := range f.Assignments {
		if a.User < 1 || a.User > int64(len(userIDs)) ||
			a.Project < 1 || a.Project > int64(len(projectIDs)) {
			return fmt.Errorf("fixture assignment out of range: user=%d project=%d", a.User, a.Project)
		}
		if err := db.Assign(ctx, userIDs[a.User-1], projectIDs[a.Project-1]); err != nil {
			return err
		}
	}

	logger.Println("Seeding complete")
	return nil
}

func runGenerated(ctx context.Context, db *store.DB, logger *log.Logger) error {
	logger.Println("Seeding database with sample data")

	statuses := []string{"Active", "On Hold", "Completed", "Planning"}
	priorities := []string{"High", "Medium", "Low"}
	targets := []int{100, 200, 400, 800, 1000}

	userIDs := make([]int64, 0, sampleUsers)
	for i := 1; i <= sampleUsers; i++ {
		role := "Developer"
		if i%5 == 0 {
			role = "Lead"
		}
		department := "Product"
		if i%3 == 0 {
			department = "Engineering"
		}
		id, err := db.CreateUser(ctx, &store.User{
			Name:       fmt.Sprintf("User %d", i),
			Email:      fmt.Sprintf("user%d@example.com", i),
			Role:       role,
			Department: department,
		})
		if err != nil {
			return err
		}
		userIDs = append(userIDs, id)
	}

	projectIDs := make([]int64, 0, sampleProjects)
	projectNames := make([]string, 0, sampleProjects)
	for i := 1; i <= sampleProjects; i++ {
		name := fmt.Sprintf("Project %c%d", rune('A'+(i%26)), i)
		id, err := db.CreateProject(ctx, &store.Project{
			Name:        name,
			Status:      statuses[i%len(statuses)],
			Priority:    priorities[i%len(priorities)],
			Deadline:    "2026-12-31",
			Description: fmt.Sprintf("Description for Project %d", i),
			DailyTarget: targets[i%len(targets)],
		})
		if err != nil {
			return err
		}
		projectIDs = append(projectIDs, id)
		projectNames = append(projectNames, name)
	}

	for i, userID := range userIDs {
		if err := db.Assign(ctx, userID, projectIDs[i%len(projectIDs)]); err != nil {
			return err
		}
	}

	// Activity history for the last historyDays days, one entry per
	// project per day at 10:00 UTC.
	now := time.Now().UTC()
	rng := rand.New(rand.NewSource(now.UnixNano()))
	for d := 0; d < historyDays; d++ {
		day := now.AddDate(0, 0, -d)
		ts := time.Date(day.Year(), day.Month(), day.Day(), 10, 0, 0, 0, time.UTC)

		for j, name := range projectNames {
			entry := &store.ActivityEntry{
				UserName:    fmt.Sprintf("User %d", (j%sampleUsers)+1),
				ProjectName: name,
				Task:        "Daily sync and task execution",
				Manhours:    float64(rng.Intn(500) + 100),
			}
			if err := db.SeedActivity(ctx, entry, ts); err != nil {
				return err
			}
		}
	}

	logger.Println("Seeding complete")
	return nil
}
