package database

import (
	"context"
	"fmt"
)

// Migrate creates the tables the service reads and writes. It requires the
// service role key because it changes the schema.
func (c *Client) Migrate(ctx context.Context) error {
	if c.serviceRole == "" {
		return ErrServiceRoleRequired
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			expires_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS "Tasks" (
			id BIGSERIAL PRIMARY KEY,
			"Ember Type" TEXT NOT NULL,
			"Task Instructions" TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS completed_tasks (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			task_id BIGINT NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_completed_tasks_user_completed ON completed_tasks(user_id, completed_at DESC);`,
	}

	for _, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// DefaultTasks is the starter catalog written by Seed.
var DefaultTasks = []struct {
	EmberType        string
	TaskInstructions string
}{
	{"Self-Awareness & Mindset", "Write down one thing you're proud of today."},
	{"Self-Awareness & Mindset", "Take 5 minutes for a mindfulness exercise to connect with your thoughts."},
	{"Self-Awareness & Mindset", "Reflect on a challenging situation today—what did you learn from it?"},
}

// Seed inserts DefaultTasks when the catalog is empty and reports how many
// rows it wrote.
func (c *Client) Seed(ctx context.Context) (int, error) {
	if c.serviceRole == "" {
		return 0, ErrServiceRoleRequired
	}

	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "Tasks"`).Scan(&n); err != nil {
		return 0, fmt.Errorf("seed count: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range DefaultTasks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO "Tasks" ("Ember Type", "Task Instructions") VALUES ($1, $2)`,
			t.EmberType, t.TaskInstructions); err != nil {
			return 0, fmt.Errorf("seed insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed commit: %w", err)
	}
	return len(DefaultTasks), nil
}
