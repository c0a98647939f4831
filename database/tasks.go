package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/abefas/EmberTracker/models"
)

// ListTasks returns every row of the "Tasks" table ordered by id.
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, "Ember Type", "Task Instructions"
		FROM "Tasks"
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("task list: %w", err)
	}
	return scanTasks(rows)
}

// TasksByIDs returns the tasks whose id is in ids. Order is unspecified.
func (c *Client) TasksByIDs(ctx context.Context, ids []int64) ([]models.Task, error) {
	if len(ids) == 0 {
		return []models.Task{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "$" + strconv.Itoa(i+1)
		args[i] = id
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, "Ember Type", "Task Instructions"
		FROM "Tasks"
		WHERE id IN (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("task by ids: %w", err)
	}
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.EmberType, &t.TaskInstructions); err != nil {
			return nil, fmt.Errorf("task scan: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task rows: %w", err)
	}
	return tasks, nil
}

// CompletedTasks returns the user's completion records, newest first.
func (c *Client) CompletedTasks(ctx context.Context, userID string) ([]models.CompletedTask, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, user_id, task_id, completed_at
		FROM completed_tasks
		WHERE user_id = $1
		ORDER BY completed_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("completed list: %w", err)
	}
	defer rows.Close()

	out := []models.CompletedTask{}
	for rows.Next() {
		var ct models.CompletedTask
		if err := rows.Scan(&ct.ID, &ct.UserID, &ct.TaskID, &ct.CompletedAt); err != nil {
			return nil, fmt.Errorf("completed scan: %w", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("completed rows: %w", err)
	}
	return out, nil
}

// CompletedTaskViews joins the user's completion records to their tasks in a
// single query. Records pointing at a missing task are left out.
func (c *Client) CompletedTaskViews(ctx context.Context, userID string) ([]models.CompletedTaskView, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT ct.id, t."Ember Type", t."Task Instructions"
		FROM completed_tasks ct
		INNER JOIN "Tasks" t ON t.id = ct.task_id
		WHERE ct.user_id = $1
		ORDER BY ct.completed_at DESC, ct.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("completed view list: %w", err)
	}
	defer rows.Close()

	out := []models.CompletedTaskView{}
	for rows.Next() {
		var v models.CompletedTaskView
		if err := rows.Scan(&v.ID, &v.EmberType, &v.TaskInstructions); err != nil {
			return nil, fmt.Errorf("completed view scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("completed view rows: %w", err)
	}
	return out, nil
}

// RecordCompletion stores that userID finished taskID now. The page never
// calls it; it exists for seeding and tests.
func (c *Client) RecordCompletion(ctx context.Context, userID string, taskID int64) (models.CompletedTask, error) {
	ct := models.CompletedTask{UserID: userID, TaskID: taskID, CompletedAt: c.now()}
	err := c.db.QueryRowContext(ctx, `
		INSERT INTO completed_tasks (user_id, task_id, completed_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, userID, taskID, ct.CompletedAt).Scan(&ct.ID)
	if err != nil {
		return models.CompletedTask{}, fmt.Errorf("completed insert: %w", err)
	}
	return ct, nil
}
