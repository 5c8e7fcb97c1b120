package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tracker/internal/models"
)

const taskColumns = `id, project_id, name, status, weight, created_at, updated_at`

func scanTask(row scanner) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Status, &t.Weight, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ListTasks returns every task of a project, newest first.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY created_at DESC, rowid DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return scanTasks(rows)
}

// ListOwnerTasks returns the tasks of all projects owned by ownerID, newest first.
func (s *Store) ListOwnerTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT t.id, t.project_id, t.name, t.status, t.weight, t.created_at, t.updated_at
        FROM tasks t JOIN projects p ON p.id = t.project_id
        WHERE p.owner_id = ? ORDER BY t.created_at DESC, t.rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owner tasks: %w", err)
	}
	return scanTasks(rows)
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// CreateTask inserts a new task for a project.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	now := s.now()
	t.ID = newID()
	t.CreatedAt = now
	t.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks(id, project_id, name, status, weight, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?)`, t.ID, t.ProjectID, t.Name, t.Status, t.Weight, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if cerr := constraintError(err); cerr != nil {
			return models.Task{}, fmt.Errorf("insert task: %w", cerr)
		}
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateTask overwrites the mutable fields of a task, including its project.
func (s *Store) UpdateTask(ctx context.Context, t models.Task) (models.Task, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET project_id = ?, name = ?, status = ?, weight = ?, updated_at = ? WHERE id = ?`,
		t.ProjectID, t.Name, t.Status, t.Weight, s.now(), t.ID)
	if err != nil {
		if cerr := constraintError(err); cerr != nil {
			return models.Task{}, fmt.Errorf("update task: %w", cerr)
		}
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	if err := affectedOrNotFound(res, "update task"); err != nil {
		return models.Task{}, err
	}
	return s.GetTask(ctx, t.ID)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affectedOrNotFound(res, "delete task")
}
