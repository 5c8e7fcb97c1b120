package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"tracker/internal/models"
)

const projectColumns = `id, owner_id, name, status, progress, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Status, &p.Progress, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreateProject persists a new draft project with zero progress.
func (s *Store) CreateProject(ctx context.Context, ownerID, name string) (models.Project, error) {
	now := s.now()
	p := models.Project{
		ID:        newID(),
		OwnerID:   ownerID,
		Name:      name,
		Status:    models.StatusDraft,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO projects(id, owner_id, name, status, progress, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?)`, p.ID, p.OwnerID, p.Name, p.Status, p.Progress, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if cerr := constraintError(err); cerr != nil {
			return models.Project{}, fmt.Errorf("insert project: %w", cerr)
		}
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// GetProject fetches a single project owned by ownerID.
func (s *Store) GetProject(ctx context.Context, ownerID, id string) (models.Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ? AND owner_id = ?`, id, ownerID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Project{}, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects retrieves the owner's projects, newest first.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ListProjectIDs returns the id of every project regardless of owner.
func (s *Store) ListProjectIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM projects ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RenameProject changes the name of an owned project.
func (s *Store) RenameProject(ctx context.Context, ownerID, id, name string) (models.Project, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, updated_at = ? WHERE id = ? AND owner_id = ?`, name, s.now(), id, ownerID)
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	if err := affectedOrNotFound(res, "update project"); err != nil {
		return models.Project{}, err
	}
	return s.GetProject(ctx, ownerID, id)
}

// DeleteProject removes a project along with its tasks in one transaction.
func (s *Store) DeleteProject(ctx context.Context, ownerID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete project: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM projects WHERE id = ? AND owner_id = ?`, id, ownerID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete project %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project tasks: %w", err)
	}
	removed, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete project: %w", err)
	}

	s.logger.Debug("project deleted", slog.String("project_id", id), slog.Int64("tasks_removed", removed))
	return nil
}

// SetProjectAggregate stores recomputed progress and status.
func (s *Store) SetProjectAggregate(ctx context.Context, id string, progress float64, status models.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET progress = ?, status = ?, updated_at = ? WHERE id = ?`, progress, status, s.now(), id)
	if err != nil {
		return fmt.Errorf("update project aggregate: %w", err)
	}
	return affectedOrNotFound(res, "update project aggregate")
}
