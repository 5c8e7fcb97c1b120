package service

import (
	"context"
	"log/slog"

	"tracker/internal/models"
)

// CreateProject starts a draft project with zero progress.
func (s *Service) CreateProject(ctx context.Context, ownerID, name string) (models.Project, error) {
	name, err := models.NormalizeName("name", name)
	if err != nil {
		return models.Project{}, err
	}
	return s.store.CreateProject(ctx, ownerID, name)
}

// ListProjects returns the owner's projects.
func (s *Service) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	return s.store.ListProjects(ctx, ownerID)
}

// GetProject returns an owned project with all of its tasks.
func (s *Service) GetProject(ctx context.Context, ownerID, id string) (models.Project, []models.Task, error) {
	p, err := s.store.GetProject(ctx, ownerID, id)
	if err != nil {
		return models.Project{}, nil, err
	}
	tasks, err := s.store.ListTasks(ctx, id)
	if err != nil {
		return models.Project{}, nil, err
	}
	return p, tasks, nil
}

// RenameProject edits the only client-settable project field.
func (s *Service) RenameProject(ctx context.Context, ownerID, id, name string) (models.Project, error) {
	name, err := models.NormalizeName("name", name)
	if err != nil {
		return models.Project{}, err
	}
	return s.store.RenameProject(ctx, ownerID, id, name)
}

// DeleteProject removes an owned project together with its tasks.
func (s *Service) DeleteProject(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteProject(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.Info("project deleted", slog.String("project_id", id), slog.String("owner_id", ownerID))
	return nil
}
