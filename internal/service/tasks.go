package service

import (
	"context"
	"errors"
	"fmt"

	"tracker/internal/aggregate"
	"tracker/internal/models"
)

// NewTask is the input for CreateTask.
type NewTask struct {
	ProjectID string
	Name      string
	Status    models.Status
	Weight    int
}

// TaskChanges holds the fields to update; nil leaves a field unchanged.
type TaskChanges struct {
	ProjectID *string
	Name      *string
	Status    *models.Status
	Weight    *int
}

// ownedTask loads a task whose project belongs to ownerID.
func (s *Service) ownedTask(ctx context.Context, ownerID, id string) (models.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	if _, err := s.store.GetProject(ctx, ownerID, t.ProjectID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Task{}, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
		}
		return models.Task{}, err
	}
	return t, nil
}

// ListTasks returns every task of an owned project.
func (s *Service) ListTasks(ctx context.Context, ownerID, projectID string) ([]models.Task, error) {
	if _, err := s.store.GetProject(ctx, ownerID, projectID); err != nil {
		return nil, err
	}
	return s.store.ListTasks(ctx, projectID)
}

// ListOwnerTasks returns the tasks of every project the owner holds.
func (s *Service) ListOwnerTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	return s.store.ListOwnerTasks(ctx, ownerID)
}

// GetTask returns a task whose project the owner holds.
func (s *Service) GetTask(ctx context.Context, ownerID, id string) (models.Task, error) {
	return s.ownedTask(ctx, ownerID, id)
}

// CreateTask adds a task to an owned project and returns the recalculated project.
func (s *Service) CreateTask(ctx context.Context, ownerID string, in NewTask) (models.Task, models.Project, error) {
	name, err := models.NormalizeName("name", in.Name)
	if err != nil {
		return models.Task{}, models.Project{}, err
	}
	if err := models.ValidateStatus(in.Status); err != nil {
		return models.Task{}, models.Project{}, err
	}
	if err := models.ValidateWeight(in.Weight); err != nil {
		return models.Task{}, models.Project{}, err
	}
	if in.ProjectID == "" {
		return models.Task{}, models.Project{}, models.Invalid("projectId", "is required")
	}
	if _, err := s.store.GetProject(ctx, ownerID, in.ProjectID); err != nil {
		return models.Task{}, models.Project{}, err
	}

	task, err := s.store.CreateTask(ctx, models.Task{
		ProjectID: in.ProjectID,
		Name:      name,
		Status:    in.Status,
		Weight:    in.Weight,
	})
	if err != nil {
		return models.Task{}, models.Project{}, err
	}

	projects, err := s.afterTaskChange(ctx, ownerID, aggregate.Recalculate(task.ProjectID))
	if err != nil {
		return task, models.Project{}, err
	}
	return task, firstProject(projects), nil
}

// UpdateTask applies changes, possibly moving the task to another owned
// project, and returns the recalculated source and destination projects.
func (s *Service) UpdateTask(ctx context.Context, ownerID, id string, ch TaskChanges) (models.Task, []models.Project, error) {
	current, err := s.ownedTask(ctx, ownerID, id)
	if err != nil {
		return models.Task{}, nil, err
	}

	next := current
	if ch.Name != nil {
		name, err := models.NormalizeName("name", *ch.Name)
		if err != nil {
			return models.Task{}, nil, err
		}
		next.Name = name
	}
	if ch.Status != nil {
		if err := models.ValidateStatus(*ch.Status); err != nil {
			return models.Task{}, nil, err
		}
		next.Status = *ch.Status
	}
	if ch.Weight != nil {
		if err := models.ValidateWeight(*ch.Weight); err != nil {
			return models.Task{}, nil, err
		}
		next.Weight = *ch.Weight
	}
	if ch.ProjectID != nil && *ch.ProjectID != current.ProjectID {
		if *ch.ProjectID == "" {
			return models.Task{}, nil, models.Invalid("projectId", "must not be empty")
		}
		if _, err := s.store.GetProject(ctx, ownerID, *ch.ProjectID); err != nil {
			return models.Task{}, nil, err
		}
		next.ProjectID = *ch.ProjectID
	}

	updated, err := s.store.UpdateTask(ctx, next)
	if err != nil {
		return models.Task{}, nil, err
	}

	projects, err := s.afterTaskChange(ctx, ownerID,
		aggregate.Recalculate(current.ProjectID),
		aggregate.Recalculate(updated.ProjectID),
	)
	if err != nil {
		return updated, nil, err
	}
	return updated, projects, nil
}

// DeleteTask removes a task and returns its recalculated project.
func (s *Service) DeleteTask(ctx context.Context, ownerID, id string) (models.Project, error) {
	t, err := s.ownedTask(ctx, ownerID, id)
	if err != nil {
		return models.Project{}, err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return models.Project{}, err
	}

	projects, err := s.afterTaskChange(ctx, ownerID, aggregate.Recalculate(t.ProjectID))
	if err != nil {
		return models.Project{}, err
	}
	return firstProject(projects), nil
}

func firstProject(projects []models.Project) models.Project {
	if len(projects) == 0 {
		return models.Project{}
	}
	return projects[0]
}
