// Package service validates requests, enforces ownership and applies
// mutations to the stores. Every task mutation ends by dispatching
// recalculation commands for the projects it touched.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tracker/internal/aggregate"
	"tracker/internal/models"
	"tracker/internal/storage"
)

// Store is the subset of storage.Store the service needs.
type Store interface {
	storage.Projects
	storage.Tasks
}

// Dispatcher executes recalculation commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmds ...aggregate.Command) ([]aggregate.Result, error)
}

// Service implements project and task operations for an authenticated owner.
type Service struct {
	store      Store
	dispatcher Dispatcher
	logger     *slog.Logger
}

// New constructs a Service.
func New(store Store, dispatcher Dispatcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, dispatcher: dispatcher, logger: logger}
}

// afterTaskChange recalculates the touched projects and reloads the ones the
// owner can still see.
func (s *Service) afterTaskChange(ctx context.Context, ownerID string, cmds ...aggregate.Command) ([]models.Project, error) {
	if _, err := s.dispatcher.Dispatch(ctx, cmds...); err != nil {
		return nil, fmt.Errorf("recalculate after task change: %w", err)
	}

	projects := make([]models.Project, 0, len(cmds))
	seen := make(map[string]struct{}, len(cmds))
	for _, cmd := range cmds {
		if _, dup := seen[cmd.ProjectID]; dup {
			continue
		}
		seen[cmd.ProjectID] = struct{}{}

		p, err := s.store.GetProject(ctx, ownerID, cmd.ProjectID)
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// Reconcile recalculates the given projects, or every project when none are
// given. It is an operator tool; nothing schedules it.
func (s *Service) Reconcile(ctx context.Context, projectIDs ...string) ([]aggregate.Result, error) {
	if len(projectIDs) == 0 {
		ids, err := s.store.ListProjectIDs(ctx)
		if err != nil {
			return nil, err
		}
		projectIDs = ids
	}

	cmds := make([]aggregate.Command, 0, len(projectIDs))
	for _, id := range projectIDs {
		cmds = append(cmds, aggregate.Recalculate(id))
	}
	results, err := s.dispatcher.Dispatch(ctx, cmds...)
	s.logger.Info("reconciled projects", slog.Int("requested", len(cmds)), slog.Int("updated", len(results)))
	return results, err
}
