// Package storage declares the persistence contracts shared by the SQLite and
// MongoDB backends.
package storage

import (
	"context"

	"tracker/internal/models"
)

// Projects persists projects. Owner-scoped lookups report models.ErrNotFound
// for projects that exist but belong to another user.
type Projects interface {
	CreateProject(ctx context.Context, ownerID, name string) (models.Project, error)
	GetProject(ctx context.Context, ownerID, id string) (models.Project, error)
	ListProjects(ctx context.Context, ownerID string) ([]models.Project, error)
	ListProjectIDs(ctx context.Context) ([]string, error)
	RenameProject(ctx context.Context, ownerID, id, name string) (models.Project, error)
	// DeleteProject removes the project and every task referencing it.
	DeleteProject(ctx context.Context, ownerID, id string) error
	// SetProjectAggregate overwrites the derived fields and refreshes updatedAt.
	SetProjectAggregate(ctx context.Context, id string, progress float64, status models.Status) error
}

// Tasks persists tasks.
type Tasks interface {
	CreateTask(ctx context.Context, t models.Task) (models.Task, error)
	GetTask(ctx context.Context, id string) (models.Task, error)
	ListTasks(ctx context.Context, projectID string) ([]models.Task, error)
	// ListOwnerTasks returns the tasks of every project owned by ownerID.
	ListOwnerTasks(ctx context.Context, ownerID string) ([]models.Task, error)
	UpdateTask(ctx context.Context, t models.Task) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Users persists accounts.
type Users interface {
	CreateUser(ctx context.Context, u models.User) (models.User, error)
	GetUser(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
}

// Store is the full backend handle owned by the composition root.
type Store interface {
	Projects
	Tasks
	Users
	Close() error
}
