package mongodb

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tracker/internal/models"
)

// CreateProject inserts a draft project with zero progress.
func (s *Store) CreateProject(ctx context.Context, ownerID, name string) (models.Project, error) {
	owner, err := objectID("user", ownerID)
	if err != nil {
		return models.Project{}, err
	}
	now := s.now()
	doc := projectDoc{
		ID:        primitive.NewObjectID(),
		OwnerID:   owner,
		Name:      name,
		Status:    models.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.projects.InsertOne(ctx, doc); err != nil {
		return models.Project{}, fmt.Errorf("insert project: %w", err)
	}
	return doc.model(), nil
}

func ownedFilter(ownerID, id string) (bson.M, error) {
	pid, err := objectID("project", id)
	if err != nil {
		return nil, err
	}
	owner, err := objectID("project", ownerID)
	if err != nil {
		return nil, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	return bson.M{"_id": pid, "owner_id": owner}, nil
}

// GetProject fetches a project owned by ownerID.
func (s *Store) GetProject(ctx context.Context, ownerID, id string) (models.Project, error) {
	filter, err := ownedFilter(ownerID, id)
	if err != nil {
		return models.Project{}, err
	}
	var doc projectDoc
	if err := s.projects.FindOne(ctx, filter).Decode(&doc); err != nil {
		return models.Project{}, notFound(err, "project", id)
	}
	return doc.model(), nil
}

// ListProjects returns the owner's projects, newest first.
func (s *Store) ListProjects(ctx context.Context, ownerID string) ([]models.Project, error) {
	owner, err := objectID("user", ownerID)
	if err != nil {
		return []models.Project{}, nil
	}
	cur, err := s.projects.Find(ctx, bson.M{"owner_id": owner},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	var docs []projectDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode projects: %w", err)
	}
	projects := make([]models.Project, 0, len(docs))
	for _, d := range docs {
		projects = append(projects, d.model())
	}
	return projects, nil
}

// ListProjectIDs returns the id of every project regardless of owner.
func (s *Store) ListProjectIDs(ctx context.Context) ([]string, error) {
	cur, err := s.projects.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list project ids: %w", err)
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode project ids: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.Hex())
	}
	return ids, nil
}

// RenameProject changes the name of an owned project.
func (s *Store) RenameProject(ctx context.Context, ownerID, id, name string) (models.Project, error) {
	filter, err := ownedFilter(ownerID, id)
	if err != nil {
		return models.Project{}, err
	}
	res, err := s.projects.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"name": name, "updated_at": s.now()}})
	if err != nil {
		return models.Project{}, fmt.Errorf("update project: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.Project{}, fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	return s.GetProject(ctx, ownerID, id)
}

// DeleteProject removes an owned project and every task referencing it. On a
// replica set or sharded cluster both deletes run in one transaction; a
// standalone server runs them in order, so a failure between them leaves
// tasks that a retry removes.
func (s *Store) DeleteProject(ctx context.Context, ownerID, id string) error {
	filter, err := ownedFilter(ownerID, id)
	if err != nil {
		return err
	}
	if !s.transactions {
		return s.deleteProject(ctx, filter, id)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, s.deleteProject(sc, filter, id)
	})
	return err
}

func (s *Store) deleteProject(ctx context.Context, filter bson.M, id string) error {
	res, err := s.projects.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}

	tasks, err := s.tasks.DeleteMany(ctx, bson.M{"project_id": filter["_id"]})
	if err != nil {
		return fmt.Errorf("delete project tasks: %w", err)
	}
	s.logger.Debug("project deleted", slog.String("project_id", id), slog.Int64("tasks_removed", tasks.DeletedCount))
	return nil
}

// SetProjectAggregate stores recomputed progress and status.
func (s *Store) SetProjectAggregate(ctx context.Context, id string, progress float64, status models.Status) error {
	pid, err := objectID("project", id)
	if err != nil {
		return err
	}
	res, err := s.projects.UpdateOne(ctx, bson.M{"_id": pid},
		bson.M{"$set": bson.M{"progress": progress, "status": status, "updated_at": s.now()}})
	if err != nil {
		return fmt.Errorf("update project aggregate: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("project %s: %w", id, models.ErrNotFound)
	}
	return nil
}
