package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tracker/internal/models"
)

func (s *Store) requireProject(ctx context.Context, pid primitive.ObjectID) error {
	n, err := s.projects.CountDocuments(ctx, bson.M{"_id": pid}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check project: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("project %s: %w", pid.Hex(), models.ErrNotFound)
	}
	return nil
}

// ListTasks returns every task of a project, newest first.
func (s *Store) ListTasks(ctx context.Context, projectID string) ([]models.Task, error) {
	pid, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return []models.Task{}, nil
	}
	return s.findTasks(ctx, bson.M{"project_id": pid})
}

// ListOwnerTasks returns the tasks of all projects owned by ownerID, newest first.
func (s *Store) ListOwnerTasks(ctx context.Context, ownerID string) ([]models.Task, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return []models.Task{}, nil
	}
	cur, err := s.projects.Find(ctx, bson.M{"owner_id": owner}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list owner projects: %w", err)
	}
	var owned []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &owned); err != nil {
		return nil, fmt.Errorf("decode owner projects: %w", err)
	}
	if len(owned) == 0 {
		return []models.Task{}, nil
	}
	ids := make([]primitive.ObjectID, 0, len(owned))
	for _, p := range owned {
		ids = append(ids, p.ID)
	}
	return s.findTasks(ctx, bson.M{"project_id": bson.M{"$in": ids}})
}

func (s *Store) findTasks(ctx context.Context, filter bson.M) ([]models.Task, error) {
	cur, err := s.tasks.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var docs []taskDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	tasks := make([]models.Task, 0, len(docs))
	for _, d := range docs {
		tasks = append(tasks, d.model())
	}
	return tasks, nil
}

// CreateTask inserts a task into an existing project.
func (s *Store) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	pid, err := objectID("project", t.ProjectID)
	if err != nil {
		return models.Task{}, err
	}
	if err := s.requireProject(ctx, pid); err != nil {
		return models.Task{}, err
	}

	now := s.now()
	doc := taskDoc{
		ID:        primitive.NewObjectID(),
		ProjectID: pid,
		Name:      t.Name,
		Status:    t.Status,
		Weight:    t.Weight,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.tasks.InsertOne(ctx, doc); err != nil {
		return models.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return doc.model(), nil
}

// GetTask retrieves a task by id.
func (s *Store) GetTask(ctx context.Context, id string) (models.Task, error) {
	tid, err := objectID("task", id)
	if err != nil {
		return models.Task{}, err
	}
	var doc taskDoc
	if err := s.tasks.FindOne(ctx, bson.M{"_id": tid}).Decode(&doc); err != nil {
		return models.Task{}, notFound(err, "task", id)
	}
	return doc.model(), nil
}

// UpdateTask overwrites the mutable fields of a task, including its project.
func (s *Store) UpdateTask(ctx context.Context, t models.Task) (models.Task, error) {
	tid, err := objectID("task", t.ID)
	if err != nil {
		return models.Task{}, err
	}
	pid, err := objectID("project", t.ProjectID)
	if err != nil {
		return models.Task{}, err
	}
	if err := s.requireProject(ctx, pid); err != nil {
		return models.Task{}, err
	}

	res, err := s.tasks.UpdateOne(ctx, bson.M{"_id": tid}, bson.M{"$set": bson.M{
		"project_id": pid,
		"name":       t.Name,
		"status":     t.Status,
		"weight":     t.Weight,
		"updated_at": s.now(),
	}})
	if err != nil {
		return models.Task{}, fmt.Errorf("update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return models.Task{}, fmt.Errorf("task %s: %w", t.ID, models.ErrNotFound)
	}
	return s.GetTask(ctx, t.ID)
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tid, err := objectID("task", id)
	if err != nil {
		return err
	}
	res, err := s.tasks.DeleteOne(ctx, bson.M{"_id": tid})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	return nil
}
