// Package mongodb stores projects, tasks and users in MongoDB collections.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tracker/internal/models"
)

const (
	projectsCollection = "projects"
	tasksCollection    = "tasks"
	usersCollection    = "users"
)

// Store is a MongoDB-backed implementation of storage.Store.
type Store struct {
	client   *mongo.Client
	projects *mongo.Collection
	tasks    *mongo.Collection
	users    *mongo.Collection
	logger   *slog.Logger
	now      func() time.Time

	// transactions is set when the server is a replica set member or mongos.
	transactions bool
}

// Open connects to uri, verifies the connection and ensures indexes.
func Open(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		projects: db.Collection(projectsCollection),
		tasks:    db.Collection(tasksCollection),
		users:    db.Collection(usersCollection),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	s.transactions = supportsTransactions(ctx, client)

	logger.Debug("mongo store ready", slog.String("database", database), slog.Bool("transactions", s.transactions))
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// supportsTransactions reports whether the deployment accepts multi-document
// transactions. Standalone servers do not.
func supportsTransactions(ctx context.Context, client *mongo.Client) bool {
	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		return false
	}
	return hello.SetName != "" || hello.Msg == "isdbgrid"
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("index users.email: %w", err)
	}
	if _, err := s.projects.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("index projects.owner_id: %w", err)
	}
	if _, err := s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "project_id", Value: 1}},
	}); err != nil {
		return fmt.Errorf("index tasks.project_id: %w", err)
	}
	return nil
}

// objectID parses a hex id. Malformed ids cannot exist, so they are not found.
func objectID(kind, id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return oid, nil
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return err
}

type projectDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	OwnerID   primitive.ObjectID `bson:"owner_id"`
	Name      string             `bson:"name"`
	Status    models.Status      `bson:"status"`
	Progress  float64            `bson:"progress"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d projectDoc) model() models.Project {
	return models.Project{
		ID:        d.ID.Hex(),
		OwnerID:   d.OwnerID.Hex(),
		Name:      d.Name,
		Status:    d.Status,
		Progress:  d.Progress,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type taskDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	ProjectID primitive.ObjectID `bson:"project_id"`
	Name      string             `bson:"name"`
	Status    models.Status      `bson:"status"`
	Weight    int                `bson:"weight"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

func (d taskDoc) model() models.Task {
	return models.Task{
		ID:        d.ID.Hex(),
		ProjectID: d.ProjectID.Hex(),
		Name:      d.Name,
		Status:    d.Status,
		Weight:    d.Weight,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type userDoc struct {
	ID           primitive.ObjectID `bson:"_id"`
	Name         string             `bson:"name"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	Role         models.Role        `bson:"role"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

func (d userDoc) model() models.User {
	return models.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
