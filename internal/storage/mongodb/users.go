package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"tracker/internal/models"
)

// CreateUser inserts an account. A duplicate email yields models.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	now := s.now()
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	doc := userDoc{
		ID:           primitive.NewObjectID(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, fmt.Errorf("insert user: %w", models.ErrConflict)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.model(), nil
}

// GetUser fetches an account by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	uid, err := objectID("user", id)
	if err != nil {
		return models.User{}, err
	}
	return s.findUser(ctx, bson.M{"_id": uid}, id)
}

// GetUserByEmail fetches an account by its normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findUser(ctx, bson.M{"email": email}, email)
}

func (s *Store) findUser(ctx context.Context, filter bson.M, key string) (models.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return models.User{}, notFound(err, "user", key)
	}
	return doc.model(), nil
}
