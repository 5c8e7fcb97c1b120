package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tracker/internal/models"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

func scanUser(row scanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// CreateUser inserts an account. A duplicate email yields models.ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u models.User) (models.User, error) {
	now := s.now()
	u.ID = newID()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Role == "" {
		u.Role = models.RoleUser
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO users(id, name, email, password_hash, role, created_at, updated_at)
        VALUES(?, ?, ?, ?, ?, ?, ?)`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if cerr := constraintError(err); cerr != nil {
			return models.User{}, fmt.Errorf("insert user: %w", cerr)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// GetUser fetches an account by id.
func (s *Store) GetUser(ctx context.Context, id string) (models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByEmail fetches an account by its normalized email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *Store) getUser(ctx context.Context, query string, arg string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user: %w", models.ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
