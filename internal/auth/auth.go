// Package auth registers accounts, checks credentials and issues the signed
// session tokens carried in the session cookie.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"tracker/internal/models"
	"tracker/internal/storage"
)

// CookieName is the cookie that carries the session token.
const CookieName = "session"

// DefaultSessionTTL is used when no TTL is configured.
const DefaultSessionTTL = 7 * 24 * time.Hour

const minSecretLength = 16

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Claims is the payload of a session token. The subject is the user id.
type Claims struct {
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service implements registration, login and session verification.
type Service struct {
	users  storage.Users
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// ErrNoSecret is returned by token operations on a Service built without a secret.
var ErrNoSecret = errors.New("session signing secret not configured")

// New builds a Service. The secret signs session tokens with HS256; an empty
// secret leaves registration and login usable but disables sessions.
func New(users storage.Users, secret string, ttl time.Duration) (*Service, error) {
	if secret != "" && len(secret) < minSecretLength {
		return nil, fmt.Errorf("auth secret must be at least %d bytes", minSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}, nil
}

// TTL reports how long issued sessions stay valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Register creates an account with a hashed password.
func (s *Service) Register(ctx context.Context, name, email, password string) (models.User, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 2 || n > models.MaxNameLength {
		return models.User{}, models.Invalid("name", "must be between 2 and 255 characters")
	}
	email = models.NormalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return models.User{}, models.Invalid("email", "is not a valid address")
	}
	if len(password) < 6 {
		return models.User{}, models.Invalid("password", "must be at least 6 characters")
	}
	if len(password) > 72 {
		return models.User{}, models.Invalid("password", "must not exceed 72 bytes")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
	})
	if errors.Is(err, models.ErrConflict) {
		return models.User{}, fmt.Errorf("email already registered: %w", models.ErrConflict)
	}
	return u, err
}

// Authenticate checks an email/password pair.
func (s *Service) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return models.User{}, models.Invalid("", "email and password are required")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return models.User{}, fmt.Errorf("invalid email or password: %w", models.ErrUnauthorized)
	}
	if err != nil {
		return models.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return models.User{}, fmt.Errorf("invalid email or password: %w", models.ErrUnauthorized)
	}
	return u, nil
}

// IssueToken signs a session token for u.
func (s *Service) IssueToken(u models.User) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expires, nil
}

// ParseToken verifies a session token and returns its claims.
func (s *Service) ParseToken(token string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoSecret, models.ErrUnauthorized)
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid session: %w", models.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("session without subject: %w", models.ErrUnauthorized)
	}
	return claims, nil
}

// CurrentUser resolves a session token to its account.
func (s *Service) CurrentUser(ctx context.Context, token string) (models.User, error) {
	if token == "" {
		return models.User{}, fmt.Errorf("missing session: %w", models.ErrUnauthorized)
	}
	claims, err := s.ParseToken(token)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.users.GetUser(ctx, claims.Subject)
	if errors.Is(err, models.ErrNotFound) {
		return models.User{}, fmt.Errorf("session user gone: %w", models.ErrUnauthorized)
	}
	return u, err
}
