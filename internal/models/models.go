package models

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Status is the lifecycle state shared by tasks and projects.
type Status string

const (
	StatusDraft      Status = "draft"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// ValidStatuses enumerates the statuses accepted for tasks.
var ValidStatuses = map[Status]struct{}{
	StatusDraft:      {},
	StatusInProgress: {},
	StatusDone:       {},
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := ValidStatuses[s]
	return ok
}

// MaxNameLength bounds project and task names, counted in runes.
const MaxNameLength = 255

// Project groups weighted tasks. Status and Progress are derived from its tasks.
type Project struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Progress  float64   `json:"progress"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Task is a unit of work contributing Weight to its project's completion.
type Task struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"projectId"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Weight    int       `json:"weight"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Role distinguishes regular users from administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is an account that owns projects.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NormalizeName trims a project or task name and checks its length.
func NormalizeName(field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Invalid(field, "must not be empty")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", Invalid(field, "must not exceed 255 characters")
	}
	return name, nil
}

// MaxWeight bounds a task weight so project weight sums stay exact.
const MaxWeight = math.MaxInt32

// ValidateWeight rejects weights outside [1, MaxWeight].
func ValidateWeight(weight int) error {
	if weight < 1 {
		return Invalid("weight", "must be a positive integer")
	}
	if weight > MaxWeight {
		return Invalid("weight", fmt.Sprintf("must not exceed %d", MaxWeight))
	}
	return nil
}

// ValidateStatus rejects statuses outside draft, in_progress and done.
func ValidateStatus(s Status) error {
	if !s.Valid() {
		return Invalid("status", "must be one of draft, in_progress, done")
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
