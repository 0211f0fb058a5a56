// Package store defines the persistence collaborators consumed by the
// services layer, plus their Postgres implementations. Conversion depends on
// these interfaces so it can be exercised against in-memory fakes.
package store

import (
	"context"
	"errors"
	"strings"

	"habitly/internal/models"
)

// ErrNotFound is returned by Find* methods when no row matches.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("store: conflict")

// ValidationError reports rows rejected by storage-level field constraints
// (check and not-null violations), one message per field.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

type UserStore interface {
	// Create inserts the user and fills in its assigned ID and CreatedAt.
	Create(ctx context.Context, u *models.User) error
	// FindByEmail looks up a permanent (non-guest) user, case-insensitively.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int) (*models.User, error)
	Delete(ctx context.Context, id int) error
}

type QuestionnaireStore interface {
	Create(ctx context.Context, q *models.QuestionnaireResponse) error
	FindByUser(ctx context.Context, userID int) ([]models.QuestionnaireResponse, error)
	DeleteByUser(ctx context.Context, userID int) error
}

type HabitStore interface {
	Create(ctx context.Context, h *models.Habit) error
	FindByUser(ctx context.Context, userID int) ([]models.Habit, error)
	DeleteByUser(ctx context.Context, userID int) error
}

type HabitLogStore interface {
	Create(ctx context.Context, l *models.HabitLog) error
	FindByUser(ctx context.Context, userID int) ([]models.HabitLog, error)
	DeleteByUser(ctx context.Context, userID int) error
}

// Stores bundles the four collaborators for wiring convenience.
type Stores struct {
	Users          UserStore
	Questionnaires QuestionnaireStore
	Habits         HabitStore
	HabitLogs      HabitLogStore
}
