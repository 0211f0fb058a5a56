package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"habitly/internal/auth"
	"habitly/internal/models"
	"habitly/internal/store"
)

var (
	// ErrNoGuestSession means the caller's credential is not guest-tagged.
	ErrNoGuestSession = errors.New("no guest session found")
	// ErrMissingFields means a required registration field was empty.
	ErrMissingFields = errors.New("all fields are required")
	// ErrEmailExists means the target email already belongs to a permanent account.
	ErrEmailExists = errors.New("email already exists")
)

// ValidationError carries per-field messages, joined for the client.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

// MigrationError wraps a storage failure that happened after the permanent
// account was created. Already-migrated rows are not rolled back; the caller
// gets an internal error and the partial state is left for reconciliation.
type MigrationError struct {
	Step string
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration failed at %s: %v", e.Step, e.Err)
}

func (e *MigrationError) Unwrap() error { return e.Err }

type ConversionRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// MigrationCounts reports how many guest-owned rows were copied.
type MigrationCounts struct {
	Questionnaires int `json:"questionnaires"`
	Habits         int `json:"habits"`
	HabitLogs      int `json:"habitLogs"`
}

type ConversionResult struct {
	User     models.User
	Migrated MigrationCounts
}

// ConversionService turns a guest account into a permanent one and carries
// its questionnaire responses, habits and habit logs over to the new account.
type ConversionService struct {
	stores store.Stores
	logger *zap.Logger
}

func NewConversionService(stores store.Stores, logger *zap.Logger) *ConversionService {
	return &ConversionService{stores: stores, logger: logger}
}

// Convert runs the full conversion sequence: validate the target account,
// create the permanent identity, copy dependent rows (remapping habit ids),
// then delete the guest's rows in dependency order. Cleanup failures are
// logged and swallowed; by that point the converted account is already valid
// and the caller should not lose it over a failed delete.
func (s *ConversionService) Convert(ctx context.Context, cred auth.Credential, req ConversionRequest) (*ConversionResult, error) {
	if !cred.IsGuest() {
		return nil, ErrNoGuestSession
	}

	// A guest-tagged token can outlive its account: conversion deletes the
	// guest row but the bearer may retain the old credential. Treat a missing
	// or non-guest row the same as a non-guest session so a replayed token
	// cannot mint a second, empty account.
	guest, err := s.stores.Users.FindByID(ctx, cred.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoGuestSession
		}
		return nil, fmt.Errorf("guest lookup: %w", err)
	}
	if !guest.IsGuest {
		return nil, ErrNoGuestSession
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if email == "" || req.Password == "" || firstName == "" || lastName == "" {
		return nil, ErrMissingFields
	}
	if !strings.Contains(email, "@") {
		return nil, &ValidationError{Messages: []string{"email is invalid"}}
	}

	// Reject before any mutation if the email is taken.
	if _, err := s.stores.Users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("email lookup: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    &firstName,
		LastName:     &lastName,
		IsGuest:      false,
	}
	if err := s.stores.Users.Create(ctx, &user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailExists
		}
		var ve *store.ValidationError
		if errors.As(err, &ve) {
			return nil, &ValidationError{Messages: ve.Messages}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	counts, err := s.migrateGuestData(ctx, cred.UserID, user.ID)
	if err != nil {
		return nil, err
	}

	s.cleanupGuest(ctx, cred.UserID)

	return &ConversionResult{User: user, Migrated: counts}, nil
}

// migrateGuestData copies the guest's rows under the new user id. Habit ids
// are creation artifacts, so logs must be re-pointed through an old-to-new map
// that lives only for this call.
func (s *ConversionService) migrateGuestData(ctx context.Context, guestID, newID int) (MigrationCounts, error) {
	var counts MigrationCounts

	questionnaires, err := s.stores.Questionnaires.FindByUser(ctx, guestID)
	if err != nil {
		return counts, &MigrationError{Step: "load questionnaires", Err: err}
	}
	for _, q := range questionnaires {
		copied := models.QuestionnaireResponse{
			UserID:          newID,
			Responses:       q.Responses,
			TotalScore:      q.TotalScore,
			CurrentQuestion: q.CurrentQuestion,
		}
		if err := s.stores.Questionnaires.Create(ctx, &copied); err != nil {
			return counts, &MigrationError{Step: "copy questionnaire", Err: err}
		}
		counts.Questionnaires++
	}

	habits, err := s.stores.Habits.FindByUser(ctx, guestID)
	if err != nil {
		return counts, &MigrationError{Step: "load habits", Err: err}
	}
	habitIDMap := make(map[int]int, len(habits))
	for _, h := range habits {
		copied := models.Habit{UserID: newID, Name: h.Name, Count: h.Count}
		if err := s.stores.Habits.Create(ctx, &copied); err != nil {
			return counts, &MigrationError{Step: "copy habit", Err: err}
		}
		habitIDMap[h.ID] = copied.ID
		counts.Habits++
	}

	logs, err := s.stores.HabitLogs.FindByUser(ctx, guestID)
	if err != nil {
		return counts, &MigrationError{Step: "load habit logs", Err: err}
	}
	for _, l := range logs {
		habitID, ok := habitIDMap[l.HabitID]
		if !ok {
			// Should not happen: every log's habit is owned by the same
			// guest. Fall back to the original id rather than drop the row.
			habitID = l.HabitID
		}
		copied := models.HabitLog{HabitID: habitID, UserID: newID, Date: l.Date, Count: l.Count}
		if err := s.stores.HabitLogs.Create(ctx, &copied); err != nil {
			return counts, &MigrationError{Step: "copy habit log", Err: err}
		}
		counts.HabitLogs++
	}

	return counts, nil
}

// cleanupGuest deletes the guest's rows child-first so plain foreign keys are
// never violated: logs, then habits, then questionnaires, then the user row.
// Failures are logged, never surfaced.
func (s *ConversionService) cleanupGuest(ctx context.Context, guestID int) {
	if err := s.stores.HabitLogs.DeleteByUser(ctx, guestID); err != nil {
		s.logger.Error("guest cleanup: delete habit logs", zap.Int("guest_id", guestID), zap.Error(err))
	}
	if err := s.stores.Habits.DeleteByUser(ctx, guestID); err != nil {
		s.logger.Error("guest cleanup: delete habits", zap.Int("guest_id", guestID), zap.Error(err))
	}
	if err := s.stores.Questionnaires.DeleteByUser(ctx, guestID); err != nil {
		s.logger.Error("guest cleanup: delete questionnaires", zap.Int("guest_id", guestID), zap.Error(err))
	}
	if err := s.stores.Users.Delete(ctx, guestID); err != nil {
		s.logger.Error("guest cleanup: delete user", zap.Int("guest_id", guestID), zap.Error(err))
	}
}
