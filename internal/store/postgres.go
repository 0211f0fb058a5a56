package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"habitly/internal/models"
)

// mapWriteError translates Postgres constraint failures into store errors so
// callers never have to inspect driver codes.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return ErrConflict
		case "23502", "23514": // not_null_violation, check_violation
			return &ValidationError{Messages: []string{pgErr.Message}}
		}
	}
	return err
}

// NewPostgres returns sqlx-backed implementations of all four stores.
func NewPostgres(db *sqlx.DB) Stores {
	return Stores{
		Users:          &pgUserStore{db: db},
		Questionnaires: &pgQuestionnaireStore{db: db},
		Habits:         &pgHabitStore{db: db},
		HabitLogs:      &pgHabitLogStore{db: db},
	}
}

type pgUserStore struct {
	db *sqlx.DB
}

func (s *pgUserStore) Create(ctx context.Context, u *models.User) error {
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, avatar_id, is_guest, google_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.AvatarID, u.IsGuest, u.GoogleID,
	).Scan(&u.ID, &u.CreatedAt)
	return mapWriteError(err)
}

func (s *pgUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, email, password_hash, first_name, last_name, avatar_id, is_guest, google_id, created_at
		 FROM users WHERE LOWER(email) = LOWER($1) AND NOT is_guest`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *pgUserStore) FindByID(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u,
		`SELECT id, email, password_hash, first_name, last_name, avatar_id, is_guest, google_id, created_at
		 FROM users WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *pgUserStore) Delete(ctx context.Context, id int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

type pgQuestionnaireStore struct {
	db *sqlx.DB
}

func (s *pgQuestionnaireStore) Create(ctx context.Context, q *models.QuestionnaireResponse) error {
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO questionnaire_responses (user_id, responses, total_score, current_question)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		q.UserID, q.Responses, q.TotalScore, q.CurrentQuestion,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	return mapWriteError(err)
}

func (s *pgQuestionnaireStore) FindByUser(ctx context.Context, userID int) ([]models.QuestionnaireResponse, error) {
	var out []models.QuestionnaireResponse
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, user_id, responses, total_score, current_question, created_at, updated_at
		 FROM questionnaire_responses WHERE user_id = $1 ORDER BY id`, userID)
	return out, err
}

func (s *pgQuestionnaireStore) DeleteByUser(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM questionnaire_responses WHERE user_id = $1`, userID)
	return err
}

type pgHabitStore struct {
	db *sqlx.DB
}

func (s *pgHabitStore) Create(ctx context.Context, h *models.Habit) error {
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO habits (user_id, name, count) VALUES ($1, $2, $3) RETURNING id, created_at`,
		h.UserID, h.Name, h.Count,
	).Scan(&h.ID, &h.CreatedAt)
	return mapWriteError(err)
}

func (s *pgHabitStore) FindByUser(ctx context.Context, userID int) ([]models.Habit, error) {
	var out []models.Habit
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, user_id, name, count, created_at FROM habits WHERE user_id = $1 ORDER BY id`, userID)
	return out, err
}

func (s *pgHabitStore) DeleteByUser(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE user_id = $1`, userID)
	return err
}

type pgHabitLogStore struct {
	db *sqlx.DB
}

func (s *pgHabitLogStore) Create(ctx context.Context, l *models.HabitLog) error {
	err := s.db.QueryRowxContext(ctx,
		`INSERT INTO habit_logs (habit_id, user_id, date, count) VALUES ($1, $2, $3, $4) RETURNING id`,
		l.HabitID, l.UserID, l.Date, l.Count,
	).Scan(&l.ID)
	return mapWriteError(err)
}

func (s *pgHabitLogStore) FindByUser(ctx context.Context, userID int) ([]models.HabitLog, error) {
	var out []models.HabitLog
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, habit_id, user_id, date, count FROM habit_logs WHERE user_id = $1 ORDER BY id`, userID)
	return out, err
}

func (s *pgHabitLogStore) DeleteByUser(ctx context.Context, userID int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM habit_logs WHERE user_id = $1`, userID)
	return err
}
