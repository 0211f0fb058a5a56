package models

import (
	"encoding/json"
	"time"
)

type User struct {
	ID           int       `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    *string   `db:"first_name" json:"firstName,omitempty"`
	LastName     *string   `db:"last_name" json:"lastName,omitempty"`
	AvatarID     *int      `db:"avatar_id" json:"avatarId,omitempty"`
	IsGuest      bool      `db:"is_guest" json:"isGuest"`
	GoogleID     *string   `db:"google_id" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// QuestionnaireResponse holds one user's questionnaire progress. Responses is
// the AES-GCM ciphertext of a sparse JSON map from question index to either a
// single choice index or an array of choice indices.
type QuestionnaireResponse struct {
	ID              int       `db:"id" json:"id"`
	UserID          int       `db:"user_id" json:"userId"`
	Responses       string    `db:"responses" json:"-"`
	TotalScore      int       `db:"total_score" json:"totalScore"`
	CurrentQuestion int       `db:"current_question" json:"currentQuestion"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// ResponseMap is the decrypted wire form of QuestionnaireResponse.Responses.
type ResponseMap map[string]json.RawMessage

type Habit struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"userId"`
	Name      string    `db:"name" json:"name"`
	Count     int       `db:"count" json:"count"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// HabitLog records how many times a habit was completed on one day. UserID is
// denormalized from the parent habit so per-user queries skip a join. Count
// stays within [1, habit.count]; a log that would drop to 0 is deleted instead.
type HabitLog struct {
	ID      int       `db:"id" json:"id"`
	HabitID int       `db:"habit_id" json:"habitId"`
	UserID  int       `db:"user_id" json:"userId"`
	Date    time.Time `db:"date" json:"date"`
	Count   int       `db:"count" json:"count"`
}
