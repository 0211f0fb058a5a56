package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"habitly/internal/middleware"
	"habitly/internal/models"
	"habitly/internal/services"
)

type QuestionnaireHandler struct {
	db     *sqlx.DB
	encSvc *services.EncryptionService
	logger *zap.Logger
}

func NewQuestionnaireHandler(db *sqlx.DB, encSvc *services.EncryptionService, logger *zap.Logger) *QuestionnaireHandler {
	return &QuestionnaireHandler{db: db, encSvc: encSvc, logger: logger}
}

type questionnaireResponse struct {
	Responses       models.ResponseMap `json:"responses"`
	TotalScore      int                `json:"totalScore"`
	CurrentQuestion int                `json:"currentQuestion"`
}

// Get returns the caller's questionnaire record, decrypted.
func (h *QuestionnaireHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	var q models.QuestionnaireResponse
	err := h.db.Get(&q, `SELECT id, user_id, responses, total_score, current_question, created_at, updated_at
		FROM questionnaire_responses WHERE user_id=$1 ORDER BY id LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "no questionnaire response")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not fetch questionnaire")
		return
	}

	responses, err := h.encSvc.DecryptResponses(q.Responses)
	if err != nil {
		h.logger.Error("questionnaire: decrypt", zap.Int("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not decrypt questionnaire")
		return
	}
	writeJSON(w, http.StatusOK, questionnaireResponse{
		Responses:       responses,
		TotalScore:      q.TotalScore,
		CurrentQuestion: q.CurrentQuestion,
	})
}

// Save upserts the caller's questionnaire progress. At most one record exists
// per user, enforced by lookup-before-write; concurrent saves are
// last-write-wins.
func (h *QuestionnaireHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	var req questionnaireResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.TotalScore < 0 || req.CurrentQuestion < 0 {
		writeError(w, http.StatusBadRequest, "totalScore and currentQuestion must not be negative")
		return
	}

	encrypted, err := h.encSvc.EncryptResponses(req.Responses)
	if err != nil {
		h.logger.Error("questionnaire: encrypt", zap.Int("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not encrypt questionnaire")
		return
	}

	var existingID int
	err = h.db.Get(&existingID, `SELECT id FROM questionnaire_responses WHERE user_id=$1 ORDER BY id LIMIT 1`, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = h.db.Exec(`INSERT INTO questionnaire_responses (user_id, responses, total_score, current_question)
			VALUES ($1, $2, $3, $4)`, userID, encrypted, req.TotalScore, req.CurrentQuestion)
	case err == nil:
		_, err = h.db.Exec(`UPDATE questionnaire_responses SET responses=$1, total_score=$2, current_question=$3, updated_at=NOW()
			WHERE id=$4`, encrypted, req.TotalScore, req.CurrentQuestion, existingID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not save questionnaire")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Questionnaire saved"})
}
