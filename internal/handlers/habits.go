package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"

	"habitly/internal/middleware"
)

type HabitHandler struct {
	db *sqlx.DB
}

func NewHabitHandler(db *sqlx.DB) *HabitHandler {
	return &HabitHandler{db: db}
}

type habitRequest struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Create adds a habit. Name is unique per user; count is the daily target.
func (h *HabitHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	var req habitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" || req.Count < 1 {
		writeError(w, http.StatusBadRequest, "name and a positive count are required")
		return
	}
	name := strings.TrimSpace(req.Name)

	var exists bool
	if err := h.db.QueryRowx(`SELECT EXISTS (SELECT 1 FROM habits WHERE user_id=$1 AND name=$2)`, userID, name).Scan(&exists); err != nil {
		writeError(w, http.StatusInternalServerError, "could not check habit")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "Habit already exists")
		return
	}

	var id int
	var createdAt time.Time
	err := h.db.QueryRowx(`INSERT INTO habits (user_id, name, count) VALUES ($1, $2, $3) RETURNING id, created_at`,
		userID, name, req.Count).Scan(&id, &createdAt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create habit")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id": id, "name": name, "count": req.Count, "createdAt": createdAt.Format(time.RFC3339),
	})
}

type habitWithToday struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Count      int    `json:"count"`
	TodayCount int    `json:"todayCount"`
}

// List returns the caller's habits with the logged count for the given day
// (query param date=YYYY-MM-DD, defaulting to the database's current date).
func (h *HabitHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	refDate, ok := h.refDate(w, r)
	if !ok {
		return
	}

	rows, err := h.db.Queryx(`
		SELECT h.id, h.name, h.count, COALESCE(l.count, 0) AS today_count
		FROM habits h
		LEFT JOIN habit_logs l ON l.habit_id = h.id AND l.date = $2
		WHERE h.user_id = $1
		ORDER BY h.id`, userID, refDate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not fetch habits")
		return
	}
	defer rows.Close()

	out := []habitWithToday{}
	for rows.Next() {
		var hw habitWithToday
		if err := rows.Scan(&hw.ID, &hw.Name, &hw.Count, &hw.TodayCount); err != nil {
			writeError(w, http.StatusInternalServerError, "could not fetch habits")
			return
		}
		out = append(out, hw)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "could not fetch habits")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// Update renames a habit and/or changes its daily target.
func (h *HabitHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	habitID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid habit id")
		return
	}

	var body struct {
		Name  *string `json:"name"`
		Count *int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	setClauses := []string{}
	args := []interface{}{}
	argIdx := 1
	if body.Name != nil {
		name := strings.TrimSpace(*body.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		setClauses = append(setClauses, fmt.Sprintf("name=$%d", argIdx))
		args = append(args, name)
		argIdx++
	}
	if body.Count != nil {
		if *body.Count < 1 {
			writeError(w, http.StatusBadRequest, "count must be positive")
			return
		}
		setClauses = append(setClauses, fmt.Sprintf("count=$%d", argIdx))
		args = append(args, *body.Count)
		argIdx++
	}
	if len(setClauses) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	query := "UPDATE habits SET " + strings.Join(setClauses, ", ") +
		fmt.Sprintf(" WHERE id=$%d AND user_id=$%d", argIdx, argIdx+1)
	args = append(args, habitID, userID)
	res, err := h.db.Exec(query, args...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not update habit")
		return
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		writeError(w, http.StatusNotFound, "habit not found")
		return
	}

	// Shrinking the target can leave logs above it; clamp them down.
	if body.Count != nil {
		if _, err := h.db.Exec(`UPDATE habit_logs SET count=$1 WHERE habit_id=$2 AND count > $1`, *body.Count, habitID); err != nil {
			writeError(w, http.StatusInternalServerError, "could not adjust logs")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a habit and its logs (logs first, plain foreign keys).
func (h *HabitHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	habitID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid habit id")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not start transaction")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM habit_logs WHERE habit_id=$1 AND user_id=$2`, habitID, userID); err != nil {
		writeError(w, http.StatusInternalServerError, "could not delete logs")
		return
	}
	res, err := tx.Exec(`DELETE FROM habits WHERE id=$1 AND user_id=$2`, habitID, userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not delete habit")
		return
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		writeError(w, http.StatusNotFound, "habit not found")
		return
	}
	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, "could not commit")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type logRequest struct {
	Date  string `json:"date"`  // YYYY-MM-DD
	Delta int    `json:"delta"` // signed change to the day's count
}

// clampCount applies a delta to a day's count, bounded by [0, max].
func clampCount(current, delta, max int) int {
	next := current + delta
	if next < 0 {
		return 0
	}
	if next > max {
		return max
	}
	return next
}

// planLogWrite decides what happens to the (habit, date) row after a delta:
// the clamped count, and whether the row should be removed instead of kept.
// A zero count is never stored; the absence of a row means zero.
func planLogWrite(current, delta, max int) (next int, remove bool) {
	next = clampCount(current, delta, max)
	return next, next == 0
}

// Log applies a delta to the (habit, date) log. The result is clamped to the
// habit's daily target; a result of 0 deletes the row rather than keeping it.
func (h *HabitHandler) Log(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	habitID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid habit id")
		return
	}

	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Date == "" || req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "date and a non-zero delta are required")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	var maxCount int
	err = h.db.Get(&maxCount, `SELECT count FROM habits WHERE id=$1 AND user_id=$2`, habitID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "habit not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not fetch habit")
		return
	}

	var current int
	err = h.db.Get(&current, `SELECT count FROM habit_logs WHERE habit_id=$1 AND date=$2`, habitID, date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusInternalServerError, "could not fetch log")
		return
	}

	next, remove := planLogWrite(current, req.Delta, maxCount)
	switch {
	case remove:
		if _, err := h.db.Exec(`DELETE FROM habit_logs WHERE habit_id=$1 AND date=$2`, habitID, date); err != nil {
			writeError(w, http.StatusInternalServerError, "could not delete log")
			return
		}
	default:
		_, err := h.db.Exec(`INSERT INTO habit_logs (habit_id, user_id, date, count) VALUES ($1, $2, $3, $4)
			ON CONFLICT (habit_id, date) DO UPDATE SET count = EXCLUDED.count`,
			habitID, userID, date, next)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "could not save log")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"habitId": habitID,
		"date":    date.Format("2006-01-02"),
		"count":   next,
	})
}

// Logs lists the caller's logs for one day.
func (h *HabitHandler) Logs(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	refDate, ok := h.refDate(w, r)
	if !ok {
		return
	}

	rows, err := h.db.Queryx(`SELECT habit_id, date, count FROM habit_logs WHERE user_id=$1 AND date=$2 ORDER BY habit_id`, userID, refDate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not fetch logs")
		return
	}
	defer rows.Close()

	out := []HabitLogDTO{}
	for rows.Next() {
		var habitID, count int
		var d time.Time
		if err := rows.Scan(&habitID, &d, &count); err != nil {
			writeError(w, http.StatusInternalServerError, "could not fetch logs")
			return
		}
		out = append(out, HabitLogDTO{HabitID: habitID, Date: d.Format("2006-01-02"), Count: count})
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "could not fetch logs")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// refDate resolves the optional date query param, defaulting to the
// database's CURRENT_DATE so client and server agree on "today".
func (h *HabitHandler) refDate(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	refDateStr := r.URL.Query().Get("date")
	if refDateStr == "" {
		var refDate time.Time
		if err := h.db.QueryRowx("SELECT CURRENT_DATE").Scan(&refDate); err != nil {
			writeError(w, http.StatusInternalServerError, "could not determine current date")
			return time.Time{}, false
		}
		return refDate, true
	}
	refDate, err := time.Parse("2006-01-02", refDateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return refDate, true
}
