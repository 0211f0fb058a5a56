package handlers

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"habitly/internal/middleware"
)

type StatsHandler struct {
	db *sqlx.DB
}

func NewStatsHandler(db *sqlx.DB) *StatsHandler { return &StatsHandler{db: db} }

type trendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type statsResponse struct {
	ReferenceDate     string       `json:"referenceDate"`
	TodayCount        int          `json:"todayCount"`
	WeekCount         int          `json:"weekCount"`
	MonthCount        int          `json:"monthCount"`
	ActiveDaysMonth   int          `json:"activeDaysMonth"`
	CurrentStreakDays int          `json:"currentStreakDays"`
	Last7DaysTrend    []trendPoint `json:"last7DaysTrend"`
}

// Get aggregates habit log counts to power the stats screen.
// Accepts optional query param: date=YYYY-MM-DD to use as the user's "today".
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	refDateStr := r.URL.Query().Get("date")
	var refDate time.Time
	var err error
	if refDateStr == "" {
		if err = h.db.QueryRowx("SELECT CURRENT_DATE").Scan(&refDate); err != nil {
			writeError(w, http.StatusInternalServerError, "could not determine current date")
			return
		}
	} else {
		refDate, err = time.Parse("2006-01-02", refDateStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
	}

	// 1) Aggregate counts in a single query using FILTER
	aggQuery := `
		SELECT
			COALESCE(SUM(count) FILTER (WHERE date = $2), 0) AS today_count,
			COALESCE(SUM(count) FILTER (WHERE date >= date_trunc('week', $2::timestamp)::date AND date <= $2), 0) AS week_count,
			COALESCE(SUM(count) FILTER (WHERE date_trunc('month', date) = date_trunc('month', $2::date)), 0) AS month_count,
			COALESCE(COUNT(DISTINCT date) FILTER (WHERE date_trunc('month', date) = date_trunc('month', $2::date)), 0) AS active_days_month
		FROM habit_logs
		WHERE user_id = $1`

	var todayCount, weekCount, monthCount, activeDays int
	if err := h.db.QueryRowx(aggQuery, userID, refDate).Scan(&todayCount, &weekCount, &monthCount, &activeDays); err != nil {
		writeError(w, http.StatusInternalServerError, "could not fetch aggregates")
		return
	}

	// 2) Current streak up to reference date (consecutive days with any log)
	streakQuery := `
		WITH d AS (
			SELECT DISTINCT date FROM habit_logs WHERE user_id=$1 AND date <= $2
		), g AS (
			SELECT date, date - (ROW_NUMBER() OVER (ORDER BY date))::int AS grp FROM d
		), c AS (
			SELECT COUNT(*) AS cnt, MAX(date) AS maxd FROM g GROUP BY grp
		)
		SELECT COALESCE((SELECT cnt FROM c WHERE maxd = $2), 0)`
	var streak int
	if err := h.db.QueryRowx(streakQuery, userID, refDate).Scan(&streak); err != nil {
		writeError(w, http.StatusInternalServerError, "could not compute streak")
		return
	}

	// 3) Last 7 days trend ending at reference date (inclusive)
	trendRows, err := h.db.Queryx(`
		SELECT d::date AS date, COALESCE(SUM(l.count), 0) AS count
		FROM generate_series($2::date - INTERVAL '6 days', $2::date, INTERVAL '1 day') AS d
		LEFT JOIN habit_logs l ON l.user_id=$1 AND l.date = d::date
		GROUP BY d
		ORDER BY d`, userID, refDate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not fetch trend")
		return
	}
	defer trendRows.Close()
	var trend []trendPoint
	for trendRows.Next() {
		var d time.Time
		var c int
		if err := trendRows.Scan(&d, &c); err != nil {
			writeError(w, http.StatusInternalServerError, "could not fetch trend")
			return
		}
		trend = append(trend, trendPoint{Date: d.Format("2006-01-02"), Count: c})
	}
	if err := trendRows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "could not fetch trend")
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		ReferenceDate:     refDate.Format("2006-01-02"),
		TodayCount:        todayCount,
		WeekCount:         weekCount,
		MonthCount:        monthCount,
		ActiveDaysMonth:   activeDays,
		CurrentStreakDays: streak,
		Last7DaysTrend:    trend,
	})
}
