package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"habitly/internal/auth"
	mw "habitly/internal/middleware"
	"habitly/internal/models"
	"habitly/internal/services"
	"habitly/internal/store/storetest"
)

type authTestEnv struct {
	router *chi.Mux
	fakes  *storetest.Stores
	tokens *auth.TokenService
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()
	fakes := storetest.New()
	tokens := auth.NewTokenService([]byte("test-secret"))
	converter := services.NewConversionService(fakes.Bundle(), zap.NewNop())
	h := NewAuthHandler(fakes.Users, tokens, converter, zap.NewNop(), false)
	authMW := mw.NewAuthMiddleware(tokens)

	r := chi.NewRouter()
	r.Post("/api/auth/login", h.Login)
	r.Post("/api/auth/guest", h.GuestLogin)
	r.Group(func(cr chi.Router) {
		cr.Use(authMW.Classify)
		cr.Post("/api/auth/register", h.Register)
		cr.Post("/api/auth/convert-guest", h.ConvertGuest)
	})
	return &authTestEnv{router: r, fakes: fakes, tokens: tokens}
}

func (e *authTestEnv) seedGuestWithData(t *testing.T) (guestID int, token string) {
	t.Helper()
	guestID = e.fakes.Users.Add(models.User{Email: "guest-1@guest.local", PasswordHash: "x", IsGuest: true})
	e.fakes.Questionnaires.Add(models.QuestionnaireResponse{UserID: guestID, Responses: "blob", TotalScore: 10, CurrentQuestion: 3})
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	readID := e.fakes.Habits.Add(models.Habit{UserID: guestID, Name: "Read", Count: 2})
	runID := e.fakes.Habits.Add(models.Habit{UserID: guestID, Name: "Run", Count: 1})
	e.fakes.HabitLogs.Add(models.HabitLog{HabitID: readID, UserID: guestID, Date: day, Count: 1})
	e.fakes.HabitLogs.Add(models.HabitLog{HabitID: readID, UserID: guestID, Date: day.AddDate(0, 0, -1), Count: 2})
	e.fakes.HabitLogs.Add(models.HabitLog{HabitID: runID, UserID: guestID, Date: day, Count: 1})

	token, err := e.tokens.IssueGuest(guestID)
	if err != nil {
		t.Fatalf("issue guest token: %v", err)
	}
	return guestID, token
}

func (e *authTestEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, path, &buf)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, r)
	return w
}

func convertBody() map[string]string {
	return map[string]string{
		"email":     "alice@example.com",
		"password":  "hunter22",
		"firstName": "Alice",
		"lastName":  "Smith",
	}
}

type convertResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		UserID    int    `json:"userId"`
		Email     string `json:"email"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		IsGuest   bool   `json:"isGuest"`
	} `json:"user"`
	DataMigrated struct {
		Questionnaires int `json:"questionnaires"`
		Habits         int `json:"habits"`
		HabitLogs      int `json:"habitLogs"`
	} `json:"dataMigrated"`
	Error string `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) convertResponse {
	t.Helper()
	var out convertResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func TestConvertGuestEndpoint(t *testing.T) {
	env := newAuthTestEnv(t)
	guestID, guestToken := env.seedGuestWithData(t)

	w := env.do(http.MethodPost, "/api/auth/convert-guest", guestToken, convertBody())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)

	if resp.User.IsGuest {
		t.Error("converted user still a guest")
	}
	if resp.User.UserID == guestID {
		t.Error("converted user kept guest id")
	}
	if resp.User.Email != "alice@example.com" || resp.User.FirstName != "Alice" || resp.User.LastName != "Smith" {
		t.Errorf("user = %+v", resp.User)
	}
	if resp.DataMigrated.Questionnaires != 1 || resp.DataMigrated.Habits != 2 || resp.DataMigrated.HabitLogs != 3 {
		t.Errorf("dataMigrated = %+v", resp.DataMigrated)
	}

	// The reissued credential must be user-tagged and bound to the new id.
	cred, err := env.tokens.Parse(resp.Token)
	if err != nil || cred.IsGuest() || cred.UserID != resp.User.UserID {
		t.Errorf("reissued credential = %+v err = %v", cred, err)
	}

	// And a fresh session cookie replaces the guest one.
	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("no session cookie set")
	}
	if sessionCookie.Value != resp.Token {
		t.Error("cookie does not carry the reissued token")
	}
	if !sessionCookie.HttpOnly {
		t.Error("session cookie not HttpOnly")
	}

	// Converting again with the reissued (non-guest) credential must fail.
	w2 := env.do(http.MethodPost, "/api/auth/convert-guest", resp.Token, map[string]string{
		"email": "bob@example.com", "password": "pw", "firstName": "Bob", "lastName": "Jones",
	})
	if w2.Code != http.StatusBadRequest {
		t.Fatalf("second convert status = %d, want 400", w2.Code)
	}
	if msg := decode(t, w2).Error; msg != "No guest session found" {
		t.Errorf("second convert error = %q", msg)
	}
}

func TestConvertGuestRequiresCredential(t *testing.T) {
	env := newAuthTestEnv(t)

	w := env.do(http.MethodPost, "/api/auth/convert-guest", "", convertBody())
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestConvertGuestRejectsNonGuest(t *testing.T) {
	env := newAuthTestEnv(t)
	userID := env.fakes.Users.Add(models.User{Email: "bob@example.com", PasswordHash: "x"})
	userToken, _ := env.tokens.IssueUser(userID)

	w := env.do(http.MethodPost, "/api/auth/convert-guest", userToken, convertBody())
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if msg := decode(t, w).Error; msg != "No guest session found" {
		t.Errorf("error = %q", msg)
	}
}

func TestConvertGuestMissingFields(t *testing.T) {
	env := newAuthTestEnv(t)
	_, guestToken := env.seedGuestWithData(t)

	for _, field := range []string{"email", "password", "firstName", "lastName"} {
		t.Run(field, func(t *testing.T) {
			body := convertBody()
			body[field] = ""
			w := env.do(http.MethodPost, "/api/auth/convert-guest", guestToken, body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if msg := decode(t, w).Error; msg != "All fields are required!" {
				t.Errorf("error = %q", msg)
			}
		})
	}
}

func TestConvertGuestEmailConflict(t *testing.T) {
	env := newAuthTestEnv(t)
	env.fakes.Users.Add(models.User{Email: "alice@example.com", PasswordHash: "x"})
	_, guestToken := env.seedGuestWithData(t)

	w := env.do(http.MethodPost, "/api/auth/convert-guest", guestToken, convertBody())
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if msg := decode(t, w).Error; msg != "Email already exists" {
		t.Errorf("error = %q", msg)
	}
}

func TestRegisterRoutesGuestsIntoConversion(t *testing.T) {
	env := newAuthTestEnv(t)
	_, guestToken := env.seedGuestWithData(t)

	w := env.do(http.MethodPost, "/api/auth/register", guestToken, convertBody())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp.DataMigrated.Habits != 2 {
		t.Errorf("dataMigrated = %+v, want migration to have run", resp.DataMigrated)
	}
}

func TestRegisterAnonymous(t *testing.T) {
	env := newAuthTestEnv(t)

	w := env.do(http.MethodPost, "/api/auth/register", "", convertBody())
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp.User.IsGuest || resp.User.Email != "alice@example.com" {
		t.Errorf("user = %+v", resp.User)
	}
	if resp.DataMigrated.Habits != 0 || resp.DataMigrated.Questionnaires != 0 {
		t.Errorf("anonymous register reported migration: %+v", resp.DataMigrated)
	}

	// Duplicate registration conflicts.
	w2 := env.do(http.MethodPost, "/api/auth/register", "", convertBody())
	if w2.Code != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", w2.Code)
	}
}

func TestLogin(t *testing.T) {
	env := newAuthTestEnv(t)
	hashed, _ := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	env.fakes.Users.Add(models.User{Email: "alice@example.com", PasswordHash: string(hashed)})

	w := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "Alice@Example.com", "password": "hunter22",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if cred, err := env.tokens.Parse(resp.Token); err != nil || cred.IsGuest() {
		t.Errorf("login credential = %+v err = %v", cred, err)
	}

	w2 := env.do(http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	})
	if w2.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", w2.Code)
	}
}

func TestGuestLogin(t *testing.T) {
	env := newAuthTestEnv(t)

	w := env.do(http.MethodPost, "/api/auth/guest", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if !resp.User.IsGuest {
		t.Error("guest login user not flagged as guest")
	}
	cred, err := env.tokens.Parse(resp.Token)
	if err != nil || !cred.IsGuest() {
		t.Errorf("guest credential = %+v err = %v", cred, err)
	}

	// Two guest logins never collide on the placeholder email.
	w2 := env.do(http.MethodPost, "/api/auth/guest", "", nil)
	if w2.Code != http.StatusOK {
		t.Fatalf("second guest login status = %d", w2.Code)
	}
	if decode(t, w2).User.Email == resp.User.Email {
		t.Error("guest placeholder emails collided")
	}
}
