package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"habitly/internal/auth"
	"habitly/internal/middleware"
	"habitly/internal/models"
	"habitly/internal/services"
	"habitly/internal/store"
)

type AuthHandler struct {
	users         store.UserStore
	tokens        *auth.TokenService
	converter     *services.ConversionService
	logger        *zap.Logger
	secureCookies bool
}

func NewAuthHandler(users store.UserStore, tokens *auth.TokenService, converter *services.ConversionService, logger *zap.Logger, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		users:         users,
		tokens:        tokens,
		converter:     converter,
		logger:        logger,
		secureCookies: secureCookies,
	}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Register creates a permanent account. A caller holding a valid guest
// credential is routed into conversion instead, so a guest who taps
// "sign up" keeps their accumulated data.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	if cred, ok := middleware.CredentialFrom(r.Context()); ok && cred.IsGuest() {
		h.convert(w, r, cred, services.ConversionRequest{
			Email:     req.Email,
			Password:  req.Password,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if email == "" || req.Password == "" || firstName == "" || lastName == "" {
		writeError(w, http.StatusBadRequest, "All fields are required!")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not hash password")
		return
	}

	user := models.User{
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    &firstName,
		LastName:     &lastName,
	}
	if err := h.users.Create(r.Context(), &user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "Email already exists")
			return
		}
		var ve *store.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
			return
		}
		h.logger.Error("register: create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	h.issueSession(w, user, "Account created")
}

// Login verifies the password and issues a fresh 7-day credential.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	email := strings.TrimSpace(strings.ToLower(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "All fields are required!")
		return
	}

	user, err := h.users.FindByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		h.logger.Error("login: lookup user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	h.issueSession(w, *user, "Logged in")
}

// GuestLogin creates an ephemeral guest account and a 30-day guest
// credential. The placeholder email and random password hash exist only to
// satisfy the schema; a guest can never log in with them.
func (h *AuthHandler) GuestLogin(w http.ResponseWriter, r *http.Request) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create guest")
		return
	}

	user := models.User{
		Email:        "guest-" + uuid.NewString() + "@guest.local",
		PasswordHash: string(hashed),
		IsGuest:      true,
	}
	if err := h.users.Create(r.Context(), &user); err != nil {
		h.logger.Error("guest login: create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create guest")
		return
	}

	token, err := h.tokens.IssueGuest(user.ID)
	if err != nil {
		h.logger.Error("guest login: issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	auth.SetSessionCookie(w, token, auth.GuestTokenTTL, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Guest session started",
		"token":   token,
		"user":    ToUserDTO(user),
	})
}

// ConvertGuest is the dedicated conversion endpoint. It requires a guest
// credential; the orchestration itself lives in services.ConversionService.
func (h *AuthHandler) ConvertGuest(w http.ResponseWriter, r *http.Request) {
	cred, ok := middleware.CredentialFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}

	var req services.ConversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	h.convert(w, r, cred, req)
}

func (h *AuthHandler) convert(w http.ResponseWriter, r *http.Request, cred auth.Credential, req services.ConversionRequest) {
	result, err := h.converter.Convert(r.Context(), cred, req)
	if err != nil {
		h.respondConversionError(w, err)
		return
	}

	token, err := h.tokens.IssueUser(result.User.ID)
	if err != nil {
		h.logger.Error("convert: issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	auth.SetSessionCookie(w, token, auth.UserTokenTTL, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Account created successfully",
		"token":        token,
		"user":         ToUserDTO(result.User),
		"dataMigrated": result.Migrated,
	})
}

func (h *AuthHandler) respondConversionError(w http.ResponseWriter, err error) {
	var ve *services.ValidationError
	switch {
	case errors.Is(err, services.ErrNoGuestSession):
		writeError(w, http.StatusBadRequest, "No guest session found")
	case errors.Is(err, services.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "All fields are required!")
	case errors.Is(err, services.ErrEmailExists):
		writeError(w, http.StatusConflict, "Email already exists")
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	default:
		h.logger.Error("convert guest", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not convert guest account")
	}
}

// Logout clears the session cookie. Tokens are stateless, so a held bearer
// token stays valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AuthHandler) issueSession(w http.ResponseWriter, user models.User, message string) {
	token, err := h.tokens.IssueUser(user.ID)
	if err != nil {
		h.logger.Error("issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	auth.SetSessionCookie(w, token, auth.UserTokenTTL, h.secureCookies)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": message,
		"token":   token,
		"user":    ToUserDTO(user),
	})
}
