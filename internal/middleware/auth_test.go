package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"habitly/internal/auth"
)

func newTestMiddleware() (*AuthMiddleware, *auth.TokenService) {
	tokens := auth.NewTokenService([]byte("test-secret"))
	return NewAuthMiddleware(tokens), tokens
}

func credEcho(t *testing.T, gotCred *auth.Credential, gotOK *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotCred, *gotOK = CredentialFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth(t *testing.T) {
	m, tokens := newTestMiddleware()
	userToken, _ := tokens.IssueUser(7)
	guestToken, _ := tokens.IssueGuest(9)

	tests := []struct {
		name       string
		authz      string
		wantStatus int
		wantID     int
		wantRole   string
	}{
		{"no token", "", http.StatusUnauthorized, 0, ""},
		{"invalid token", "Bearer garbage", http.StatusUnauthorized, 0, ""},
		{"user token", "Bearer " + userToken, http.StatusOK, 7, auth.RoleUser},
		{"guest token", "Bearer " + guestToken, http.StatusOK, 9, auth.RoleGuest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cred auth.Credential
			var ok bool
			h := m.RequireAuth(credEcho(t, &cred, &ok))

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authz != "" {
				r.Header.Set("Authorization", tt.authz)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if !ok || cred.UserID != tt.wantID || cred.Role != tt.wantRole {
					t.Errorf("credential = %+v ok=%v, want id=%d role=%s", cred, ok, tt.wantID, tt.wantRole)
				}
			}
		})
	}
}

func TestClassifyLetsAnonymousThrough(t *testing.T) {
	m, tokens := newTestMiddleware()
	guestToken, _ := tokens.IssueGuest(3)

	tests := []struct {
		name   string
		authz  string
		wantOK bool
	}{
		{"no token passes as anonymous", "", false},
		{"invalid token passes as anonymous", "Bearer nope", false},
		{"guest token attaches credential", "Bearer " + guestToken, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cred auth.Credential
			var ok bool
			h := m.Classify(credEcho(t, &cred, &ok))

			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.authz != "" {
				r.Header.Set("Authorization", tt.authz)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			if ok != tt.wantOK {
				t.Errorf("credential attached = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantOK && (cred.UserID != 3 || !cred.IsGuest()) {
				t.Errorf("credential = %+v, want guest id 3", cred)
			}
		})
	}
}
