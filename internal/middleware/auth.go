package middleware

import (
	"context"
	"net/http"

	"habitly/internal/auth"
)

type ctxKey int

const credentialKey ctxKey = 0

// CredentialFrom returns the decoded credential attached by RequireAuth or
// Classify, if any.
func CredentialFrom(ctx context.Context) (auth.Credential, bool) {
	c, ok := ctx.Value(credentialKey).(auth.Credential)
	return c, ok
}

// UserID returns the authenticated user's id. Only valid under RequireAuth.
func UserID(ctx context.Context) int {
	c, _ := CredentialFrom(ctx)
	return c.UserID
}

type AuthMiddleware struct {
	tokens *auth.TokenService
}

func NewAuthMiddleware(tokens *auth.TokenService) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth rejects requests without a valid credential. Both guest and
// user roles pass; guests accumulate data before ever registering.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenStr := auth.TokenFromRequest(r)
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		cred, err := m.tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), credentialKey, cred)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Classify attaches the decoded credential when one is present and valid,
// and otherwise lets the request through as anonymous. Registration uses
// this: a valid guest credential routes the caller into conversion, anything
// else falls through to normal signup.
func (m *AuthMiddleware) Classify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenStr := auth.TokenFromRequest(r); tokenStr != "" {
			if cred, err := m.tokens.Parse(tokenStr); err == nil {
				r = r.WithContext(context.WithValue(r.Context(), credentialKey, cred))
			}
		}
		next.ServeHTTP(w, r)
	})
}
