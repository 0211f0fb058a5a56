// Package auth implements the signed-credential codec and cookie handling.
// A credential asserts a user id plus a role tag, and the role tag is what
// separates a convertible guest session from a permanent one.
package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser  = "user"
	RoleGuest = "guest"

	// UserTokenTTL is the validity of credentials for permanent accounts,
	// including the one reissued after guest conversion.
	UserTokenTTL = 7 * 24 * time.Hour
	// GuestTokenTTL keeps a guest session usable between casual visits.
	GuestTokenTTL = 30 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// Credential is the decoded form of a session token.
type Credential struct {
	UserID int
	Role   string
}

func (c Credential) IsGuest() bool { return c.Role == RoleGuest }

type TokenService struct {
	secret []byte
}

func NewTokenService(secret []byte) *TokenService {
	return &TokenService{secret: secret}
}

// IssueUser mints a 7-day credential for a permanent account.
func (s *TokenService) IssueUser(userID int) (string, error) {
	return s.issue(userID, RoleUser, UserTokenTTL)
}

// IssueGuest mints a 30-day credential for a guest account.
func (s *TokenService) IssueGuest(userID int) (string, error) {
	return s.issue(userID, RoleGuest, GuestTokenTTL)
}

func (s *TokenService) issue(userID int, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  time.Now().Add(ttl).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse decodes and verifies a token, returning the tagged credential.
func (s *TokenService) Parse(tokenStr string) (Credential, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Credential{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Credential{}, ErrInvalidToken
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return Credential{}, ErrInvalidToken
	}
	role, ok := claims["role"].(string)
	if !ok || (role != RoleUser && role != RoleGuest) {
		return Credential{}, ErrInvalidToken
	}
	return Credential{UserID: int(sub), Role: role}, nil
}
