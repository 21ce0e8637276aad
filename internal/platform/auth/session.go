// Package auth carries the caller identity through the request pipeline.
// Login issues an HS256 session token; the middleware parses it back into a
// Session stored on the request context. Domain services only consume the
// Session and never touch token mechanics.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the normalized user role. The storage layer codes roles as
// strings ("1" = admin, anything else standard); comparisons always go
// through this type, never through the raw code.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

// RoleCodeAdmin is the raw code stored in usuario.tipo_usuario for admins.
const RoleCodeAdmin = "1"

// RoleFromCode normalizes the string-typed role code stored in usuario.tipo_usuario.
func RoleFromCode(code string) Role {
	if code == "1" {
		return RoleAdmin
	}
	return RoleStandard
}

// Session is the opaque caller identity consumed by the domain facades.
type Session struct {
	UserID int64
	Name   string
	Role   Role
}

// IsAdmin reports whether the caller has cross-patient visibility.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// Claims is the JWT payload backing a Session.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64  `json:"uid"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// TokenIssuer signs and parses session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, ttl: ttl}
}

// Issue creates a signed session token for the given caller.
func (t *TokenIssuer) Issue(s Session) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", s.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		UserID: s.UserID,
		Name:   s.Name,
		Role:   string(s.Role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token and rebuilds the Session it carries.
func (t *TokenIssuer) Parse(tokenStr string) (Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return Session{}, fmt.Errorf("invalid session token")
	}

	role := Role(claims.Role)
	if role != RoleAdmin && role != RoleStandard {
		role = RoleStandard
	}
	return Session{UserID: claims.UserID, Name: claims.Name, Role: role}, nil
}

type contextKey string

const sessionKey contextKey = "session"

// WithSession returns a context carrying the caller identity.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext retrieves the caller identity. ok is false for
// unauthenticated requests.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
