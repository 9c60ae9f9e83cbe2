// Package middleware provides HTTP middleware for authentication, role checks
// and request logging.
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

const principalKey ContextKey = "principal"

// Roles carried in bearer tokens.
const (
	RoleInterviewer = "interviewer"
	RoleCandidate   = "candidate"
	RoleService     = "service"
)

// Principal is the authenticated caller. SessionID scopes candidate tokens
// to one session; uuid.Nil means unscoped.
type Principal struct {
	ID        uuid.UUID
	Role      string
	SessionID uuid.UUID
}

// CanAccess reports whether p may act on session id.
// Candidates without a session claim can access nothing.
func (p Principal) CanAccess(id uuid.UUID) bool {
	if p.Role == RoleCandidate {
		return p.SessionID != uuid.Nil && p.SessionID == id
	}
	return p.SessionID == uuid.Nil || p.SessionID == id
}

// Claims is what a validated token exposes to the middleware.
type Claims interface {
	GetPrincipalID() uuid.UUID
	GetRole() string
	GetSessionID() uuid.UUID
}

// TokenValidator validates bearer tokens. It keeps the middleware independent
// of the JWT implementation.
type TokenValidator interface {
	ValidateToken(tokenString string) (Claims, error)
}

// AuthMiddleware rejects requests without a valid bearer token and stores
// the caller in the request context.
func AuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Fields(r.Header.Get("Authorization"))
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := validator.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{
				ID:        claims.GetPrincipalID(),
				Role:      claims.GetRole(),
				SessionID: claims.GetSessionID(),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows the request only when the authenticated role is one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := GetPrincipal(r)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if !slices.Contains(roles, p.Role) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetPrincipal extracts the authenticated caller from the request context.
func GetPrincipal(r *http.Request) (Principal, error) {
	p, ok := r.Context().Value(principalKey).(Principal)
	if !ok {
		return Principal{}, fmt.Errorf("principal not found in request context")
	}
	return p, nil
}
