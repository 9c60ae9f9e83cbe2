package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/config"
	"github.com/jonathan/interview-engine/internal/server/middleware"
)

// Claims are the bearer token claims. Candidate tokens carry the one session
// they may use.
type Claims struct {
	PrincipalID uuid.UUID `json:"pid"`
	Role        string    `json:"role"`
	SessionID   uuid.UUID `json:"sid"`
	jwt.RegisteredClaims
}

// GetPrincipalID implements middleware.Claims.
func (c *Claims) GetPrincipalID() uuid.UUID { return c.PrincipalID }

// GetRole implements middleware.Claims.
func (c *Claims) GetRole() string { return c.Role }

// GetSessionID implements middleware.Claims.
func (c *Claims) GetSessionID() uuid.UUID { return c.SessionID }

// JWTService signs and validates HS256 bearer tokens.
type JWTService struct {
	config *config.JWTConfig
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given configuration.
func NewJWTService(cfg *config.JWTConfig) *JWTService {
	return &JWTService{config: cfg, now: time.Now}
}

// AsTokenValidator adapts the service to middleware.TokenValidator.
func (s *JWTService) AsTokenValidator() middleware.TokenValidator {
	return tokenValidator{service: s}
}

type tokenValidator struct {
	service *JWTService
}

func (v tokenValidator) ValidateToken(tokenString string) (middleware.Claims, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// GenerateToken signs a token for principal with role. A non-nil session
// scopes the token to that session.
func (s *JWTService) GenerateToken(principal uuid.UUID, role string, session uuid.UUID) (string, error) {
	switch role {
	case middleware.RoleInterviewer, middleware.RoleService:
	case middleware.RoleCandidate:
		if session == uuid.Nil {
			return "", fmt.Errorf("candidate tokens must be scoped to a session")
		}
	default:
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := s.now()
	claims := &Claims{
		PrincipalID: principal,
		Role:        role,
		SessionID:   session,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   principal.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses tokenString and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	},
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.PrincipalID == uuid.Nil || claims.Role == "" {
		return nil, fmt.Errorf("token is missing principal or role")
	}
	if claims.Role == middleware.RoleCandidate && claims.SessionID == uuid.Nil {
		return nil, fmt.Errorf("candidate token is missing its session")
	}
	return claims, nil
}
