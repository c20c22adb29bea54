// Package security provides token issuing and validation.
package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "ledgerd/internal/core/context"
)

// Config holds token service configuration.
type Config struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultConfig returns token configuration with sane defaults.
func DefaultConfig(secret string) Config {
	return Config{
		Secret:         secret,
		Issuer:         "ledgerd",
		AccessTokenTTL: 15 * time.Minute,
	}
}

// Claims represents the JWT claim set carried by access tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string   `json:"uid"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles,omitempty"`
	SessionID string   `json:"sid,omitempty"`
	IsAdmin   bool     `json:"adm,omitempty"`
}

// TokenService issues and validates access tokens.
type TokenService struct {
	config Config
}

// NewTokenService creates a new token service.
func NewTokenService(config Config) *TokenService {
	return &TokenService{config: config}
}

// GenerateAccessToken signs a new access token for the given user.
func (s *TokenService) GenerateAccessToken(
	userID, email string,
	roles []string,
	sessionID string,
	isAdmin bool,
) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    userID,
		Email:     email,
		Roles:     roles,
		SessionID: sessionID,
		IsAdmin:   isAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken parses and verifies a token, returning the user it carries.
func (s *TokenService) ValidateToken(tokenString string) (*appctx.UserContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &appctx.UserContext{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Roles:     claims.Roles,
		SessionID: claims.SessionID,
		IsAdmin:   claims.IsAdmin,
	}, nil
}
