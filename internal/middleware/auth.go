// file: internal/middleware/auth.go
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"allowancehub/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ParentAuth guards parent-only routes. It expects the bearer token
// issued by PIN verification and injects the family ID into context.
type ParentAuth struct {
	authConfig *config.AuthConfig
	logger     *zap.Logger
}

// NewParentAuth creates the parent authentication middleware.
func NewParentAuth(authConfig *config.AuthConfig, logger *zap.Logger) *ParentAuth {
	return &ParentAuth{
		authConfig: authConfig,
		logger:     logger,
	}
}

// Require wraps a handler with parent session verification.
func (a *ParentAuth) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		familyID, err := a.authenticate(r)
		if err != nil {
			GetRequestLogger(r.Context()).Warn("Parent authentication failed",
				zap.Error(err),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("WWW-Authenticate", `Bearer realm="parent"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), FamilyIDKey, familyID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authenticate parses and validates the bearer token, returning the
// family ID from its subject claim.
func (a *ParentAuth) authenticate(r *http.Request) (int64, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return 0, fmt.Errorf("no authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, fmt.Errorf("invalid authorization header format")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(a.authConfig.JWTSecret), nil
	})
	if err != nil {
		return 0, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return 0, fmt.Errorf("token not valid")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid claims")
	}

	if role, _ := claims["role"].(string); role != "parent" {
		return 0, fmt.Errorf("token is not a parent session")
	}

	familyIDFloat, ok := claims["sub"].(float64)
	if !ok {
		return 0, fmt.Errorf("invalid subject claim")
	}

	return int64(familyIDFloat), nil
}
