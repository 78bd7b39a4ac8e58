package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Middleware provides HTTP authentication middleware. Every labelling
// endpoint is wrapped in a role requirement; the role check runs before any
// storage access so unauthorized callers fail closed.
type Middleware struct {
	jwksClient JWKSClientInterface
	logger     *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given JWKS client.
func NewMiddleware(jwksClient JWKSClientInterface, logger *zap.Logger) *Middleware {
	return &Middleware{
		jwksClient: jwksClient,
		logger:     logger,
	}
}

// RequireRater validates the bearer token and requires the LABELLER or ADMIN
// role. Sets claims and token in context for downstream handlers.
func (m *Middleware) RequireRater(next http.HandlerFunc) http.HandlerFunc {
	return m.requireAnyRole(next, RoleLabeller, RoleAdmin)
}

// RequireAdmin validates the bearer token and requires the ADMIN role.
// Use for calibration management, export, model runs and case deletion.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.requireAnyRole(next, RoleAdmin)
}

func (m *Middleware) requireAnyRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			m.unauthorized(w, "Authentication required")
			return
		}

		claims, err := m.jwksClient.ValidateToken(token)
		if err != nil {
			m.logger.Debug("Token validation failed", zap.Error(err))
			m.unauthorized(w, "Authentication required")
			return
		}

		allowed := false
		for _, role := range roles {
			if claims.HasRole(role) {
				allowed = true
				break
			}
		}
		if !allowed {
			m.logger.Warn("Insufficient role for endpoint",
				zap.String("subject", claims.Subject),
				zap.Strings("roles", claims.Roles),
				zap.String("path", r.URL.Path))
			m.forbidden(w, "Insufficient permissions")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		ctx = context.WithValue(ctx, TokenKey, token)
		next(w, r.WithContext(ctx))
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}

// forbidden returns a 403 response with JSON error body.
func (m *Middleware) forbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "forbidden",
		"message": message,
	})
}
