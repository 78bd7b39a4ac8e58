package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// GetRaterIDFromContext extracts the rater's UUID from JWT claims in the
// context. Returns uuid.Nil and false if not authenticated or the subject is
// not a UUID.
func GetRaterIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil || claims.Subject == "" {
		return uuid.Nil, false
	}

	raterID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, false
	}
	return raterID, true
}

// RequireRaterIDFromContext extracts the rater's UUID from context and
// returns an error if not found. Use this when the caller identity is
// required for the operation.
func RequireRaterIDFromContext(ctx context.Context) (uuid.UUID, error) {
	raterID, ok := GetRaterIDFromContext(ctx)
	if !ok {
		return uuid.Nil, fmt.Errorf("valid rater UUID not found in context")
	}
	return raterID, nil
}

// IsAdminFromContext reports whether the authenticated caller has the ADMIN
// role. Returns false when unauthenticated.
func IsAdminFromContext(ctx context.Context) bool {
	claims, ok := GetClaims(ctx)
	return ok && claims != nil && claims.IsAdmin()
}
