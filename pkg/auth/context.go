package auth

import (
	"context"
)

type contextKey string

const claimsKey contextKey = "authClaims"

// SetClaims stores verified claims in the request context.
func SetClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims retrieves verified claims from the request context.
// Returns nil and false if not present.
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}
