package testhelpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// GenerateTestJWT signs an HS256 token with the claims the engine consumes.
// Pair it with the same signing key on the auth middleware under test.
func GenerateTestJWT(t *testing.T, signingKey string, userID, companyID uuid.UUID) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        userID.String(),
		"company_id": companyID.String(),
		"email":      "test@example.com",
		"exp":        time.Now().Add(time.Hour).Unix(),
		"iat":        time.Now().Unix(),
	})

	signed, err := token.SignedString([]byte(signingKey))
	if err != nil {
		t.Fatalf("Failed to sign test token: %v", err)
	}
	return signed
}

// GenerateTestJWTWithBearer returns the token with the "Bearer " prefix for
// an Authorization header.
func GenerateTestJWTWithBearer(t *testing.T, signingKey string, userID, companyID uuid.UUID) string {
	return "Bearer " + GenerateTestJWT(t, signingKey, userID, companyID)
}
