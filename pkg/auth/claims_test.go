package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningKey = "test-signing-key"

func signTestToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func validClaims(userID, companyID uuid.UUID) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":        userID.String(),
		"company_id": companyID.String(),
		"email":      "analyst@example.com",
		"exp":        time.Now().Add(time.Hour).Unix(),
		"iat":        time.Now().Unix(),
	}
}

func TestParseToken_Valid(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()
	token := signTestToken(t, testSigningKey, validClaims(userID, companyID))

	claims, err := ParseToken(token, testSigningKey, true)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, companyID, claims.CompanyID)
	assert.Equal(t, "analyst@example.com", claims.Email)
}

func TestParseToken_WrongKey(t *testing.T) {
	token := signTestToken(t, "other-key", validClaims(uuid.New(), uuid.New()))

	_, err := ParseToken(token, testSigningKey, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse token")
}

func TestParseToken_Expired(t *testing.T) {
	userID := uuid.New()
	companyID := uuid.New()
	claims := validClaims(userID, companyID)
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	token := signTestToken(t, testSigningKey, claims)

	_, err := ParseToken(token, testSigningKey, true)
	require.Error(t, err)
}

func TestParseToken_VerificationDisabled(t *testing.T) {
	// Local development runs without the platform's signing key. The payload
	// must still parse into valid claims.
	userID := uuid.New()
	companyID := uuid.New()
	token := signTestToken(t, "any-key-at-all", validClaims(userID, companyID))

	claims, err := ParseToken(token, "", false)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, companyID, claims.CompanyID)
}

func TestParseToken_InvalidSubject(t *testing.T) {
	claims := validClaims(uuid.New(), uuid.New())
	claims["sub"] = "not-a-uuid"
	token := signTestToken(t, testSigningKey, claims)

	_, err := ParseToken(token, testSigningKey, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sub claim")
}

func TestParseToken_MissingCompanyID(t *testing.T) {
	claims := validClaims(uuid.New(), uuid.New())
	delete(claims, "company_id")
	token := signTestToken(t, testSigningKey, claims)

	_, err := ParseToken(token, testSigningKey, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid company_id claim")
}

func TestParseToken_Garbage(t *testing.T) {
	_, err := ParseToken("not.a.token", testSigningKey, true)
	require.Error(t, err)
}

func TestClaimsContextRoundTrip(t *testing.T) {
	claims := &Claims{UserID: uuid.New(), CompanyID: uuid.New()}

	ctx := SetClaims(context.Background(), claims)
	got, ok := GetClaims(ctx)
	require.True(t, ok)
	assert.Equal(t, claims, got)

	_, ok = GetClaims(context.Background())
	assert.False(t, ok)
}
