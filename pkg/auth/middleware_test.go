package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRequireAuth_MissingHeader(t *testing.T) {
	m := NewMiddleware(testSigningKey, true, zap.NewNop())

	called := false
	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing_token")
	assert.False(t, called)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	m := NewMiddleware(testSigningKey, true, zap.NewNop())

	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_token")
}

func TestRequireAuth_ValidToken(t *testing.T) {
	m := NewMiddleware(testSigningKey, true, zap.NewNop())
	userID := uuid.New()
	companyID := uuid.New()
	token := signTestToken(t, testSigningKey, validClaims(userID, companyID))

	var gotClaims *Claims
	handler := m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = GetClaims(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, userID, gotClaims.UserID)
	assert.Equal(t, companyID, gotClaims.CompanyID)
}

func TestRequireAuthWithCompany_Match(t *testing.T) {
	m := NewMiddleware(testSigningKey, true, zap.NewNop())
	companyID := uuid.New()
	token := signTestToken(t, testSigningKey, validClaims(uuid.New(), companyID))

	called := false
	handler := m.RequireAuthWithCompany("cid")(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodGet, "/api/companies/"+companyID.String()+"/sessions", nil)
	req.SetPathValue("cid", companyID.String())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestRequireAuthWithCompany_Mismatch(t *testing.T) {
	m := NewMiddleware(testSigningKey, true, zap.NewNop())
	token := signTestToken(t, testSigningKey, validClaims(uuid.New(), uuid.New()))

	otherCompany := uuid.New()
	handler := m.RequireAuthWithCompany("cid")(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/companies/"+otherCompany.String()+"/sessions", nil)
	req.SetPathValue("cid", otherCompany.String())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "forbidden")
}

func TestRequireAuthWithCompany_InvalidCompanyID(t *testing.T) {
	m := NewMiddleware(testSigningKey, true, zap.NewNop())
	token := signTestToken(t, testSigningKey, validClaims(uuid.New(), uuid.New()))

	handler := m.RequireAuthWithCompany("cid")(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/companies/abc/sessions", nil)
	req.SetPathValue("cid", "abc")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_company_id")
}
