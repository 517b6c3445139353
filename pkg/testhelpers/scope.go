package testhelpers

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/verdantiq/esg-engine/pkg/database"
)

// ScopedContext returns a context carrying a company-scoped connection, the
// way the request middleware builds one. The scope is released when the test
// finishes.
func ScopedContext(t *testing.T, db *database.DB, companyID uuid.UUID) context.Context {
	t.Helper()

	scope, err := db.WithCompany(context.Background(), companyID)
	if err != nil {
		t.Fatalf("Failed to acquire company scope: %v", err)
	}
	t.Cleanup(scope.Close)

	return database.SetCompanyScope(context.Background(), scope)
}

// CreateCompany inserts a company row and returns its ID. Company rows are
// owned by the surrounding platform in production; tests seed them directly.
func CreateCompany(t *testing.T, db *database.DB, name, industry string, employees int) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Pool.Exec(context.Background(), `
		INSERT INTO esg_companies (id, name, industry, employee_count, region)
		VALUES ($1, $2, $3, $4, 'US')`,
		id, name, industry, employees)
	if err != nil {
		t.Fatalf("Failed to create test company: %v", err)
	}
	return id
}
