package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verdantiq/esg-engine/pkg/apperrors"
	"github.com/verdantiq/esg-engine/pkg/database"
	"github.com/verdantiq/esg-engine/pkg/models"
)

// CompanyRepository reads the company profile used for prompts, guidance
// and benchmarking. Companies are provisioned by the platform, so this
// repository is read-only.
type CompanyRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
}

type companyRepository struct{}

// NewCompanyRepository creates a new CompanyRepository.
func NewCompanyRepository() CompanyRepository {
	return &companyRepository{}
}

var _ CompanyRepository = (*companyRepository)(nil)

func (r *companyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	scope, ok := database.GetCompanyScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no company scope in context")
	}

	query := `
		SELECT id, name, industry, employee_count, region, has_facilities, has_vehicles, created_at
		FROM esg_companies WHERE id = $1`

	var c models.Company
	err := scope.Conn.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Industry, &c.EmployeeCount, &c.Region,
		&c.HasFacilities, &c.HasVehicles, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	return &c, nil
}
