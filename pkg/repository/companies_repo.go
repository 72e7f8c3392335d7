package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// CompaniesRepository handles company persistence.
type CompaniesRepository struct {
	q Querier
}

// NewCompaniesRepository creates a new companies repository.
func NewCompaniesRepository(q Querier) *CompaniesRepository {
	return &CompaniesRepository{q: q}
}

// Create creates a new company.
func (r *CompaniesRepository) Create(ctx context.Context, company *domain.Company) error {
	query := `
		INSERT INTO companies (id, name, slug, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.q.ExecContext(ctx, query,
		company.ID,
		company.Name,
		company.Slug,
		company.CreatedAt,
		company.UpdatedAt,
	)
	if isUniqueViolation(err, "companies_slug_key") {
		return domain.ErrCompanySlugTaken
	}
	return err
}

// Get retrieves the scope's own company.
func (r *CompaniesRepository) Get(ctx context.Context, scope tenant.Scope) (*domain.Company, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, slug, created_at, updated_at
		FROM companies
		WHERE id = $1
	`

	var company domain.Company
	err := r.q.QueryRowContext(ctx, query, scope.CompanyID()).Scan(
		&company.ID,
		&company.Name,
		&company.Slug,
		&company.CreatedAt,
		&company.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, err
	}

	return &company, nil
}
