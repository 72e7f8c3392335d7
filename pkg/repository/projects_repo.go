package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// ProjectsRepository handles project persistence. Every statement carries the
// scope's company_id.
type ProjectsRepository struct {
	q Querier
}

// NewProjectsRepository creates a new projects repository.
func NewProjectsRepository(q Querier) *ProjectsRepository {
	return &ProjectsRepository{q: q}
}

const projectColumns = `id, company_id, name, description, status, created_at, updated_at`

// List retrieves all projects of the scope's company.
func (r *ProjectsRepository) List(ctx context.Context, scope tenant.Scope) ([]*domain.Project, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE company_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.q.QueryContext(ctx, query, scope.CompanyID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []*domain.Project{}
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// Get retrieves a project of the scope's company.
func (r *ProjectsRepository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*domain.Project, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE id = $1 AND company_id = $2
	`
	var p domain.Project
	err := r.q.QueryRowContext(ctx, query, id, scope.CompanyID()).Scan(
		&p.ID, &p.CompanyID, &p.Name, &p.Description, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a project. Its company must be the scope's.
func (r *ProjectsRepository) Create(ctx context.Context, scope tenant.Scope, p *domain.Project) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if !scope.Owns(p.CompanyID) {
		return domain.ErrForbidden
	}

	query := `
		INSERT INTO projects (id, company_id, name, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.q.ExecContext(ctx, query,
		p.ID, p.CompanyID, p.Name, p.Description, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// Update writes the mutable fields of a project.
func (r *ProjectsRepository) Update(ctx context.Context, scope tenant.Scope, p *domain.Project) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE projects
		SET name = $3, description = $4, status = $5, updated_at = $6
		WHERE id = $1 AND company_id = $2
	`
	result, err := r.q.ExecContext(ctx, query,
		p.ID, scope.CompanyID(), p.Name, p.Description, p.Status, p.UpdatedAt,
	)
	return expectOne(result, err, domain.ErrProjectNotFound)
}

// Delete removes a project. Tasks and memberships go with it through
// ON DELETE CASCADE.
func (r *ProjectsRepository) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	query := `DELETE FROM projects WHERE id = $1 AND company_id = $2`
	result, err := r.q.ExecContext(ctx, query, id, scope.CompanyID())
	return expectOne(result, err, domain.ErrProjectNotFound)
}

// expectOne maps a statement that touched no rows to notFound.
func expectOne(result sql.Result, err error, notFound error) error {
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return notFound
	}
	return nil
}
