package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// MembershipsRepository handles project membership persistence.
type MembershipsRepository struct {
	q Querier
}

// NewMembershipsRepository creates a new memberships repository.
func NewMembershipsRepository(q Querier) *MembershipsRepository {
	return &MembershipsRepository{q: q}
}

// Add creates a membership. Both the project and the user must belong to the
// scope's company.
func (r *MembershipsRepository) Add(ctx context.Context, scope tenant.Scope, m *domain.ProjectMembership) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	var projectOK, userOK bool
	check := `
		SELECT
			EXISTS(SELECT 1 FROM projects WHERE id = $1 AND company_id = $3),
			EXISTS(SELECT 1 FROM users WHERE id = $2 AND company_id = $3)
	`
	if err := r.q.QueryRowContext(ctx, check, m.ProjectID, m.UserID, scope.CompanyID()).Scan(&projectOK, &userOK); err != nil {
		return err
	}
	if !projectOK {
		return domain.ErrProjectNotFound
	}
	if !userOK {
		return domain.ErrUserNotFound
	}

	query := `
		INSERT INTO project_members (project_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.q.ExecContext(ctx, query, m.ProjectID, m.UserID, m.Role, m.CreatedAt)
	if isUniqueViolation(err, "project_members_pkey") {
		return domain.ErrMembershipExists
	}
	return err
}

// Get retrieves a user's membership on a project. Absence is not an error.
func (r *MembershipsRepository) Get(ctx context.Context, scope tenant.Scope, projectID, userID uuid.UUID) (*domain.ProjectMembership, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT m.project_id, m.user_id, m.role, m.created_at
		FROM project_members m
		INNER JOIN projects p ON p.id = m.project_id
		WHERE m.project_id = $1 AND m.user_id = $2 AND p.company_id = $3
	`
	var m domain.ProjectMembership
	err := r.q.QueryRowContext(ctx, query, projectID, userID, scope.CompanyID()).Scan(
		&m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// IsMember reports whether the user has any role on the project.
func (r *MembershipsRepository) IsMember(ctx context.Context, scope tenant.Scope, projectID, userID uuid.UUID) (bool, error) {
	m, err := r.Get(ctx, scope, projectID, userID)
	return m != nil, err
}

// ListByProject retrieves the members of a project with their profile.
func (r *MembershipsRepository) ListByProject(ctx context.Context, scope tenant.Scope, projectID uuid.UUID) ([]*domain.ProjectMember, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT m.project_id, m.user_id, m.role, m.created_at, u.name, u.email
		FROM project_members m
		INNER JOIN projects p ON p.id = m.project_id
		INNER JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1 AND p.company_id = $2
		ORDER BY m.created_at ASC, m.user_id ASC
	`
	rows, err := r.q.QueryContext(ctx, query, projectID, scope.CompanyID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []*domain.ProjectMember{}
	for rows.Next() {
		var m domain.ProjectMember
		err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt, &m.Name, &m.Email)
		if err != nil {
			return nil, err
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}
