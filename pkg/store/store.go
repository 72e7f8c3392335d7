// Package store defines the persistence contracts used by the services.
//
// Every method that touches tenant-owned data takes a tenant.Scope and must
// call Scope.Validate before anything else. Identity lookups used while
// resolving a principal (user by id or email, sessions) are unscoped because no
// tenant is known yet.
package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// CompanyStore persists companies.
type CompanyStore interface {
	// Create inserts a company. Only registration calls it.
	Create(ctx context.Context, c *domain.Company) error
	// Get returns the scope's own company.
	Get(ctx context.Context, scope tenant.Scope) (*domain.Company, error)
}

// UserStore persists users.
type UserStore interface {
	// Create inserts a user. A duplicate email returns domain.ErrUserAlreadyExists.
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Get returns a user of the scope's company.
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*domain.User, error)
}

// PasswordStore persists password credentials.
type PasswordStore interface {
	Create(ctx context.Context, p *domain.UserPassword) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserPassword, error)
}

// ProjectStore persists projects. Every query is restricted to the scope's company.
type ProjectStore interface {
	List(ctx context.Context, scope tenant.Scope) ([]*domain.Project, error)
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*domain.Project, error)
	Create(ctx context.Context, scope tenant.Scope, p *domain.Project) error
	// Update writes name, description and status. The company never changes.
	Update(ctx context.Context, scope tenant.Scope, p *domain.Project) error
	// Delete removes the project with its tasks and memberships.
	Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
}

// TaskStore persists tasks. Tasks carry no company; every query joins the
// parent project and filters on its company.
type TaskStore interface {
	ListByProject(ctx context.Context, scope tenant.Scope, projectID uuid.UUID) ([]*domain.Task, error)
	Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*domain.Task, error)
	// Create returns domain.ErrProjectNotFound when the parent project is not in scope.
	Create(ctx context.Context, scope tenant.Scope, t *domain.Task) error
	Update(ctx context.Context, scope tenant.Scope, t *domain.Task) error
	Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error
}

// MembershipStore persists project memberships.
type MembershipStore interface {
	// Add returns domain.ErrMembershipExists for a duplicate (project, user).
	Add(ctx context.Context, scope tenant.Scope, m *domain.ProjectMembership) error
	// Get returns nil, nil when the user is not a member.
	Get(ctx context.Context, scope tenant.Scope, projectID, userID uuid.UUID) (*domain.ProjectMembership, error)
	IsMember(ctx context.Context, scope tenant.Scope, projectID, userID uuid.UUID) (bool, error)
	ListByProject(ctx context.Context, scope tenant.Scope, projectID uuid.UUID) ([]*domain.ProjectMember, error)
}

// SessionStore persists issued sessions.
type SessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	// Revoke marks the session revoked. Revoking twice returns domain.ErrSessionNotFound.
	Revoke(ctx context.Context, id uuid.UUID) error
}

// Repos groups the stores bound to one connection or transaction.
type Repos struct {
	Companies   CompanyStore
	Users       UserStore
	Passwords   PasswordStore
	Projects    ProjectStore
	Tasks       TaskStore
	Memberships MembershipStore
	Sessions    SessionStore
}

// Transactor runs fn against stores bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Repos) error) error
}

// Backend is a complete storage implementation.
type Backend interface {
	Transactor
	Repos() Repos
	Ping(ctx context.Context) error
	// TableCount reports how many tables (or collections) the backend holds.
	TableCount(ctx context.Context) (int, error)
	Close() error
}
