// Package tenant restricts data access to the requesting principal's company.
//
// A Scope can only be built from a resolved principal that belongs to a
// company. Every tenant-scoped store method takes a Scope and validates it
// before touching data, so a code path that forgets to obtain one fails with
// ErrUnauthenticated instead of reading across tenants.
package tenant

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
)

// Scope is the tenant context of a request.
type Scope struct {
	principal domain.Principal
}

// NewScope builds a scope for the given principal.
// Returns domain.ErrUnauthenticated when p is nil and domain.ErrNoCompany when
// p has no company.
func NewScope(p *domain.Principal) (Scope, error) {
	if p == nil || p.UserID == uuid.Nil {
		return Scope{}, domain.ErrUnauthenticated
	}
	if !p.HasCompany() {
		return Scope{}, domain.ErrNoCompany
	}
	return Scope{principal: *p}, nil
}

// Validate fails closed for a zero Scope.
func (s Scope) Validate() error {
	if s.principal.UserID == uuid.Nil {
		return domain.ErrUnauthenticated
	}
	if s.principal.CompanyID == uuid.Nil {
		return domain.ErrNoCompany
	}
	return nil
}

// CompanyID returns the company every query is restricted to.
func (s Scope) CompanyID() uuid.UUID {
	return s.principal.CompanyID
}

// UserID returns the acting user.
func (s Scope) UserID() uuid.UUID {
	return s.principal.UserID
}

// Principal returns a copy of the acting principal.
func (s Scope) Principal() domain.Principal {
	return s.principal
}

// Owns reports whether companyID is this scope's company.
func (s Scope) Owns(companyID uuid.UUID) bool {
	return companyID != uuid.Nil && companyID == s.principal.CompanyID
}

// Stamp resolves the company_id for a new record. An unset value takes the
// scope's company; a client-supplied value must match it.
func (s Scope) Stamp(supplied uuid.UUID) (uuid.UUID, error) {
	if err := s.Validate(); err != nil {
		return uuid.Nil, err
	}
	if supplied == uuid.Nil {
		return s.principal.CompanyID, nil
	}
	if supplied != s.principal.CompanyID {
		return uuid.Nil, domain.NewValidationError("company_id", "does not match your company")
	}
	return supplied, nil
}

type contextKey string

const (
	principalKey contextKey = "principal"
	scopeKey     contextKey = "tenant_scope"
)

// WithPrincipal stores the resolved principal in ctx.
func WithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal stored by WithPrincipal.
func PrincipalFromContext(ctx context.Context) (*domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*domain.Principal)
	return p, ok && p != nil
}

// FromContext builds a scope from the principal in ctx.
func FromContext(ctx context.Context) (Scope, error) {
	p, _ := PrincipalFromContext(ctx)
	return NewScope(p)
}

// WithScope stores a validated scope in ctx.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// ScopeFromContext returns the scope stored by WithScope.
func ScopeFromContext(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(scopeKey).(Scope)
	if !ok {
		return Scope{}, domain.ErrUnauthenticated
	}
	return s, s.Validate()
}
