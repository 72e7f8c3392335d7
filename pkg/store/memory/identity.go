package memory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

type companies struct {
	db accessor
}

func (r *companies) Create(ctx context.Context, c *domain.Company) error {
	return r.db.write(func(st *state) error {
		for _, existing := range st.companies {
			if existing.Slug == c.Slug {
				return domain.ErrCompanySlugTaken
			}
		}
		st.companies[c.ID] = *c
		return nil
	})
}

func (r *companies) Get(ctx context.Context, scope tenant.Scope) (*domain.Company, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out *domain.Company
	err := r.db.read(func(st *state) error {
		c, ok := st.companies[scope.CompanyID()]
		if !ok {
			return domain.ErrCompanyNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

type users struct {
	db accessor
}

func (r *users) Create(ctx context.Context, u *domain.User) error {
	return r.db.write(func(st *state) error {
		for _, existing := range st.users {
			if existing.Email == u.Email {
				return domain.ErrUserAlreadyExists
			}
		}
		if u.CompanyID != uuid.Nil {
			if _, ok := st.companies[u.CompanyID]; !ok {
				return domain.ErrCompanyNotFound
			}
		}
		st.users[u.ID] = *u
		return nil
	})
}

func (r *users) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var out *domain.User
	err := r.db.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *users) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.db.read(func(st *state) error {
		for _, u := range st.users {
			if u.Email == email {
				u := u
				out = &u
				return nil
			}
		}
		return domain.ErrUserNotFound
	})
	return out, err
}

func (r *users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *users) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*domain.User, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out *domain.User
	err := r.db.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok || !scope.Owns(u.CompanyID) {
			return domain.ErrUserNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

type passwords struct {
	db accessor
}

func (r *passwords) Create(ctx context.Context, p *domain.UserPassword) error {
	return r.db.write(func(st *state) error {
		if _, ok := st.users[p.UserID]; !ok {
			return domain.ErrUserNotFound
		}
		st.passwords[p.UserID] = *p
		return nil
	})
}

func (r *passwords) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserPassword, error) {
	var out *domain.UserPassword
	err := r.db.read(func(st *state) error {
		p, ok := st.passwords[userID]
		if !ok {
			return domain.ErrUserNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

type sessions struct {
	db accessor
}

func (r *sessions) Create(ctx context.Context, s *domain.Session) error {
	return r.db.write(func(st *state) error {
		if _, ok := st.users[s.UserID]; !ok {
			return domain.ErrUserNotFound
		}
		st.sessions[s.ID] = copySession(*s)
		return nil
	})
}

func (r *sessions) GetByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var out *domain.Session
	err := r.db.read(func(st *state) error {
		s, ok := st.sessions[id]
		if !ok {
			return domain.ErrSessionNotFound
		}
		s = copySession(s)
		out = &s
		return nil
	})
	return out, err
}

func (r *sessions) Revoke(ctx context.Context, id uuid.UUID) error {
	return r.db.write(func(st *state) error {
		s, ok := st.sessions[id]
		if !ok || s.RevokedAt != nil {
			return domain.ErrSessionNotFound
		}
		now := time.Now()
		s.RevokedAt = &now
		st.sessions[id] = s
		return nil
	})
}
