package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// projectInScope mirrors the Postgres predicate `company_id = $scope`.
func projectInScope(st *state, scope tenant.Scope, id uuid.UUID) (domain.Project, bool) {
	p, ok := st.projects[id]
	if !ok || !scope.Owns(p.CompanyID) {
		return domain.Project{}, false
	}
	return p, true
}

type projects struct {
	db accessor
}

func (r *projects) List(ctx context.Context, scope tenant.Scope) ([]*domain.Project, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	out := []*domain.Project{}
	err := r.db.read(func(st *state) error {
		for _, p := range st.projects {
			if scope.Owns(p.CompanyID) {
				p := p
				out = append(out, &p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

func (r *projects) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*domain.Project, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out *domain.Project
	err := r.db.read(func(st *state) error {
		p, ok := projectInScope(st, scope, id)
		if !ok {
			return domain.ErrProjectNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *projects) Create(ctx context.Context, scope tenant.Scope, p *domain.Project) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	if !scope.Owns(p.CompanyID) {
		return domain.ErrForbidden
	}
	return r.db.write(func(st *state) error {
		if _, ok := st.companies[p.CompanyID]; !ok {
			return domain.ErrCompanyNotFound
		}
		st.projects[p.ID] = *p
		return nil
	})
}

func (r *projects) Update(ctx context.Context, scope tenant.Scope, p *domain.Project) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	return r.db.write(func(st *state) error {
		existing, ok := projectInScope(st, scope, p.ID)
		if !ok {
			return domain.ErrProjectNotFound
		}
		existing.Name = p.Name
		existing.Description = p.Description
		existing.Status = p.Status
		existing.UpdatedAt = p.UpdatedAt
		st.projects[p.ID] = existing
		return nil
	})
}

func (r *projects) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	return r.db.write(func(st *state) error {
		if _, ok := projectInScope(st, scope, id); !ok {
			return domain.ErrProjectNotFound
		}
		delete(st.projects, id)
		for tid, t := range st.tasks {
			if t.ProjectID == id {
				delete(st.tasks, tid)
			}
		}
		for key := range st.memberships {
			if key.projectID == id {
				delete(st.memberships, key)
			}
		}
		return nil
	})
}

type tasks struct {
	db accessor
}

func (r *tasks) ListByProject(ctx context.Context, scope tenant.Scope, projectID uuid.UUID) ([]*domain.Task, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	out := []*domain.Task{}
	err := r.db.read(func(st *state) error {
		if _, ok := projectInScope(st, scope, projectID); !ok {
			return nil
		}
		for _, t := range st.tasks {
			if t.ProjectID == projectID {
				t := copyTask(t)
				out = append(out, &t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}

// taskInScope mirrors the Postgres join on the parent project's company.
func taskInScope(st *state, scope tenant.Scope, id uuid.UUID) (domain.Task, bool) {
	t, ok := st.tasks[id]
	if !ok {
		return domain.Task{}, false
	}
	if _, ok := projectInScope(st, scope, t.ProjectID); !ok {
		return domain.Task{}, false
	}
	return t, true
}

func (r *tasks) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*domain.Task, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out *domain.Task
	err := r.db.read(func(st *state) error {
		t, ok := taskInScope(st, scope, id)
		if !ok {
			return domain.ErrTaskNotFound
		}
		t = copyTask(t)
		out = &t
		return nil
	})
	return out, err
}

func (r *tasks) Create(ctx context.Context, scope tenant.Scope, t *domain.Task) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	return r.db.write(func(st *state) error {
		if _, ok := projectInScope(st, scope, t.ProjectID); !ok {
			return domain.ErrProjectNotFound
		}
		st.tasks[t.ID] = copyTask(*t)
		return nil
	})
}

func (r *tasks) Update(ctx context.Context, scope tenant.Scope, t *domain.Task) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	return r.db.write(func(st *state) error {
		existing, ok := taskInScope(st, scope, t.ID)
		if !ok {
			return domain.ErrTaskNotFound
		}
		existing.Title = t.Title
		existing.Description = t.Description
		existing.Status = t.Status
		existing.AssignedTo = t.AssignedTo
		existing.DueDate = t.DueDate
		existing.UpdatedAt = t.UpdatedAt
		st.tasks[t.ID] = copyTask(existing)
		return nil
	})
}

func (r *tasks) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	return r.db.write(func(st *state) error {
		if _, ok := taskInScope(st, scope, id); !ok {
			return domain.ErrTaskNotFound
		}
		delete(st.tasks, id)
		return nil
	})
}

type memberships struct {
	db accessor
}

func (r *memberships) Add(ctx context.Context, scope tenant.Scope, m *domain.ProjectMembership) error {
	if err := scope.Validate(); err != nil {
		return err
	}
	return r.db.write(func(st *state) error {
		if _, ok := projectInScope(st, scope, m.ProjectID); !ok {
			return domain.ErrProjectNotFound
		}
		u, ok := st.users[m.UserID]
		if !ok || !scope.Owns(u.CompanyID) {
			return domain.ErrUserNotFound
		}
		key := membershipKey{projectID: m.ProjectID, userID: m.UserID}
		if _, exists := st.memberships[key]; exists {
			return domain.ErrMembershipExists
		}
		st.memberships[key] = *m
		return nil
	})
}

func (r *memberships) Get(ctx context.Context, scope tenant.Scope, projectID, userID uuid.UUID) (*domain.ProjectMembership, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out *domain.ProjectMembership
	err := r.db.read(func(st *state) error {
		if _, ok := projectInScope(st, scope, projectID); !ok {
			return nil
		}
		if m, ok := st.memberships[membershipKey{projectID: projectID, userID: userID}]; ok {
			out = &m
		}
		return nil
	})
	return out, err
}

func (r *memberships) IsMember(ctx context.Context, scope tenant.Scope, projectID, userID uuid.UUID) (bool, error) {
	m, err := r.Get(ctx, scope, projectID, userID)
	return m != nil, err
}

func (r *memberships) ListByProject(ctx context.Context, scope tenant.Scope, projectID uuid.UUID) ([]*domain.ProjectMember, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	out := []*domain.ProjectMember{}
	err := r.db.read(func(st *state) error {
		if _, ok := projectInScope(st, scope, projectID); !ok {
			return nil
		}
		for key, m := range st.memberships {
			if key.projectID != projectID {
				continue
			}
			u := st.users[key.userID]
			out = append(out, &domain.ProjectMember{ProjectMembership: m, Name: u.Name, Email: u.Email})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UserID.String() < out[j].UserID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, err
}
