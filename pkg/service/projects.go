package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/authz"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/store"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// ProjectInput carries the writable project fields. Nil fields are left
// unchanged on update. CompanyID is optional and must match the caller's
// company when set.
type ProjectInput struct {
	CompanyID   uuid.UUID
	Name        *string
	Description *string
	Status      *domain.ProjectStatus
}

// ProjectDetail is a project with its members, its tasks and their assignees.
type ProjectDetail struct {
	Project   *domain.Project
	Members   []*domain.ProjectMember
	Tasks     []*domain.Task
	Assignees map[uuid.UUID]*domain.User
}

// ProjectService manages projects within the caller's company.
type ProjectService struct {
	tx     store.Transactor
	repos  store.Repos
	logger *slog.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(tx store.Transactor, repos store.Repos, logger *slog.Logger) *ProjectService {
	return &ProjectService{tx: tx, repos: repos, logger: orDefault(logger)}
}

// List returns the company's projects with their members.
func (s *ProjectService) List(ctx context.Context, scope tenant.Scope) ([]*ProjectDetail, error) {
	projects, err := s.repos.Projects.List(ctx, scope)
	if err != nil {
		return nil, err
	}

	out := make([]*ProjectDetail, 0, len(projects))
	for _, p := range projects {
		members, err := s.repos.Memberships.ListByProject(ctx, scope, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, &ProjectDetail{Project: p, Members: members})
	}
	return out, nil
}

// Get returns a project with its members and tasks.
func (s *ProjectService) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*ProjectDetail, error) {
	project, err := s.authorize(ctx, scope, authz.ActionView, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, scope, project)
}

// Create inserts a project and makes the caller its admin in one transaction.
func (s *ProjectService) Create(ctx context.Context, scope tenant.Scope, in ProjectInput) (*ProjectDetail, error) {
	companyID, err := scope.Stamp(in.CompanyID)
	if err != nil {
		return nil, err
	}
	if res := authz.Check(scope.Principal(), authz.ActionCreate, authz.NewProject()); !res.Allowed() {
		return nil, denied(ctx, s.logger, scope, authz.ActionCreate, authz.KindProject, uuid.Nil, res, domain.ErrProjectNotFound)
	}

	verr := &domain.ValidationError{}
	var name string
	if in.Name == nil {
		verr.Add("name", "is required")
	} else {
		name = requiredText(verr, "name", *in.Name)
	}
	status := domain.ProjectStatusActive
	if in.Status != nil {
		status = *in.Status
		if !status.Valid() {
			verr.Add("status", "must be one of active, archived, completed")
		}
	}
	if verr.HasErrors() {
		return nil, verr
	}

	now := time.Now().UTC()
	project := &domain.Project{
		ID:        uuid.New(),
		CompanyID: companyID,
		Name:      name,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Description != nil {
		project.Description = strings.TrimSpace(*in.Description)
	}

	err = s.tx.WithinTx(ctx, func(r store.Repos) error {
		if err := r.Projects.Create(ctx, scope, project); err != nil {
			return err
		}
		return r.Memberships.Add(ctx, scope, &domain.ProjectMembership{
			ProjectID: project.ID,
			UserID:    scope.UserID(),
			Role:      domain.MemberRoleAdmin,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, &domain.TransactionError{Op: "create project", Err: err}
	}

	s.logger.InfoContext(ctx, "project created", "project_id", project.ID, "company_id", companyID, "user_id", scope.UserID())
	return s.detail(ctx, scope, project)
}

// Update changes a project's name, description or status. Only members may update.
func (s *ProjectService) Update(ctx context.Context, scope tenant.Scope, id uuid.UUID, in ProjectInput) (*ProjectDetail, error) {
	project, err := s.authorize(ctx, scope, authz.ActionUpdate, id)
	if err != nil {
		return nil, err
	}

	verr := &domain.ValidationError{}
	if in.CompanyID != uuid.Nil && in.CompanyID != project.CompanyID {
		verr.Add("company_id", "cannot be changed")
	}
	if in.Name != nil {
		project.Name = requiredText(verr, "name", *in.Name)
	}
	if in.Description != nil {
		project.Description = strings.TrimSpace(*in.Description)
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			verr.Add("status", "must be one of active, archived, completed")
		}
		project.Status = *in.Status
	}
	if verr.HasErrors() {
		return nil, verr
	}

	project.UpdatedAt = time.Now().UTC()
	if err := s.repos.Projects.Update(ctx, scope, project); err != nil {
		return nil, err
	}
	return s.detail(ctx, scope, project)
}

// Delete removes a project with its tasks and memberships. Only admins may delete.
func (s *ProjectService) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if _, err := s.authorize(ctx, scope, authz.ActionDelete, id); err != nil {
		return err
	}
	if err := s.repos.Projects.Delete(ctx, scope, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "project deleted", "project_id", id, "company_id", scope.CompanyID(), "user_id", scope.UserID())
	return nil
}

// authorize loads the project through the scope and checks action against it.
func (s *ProjectService) authorize(ctx context.Context, scope tenant.Scope, action authz.Action, id uuid.UUID) (*domain.Project, error) {
	project, err := s.repos.Projects.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	membership, err := s.repos.Memberships.Get(ctx, scope, id, scope.UserID())
	if err != nil {
		return nil, err
	}
	if res := authz.Check(scope.Principal(), action, authz.ProjectResource(project, membership)); !res.Allowed() {
		return nil, denied(ctx, s.logger, scope, action, authz.KindProject, id, res, domain.ErrProjectNotFound)
	}
	return project, nil
}

func (s *ProjectService) detail(ctx context.Context, scope tenant.Scope, project *domain.Project) (*ProjectDetail, error) {
	members, err := s.repos.Memberships.ListByProject(ctx, scope, project.ID)
	if err != nil {
		return nil, err
	}
	tasks, err := s.repos.Tasks.ListByProject(ctx, scope, project.ID)
	if err != nil {
		return nil, err
	}
	assignees, err := loadAssignees(ctx, s.repos.Users, scope, tasks)
	if err != nil {
		return nil, err
	}
	return &ProjectDetail{Project: project, Members: members, Tasks: tasks, Assignees: assignees}, nil
}
