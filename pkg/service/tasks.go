package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/authz"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/store"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// TaskInput carries the writable task fields. Nil fields are left unchanged
// on update.
type TaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
}

// TaskService manages tasks. A task's tenant is its project's company.
type TaskService struct {
	repos  store.Repos
	logger *slog.Logger
}

// NewTaskService creates a new task service.
func NewTaskService(repos store.Repos, logger *slog.Logger) *TaskService {
	return &TaskService{repos: repos, logger: orDefault(logger)}
}

// ListByProject returns the tasks of a project the caller can view.
func (s *TaskService) ListByProject(ctx context.Context, scope tenant.Scope, projectID uuid.UUID) ([]*domain.Task, error) {
	project, err := s.repos.Projects.Get(ctx, scope, projectID)
	if err != nil {
		return nil, err
	}
	if res := authz.Check(scope.Principal(), authz.ActionView, authz.ProjectResource(project, nil)); !res.Allowed() {
		return nil, denied(ctx, s.logger, scope, authz.ActionView, authz.KindProject, projectID, res, domain.ErrProjectNotFound)
	}
	return s.repos.Tasks.ListByProject(ctx, scope, projectID)
}

// Get returns a task.
func (s *TaskService) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*domain.Task, error) {
	task, err := s.authorize(ctx, scope, authz.ActionView, id)
	return task, err
}

// Create adds a task to a project of the caller's company.
func (s *TaskService) Create(ctx context.Context, scope tenant.Scope, projectID uuid.UUID, in TaskInput) (*domain.Task, error) {
	project, err := s.repos.Projects.Get(ctx, scope, projectID)
	if err != nil {
		return nil, err
	}
	if res := authz.Check(scope.Principal(), authz.ActionCreate, authz.ParentProject(project)); !res.Allowed() {
		return nil, denied(ctx, s.logger, scope, authz.ActionCreate, authz.KindTask, projectID, res, domain.ErrProjectNotFound)
	}

	now := time.Now().UTC()
	task := &domain.Task{
		ID:        uuid.New(),
		ProjectID: project.ID,
		Status:    domain.TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	verr := &domain.ValidationError{}
	if in.Title == nil {
		verr.Add("title", "is required")
	}
	if err := s.apply(ctx, scope, task, in, verr); err != nil {
		return nil, err
	}
	if verr.HasErrors() {
		return nil, verr
	}

	if err := s.repos.Tasks.Create(ctx, scope, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Update changes a task. Only members of the task's project may update.
func (s *TaskService) Update(ctx context.Context, scope tenant.Scope, id uuid.UUID, in TaskInput) (*domain.Task, error) {
	task, err := s.authorize(ctx, scope, authz.ActionUpdate, id)
	if err != nil {
		return nil, err
	}

	verr := &domain.ValidationError{}
	if err := s.apply(ctx, scope, task, in, verr); err != nil {
		return nil, err
	}
	if verr.HasErrors() {
		return nil, verr
	}

	task.UpdatedAt = time.Now().UTC()
	if err := s.repos.Tasks.Update(ctx, scope, task); err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task. Any member of the task's project may delete it.
func (s *TaskService) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if _, err := s.authorize(ctx, scope, authz.ActionDelete, id); err != nil {
		return err
	}
	return s.repos.Tasks.Delete(ctx, scope, id)
}

// Assignees returns the users assigned to tasks, keyed by id.
func (s *TaskService) Assignees(ctx context.Context, scope tenant.Scope, tasks ...*domain.Task) (map[uuid.UUID]*domain.User, error) {
	return loadAssignees(ctx, s.repos.Users, scope, tasks)
}

// loadAssignees looks up each distinct assignee through the scope. A user
// that can no longer be found is left out.
func loadAssignees(ctx context.Context, users store.UserStore, scope tenant.Scope, tasks []*domain.Task) (map[uuid.UUID]*domain.User, error) {
	out := make(map[uuid.UUID]*domain.User)
	for _, t := range tasks {
		if t.AssignedTo == nil {
			continue
		}
		if _, seen := out[*t.AssignedTo]; seen {
			continue
		}
		u, err := users.Get(ctx, scope, *t.AssignedTo)
		if errors.Is(err, domain.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, nil
}

// authorize loads the task and its project through the scope and checks action.
func (s *TaskService) authorize(ctx context.Context, scope tenant.Scope, action authz.Action, id uuid.UUID) (*domain.Task, error) {
	task, err := s.repos.Tasks.Get(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	project, err := s.repos.Projects.Get(ctx, scope, task.ProjectID)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	var membership *domain.ProjectMembership
	if action != authz.ActionView {
		membership, err = s.repos.Memberships.Get(ctx, scope, project.ID, scope.UserID())
		if err != nil {
			return nil, err
		}
	}

	if res := authz.Check(scope.Principal(), action, authz.TaskResource(task, project, membership)); !res.Allowed() {
		return nil, denied(ctx, s.logger, scope, action, authz.KindTask, id, res, domain.ErrTaskNotFound)
	}
	return task, nil
}

// apply copies the set fields of in onto task, recording validation failures
// in verr. It returns an error only when a lookup fails.
func (s *TaskService) apply(ctx context.Context, scope tenant.Scope, task *domain.Task, in TaskInput, verr *domain.ValidationError) error {
	if in.Title != nil {
		task.Title = requiredText(verr, "title", *in.Title)
	}
	if in.Description != nil {
		task.Description = strings.TrimSpace(*in.Description)
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			verr.Add("status", "must be one of pending, in_progress, completed")
		}
		task.Status = *in.Status
	}
	if in.DueDate != nil {
		due := *in.DueDate
		task.DueDate = &due
	}
	if in.AssignedTo != nil {
		assignee := *in.AssignedTo
		if _, err := s.repos.Users.Get(ctx, scope, assignee); err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				return err
			}
			verr.Add("assigned_to", "must be a user of your company")
		}
		task.AssignedTo = &assignee
	}
	return nil
}
