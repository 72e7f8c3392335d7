package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// TasksRepository handles task persistence. Tasks have no company column, so
// every statement joins projects and filters on p.company_id.
type TasksRepository struct {
	q Querier
}

// NewTasksRepository creates a new tasks repository.
func NewTasksRepository(q Querier) *TasksRepository {
	return &TasksRepository{q: q}
}

const taskColumns = `t.id, t.project_id, t.title, t.description, t.status, t.assigned_to, t.due_date, t.created_at, t.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	err := row.Scan(
		&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.AssignedTo, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByProject retrieves the tasks of a project in the scope's company.
func (r *TasksRepository) ListByProject(ctx context.Context, scope tenant.Scope, projectID uuid.UUID) ([]*domain.Task, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		INNER JOIN projects p ON p.id = t.project_id
		WHERE t.project_id = $1 AND p.company_id = $2
		ORDER BY t.created_at ASC, t.id ASC
	`
	rows, err := r.q.QueryContext(ctx, query, projectID, scope.CompanyID())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Get retrieves a task whose project belongs to the scope's company.
func (r *TasksRepository) Get(ctx context.Context, scope tenant.Scope, id uuid.UUID) (*domain.Task, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		INNER JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND p.company_id = $2
	`
	t, err := scanTask(r.q.QueryRowContext(ctx, query, id, scope.CompanyID()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTaskNotFound
	}
	return t, err
}

// Create inserts a task only if its project belongs to the scope's company.
func (r *TasksRepository) Create(ctx context.Context, scope tenant.Scope, t *domain.Task) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (id, project_id, title, description, status, assigned_to, due_date, created_at, updated_at)
		SELECT $1, p.id, $3, $4, $5, $6, $7, $8, $9
		FROM projects p
		WHERE p.id = $2 AND p.company_id = $10
	`
	result, err := r.q.ExecContext(ctx, query,
		t.ID, t.ProjectID, t.Title, t.Description, t.Status, t.AssignedTo, t.DueDate,
		t.CreatedAt, t.UpdatedAt, scope.CompanyID(),
	)
	return expectOne(result, err, domain.ErrProjectNotFound)
}

// Update writes the mutable fields of a task. The project never changes.
func (r *TasksRepository) Update(ctx context.Context, scope tenant.Scope, t *domain.Task) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $3, description = $4, status = $5, assigned_to = $6, due_date = $7, updated_at = $8
		FROM projects p
		WHERE tasks.id = $1 AND p.id = tasks.project_id AND p.company_id = $2
	`
	result, err := r.q.ExecContext(ctx, query,
		t.ID, scope.CompanyID(), t.Title, t.Description, t.Status, t.AssignedTo, t.DueDate, t.UpdatedAt,
	)
	return expectOne(result, err, domain.ErrTaskNotFound)
}

// Delete removes a task whose project belongs to the scope's company.
func (r *TasksRepository) Delete(ctx context.Context, scope tenant.Scope, id uuid.UUID) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	query := `
		DELETE FROM tasks
		USING projects p
		WHERE tasks.id = $1 AND p.id = tasks.project_id AND p.company_id = $2
	`
	result, err := r.q.ExecContext(ctx, query, id, scope.CompanyID())
	return expectOne(result, err, domain.ErrTaskNotFound)
}
