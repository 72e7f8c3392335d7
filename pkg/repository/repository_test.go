package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// recordingQuerier captures Exec statements without a database. Read paths
// are covered with sqlmock in scoped_reads_test.go.
type recordingQuerier struct {
	query    string
	args     []any
	affected int64
	err      error
}

func (q *recordingQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	q.query = query
	q.args = args
	if q.err != nil {
		return nil, q.err
	}
	return fakeResult(q.affected), nil
}

func (q *recordingQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func (q *recordingQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	panic("not supported")
}

type fakeResult int64

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return int64(r), nil }

func testScope(t *testing.T) tenant.Scope {
	t.Helper()
	scope, err := tenant.NewScope(&domain.Principal{UserID: uuid.New(), CompanyID: uuid.New()})
	if err != nil {
		t.Fatal(err)
	}
	return scope
}

func TestZeroScopeNeverQueries(t *testing.T) {
	ctx := context.Background()
	q := &recordingQuerier{}
	var zero tenant.Scope

	checks := []struct {
		name string
		call func() error
	}{
		{"projects.Delete", func() error { return NewProjectsRepository(q).Delete(ctx, zero, uuid.New()) }},
		{"projects.Update", func() error { return NewProjectsRepository(q).Update(ctx, zero, &domain.Project{ID: uuid.New()}) }},
		{"tasks.Create", func() error { return NewTasksRepository(q).Create(ctx, zero, &domain.Task{ID: uuid.New()}) }},
		{"tasks.Delete", func() error { return NewTasksRepository(q).Delete(ctx, zero, uuid.New()) }},
		{"memberships.Add", func() error {
			return NewMembershipsRepository(q).Add(ctx, zero, &domain.ProjectMembership{ProjectID: uuid.New(), UserID: uuid.New()})
		}},
		{"companies.Get", func() error { _, err := NewCompaniesRepository(q).Get(ctx, zero); return err }},
		{"users.Get", func() error { _, err := NewUsersRepository(q).Get(ctx, zero, uuid.New()); return err }},
	}

	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if err := c.call(); !errors.Is(err, domain.ErrUnauthenticated) {
				t.Errorf("error = %v, want ErrUnauthenticated", err)
			}
			if q.query != "" {
				t.Errorf("query issued with zero scope: %s", q.query)
			}
		})
	}
}

func TestProjectsRepository_FiltersOnCompany(t *testing.T) {
	ctx := context.Background()
	scope := testScope(t)
	q := &recordingQuerier{affected: 1}
	repo := NewProjectsRepository(q)

	id := uuid.New()
	if err := repo.Delete(ctx, scope, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !strings.Contains(q.query, "company_id = $2") {
		t.Errorf("query missing company predicate: %s", q.query)
	}
	if q.args[0] != id || q.args[1] != scope.CompanyID() {
		t.Errorf("args = %v, want [%v %v]", q.args, id, scope.CompanyID())
	}

	q.affected = 0
	if err := repo.Delete(ctx, scope, id); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("Delete() of unseen row error = %v, want ErrProjectNotFound", err)
	}
}

func TestProjectsRepository_CreateRejectsForeignCompany(t *testing.T) {
	q := &recordingQuerier{affected: 1}
	p := &domain.Project{ID: uuid.New(), CompanyID: uuid.New()}

	err := NewProjectsRepository(q).Create(context.Background(), testScope(t), p)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Create() error = %v, want ErrForbidden", err)
	}
	if q.query != "" {
		t.Error("insert issued for a foreign company")
	}
}

func TestTasksRepository_JoinsProjectCompany(t *testing.T) {
	ctx := context.Background()
	scope := testScope(t)
	q := &recordingQuerier{}
	repo := NewTasksRepository(q)

	task := &domain.Task{ID: uuid.New(), ProjectID: uuid.New(), Title: "T1", Status: domain.TaskStatusPending}
	if err := repo.Create(ctx, scope, task); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("Create() into unseen project error = %v, want ErrProjectNotFound", err)
	}
	if !strings.Contains(q.query, "p.company_id = $10") {
		t.Errorf("insert missing company predicate: %s", q.query)
	}

	if err := repo.Update(ctx, scope, task); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Update() of unseen task error = %v, want ErrTaskNotFound", err)
	}
	if !strings.Contains(q.query, "p.company_id = $2") {
		t.Errorf("update missing company predicate: %s", q.query)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "users_email_key"}

	if !isUniqueViolation(dup, "users_email_key") {
		t.Error("expected unique violation on users_email_key")
	}
	if !isUniqueViolation(fmt.Errorf("insert: %w", dup), "") {
		t.Error("wrapped unique violation should match any constraint")
	}
	if isUniqueViolation(dup, "companies_slug_key") {
		t.Error("constraint name should be compared")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}, "") {
		t.Error("foreign key violation is not a unique violation")
	}
	if isUniqueViolation(nil, "") {
		t.Error("nil is not a unique violation")
	}
}

func TestUsersRepository_CreateMapsDuplicateEmail(t *testing.T) {
	q := &recordingQuerier{err: &pq.Error{Code: "23505", Constraint: "users_email_key"}}
	err := NewUsersRepository(q).Create(context.Background(), &domain.User{ID: uuid.New(), Email: "a@b.test"})
	if !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("Create() error = %v, want ErrUserAlreadyExists", err)
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := Config{Host: "localhost", Port: 5432, User: "postgres", Password: "secret", DBName: "projects", SSLMode: "disable"}
	want := "host=localhost port=5432 user=postgres password=secret dbname=projects sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestNullUUID(t *testing.T) {
	if nullUUID(uuid.Nil).Valid {
		t.Error("uuid.Nil should be stored as NULL")
	}
	id := uuid.New()
	if n := nullUUID(id); !n.Valid || n.UUID != id {
		t.Errorf("nullUUID(%v) = %+v", id, n)
	}
}
