package memory

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/store"
	"github.com/tendant/simple-projects/pkg/tenant"
)

type seeded struct {
	store *Store
	scope tenant.Scope
	user  *domain.User
}

func seedCompany(t *testing.T, s *Store, name, email string) seeded {
	t.Helper()
	ctx := context.Background()
	repos := s.Repos()

	now := time.Now()
	company := &domain.Company{ID: uuid.New(), Name: name, Slug: name + "-" + uuid.NewString()[:6], CreatedAt: now, UpdatedAt: now}
	if err := repos.Companies.Create(ctx, company); err != nil {
		t.Fatalf("create company: %v", err)
	}
	user := &domain.User{ID: uuid.New(), CompanyID: company.ID, Name: name + " owner", Email: email, Role: domain.UserRoleOwner, CreatedAt: now, UpdatedAt: now}
	if err := repos.Users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	scope, err := tenant.NewScope(&domain.Principal{UserID: user.ID, CompanyID: company.ID})
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	return seeded{store: s, scope: scope, user: user}
}

func newProject(scope tenant.Scope, name string) *domain.Project {
	now := time.Now()
	return &domain.Project{ID: uuid.New(), CompanyID: scope.CompanyID(), Name: name, Status: domain.ProjectStatusActive, CreatedAt: now, UpdatedAt: now}
}

func TestProjects_TenantIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedCompany(t, s, "acme", "alice@acme.test")
	b := seedCompany(t, s, "globex", "bob@globex.test")
	repos := s.Repos()

	p := newProject(a.scope, "P1")
	if err := repos.Projects.Create(ctx, a.scope, p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := repos.Projects.Get(ctx, b.scope, p.ID); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("Get() from other company error = %v, want ErrProjectNotFound", err)
	}

	list, err := repos.Projects.List(ctx, b.scope)
	if err != nil || len(list) != 0 {
		t.Errorf("List() for other company = %d projects, %v; want 0", len(list), err)
	}

	p.Name = "hijacked"
	if err := repos.Projects.Update(ctx, b.scope, p); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("Update() from other company error = %v, want ErrProjectNotFound", err)
	}
	if err := repos.Projects.Delete(ctx, b.scope, p.ID); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("Delete() from other company error = %v, want ErrProjectNotFound", err)
	}

	got, err := repos.Projects.Get(ctx, a.scope, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "P1" {
		t.Errorf("Name = %q, want unchanged P1", got.Name)
	}
}

func TestProjects_CreateRejectsForeignCompany(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedCompany(t, s, "acme", "alice@acme.test")
	b := seedCompany(t, s, "globex", "bob@globex.test")

	p := newProject(a.scope, "P1")
	if err := s.Repos().Projects.Create(ctx, b.scope, p); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Create() error = %v, want ErrForbidden", err)
	}
}

func TestZeroScopeFailsClosed(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedCompany(t, s, "acme", "alice@acme.test")
	repos := s.Repos()

	p := newProject(a.scope, "P1")
	if err := repos.Projects.Create(ctx, a.scope, p); err != nil {
		t.Fatal(err)
	}

	var zero tenant.Scope
	if _, err := repos.Projects.List(ctx, zero); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("List() error = %v, want ErrUnauthenticated", err)
	}
	if _, err := repos.Tasks.ListByProject(ctx, zero, p.ID); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("ListByProject() error = %v, want ErrUnauthenticated", err)
	}
	if _, err := repos.Memberships.Get(ctx, zero, p.ID, a.user.ID); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("Memberships.Get() error = %v, want ErrUnauthenticated", err)
	}
}

func TestTasks_ScopedThroughProject(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedCompany(t, s, "acme", "alice@acme.test")
	b := seedCompany(t, s, "globex", "bob@globex.test")
	repos := s.Repos()

	p := newProject(a.scope, "P1")
	if err := repos.Projects.Create(ctx, a.scope, p); err != nil {
		t.Fatal(err)
	}

	task := &domain.Task{ID: uuid.New(), ProjectID: p.ID, Title: "T1", Status: domain.TaskStatusPending, CreatedAt: time.Now()}
	if err := repos.Tasks.Create(ctx, b.scope, task); !errors.Is(err, domain.ErrProjectNotFound) {
		t.Errorf("Create() in foreign project error = %v, want ErrProjectNotFound", err)
	}
	if err := repos.Tasks.Create(ctx, a.scope, task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := repos.Tasks.Get(ctx, b.scope, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Get() from other company error = %v, want ErrTaskNotFound", err)
	}
	if list, _ := repos.Tasks.ListByProject(ctx, b.scope, p.ID); len(list) != 0 {
		t.Errorf("ListByProject() from other company = %d tasks, want 0", len(list))
	}
	if err := repos.Tasks.Delete(ctx, b.scope, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("Delete() from other company error = %v, want ErrTaskNotFound", err)
	}

	task.Status = domain.TaskStatusCompleted
	if err := repos.Tasks.Update(ctx, a.scope, task); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, err := repos.Tasks.Get(ctx, a.scope, task.ID)
	if err != nil || got.Status != domain.TaskStatusCompleted {
		t.Errorf("Get() = %+v, %v; want completed", got, err)
	}
}

func TestMemberships(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedCompany(t, s, "acme", "alice@acme.test")
	b := seedCompany(t, s, "globex", "bob@globex.test")
	repos := s.Repos()

	p := newProject(a.scope, "P1")
	if err := repos.Projects.Create(ctx, a.scope, p); err != nil {
		t.Fatal(err)
	}

	m := &domain.ProjectMembership{ProjectID: p.ID, UserID: a.user.ID, Role: domain.MemberRoleAdmin, CreatedAt: time.Now()}
	if err := repos.Memberships.Add(ctx, a.scope, m); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := repos.Memberships.Add(ctx, a.scope, m); !errors.Is(err, domain.ErrMembershipExists) {
		t.Errorf("duplicate Add() error = %v, want ErrMembershipExists", err)
	}

	foreign := &domain.ProjectMembership{ProjectID: p.ID, UserID: b.user.ID, Role: domain.MemberRoleMember}
	if err := repos.Memberships.Add(ctx, a.scope, foreign); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Add() of foreign user error = %v, want ErrUserNotFound", err)
	}

	got, err := repos.Memberships.Get(ctx, a.scope, p.ID, a.user.ID)
	if err != nil || !got.IsAdmin() {
		t.Errorf("Get() = %+v, %v; want admin membership", got, err)
	}

	none, err := repos.Memberships.Get(ctx, a.scope, p.ID, uuid.New())
	if err != nil || none != nil {
		t.Errorf("Get() for non-member = %+v, %v; want nil, nil", none, err)
	}

	if ok, _ := repos.Memberships.IsMember(ctx, b.scope, p.ID, a.user.ID); ok {
		t.Error("IsMember() through another company's scope should be false")
	}

	members, err := repos.Memberships.ListByProject(ctx, a.scope, p.ID)
	if err != nil || len(members) != 1 {
		t.Fatalf("ListByProject() = %d, %v; want 1", len(members), err)
	}
	if members[0].Email != "alice@acme.test" {
		t.Errorf("member email = %q", members[0].Email)
	}
}

func TestProjects_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedCompany(t, s, "acme", "alice@acme.test")
	repos := s.Repos()

	p := newProject(a.scope, "P1")
	if err := repos.Projects.Create(ctx, a.scope, p); err != nil {
		t.Fatal(err)
	}
	_ = repos.Memberships.Add(ctx, a.scope, &domain.ProjectMembership{ProjectID: p.ID, UserID: a.user.ID, Role: domain.MemberRoleAdmin})
	task := &domain.Task{ID: uuid.New(), ProjectID: p.ID, Title: "T1", Status: domain.TaskStatusPending}
	_ = repos.Tasks.Create(ctx, a.scope, task)

	if err := repos.Projects.Delete(ctx, a.scope, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repos.Tasks.Get(ctx, a.scope, task.ID); !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("task after project delete: %v, want ErrTaskNotFound", err)
	}
	if len(s.st.memberships) != 0 {
		t.Errorf("memberships after project delete = %d, want 0", len(s.st.memberships))
	}
}

func TestSingleWrites_FailedWriteLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedCompany(t, s, "acme", "alice@acme.test")
	b := seedCompany(t, s, "globex", "bob@globex.test")
	repos := s.Repos()

	p := newProject(a.scope, "P1")
	if err := repos.Projects.Create(ctx, a.scope, p); err != nil {
		t.Fatal(err)
	}
	if err := repos.Memberships.Add(ctx, a.scope, &domain.ProjectMembership{ProjectID: p.ID, UserID: a.user.ID, Role: domain.MemberRoleAdmin}); err != nil {
		t.Fatal(err)
	}

	shared := s.st
	before := s.st.clone()

	failing := []struct {
		name string
		run  func() error
		want error
	}{
		{"duplicate membership", func() error {
			return repos.Memberships.Add(ctx, a.scope, &domain.ProjectMembership{ProjectID: p.ID, UserID: a.user.ID, Role: domain.MemberRoleMember})
		}, domain.ErrMembershipExists},
		{"foreign member", func() error {
			return repos.Memberships.Add(ctx, a.scope, &domain.ProjectMembership{ProjectID: p.ID, UserID: b.user.ID, Role: domain.MemberRoleMember})
		}, domain.ErrUserNotFound},
		{"cross tenant update", func() error {
			return repos.Projects.Update(ctx, b.scope, &domain.Project{ID: p.ID, Name: "stolen", Status: domain.ProjectStatusActive})
		}, domain.ErrProjectNotFound},
		{"cross tenant delete", func() error {
			return repos.Projects.Delete(ctx, b.scope, p.ID)
		}, domain.ErrProjectNotFound},
		{"duplicate email", func() error {
			return repos.Users.Create(ctx, &domain.User{ID: uuid.New(), CompanyID: a.user.CompanyID, Email: "alice@acme.test"})
		}, domain.ErrUserAlreadyExists},
		{"task in unknown project", func() error {
			return repos.Tasks.Create(ctx, a.scope, &domain.Task{ID: uuid.New(), ProjectID: uuid.New(), Title: "T", Status: domain.TaskStatusPending})
		}, domain.ErrProjectNotFound},
	}
	for _, tt := range failing {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if !reflect.DeepEqual(before, s.st) {
				t.Error("state changed after failed write")
			}
		})
	}

	if err := repos.Tasks.Create(ctx, a.scope, &domain.Task{ID: uuid.New(), ProjectID: p.ID, Title: "T", Status: domain.TaskStatusPending}); err != nil {
		t.Fatal(err)
	}
	if s.st != shared {
		t.Error("single write replaced the shared state")
	}
	if len(s.st.tasks) != 1 {
		t.Errorf("tasks = %d, want 1", len(s.st.tasks))
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(r store.Repos) error {
		c := &domain.Company{ID: uuid.New(), Name: "acme", Slug: "acme-abcdef"}
		if err := r.Companies.Create(ctx, c); err != nil {
			return err
		}
		if len(s.st.companies) != 0 {
			t.Error("uncommitted company visible in shared state")
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want boom", err)
	}
	if len(s.st.companies) != 0 {
		t.Errorf("companies after rollback = %d, want 0", len(s.st.companies))
	}

	err = s.WithinTx(ctx, func(r store.Repos) error {
		return r.Companies.Create(ctx, &domain.Company{ID: uuid.New(), Name: "acme", Slug: "acme-abcdef"})
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}
	if len(s.st.companies) != 1 {
		t.Errorf("companies after commit = %d, want 1", len(s.st.companies))
	}
}

func TestUsers_Constraints(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedCompany(t, s, "acme", "alice@acme.test")
	b := seedCompany(t, s, "globex", "bob@globex.test")
	repos := s.Repos()

	dup := &domain.User{ID: uuid.New(), CompanyID: a.scope.CompanyID(), Email: "alice@acme.test"}
	if err := repos.Users.Create(ctx, dup); !errors.Is(err, domain.ErrUserAlreadyExists) {
		t.Errorf("Create() duplicate error = %v, want ErrUserAlreadyExists", err)
	}

	exists, err := repos.Users.ExistsByEmail(ctx, "alice@acme.test")
	if err != nil || !exists {
		t.Errorf("ExistsByEmail() = %v, %v; want true", exists, err)
	}
	exists, err = repos.Users.ExistsByEmail(ctx, "nobody@acme.test")
	if err != nil || exists {
		t.Errorf("ExistsByEmail() = %v, %v; want false", exists, err)
	}

	if _, err := repos.Users.Get(ctx, b.scope, a.user.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Get() across companies error = %v, want ErrUserNotFound", err)
	}
}

func TestSessions_Revoke(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := seedCompany(t, s, "acme", "alice@acme.test")
	repos := s.Repos()

	sess := &domain.Session{ID: uuid.New(), UserID: a.user.ID, CompanyID: a.scope.CompanyID(), CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)}
	if err := repos.Sessions.Create(ctx, sess); err != nil {
		t.Fatal(err)
	}
	if err := repos.Sessions.Revoke(ctx, sess.ID); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if err := repos.Sessions.Revoke(ctx, sess.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("second Revoke() error = %v, want ErrSessionNotFound", err)
	}
	got, err := repos.Sessions.GetByID(ctx, sess.ID)
	if err != nil || got.IsValid() {
		t.Errorf("GetByID() = %+v, %v; want revoked session", got, err)
	}
}
