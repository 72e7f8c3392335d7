package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/internal/config"
	"github.com/tendant/simple-projects/internal/http/features/health"
	"github.com/tendant/simple-projects/pkg/auth"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/service"
	"github.com/tendant/simple-projects/pkg/store/memory"
	"github.com/tendant/simple-projects/pkg/tenant"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	backend *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	backend := memory.New()
	repos := backend.Repos()

	tokens := auth.NewTokenService(auth.TokenConfig{JWTSecret: []byte("router-test"), Issuer: "test", AccessTokenTTL: time.Hour}, repos, nil, logger)
	validator := &auth.Validator{Policy: &auth.PasswordPolicy{MinLength: 8}}

	handler := NewRouter(RouterConfig{
		Logger:          logger,
		Backend:         backend,
		StorageDriver:   config.StorageMemory,
		App:             health.AppInfo{Name: "simple-projects", Environment: "testing"},
		PasswordService: auth.NewPasswordService(backend, repos, tokens, validator),
		TokenService:    tokens,
		ProjectService:  service.NewProjectService(backend, repos, logger),
		TaskService:     service.NewTaskService(repos, logger),
		SecurityHeaders: config.SecurityHeadersConfig{Enabled: true, ContentTypeOptions: "nosniff"},
		Validation:      config.ValidationConfig{MaxRequestBodySize: 1 << 20},
	})
	return &testServer{t: t, handler: handler, backend: backend}
}

type response struct {
	code   int
	header http.Header
	body   map[string]interface{}
}

func (s *testServer) do(method, path, token string, body interface{}) response {
	s.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			s.t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	out := response{code: rec.Code, header: rec.Header(), body: map[string]interface{}{}}
	json.NewDecoder(rec.Body).Decode(&out.body)
	return out
}

func (s *testServer) expect(res response, code int, what string) {
	s.t.Helper()
	if res.code != code {
		s.t.Fatalf("%s: status = %d, want %d (body %v)", what, res.code, code, res.body)
	}
}

// register returns the access token, user id and company id.
func (s *testServer) register(company, name, email string) (string, string, string) {
	s.t.Helper()
	res := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"company_name": company,
		"name":         name,
		"email":        email,
		"password":     "password123",
	})
	s.expect(res, http.StatusCreated, "register "+email)

	token := res.body["token"].(map[string]interface{})["access_token"].(string)
	userID := res.body["user"].(map[string]interface{})["id"].(string)
	companyID := res.body["company"].(map[string]interface{})["id"].(string)
	return token, userID, companyID
}

// addColleague creates a user directly in an existing company and logs in.
func (s *testServer) addColleague(companyID, name, email string) (string, uuid.UUID) {
	s.t.Helper()
	ctx := context.Background()
	repos := s.backend.Repos()

	user := &domain.User{ID: uuid.New(), Name: name, Email: email, Role: domain.UserRoleMember}
	if companyID != "" {
		user.CompanyID = uuid.MustParse(companyID)
	}
	if err := repos.Users.Create(ctx, user); err != nil {
		s.t.Fatal(err)
	}
	hash, err := auth.HashPassword("password123")
	if err != nil {
		s.t.Fatal(err)
	}
	if err := repos.Passwords.Create(ctx, &domain.UserPassword{UserID: user.ID, PasswordHash: hash, PasswordUpdatedAt: time.Now()}); err != nil {
		s.t.Fatal(err)
	}

	res := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "password123"})
	s.expect(res, http.StatusOK, "login "+email)
	return res.body["token"].(map[string]interface{})["access_token"].(string), user.ID
}

func objectID(res response, key string) string {
	return res.body[key].(map[string]interface{})["id"].(string)
}

func TestTenantIsolationScenario(t *testing.T) {
	s := newTestServer(t)

	alice, _, acmeID := s.register("Acme", "Alice", "alice@acme.test")
	bob, _, _ := s.register("Globex", "Bob", "bob@globex.test")

	res := s.do(http.MethodPost, "/projects", alice, map[string]string{"name": "Apollo", "description": "moon"})
	s.expect(res, http.StatusCreated, "alice creates project")
	project := res.body["project"].(map[string]interface{})
	projectID := project["id"].(string)
	if project["company_id"] != acmeID || project["status"] != "active" {
		t.Errorf("project = %v", project)
	}
	members := project["members"].([]interface{})
	if len(members) != 1 || members[0].(map[string]interface{})["role"] != "admin" {
		t.Errorf("members = %v, want creator as admin", members)
	}

	res = s.do(http.MethodPost, "/projects/"+projectID+"/tasks", alice, map[string]string{"title": "Launch"})
	s.expect(res, http.StatusCreated, "alice creates task")
	taskID := objectID(res, "task")
	if res.body["task"].(map[string]interface{})["status"] != "pending" {
		t.Errorf("task = %v", res.body["task"])
	}

	// Bob sees nothing of Acme.
	res = s.do(http.MethodGet, "/projects", bob, nil)
	s.expect(res, http.StatusOK, "bob lists projects")
	if got := res.body["projects"].([]interface{}); len(got) != 0 {
		t.Errorf("bob sees %d projects", len(got))
	}

	crossTenant := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodGet, "/projects/" + projectID, nil},
		{http.MethodPut, "/projects/" + projectID, map[string]string{"name": "Hijacked"}},
		{http.MethodDelete, "/projects/" + projectID, nil},
		{http.MethodGet, "/projects/" + projectID + "/tasks", nil},
		{http.MethodPost, "/projects/" + projectID + "/tasks", map[string]string{"title": "Sabotage"}},
		{http.MethodGet, "/tasks/" + taskID, nil},
		{http.MethodPut, "/tasks/" + taskID, map[string]string{"title": "Mine"}},
		{http.MethodDelete, "/tasks/" + taskID, nil},
	}
	for _, c := range crossTenant {
		res := s.do(c.method, c.path, bob, c.body)
		s.expect(res, http.StatusNotFound, "bob "+c.method+" "+c.path)
	}

	// Bob cannot plant a project in Acme either.
	res = s.do(http.MethodPost, "/projects", bob, map[string]string{"name": "Trojan", "company_id": acmeID})
	s.expect(res, http.StatusUnprocessableEntity, "bob creates project in acme")

	res = s.do(http.MethodGet, "/projects/"+projectID, alice, nil)
	s.expect(res, http.StatusOK, "alice reads project")
	project = res.body["project"].(map[string]interface{})
	if project["name"] != "Apollo" || project["tasks_count"] != float64(1) || project["members_count"] != float64(1) {
		t.Errorf("project after cross-tenant attempts = %v", project)
	}
}

func TestMembershipRules(t *testing.T) {
	s := newTestServer(t)

	alice, _, acmeID := s.register("Acme", "Alice", "alice@acme.test")
	carol, carolID := s.addColleague(acmeID, "Carol", "carol@acme.test")

	res := s.do(http.MethodPost, "/projects", alice, map[string]string{"name": "Apollo"})
	s.expect(res, http.StatusCreated, "create project")
	projectID := objectID(res, "project")

	res = s.do(http.MethodPost, "/projects/"+projectID+"/tasks", alice, map[string]interface{}{"title": "Launch", "assigned_to": carolID.String(), "due_date": "2030-07-20"})
	s.expect(res, http.StatusCreated, "create task")
	taskID := objectID(res, "task")

	// Same company, not a member: read only.
	s.expect(s.do(http.MethodGet, "/projects/"+projectID, carol, nil), http.StatusOK, "carol views project")
	s.expect(s.do(http.MethodGet, "/tasks/"+taskID, carol, nil), http.StatusOK, "carol views task")
	s.expect(s.do(http.MethodPut, "/projects/"+projectID, carol, map[string]string{"name": "Carol's"}), http.StatusForbidden, "carol updates project")
	s.expect(s.do(http.MethodPut, "/tasks/"+taskID, carol, map[string]string{"status": "completed"}), http.StatusForbidden, "carol updates task")

	// Membership is granted out of band; there is no member endpoint.
	scope, err := tenant.NewScope(&domain.Principal{UserID: carolID, CompanyID: uuid.MustParse(acmeID)})
	if err != nil {
		t.Fatal(err)
	}
	membership := &domain.ProjectMembership{ProjectID: uuid.MustParse(projectID), UserID: carolID, Role: domain.MemberRoleMember, CreatedAt: time.Now()}
	if err := s.backend.Repos().Memberships.Add(context.Background(), scope, membership); err != nil {
		t.Fatal(err)
	}

	s.expect(s.do(http.MethodPut, "/projects/"+projectID, carol, map[string]string{"status": "completed"}), http.StatusOK, "member updates project")
	s.expect(s.do(http.MethodDelete, "/projects/"+projectID, carol, nil), http.StatusForbidden, "member deletes project")
	s.expect(s.do(http.MethodDelete, "/tasks/"+taskID, carol, nil), http.StatusOK, "member deletes task")
	s.expect(s.do(http.MethodGet, "/tasks/"+taskID, alice, nil), http.StatusNotFound, "deleted task")

	s.expect(s.do(http.MethodDelete, "/projects/"+projectID, alice, nil), http.StatusOK, "admin deletes project")
	s.expect(s.do(http.MethodGet, "/projects/"+projectID, alice, nil), http.StatusNotFound, "deleted project")
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	alice, _, acmeID := s.register("Acme", "Alice", "alice@acme.test")

	res := s.do(http.MethodPost, "/auth/register", "", map[string]string{
		"company_name": "Other", "name": "Alice", "email": "ALICE@acme.test", "password": "password123",
	})
	s.expect(res, http.StatusConflict, "duplicate registration")

	res = s.do(http.MethodPost, "/auth/register", "", map[string]string{"email": "bad"})
	s.expect(res, http.StatusUnprocessableEntity, "invalid registration")
	if fields, ok := res.body["fields"].(map[string]interface{}); !ok || fields["company_name"] == nil || fields["password"] == nil {
		t.Errorf("fields = %v", res.body["fields"])
	}

	s.expect(s.do(http.MethodPost, "/auth/register", "", "{not json"), http.StatusBadRequest, "malformed registration")

	res = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "alice@acme.test", "password": "wrong-password"})
	s.expect(res, http.StatusUnauthorized, "wrong password")

	res = s.do(http.MethodGet, "/auth/me", alice, nil)
	s.expect(res, http.StatusOK, "me")
	if objectID(res, "company") != acmeID {
		t.Errorf("me company = %v", res.body["company"])
	}
	if got := res.header.Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}

	res = s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "alice@acme.test", "password": "password123"})
	s.expect(res, http.StatusOK, "second login")
	second := res.body["token"].(map[string]interface{})["access_token"].(string)

	s.expect(s.do(http.MethodPost, "/auth/logout", alice, nil), http.StatusOK, "logout")
	s.expect(s.do(http.MethodGet, "/projects", alice, nil), http.StatusUnauthorized, "revoked token")
	s.expect(s.do(http.MethodGet, "/projects", second, nil), http.StatusOK, "other session")
}

func TestRequestErrors(t *testing.T) {
	s := newTestServer(t)
	alice, _, _ := s.register("Acme", "Alice", "alice@acme.test")
	loner, _ := s.addColleague("", "Loner", "loner@example.test")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		code   int
	}{
		{"no token", http.MethodGet, "/projects", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/projects", "garbage", nil, http.StatusUnauthorized},
		{"user without company", http.MethodGet, "/projects", loner, nil, http.StatusForbidden},
		{"malformed project id", http.MethodGet, "/projects/not-a-uuid", alice, nil, http.StatusNotFound},
		{"unknown project id", http.MethodGet, "/projects/" + uuid.NewString(), alice, nil, http.StatusNotFound},
		{"malformed task id", http.MethodDelete, "/tasks/42", alice, nil, http.StatusNotFound},
		{"malformed body", http.MethodPost, "/projects", alice, "{", http.StatusBadRequest},
		{"missing name", http.MethodPost, "/projects", alice, map[string]string{"description": "x"}, http.StatusUnprocessableEntity},
		{"bad status", http.MethodPost, "/projects", alice, map[string]string{"name": "x", "status": "paused"}, http.StatusUnprocessableEntity},
		{"unknown route", http.MethodGet, "/nope", alice, nil, http.StatusNotFound},
		{"health", http.MethodGet, "/health", "", nil, http.StatusOK},
		{"health db", http.MethodGet, "/health/db", "", nil, http.StatusOK},
		{"info", http.MethodGet, "/info", "", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.do(tt.method, tt.path, tt.token, tt.body)
			if res.code != tt.code {
				t.Errorf("status = %d, want %d (body %v)", res.code, tt.code, res.body)
			}
		})
	}
}

func TestUserWithoutCompany(t *testing.T) {
	s := newTestServer(t)
	loner, lonerID := s.addColleague("", "Loner", "loner@example.test")

	s.expect(s.do(http.MethodGet, "/projects", loner, nil), http.StatusForbidden, "projects without company")

	res := s.do(http.MethodGet, "/auth/me", loner, nil)
	s.expect(res, http.StatusOK, "me without company")
	if objectID(res, "user") != lonerID.String() {
		t.Errorf("me user = %v", res.body["user"])
	}
	if company, ok := res.body["company"]; !ok || company != nil {
		t.Errorf("me company = %v, want null", company)
	}

	s.expect(s.do(http.MethodPost, "/auth/logout", loner, nil), http.StatusOK, "logout without company")
	s.expect(s.do(http.MethodGet, "/auth/me", loner, nil), http.StatusUnauthorized, "me after logout")
}

func TestTaskAssigneeEmbedded(t *testing.T) {
	s := newTestServer(t)

	alice, _, acmeID := s.register("Acme", "Alice", "alice@acme.test")
	_, carolID := s.addColleague(acmeID, "Carol", "carol@acme.test")

	res := s.do(http.MethodPost, "/projects", alice, map[string]string{"name": "Apollo"})
	s.expect(res, http.StatusCreated, "create project")
	projectID := objectID(res, "project")

	res = s.do(http.MethodPost, "/projects/"+projectID+"/tasks", alice, map[string]interface{}{"title": "Launch", "assigned_to": carolID.String()})
	s.expect(res, http.StatusCreated, "create assigned task")
	taskID := objectID(res, "task")
	s.expect(s.do(http.MethodPost, "/projects/"+projectID+"/tasks", alice, map[string]string{"title": "Backlog"}), http.StatusCreated, "create unassigned task")

	checkAssignee := func(task map[string]interface{}, what string) {
		t.Helper()
		if task["assigned_to"] == nil {
			if task["assignee"] != nil {
				t.Errorf("%s: assignee = %v, want null", what, task["assignee"])
			}
			return
		}
		assignee, ok := task["assignee"].(map[string]interface{})
		if !ok {
			t.Fatalf("%s: assignee missing: %v", what, task)
		}
		if assignee["id"] != carolID.String() || assignee["name"] != "Carol" || assignee["email"] != "carol@acme.test" {
			t.Errorf("%s: assignee = %v", what, assignee)
		}
	}

	res = s.do(http.MethodGet, "/tasks/"+taskID, alice, nil)
	s.expect(res, http.StatusOK, "get task")
	checkAssignee(res.body["task"].(map[string]interface{}), "get task")

	res = s.do(http.MethodGet, "/projects/"+projectID+"/tasks", alice, nil)
	s.expect(res, http.StatusOK, "list tasks")
	listed := res.body["tasks"].([]interface{})
	if len(listed) != 2 {
		t.Fatalf("listed %d tasks, want 2", len(listed))
	}
	for _, task := range listed {
		checkAssignee(task.(map[string]interface{}), "list tasks")
	}

	res = s.do(http.MethodGet, "/projects/"+projectID, alice, nil)
	s.expect(res, http.StatusOK, "get project")
	for _, task := range res.body["project"].(map[string]interface{})["tasks"].([]interface{}) {
		checkAssignee(task.(map[string]interface{}), "project tasks")
	}
}
