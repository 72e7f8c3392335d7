package common

import (
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/service"
)

// UserView is the public representation of a user.
type UserView struct {
	ID        string    `json:"id"`
	CompanyID *string   `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserView converts a user.
func NewUserView(u *domain.User) UserView {
	v := UserView{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
	if u.HasCompany() {
		id := u.CompanyID.String()
		v.CompanyID = &id
	}
	return v
}

// CompanyView is the public representation of a company.
type CompanyView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// NewCompanyView converts a company.
func NewCompanyView(c *domain.Company) CompanyView {
	return CompanyView{ID: c.ID.String(), Name: c.Name, Slug: c.Slug}
}

// MemberView is a project member with its role.
type MemberView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserSummaryView is the short form of a user embedded in other resources.
type UserSummaryView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// TaskView is the public representation of a task.
type TaskView struct {
	ID          string           `json:"id"`
	ProjectID   string           `json:"project_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      string           `json:"status"`
	AssignedTo  *string          `json:"assigned_to"`
	Assignee    *UserSummaryView `json:"assignee"`
	DueDate     *time.Time       `json:"due_date"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// NewTaskView converts a task. The assignee is embedded when found in
// assignees.
func NewTaskView(t *domain.Task, assignees map[uuid.UUID]*domain.User) TaskView {
	v := TaskView{
		ID:          t.ID.String(),
		ProjectID:   t.ProjectID.String(),
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.AssignedTo != nil {
		id := t.AssignedTo.String()
		v.AssignedTo = &id
		if u, ok := assignees[*t.AssignedTo]; ok {
			v.Assignee = &UserSummaryView{ID: u.ID.String(), Name: u.Name, Email: u.Email}
		}
	}
	return v
}

// NewTaskViews converts a task list.
func NewTaskViews(tasks []*domain.Task, assignees map[uuid.UUID]*domain.User) []TaskView {
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, NewTaskView(t, assignees))
	}
	return out
}

// ProjectView is the public representation of a project. Tasks and the
// counts are only present on single-project responses.
type ProjectView struct {
	ID           string       `json:"id"`
	CompanyID    string       `json:"company_id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Status       string       `json:"status"`
	Members      []MemberView `json:"members"`
	Tasks        *[]TaskView  `json:"tasks,omitempty"`
	MembersCount *int         `json:"members_count,omitempty"`
	TasksCount   *int         `json:"tasks_count,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewProjectView converts a project with its members. withTasks adds the
// tasks and the counts.
func NewProjectView(d *service.ProjectDetail, withTasks bool) ProjectView {
	p := d.Project
	v := ProjectView{
		ID:          p.ID.String(),
		CompanyID:   p.CompanyID.String(),
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		Members:     make([]MemberView, 0, len(d.Members)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, m := range d.Members {
		v.Members = append(v.Members, MemberView{
			ID:    m.UserID.String(),
			Name:  m.Name,
			Email: m.Email,
			Role:  string(m.Role),
		})
	}
	if withTasks {
		tasks := NewTaskViews(d.Tasks, d.Assignees)
		v.Tasks = &tasks
		membersCount, tasksCount := len(d.Members), len(d.Tasks)
		v.MembersCount = &membersCount
		v.TasksCount = &tasksCount
	}
	return v
}
