// Package authz decides whether a principal may perform an action on a project
// or task. Decisions are pure: callers load the resource and the principal's
// membership first and pass them in.
//
// Rules:
//
//	view   project  same company
//	create project  principal has a company
//	update project  same company and project member
//	delete project  same company and project admin
//	view   task     same company as the task's project
//	create task     same company as the parent project
//	update task     same company and member of the task's project
//	delete task     same company and member of the task's project
//
// Company mismatch is checked before anything else, even though the tenant
// scope should already have hidden the resource.
package authz

import (
	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/domain"
)

// Action is an operation on a resource.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Kind is the resource type.
type Kind string

const (
	KindProject Kind = "project"
	KindTask    Kind = "task"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// String returns "allow" or "deny".
func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Reason describes why a check was denied.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonNoCompany
	ReasonCompanyMismatch
	ReasonNotMember
	ReasonNotAdmin
	ReasonUnknownAction
)

// String returns a human-readable reason.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNoCompany:
		return "principal has no company"
	case ReasonCompanyMismatch:
		return "resource belongs to another company"
	case ReasonNotMember:
		return "not a project member"
	case ReasonNotAdmin:
		return "not a project admin"
	case ReasonUnknownAction:
		return "unknown action"
	default:
		return "unknown"
	}
}

// Result is the outcome of Check.
type Result struct {
	Decision Decision
	Reason   Reason
}

// Allowed reports whether the decision is Allow.
func (r Result) Allowed() bool {
	return r.Decision == Allow
}

// Resource is what an action targets. For tasks, CompanyID and Membership come
// from the task's project. For task creation the resource is the parent project.
type Resource struct {
	Kind      Kind
	CompanyID uuid.UUID
	// Membership is the principal's membership on the relevant project; nil
	// means not a member.
	Membership *domain.ProjectMembership
	// Bound is false only for project creation, which targets no existing row.
	Bound bool
}

// NewProject is the resource for creating a project.
func NewProject() Resource {
	return Resource{Kind: KindProject}
}

// ProjectResource describes an existing project.
func ProjectResource(p *domain.Project, m *domain.ProjectMembership) Resource {
	r := Resource{Kind: KindProject, Bound: true}
	if p != nil {
		r.CompanyID = p.CompanyID
		r.Membership = membershipFor(m, p.ID)
	}
	return r
}

// ParentProject describes the project a new task will be created in.
func ParentProject(p *domain.Project) Resource {
	r := Resource{Kind: KindTask, Bound: true}
	if p != nil {
		r.CompanyID = p.CompanyID
	}
	return r
}

// TaskResource describes an existing task through its project. A nil project
// leaves CompanyID unset, which never matches a principal.
func TaskResource(t *domain.Task, project *domain.Project, m *domain.ProjectMembership) Resource {
	r := Resource{Kind: KindTask, Bound: true}
	if t != nil && project != nil && t.ProjectID == project.ID {
		r.CompanyID = project.CompanyID
		r.Membership = membershipFor(m, project.ID)
	}
	return r
}

// membershipFor drops a membership that belongs to a different project.
func membershipFor(m *domain.ProjectMembership, projectID uuid.UUID) *domain.ProjectMembership {
	if m == nil || m.ProjectID != projectID {
		return nil
	}
	return m
}

// Can reports whether p may perform action on r.
func Can(p domain.Principal, action Action, r Resource) bool {
	return Check(p, action, r).Allowed()
}

// Check evaluates the rule table and explains denials.
func Check(p domain.Principal, action Action, r Resource) Result {
	if p.CompanyID == uuid.Nil {
		return deny(ReasonNoCompany)
	}

	if !r.Bound {
		if r.Kind == KindProject && action == ActionCreate {
			return allow()
		}
		return deny(ReasonUnknownAction)
	}

	if r.CompanyID == uuid.Nil || r.CompanyID != p.CompanyID {
		return deny(ReasonCompanyMismatch)
	}

	// Memberships for another user never count.
	m := r.Membership
	if m != nil && m.UserID != p.UserID {
		m = nil
	}

	switch action {
	case ActionView:
		return allow()
	case ActionCreate:
		// Creating a task only needs view access to the parent project.
		if r.Kind == KindTask {
			return allow()
		}
		return deny(ReasonUnknownAction)
	case ActionUpdate:
		if m == nil {
			return deny(ReasonNotMember)
		}
		return allow()
	case ActionDelete:
		if m == nil {
			return deny(ReasonNotMember)
		}
		if r.Kind == KindProject && !m.IsAdmin() {
			return deny(ReasonNotAdmin)
		}
		return allow()
	}

	return deny(ReasonUnknownAction)
}

func allow() Result {
	return Result{Decision: Allow, Reason: ReasonNone}
}

func deny(reason Reason) Result {
	return Result{Decision: Deny, Reason: reason}
}
