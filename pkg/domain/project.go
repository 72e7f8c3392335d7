package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusArchived  ProjectStatus = "archived"
	ProjectStatusCompleted ProjectStatus = "completed"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusArchived, ProjectStatusCompleted:
		return true
	}
	return false
}

// Project is owned by exactly one company.
type Project struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Name        string
	Description string
	Status      ProjectStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MemberRole is a user's role within a project.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// Valid reports whether r is a known member role.
func (r MemberRole) Valid() bool {
	return r == MemberRoleAdmin || r == MemberRoleMember
}

// ProjectMembership joins a user to a project. (ProjectID, UserID) is unique.
type ProjectMembership struct {
	ProjectID uuid.UUID
	UserID    uuid.UUID
	Role      MemberRole
	CreatedAt time.Time
}

// IsAdmin returns true if the membership carries the admin role.
func (m *ProjectMembership) IsAdmin() bool {
	return m != nil && m.Role == MemberRoleAdmin
}

// ProjectMember is a membership joined with the member's profile.
type ProjectMember struct {
	ProjectMembership
	Name  string
	Email string
}
