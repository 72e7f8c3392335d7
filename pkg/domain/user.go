package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is a user's role within its company.
type UserRole string

const (
	UserRoleOwner  UserRole = "owner"
	UserRoleMember UserRole = "member"
)

// User represents an account. CompanyID is set once at creation and never reassigned.
type User struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Name      string
	Email     string
	Role      UserRole
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasCompany returns true if the user belongs to a company.
func (u *User) HasCompany() bool {
	return u.CompanyID != uuid.Nil
}

// UserPassword stores password credentials separately from user profile.
type UserPassword struct {
	UserID            uuid.UUID
	PasswordHash      string
	PasswordUpdatedAt time.Time
}

// Company is the tenant boundary.
type Company struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
