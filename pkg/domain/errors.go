package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Authentication errors
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionRevoked     = errors.New("session revoked")
)

// Authorization errors
var (
	ErrForbidden = errors.New("forbidden")
	// ErrNoCompany is returned when an authenticated principal has no company.
	// It matches ErrForbidden under errors.Is.
	ErrNoCompany = fmt.Errorf("user does not belong to any company: %w", ErrForbidden)
)

// Lookup errors
var (
	ErrCompanyNotFound   = errors.New("company not found")
	ErrCompanySlugTaken  = errors.New("company slug already taken")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrProjectNotFound   = errors.New("project not found")
	ErrTaskNotFound      = errors.New("task not found")
	ErrMembershipExists  = errors.New("membership already exists")
)

// ValidationError reports malformed or disallowed input, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records another field failure.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// TransactionError reports a composite write that failed partway and was rolled back.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return e.Op + " failed: " + e.Err.Error()
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
