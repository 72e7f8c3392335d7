// Package service implements the project and task operations. Every store call
// goes through the caller's tenant.Scope and every action on an existing
// resource is checked by pkg/authz before it touches data.
//
// Denials caused by a company mismatch are reported as not found so a caller
// cannot discover the ids of another company. Other denials are domain.ErrForbidden.
package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/pkg/authz"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

const maxNameLength = 255

// denied logs a failed check and converts it to the error the caller sees.
func denied(ctx context.Context, logger *slog.Logger, scope tenant.Scope, action authz.Action, kind authz.Kind, id uuid.UUID, res authz.Result, notFound error) error {
	logger.InfoContext(ctx, "authorization denied",
		"user_id", scope.UserID(),
		"company_id", scope.CompanyID(),
		"action", string(action),
		"resource", string(kind),
		"resource_id", id,
		"reason", res.Reason.String(),
	)

	switch res.Reason {
	case authz.ReasonCompanyMismatch:
		return notFound
	case authz.ReasonNoCompany:
		return domain.ErrNoCompany
	default:
		return domain.ErrForbidden
	}
}

// requiredText trims s and records a field error when it is empty or too long.
func requiredText(verr *domain.ValidationError, field, s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		verr.Add(field, "is required")
	case utf8.RuneCountInString(s) > maxNameLength:
		verr.Add(field, "must be at most 255 characters")
	}
	return s
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
