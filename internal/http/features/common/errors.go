// Package common holds the response views and error mapping shared by the
// feature handlers.
package common

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tendant/simple-projects/internal/httputil"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// WriteError maps a domain error to its HTTP status and writes it.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		httputil.ValidationError(w, verr)
	case errors.Is(err, domain.ErrUnauthenticated):
		httputil.Error(w, http.StatusUnauthorized, "unauthenticated")
	case errors.Is(err, domain.ErrNoCompany):
		httputil.Error(w, http.StatusForbidden, "user does not belong to any company")
	case errors.Is(err, domain.ErrForbidden):
		httputil.Error(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrProjectNotFound):
		httputil.Error(w, http.StatusNotFound, "project not found")
	case errors.Is(err, domain.ErrTaskNotFound):
		httputil.Error(w, http.StatusNotFound, "task not found")
	case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrCompanyNotFound):
		httputil.Error(w, http.StatusNotFound, "not found")
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// Scope returns the tenant scope set by middleware.RequireTenant.
func Scope(w http.ResponseWriter, r *http.Request) (tenant.Scope, bool) {
	scope, err := tenant.ScopeFromContext(r.Context())
	if err != nil {
		httputil.Error(w, http.StatusUnauthorized, "unauthenticated")
		return tenant.Scope{}, false
	}
	return scope, true
}

// PathID parses a uuid URL parameter. A malformed id cannot exist, so it is
// answered with 404 like any other unknown id.
func PathID(w http.ResponseWriter, r *http.Request, param, notFoundMessage string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httputil.Error(w, http.StatusNotFound, notFoundMessage)
		return uuid.Nil, false
	}
	return id, true
}
