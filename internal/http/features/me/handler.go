package me

import (
	"log/slog"
	"net/http"

	"github.com/tendant/simple-projects/internal/http/features/common"
	"github.com/tendant/simple-projects/internal/httputil"
	"github.com/tendant/simple-projects/pkg/store"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// Handler handles the current user's profile.
type Handler struct {
	logger *slog.Logger
	repos  store.Repos
}

// NewHandler creates a new me handler.
func NewHandler(logger *slog.Logger, repos store.Repos) *Handler {
	return &Handler{logger: logger, repos: repos}
}

// MeResponse is the current user with its company. Company is null for a
// user that belongs to none.
type MeResponse struct {
	User    common.UserView     `json:"user"`
	Company *common.CompanyView `json:"company"`
}

// GetMe returns the current user and company. It only needs an
// authenticated principal, not a tenant scope.
// GET /auth/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenant.PrincipalFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	user, err := h.repos.Users.GetByID(r.Context(), principal.UserID)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	resp := MeResponse{User: common.NewUserView(user)}
	if principal.HasCompany() {
		scope, err := tenant.NewScope(principal)
		if err != nil {
			common.WriteError(w, r, h.logger, err)
			return
		}
		company, err := h.repos.Companies.Get(r.Context(), scope)
		if err != nil {
			common.WriteError(w, r, h.logger, err)
			return
		}
		view := common.NewCompanyView(company)
		resp.Company = &view
	}

	httputil.JSON(w, http.StatusOK, resp)
}
