package projects

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/internal/http/features/common"
	"github.com/tendant/simple-projects/internal/httputil"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/service"
)

// Handler handles project endpoints.
type Handler struct {
	logger   *slog.Logger
	projects *service.ProjectService
}

// NewHandler creates a new projects handler.
func NewHandler(logger *slog.Logger, projects *service.ProjectService) *Handler {
	return &Handler{logger: logger, projects: projects}
}

// ProjectRequest is the body of create and update. Omitted fields are left
// unchanged on update.
type ProjectRequest struct {
	CompanyID   *string `json:"company_id,omitempty"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (req ProjectRequest) input() (service.ProjectInput, error) {
	in := service.ProjectInput{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.CompanyID != nil && *req.CompanyID != "" {
		id, err := uuid.Parse(*req.CompanyID)
		if err != nil {
			return in, domain.NewValidationError("company_id", "must be a valid id")
		}
		in.CompanyID = id
	}
	if req.Status != nil {
		status := domain.ProjectStatus(*req.Status)
		in.Status = &status
	}
	return in, nil
}

// ProjectResponse wraps a single project.
type ProjectResponse struct {
	Message string             `json:"message,omitempty"`
	Project common.ProjectView `json:"project"`
}

// ListResponse wraps the project list.
type ListResponse struct {
	Projects []common.ProjectView `json:"projects"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// List returns the company's projects.
// GET /projects
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := common.Scope(w, r)
	if !ok {
		return
	}

	details, err := h.projects.List(r.Context(), scope)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	out := make([]common.ProjectView, 0, len(details))
	for _, d := range details {
		out = append(out, common.NewProjectView(d, false))
	}
	httputil.JSON(w, http.StatusOK, ListResponse{Projects: out})
}

// Create adds a project; the caller becomes its admin.
// POST /projects
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := common.Scope(w, r)
	if !ok {
		return
	}

	var req ProjectRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	d, err := h.projects.Create(r.Context(), scope, in)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusCreated, ProjectResponse{
		Message: "Project created successfully.",
		Project: common.NewProjectView(d, true),
	})
}

// Get returns a project with members and tasks.
// GET /projects/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := common.Scope(w, r)
	if !ok {
		return
	}
	id, ok := common.PathID(w, r, "id", "project not found")
	if !ok {
		return
	}

	d, err := h.projects.Get(r.Context(), scope, id)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ProjectResponse{Project: common.NewProjectView(d, true)})
}

// Update changes a project. Members only.
// PUT /projects/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := common.Scope(w, r)
	if !ok {
		return
	}
	id, ok := common.PathID(w, r, "id", "project not found")
	if !ok {
		return
	}

	var req ProjectRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	d, err := h.projects.Update(r.Context(), scope, id, in)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ProjectResponse{
		Message: "Project updated successfully.",
		Project: common.NewProjectView(d, true),
	})
}

// Delete removes a project with its tasks. Admins only.
// DELETE /projects/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := common.Scope(w, r)
	if !ok {
		return
	}
	id, ok := common.PathID(w, r, "id", "project not found")
	if !ok {
		return
	}

	if err := h.projects.Delete(r.Context(), scope, id); err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "Project deleted successfully."})
}
