package tasks

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-projects/internal/http/features/common"
	"github.com/tendant/simple-projects/internal/httputil"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/service"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// Handler handles task endpoints.
type Handler struct {
	logger *slog.Logger
	tasks  *service.TaskService
}

// NewHandler creates a new tasks handler.
func NewHandler(logger *slog.Logger, tasks *service.TaskService) *Handler {
	return &Handler{logger: logger, tasks: tasks}
}

// TaskRequest is the body of create and update. Omitted fields are left
// unchanged on update. due_date accepts YYYY-MM-DD or RFC 3339.
type TaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	AssignedTo  *string `json:"assigned_to,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
}

func (req TaskRequest) input() (service.TaskInput, error) {
	in := service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
	}
	verr := &domain.ValidationError{}
	if req.Status != nil {
		status := domain.TaskStatus(*req.Status)
		in.Status = &status
	}
	if req.AssignedTo != nil {
		id, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			verr.Add("assigned_to", "must be a valid id")
		} else {
			in.AssignedTo = &id
		}
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			verr.Add("due_date", "must be a date (YYYY-MM-DD)")
		} else {
			in.DueDate = &due
		}
	}
	if verr.HasErrors() {
		return in, verr
	}
	return in, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Message string          `json:"message,omitempty"`
	Task    common.TaskView `json:"task"`
}

// ListResponse wraps a task list.
type ListResponse struct {
	Tasks []common.TaskView `json:"tasks"`
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// List returns the tasks of a project.
// GET /projects/{id}/tasks
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, ok := common.Scope(w, r)
	if !ok {
		return
	}
	projectID, ok := common.PathID(w, r, "id", "project not found")
	if !ok {
		return
	}

	tasks, err := h.tasks.ListByProject(r.Context(), scope, projectID)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}
	views, ok := h.views(w, r, scope, tasks...)
	if !ok {
		return
	}
	httputil.JSON(w, http.StatusOK, ListResponse{Tasks: views})
}

// Create adds a task to a project.
// POST /projects/{id}/tasks
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	scope, ok := common.Scope(w, r)
	if !ok {
		return
	}
	projectID, ok := common.PathID(w, r, "id", "project not found")
	if !ok {
		return
	}

	var req TaskRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	task, err := h.tasks.Create(r.Context(), scope, projectID, in)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}
	views, ok := h.views(w, r, scope, task)
	if !ok {
		return
	}
	httputil.JSON(w, http.StatusCreated, TaskResponse{
		Message: "Task created successfully.",
		Task:    views[0],
	})
}

// Get returns a task.
// GET /tasks/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	scope, ok := common.Scope(w, r)
	if !ok {
		return
	}
	id, ok := common.PathID(w, r, "id", "task not found")
	if !ok {
		return
	}

	task, err := h.tasks.Get(r.Context(), scope, id)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}
	views, ok := h.views(w, r, scope, task)
	if !ok {
		return
	}
	httputil.JSON(w, http.StatusOK, TaskResponse{Task: views[0]})
}

// Update changes a task. Project members only.
// PUT /tasks/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	scope, ok := common.Scope(w, r)
	if !ok {
		return
	}
	id, ok := common.PathID(w, r, "id", "task not found")
	if !ok {
		return
	}

	var req TaskRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}

	task, err := h.tasks.Update(r.Context(), scope, id, in)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}
	views, ok := h.views(w, r, scope, task)
	if !ok {
		return
	}
	httputil.JSON(w, http.StatusOK, TaskResponse{
		Message: "Task updated successfully.",
		Task:    views[0],
	})
}

// Delete removes a task. Project members only.
// DELETE /tasks/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	scope, ok := common.Scope(w, r)
	if !ok {
		return
	}
	id, ok := common.PathID(w, r, "id", "task not found")
	if !ok {
		return
	}

	if err := h.tasks.Delete(r.Context(), scope, id); err != nil {
		common.WriteError(w, r, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "Task deleted successfully."})
}

// views converts tasks with their assignees embedded.
func (h *Handler) views(w http.ResponseWriter, r *http.Request, scope tenant.Scope, tasks ...*domain.Task) ([]common.TaskView, bool) {
	assignees, err := h.tasks.Assignees(r.Context(), scope, tasks...)
	if err != nil {
		common.WriteError(w, r, h.logger, err)
		return nil, false
	}
	return common.NewTaskViews(tasks, assignees), true
}
