// Package health serves the unauthenticated status endpoints.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tendant/simple-projects/internal/httputil"
)

// Database is the part of the storage backend the status endpoints need.
type Database interface {
	Ping(ctx context.Context) error
	TableCount(ctx context.Context) (int, error)
}

// AppInfo describes the running application.
type AppInfo struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Debug       bool   `json:"debug"`
}

// Handler handles status endpoints.
type Handler struct {
	logger *slog.Logger
	db     Database
	driver string
	app    AppInfo
}

// NewHandler creates a new health handler.
func NewHandler(logger *slog.Logger, db Database, driver string, app AppInfo) *Handler {
	return &Handler{logger: logger, db: db, driver: driver, app: app}
}

// StatusResponse is the liveness reply.
type StatusResponse struct {
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
}

// DatabaseResponse is the storage check reply.
type DatabaseResponse struct {
	Status      string    `json:"status"`
	Message     string    `json:"message,omitempty"`
	TablesCount int       `json:"tables_count"`
	Database    string    `json:"database"`
	Timestamp   time.Time `json:"timestamp"`
}

// DatabaseInfo summarizes storage state for /info.
type DatabaseInfo struct {
	Connected   bool   `json:"connected"`
	TablesCount int    `json:"tables_count"`
	Driver      string `json:"driver"`
}

// InfoResponse is the /info reply.
type InfoResponse struct {
	App       AppInfo      `json:"app"`
	Database  DatabaseInfo `json:"database"`
	Timestamp time.Time    `json:"timestamp"`
}

// Health reports that the process is up.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, StatusResponse{
		Status:      "ok",
		Message:     h.app.Name + " is running",
		Timestamp:   time.Now().UTC(),
		Environment: h.app.Environment,
	})
}

// Database pings storage.
// GET /health/db
func (h *Handler) Database(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	count, err := h.check(ctx)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "database check failed", "error", err)
		httputil.JSON(w, http.StatusInternalServerError, DatabaseResponse{
			Status:    "error",
			Message:   "database connection failed",
			Database:  h.driver,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	httputil.JSON(w, http.StatusOK, DatabaseResponse{
		Status:      "ok",
		TablesCount: count,
		Database:    h.driver,
		Timestamp:   time.Now().UTC(),
	})
}

// Info describes the application and its storage.
// GET /info
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	count, err := h.check(ctx)
	httputil.JSON(w, http.StatusOK, InfoResponse{
		App: h.app,
		Database: DatabaseInfo{
			Connected:   err == nil,
			TablesCount: count,
			Driver:      h.driver,
		},
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) check(ctx context.Context) (int, error) {
	if err := h.db.Ping(ctx); err != nil {
		return 0, err
	}
	return h.db.TableCount(ctx)
}
