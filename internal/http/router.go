package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/simple-projects/internal/config"
	"github.com/tendant/simple-projects/internal/http/features/health"
	"github.com/tendant/simple-projects/internal/http/features/me"
	"github.com/tendant/simple-projects/internal/http/features/password"
	"github.com/tendant/simple-projects/internal/http/features/projects"
	"github.com/tendant/simple-projects/internal/http/features/session"
	"github.com/tendant/simple-projects/internal/http/features/tasks"
	"github.com/tendant/simple-projects/internal/http/middleware"
	"github.com/tendant/simple-projects/internal/httputil"
	"github.com/tendant/simple-projects/pkg/auth"
	"github.com/tendant/simple-projects/pkg/service"
	"github.com/tendant/simple-projects/pkg/store"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	Backend         store.Backend
	StorageDriver   string
	App             health.AppInfo
	PasswordService *auth.PasswordService
	TokenService    *auth.TokenService
	ProjectService  *service.ProjectService
	TaskService     *service.TaskService
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
	CookieSecure    bool // Whether to use Secure flag on cookies (should be true for HTTPS)
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Status endpoints
	healthHandler := health.NewHandler(cfg.Logger, cfg.Backend, cfg.StorageDriver, cfg.App)
	r.Get("/health", healthHandler.Health)
	r.Get("/health/db", healthHandler.Database)
	r.Get("/info", healthHandler.Info)

	cookieConfig := httputil.DefaultCookieConfig()
	cookieConfig.Secure = cfg.CookieSecure

	// Public authentication routes
	passwordHandler := password.NewHandler(cfg.Logger, cfg.PasswordService, cookieConfig, cfg.App.Debug)
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthRateLimiter(cfg.RateLimitConfig, cfg.Logger))
		r.Post("/auth/register", passwordHandler.Register)
		r.Post("/auth/login", passwordHandler.Login)
	})

	sessionHandler := session.NewHandler(cfg.Logger, cfg.TokenService, cookieConfig)
	meHandler := me.NewHandler(cfg.Logger, cfg.Backend.Repos())
	projectsHandler := projects.NewHandler(cfg.Logger, cfg.ProjectService)
	tasksHandler := tasks.NewHandler(cfg.Logger, cfg.TaskService)

	// Authenticated routes. Logout and me only need a principal.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.TokenService, cfg.Logger))

		r.Post("/auth/logout", sessionHandler.Logout)
		r.Get("/auth/me", meHandler.GetMe)

		// Tenant-scoped routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireTenant)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectsHandler.List)
				r.Post("/", projectsHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", projectsHandler.Get)
					r.Put("/", projectsHandler.Update)
					r.Delete("/", projectsHandler.Delete)
					r.Get("/tasks", tasksHandler.List)
					r.Post("/tasks", tasksHandler.Create)
				})
			})

			r.Get("/tasks/{id}", tasksHandler.Get)
			r.Put("/tasks/{id}", tasksHandler.Update)
			r.Delete("/tasks/{id}", tasksHandler.Delete)
		})
	})

	return r
}
