package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-projects/internal/httputil"
	"github.com/tendant/simple-projects/pkg/auth"
	"github.com/tendant/simple-projects/pkg/domain"
	"github.com/tendant/simple-projects/pkg/tenant"
)

// Handler handles session endpoints.
type Handler struct {
	logger       *slog.Logger
	tokens       *auth.TokenService
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(logger *slog.Logger, tokens *auth.TokenService, cookieConfig httputil.CookieConfig) *Handler {
	return &Handler{
		logger:       logger,
		tokens:       tokens,
		cookieConfig: cookieConfig,
	}
}

// MessageResponse represents a simple message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// Logout revokes the session behind the current token. Other sessions of
// the same user stay valid.
// POST /auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := tenant.PrincipalFromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := h.tokens.Revoke(r.Context(), principal); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrUnauthenticated) {
			httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		h.logger.ErrorContext(r.Context(), "logout failed", "user_id", principal.UserID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "logout failed")
		return
	}

	httputil.ClearAuthCookie(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}
