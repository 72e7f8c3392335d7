package password

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tendant/simple-projects/internal/http/features/common"
	"github.com/tendant/simple-projects/internal/httputil"
	"github.com/tendant/simple-projects/pkg/auth"
	"github.com/tendant/simple-projects/pkg/domain"
)

// Handler handles registration and password login.
type Handler struct {
	logger          *slog.Logger
	passwordService *auth.PasswordService
	cookieConfig    httputil.CookieConfig
	debug           bool
}

// NewHandler creates a new password handler. debug adds error details to
// registration failures.
func NewHandler(logger *slog.Logger, passwordService *auth.PasswordService, cookieConfig httputil.CookieConfig, debug bool) *Handler {
	return &Handler{
		logger:          logger,
		passwordService: passwordService,
		cookieConfig:    cookieConfig,
		debug:           debug,
	}
}

// RegisterRequest represents a registration request.
type RegisterRequest struct {
	CompanyName string `json:"company_name"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse is returned after a successful registration.
type RegisterResponse struct {
	Message string             `json:"message"`
	User    common.UserView    `json:"user"`
	Company common.CompanyView `json:"company"`
	Token   *domain.Token      `json:"token"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Message string          `json:"message"`
	User    common.UserView `json:"user"`
	Token   *domain.Token   `json:"token"`
}

// Register creates a company with its owner and signs the owner in.
// POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	reg, err := h.passwordService.Register(r.Context(), auth.RegisterInput{
		CompanyName: req.CompanyName,
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		var verr *domain.ValidationError
		var txErr *domain.TransactionError
		switch {
		case errors.As(err, &verr):
			httputil.ValidationError(w, verr)
		case errors.Is(err, domain.ErrUserAlreadyExists):
			httputil.Error(w, http.StatusConflict, "user already exists")
		case errors.As(err, &txErr):
			h.logger.ErrorContext(r.Context(), "registration failed", "error", err)
			resp := httputil.ErrorResponse{Error: "registration failed. please try again."}
			if h.debug {
				resp.Detail = err.Error()
			}
			httputil.JSON(w, http.StatusInternalServerError, resp)
		default:
			h.logger.ErrorContext(r.Context(), "registration failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "registration failed. please try again.")
		}
		return
	}

	h.logger.InfoContext(r.Context(), "company registered", "company_id", reg.Company.ID, "user_id", reg.User.ID)
	httputil.SetAuthCookie(w, reg.Token.AccessToken, time.Until(reg.Token.ExpiresAt), h.cookieConfig)
	httputil.JSON(w, http.StatusCreated, RegisterResponse{
		Message: "Registration successful.",
		User:    common.NewUserView(reg.User),
		Company: common.NewCompanyView(reg.Company),
		Token:   reg.Token,
	})
}

// Login checks credentials and starts a new session.
// POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.passwordService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			httputil.ValidationError(w, verr)
		case errors.Is(err, domain.ErrInvalidCredentials):
			httputil.Error(w, http.StatusUnauthorized, "invalid email or password")
		default:
			h.logger.ErrorContext(r.Context(), "login failed", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "authentication failed")
		}
		return
	}

	httputil.SetAuthCookie(w, token.AccessToken, time.Until(token.ExpiresAt), h.cookieConfig)
	httputil.JSON(w, http.StatusOK, LoginResponse{
		Message: "Login successful.",
		User:    common.NewUserView(user),
		Token:   token,
	})
}
