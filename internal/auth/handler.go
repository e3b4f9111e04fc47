package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
)

// LoginRateLimit is the number of login attempts allowed per IP each minute.
const LoginRateLimit = 10

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbac,
		validator: httpx.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(LoginRateLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		}),
	)).Post("/login", h.handleLogin)
	r.Post("/register", h.handleRegister)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.Get("/me", h.handleMe)
		r.Put("/change-password", h.handleChangePassword)
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	session, err := h.service.Login(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if h.logger != nil {
		h.logger.Info("login", slog.String("user_id", session.User.ID), slog.String("role", session.User.Role.String()))
	}
	httpx.OK(w, http.StatusOK, session, "Login successful.")
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	session, err := h.service.Register(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, session, "Registration successful.")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context(), rbac.CurrentPrincipal(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, user, "")
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var in ChangePasswordInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), rbac.CurrentPrincipal(r), in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Password changed successfully.")
}
