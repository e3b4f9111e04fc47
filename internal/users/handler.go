package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Authenticate)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(rbac.RoleAdmin, rbac.RoleStaff))
		r.Get("/", h.listUsers)
		r.Get("/{userId}", h.getUser)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(rbac.RoleAdmin))
		r.Post("/", h.createUser)
		r.Put("/{userId}", h.updateUser)
		r.Patch("/{userId}/status", h.setStatus)
		r.Delete("/{userId}", h.deleteUser)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter ListFilter
	if raw := q.Get("role"); raw != "" {
		role, err := rbac.ParseRole(raw)
		if err != nil {
			httpx.RespondError(w, h.logger, ErrInvalidRole)
			return
		}
		filter.Role = role
	}
	if raw := q.Get("isActive"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.RespondError(w, h.logger, httpx.Invalid("isActive must be true or false."))
			return
		}
		filter.IsActive = &active
	}
	users, err := h.service.ListUsers(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page, perPage := shared.ParsePage(q)
	items, meta := shared.Paginate(users, page, perPage)
	httpx.List(w, items, meta)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Get(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, user, "")
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, user, "User created successfully.")
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.Update(r.Context(), chi.URLParam(r, "userId"), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, user, "User updated successfully.")
}

type statusInput struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	var in statusInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	user, err := h.service.SetStatus(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "userId"), *in.IsActive)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	msg := "User activated successfully."
	if !*in.IsActive {
		msg = "User deactivated successfully."
	}
	httpx.OK(w, http.StatusOK, user, msg)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "userId")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "User deleted successfully.")
}
