package admissions

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// ApplyRateLimit is the number of public applications accepted per IP each hour.
const ApplyRateLimit = 20

// Handler exposes admission endpoints.
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

// MountRoutes registers admission routes. Applying is public; review requires staff.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httprate.Limit(ApplyRateLimit, time.Hour,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusTooManyRequests, "Too many applications. Please try again later.")
		}),
	)).Post("/", h.apply)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.Use(h.rbac.RequireRoles(rbac.RoleAdmin, rbac.RoleStaff))
		r.Get("/", h.list)
		r.Get("/{applicationId}", h.get)
		r.Patch("/{applicationId}/status", h.updateStatus)
	})
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	var in ApplyInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	app, err := h.service.Apply(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, app, "Application submitted successfully.")
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := Status(q.Get("status"))
	if status != "" && !validStatus(status) {
		httpx.RespondError(w, h.logger, httpx.Invalid("status must be one of pending, under_review, approved, rejected."))
		return
	}
	apps, err := h.service.List(r.Context(), status)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page, perPage := shared.ParsePage(q)
	items, meta := shared.Paginate(apps, page, perPage)
	httpx.List(w, items, meta)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	app, err := h.service.Get(r.Context(), chi.URLParam(r, "applicationId"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, app, "")
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var in StatusInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	app, err := h.service.UpdateStatus(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "applicationId"), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, app, "Application status updated successfully.")
}

func validStatus(s Status) bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}
