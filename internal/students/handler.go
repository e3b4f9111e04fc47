package students

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

// Handler exposes student record endpoints.
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

// MountRoutes registers student routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Authenticate)
	r.With(h.rbac.RequireRoles(rbac.RoleStudent)).Get("/me", h.me)
	r.With(h.rbac.RequireRoles(rbac.RoleAdmin, rbac.RoleStaff, rbac.RoleStudent), h.rbac.AuthorizeStudentAccess("studentId")).
		Get("/{studentId}", h.getStudent)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(rbac.RoleAdmin, rbac.RoleStaff))
		r.Get("/", h.listStudents)
		r.Post("/", h.createStudent)
		r.Put("/{studentId}", h.updateStudent)
	})
	r.With(h.rbac.RequireRoles(rbac.RoleAdmin)).Delete("/{studentId}", h.deleteStudent)
}

func (h *Handler) listStudents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Department: q.Get("department"), Status: Status(q.Get("status"))}
	if raw := q.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year <= 0 {
			httpx.RespondError(w, h.logger, httpx.Invalid("year must be a positive number."))
			return
		}
		filter.Year = year
	}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page, perPage := shared.ParsePage(q)
	items, meta := shared.Paginate(list, page, perPage)
	httpx.List(w, items, meta)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.ForUser(r.Context(), rbac.CurrentPrincipal(r).ID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, st, "")
}

func (h *Handler) getStudent(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, st, "")
}

func (h *Handler) createStudent(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	st, err := h.service.Create(r.Context(), rbac.CurrentPrincipal(r), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, st, "Student created successfully.")
}

func (h *Handler) updateStudent(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	st, err := h.service.Update(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "studentId"), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, st, "Student updated successfully.")
}

func (h *Handler) deleteStudent(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "studentId")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Student deleted successfully.")
}
