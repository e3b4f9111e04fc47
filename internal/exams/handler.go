package exams

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// Handler exposes exam endpoints.
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

// MountRoutes registers exam routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Authenticate)
	everyone := h.rbac.RequireRoles(rbac.AllRoles()...)
	r.With(everyone).Get("/", h.listExams)
	r.With(everyone).Get("/{examId}", h.getExam)

	studentScoped := []func(http.Handler) http.Handler{
		h.rbac.RequireRoles(rbac.RoleAdmin, rbac.RoleStaff, rbac.RoleStudent),
		h.rbac.AuthorizeStudentAccess("studentId"),
	}
	r.With(studentScoped...).Post("/{examId}/register", h.register)
	r.With(studentScoped...).Get("/student/{studentId}/registrations", h.studentRegistrations)

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(rbac.RoleAdmin, rbac.RoleStaff))
		r.Post("/", h.createExam)
		r.Put("/{examId}", h.updateExam)
		r.Put("/registrations/{registrationId}/result", h.recordResult)
	})
	r.With(h.rbac.RequireRoles(rbac.RoleAdmin)).Delete("/{examId}", h.deleteExam)
}

func (h *Handler) listExams(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Department: q.Get("department"), Status: Status(q.Get("status"))}
	if raw := q.Get("semester"); raw != "" {
		sem, err := strconv.Atoi(raw)
		if err != nil || sem <= 0 {
			httpx.RespondError(w, h.logger, httpx.Invalid("semester must be a positive number."))
			return
		}
		filter.Semester = sem
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

func (h *Handler) getExam(w http.ResponseWriter, r *http.Request) {
	e, err := h.service.Get(r.Context(), chi.URLParam(r, "examId"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, e, "")
}

func (h *Handler) createExam(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	e, err := h.service.Create(r.Context(), rbac.CurrentPrincipal(r), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, e, "Exam created successfully.")
}

func (h *Handler) updateExam(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	e, err := h.service.Update(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "examId"), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, e, "Exam updated successfully.")
}

func (h *Handler) deleteExam(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "examId")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Exam deleted successfully.")
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if checked, ok := rbac.CheckedTarget(r, "studentId"); !ok || checked != strings.TrimSpace(in.StudentID) {
		httpx.RespondError(w, h.logger, shared.NewAuthzError(shared.AuthzForbidden, shared.MsgOwnStudentOnly))
		return
	}
	reg, err := h.service.Register(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "examId"), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, reg, "Registered for exam successfully.")
}

func (h *Handler) studentRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.service.StudentRegistrations(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, regs, "")
}

func (h *Handler) recordResult(w http.ResponseWriter, r *http.Request) {
	var in ResultInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	reg, err := h.service.RecordResult(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "registrationId"), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, reg, "Result recorded successfully.")
}
