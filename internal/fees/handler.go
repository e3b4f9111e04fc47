package fees

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
)

// IdempotencyHeader carries the client retry key for payments.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes fee endpoints.
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

// MountRoutes registers fee routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Authenticate)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(rbac.RoleAdmin, rbac.RoleStaff))
		r.Get("/", h.listFees)
		r.Post("/", h.createFee)
		r.Get("/{feeId}", h.getFee)
		r.Post("/{feeId}/payments", h.recordPayment)
	})
	r.Route("/student/{studentId}", func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(rbac.RoleAdmin, rbac.RoleStaff, rbac.RoleStudent))
		r.Use(h.rbac.AuthorizeStudentAccess("studentId"))
		r.Get("/", h.studentFees)
		r.Get("/summary", h.studentSummary)
		r.Get("/receipts/{feeId}", h.receipt)
	})
}

func (h *Handler) listFees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{StudentID: q.Get("studentId"), Status: Status(q.Get("status"))}
	list, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	page, perPage := shared.ParsePage(q)
	items, meta := shared.Paginate(list, page, perPage)
	httpx.List(w, items, meta)
}

func (h *Handler) createFee(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	fee, err := h.service.Create(r.Context(), rbac.CurrentPrincipal(r), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, fee, "Fee created successfully.")
}

func (h *Handler) getFee(w http.ResponseWriter, r *http.Request) {
	fee, err := h.service.Get(r.Context(), chi.URLParam(r, "feeId"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, fee, "")
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var in PaymentInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	fee, err := h.service.RecordPayment(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "feeId"), key, in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, fee, "Payment recorded successfully.")
}

func (h *Handler) studentFees(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ForStudent(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, list, "")
}

func (h *Handler) studentSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.service.Summary(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, sum, "")
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	feeID := chi.URLParam(r, "feeId")
	pdf, err := h.service.Receipt(r.Context(), chi.URLParam(r, "studentId"), feeID)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=receipt-"+feeID+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
