package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
)

const (
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
	dateLayout       = "2006-01-02"
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters TimelineFilters) (Result, error)
	Export(ctx context.Context, filters TimelineFilters) ([]Entry, error)
}

// Handler serves the audit timeline to administrators.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs the audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Authenticate)
	r.Use(h.rbac.RequireRoles(rbac.RoleAdmin))
	r.Get("/", h.timeline)
	r.Get("/export.csv", h.export)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.List(w, result.Rows, result.Paging)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	data, err := WriteCSV(rows)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	if _, err := w.Write(data); err != nil && h.logger != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = h.now().UTC().Format(dateLayout)
	}
	to, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return TimelineFilters{}, httpx.Invalid("to must be a date (YYYY-MM-DD).")
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = to.Add(-defaultDateRange).Format(dateLayout)
	}
	from, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return TimelineFilters{}, httpx.Invalid("from must be a date (YYYY-MM-DD).")
	}
	if from.After(to) || to.Sub(from) > maxDateRange {
		return TimelineFilters{}, httpx.Invalid("Date range must be ascending and at most 90 days.")
	}

	page, err := positiveInt(q.Get("page"), 1)
	if err != nil {
		return TimelineFilters{}, httpx.Invalid("page must be a positive number.")
	}
	pageSize, err := positiveInt(q.Get("pageSize"), DefaultPageSize)
	if err != nil {
		return TimelineFilters{}, httpx.Invalid("pageSize must be a positive number.")
	}

	return TimelineFilters{
		From:     from,
		To:       to,
		Actor:    strings.TrimSpace(q.Get("actor")),
		Entity:   strings.TrimSpace(q.Get("entity")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func positiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
