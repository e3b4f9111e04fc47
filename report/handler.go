package report

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
)

// Handler manages report endpoints.
type Handler struct {
	client *Client
	logger *slog.Logger
	rbac   rbac.Middleware
}

// NewHandler creates a report handler.
func NewHandler(client *Client, logger *slog.Logger, rbac rbac.Middleware) *Handler {
	return &Handler{client: client, logger: logger, rbac: rbac}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Authenticate, h.rbac.RequireRoles(rbac.RoleAdmin)).Get("/ping", h.ping)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		if h.logger != nil {
			h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		}
		httpx.Fail(w, http.StatusServiceUnavailable, "Report renderer unavailable.")
		return
	}
	httpx.OK(w, http.StatusOK, map[string]string{"status": "ok"}, "")
}
