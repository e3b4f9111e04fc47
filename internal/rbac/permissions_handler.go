package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
)

var roleDescriptions = map[Role]string{
	RoleAdmin:   "Full access to every module, including account management.",
	RoleStaff:   "Manages students, fees, exams and admissions.",
	RoleWarden:  "Manages the hostels they are assigned to.",
	RoleStudent: "Reads their own records and registers for exams.",
}

// RoleView is the JSON shape of a role listing entry.
type RoleView struct {
	Name        Role   `json:"name"`
	Description string `json:"description"`
}

// PermissionsHandler exposes the role catalogue.
type PermissionsHandler struct {
	logger *slog.Logger
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, rbac: rbac}
}

// MountRoutes registers role routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Authenticate)
		r.Use(h.rbac.RequireRoles(RoleAdmin))
		r.Get("/", h.listRoles)
	})
}

func (h *PermissionsHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles := AllRoles()
	out := make([]RoleView, 0, len(roles))
	for _, role := range roles {
		out = append(out, RoleView{Name: role, Description: roleDescriptions[role]})
	}
	httpx.OK(w, http.StatusOK, out, "")
}
