package hostels

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
)

// Handler exposes hostel endpoints.
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

// MountRoutes registers hostel routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.Authenticate)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(rbac.RoleAdmin, rbac.RoleWarden))
		r.Use(h.rbac.AuthorizeHostelAccess("hostelId"))
		r.Get("/", h.listHostels)
		r.Get("/{hostelId}", h.getHostel)
		r.Put("/{hostelId}", h.updateHostel)
		r.Post("/{hostelId}/allocate", h.allocate)
		r.Post("/{hostelId}/vacate", h.vacate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRoles(rbac.RoleAdmin))
		r.Post("/", h.createHostel)
		r.Delete("/{hostelId}", h.deleteHostel)
	})
}

type hostelView struct {
	*Hostel
	Capacity  int `json:"capacity"`
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

func view(h *Hostel) hostelView {
	capacity, occupied := h.Occupancy()
	return hostelView{Hostel: h, Capacity: capacity, Occupied: occupied, Available: capacity - occupied}
}

func (h *Handler) listHostels(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), rbac.CurrentPrincipal(r))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	out := make([]hostelView, 0, len(list))
	for i := range list {
		out = append(out, view(&list[i]))
	}
	httpx.OK(w, http.StatusOK, out, "")
}

func (h *Handler) getHostel(w http.ResponseWriter, r *http.Request) {
	hostel, err := h.service.Get(r.Context(), chi.URLParam(r, "hostelId"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, view(hostel), "")
}

func (h *Handler) createHostel(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	hostel, err := h.service.Create(r.Context(), rbac.CurrentPrincipal(r), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusCreated, view(hostel), "Hostel created successfully.")
}

func (h *Handler) updateHostel(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	hostel, err := h.service.Update(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "hostelId"), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, view(hostel), "Hostel updated successfully.")
}

func (h *Handler) deleteHostel(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "hostelId")); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Hostel deleted successfully.")
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	var in AllocationInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	hostel, err := h.service.Allocate(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "hostelId"), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, view(hostel), "Room allocated successfully.")
}

func (h *Handler) vacate(w http.ResponseWriter, r *http.Request) {
	var in VacateInput
	if err := httpx.Bind(r, h.validator, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	hostel, err := h.service.Vacate(r.Context(), rbac.CurrentPrincipal(r), chi.URLParam(r, "hostelId"), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, view(hostel), "Room vacated successfully.")
}
