package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/campus-erp/internal/admissions"
	"github.com/odyssey-erp/campus-erp/internal/audit"
	"github.com/odyssey-erp/campus-erp/internal/auth"
	"github.com/odyssey-erp/campus-erp/internal/dashboard"
	"github.com/odyssey-erp/campus-erp/internal/exams"
	"github.com/odyssey-erp/campus-erp/internal/fees"
	"github.com/odyssey-erp/campus-erp/internal/hostels"
	"github.com/odyssey-erp/campus-erp/internal/observability"
	"github.com/odyssey-erp/campus-erp/internal/platform/httpx"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/students"
	"github.com/odyssey-erp/campus-erp/internal/users"
	"github.com/odyssey-erp/campus-erp/jobs"
	"github.com/odyssey-erp/campus-erp/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	StudentsHandler    *students.Handler
	FeesHandler        *fees.Handler
	HostelsHandler     *hostels.Handler
	ExamsHandler       *exams.Handler
	AdmissionsHandler  *admissions.Handler
	AuditHandler       *audit.Handler
	DashboardHandler   *dashboard.Handler
	PermissionsHandler *rbac.PermissionsHandler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with campus defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusNotFound, "Route not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.StudentsHandler != nil {
			r.Route("/students", params.StudentsHandler.MountRoutes)
		}
		if params.FeesHandler != nil {
			r.Route("/fees", params.FeesHandler.MountRoutes)
		}
		if params.HostelsHandler != nil {
			r.Route("/hostels", params.HostelsHandler.MountRoutes)
		}
		if params.ExamsHandler != nil {
			r.Route("/exams", params.ExamsHandler.MountRoutes)
		}
		if params.AdmissionsHandler != nil {
			r.Route("/admissions", params.AdmissionsHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit-logs", params.AuditHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.PermissionsHandler != nil {
			r.Route("/roles", params.PermissionsHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			r.Route("/reports", params.ReportHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
