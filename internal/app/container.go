package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/campus-erp/internal/admissions"
	"github.com/odyssey-erp/campus-erp/internal/audit"
	"github.com/odyssey-erp/campus-erp/internal/auth"
	"github.com/odyssey-erp/campus-erp/internal/dashboard"
	"github.com/odyssey-erp/campus-erp/internal/docstore"
	"github.com/odyssey-erp/campus-erp/internal/exams"
	"github.com/odyssey-erp/campus-erp/internal/fees"
	"github.com/odyssey-erp/campus-erp/internal/hostels"
	"github.com/odyssey-erp/campus-erp/internal/observability"
	"github.com/odyssey-erp/campus-erp/internal/platform/cache"
	"github.com/odyssey-erp/campus-erp/internal/platform/db"
	"github.com/odyssey-erp/campus-erp/internal/rbac"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	"github.com/odyssey-erp/campus-erp/internal/students"
	"github.com/odyssey-erp/campus-erp/internal/users"
	"github.com/odyssey-erp/campus-erp/jobs"
	"github.com/odyssey-erp/campus-erp/report"
)

// Deps are the external resources the services run on. Redis, Mail and Inspector may be
// nil; the features that need them degrade to their in-process fallbacks.
type Deps struct {
	Store     docstore.Store
	Redis     *redis.Client
	Mail      admissions.Notifier
	Inspector jobs.QueueInspector
}

// Container holds the wired services and the HTTP handler serving them.
type Container struct {
	Users      *users.Service
	Students   *students.Service
	Fees       *fees.Service
	Hostels    *hostels.Service
	Exams      *exams.Service
	Admissions *admissions.Service
	Dashboard  *dashboard.Service
	Tokens     *auth.JWTService
	RBAC       rbac.Middleware
	Metrics    *observability.Metrics
	Handler    http.Handler

	authz *observability.AuthzMetrics
}

// Build wires every module against deps.
func Build(cfg *Config, logger *slog.Logger, deps Deps) (*Container, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("app: document store required")
	}
	metrics := observability.NewMetrics()
	authz, err := observability.NewAuthzMetrics(metrics.Registerer())
	if err != nil {
		return nil, err
	}

	tokens := auth.NewJWTService(auth.JWTConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.JWTTTL,
		Leeway: cfg.JWTLeeway,
	})
	mw := rbac.Middleware{
		Resolver: auth.NewResolver(tokens, deps.Store),
		Checker:  rbac.NewChecker(deps.Store),
		Logger:   logger,
		Metrics:  authz,
	}
	auditLog := shared.NewAuditLogger(deps.Store)

	userRepo := users.NewRepository(deps.Store)
	userService := users.NewService(userRepo, auditLog, cfg.BcryptCost)
	authService := auth.NewService(userRepo, userService, tokens)
	studentService := students.NewService(students.NewRepository(deps.Store), userRepo, auditLog)

	var locker *cache.Locker
	var idem *shared.IdempotencyStore
	var dashCache *dashboard.Cache
	if deps.Redis != nil {
		locker = cache.NewLocker(deps.Redis, cfg.PaymentLockTTL)
		idem = shared.NewIdempotencyStore(deps.Redis, cfg.IdempotencyRetention)
		dashCache = dashboard.NewCache(deps.Redis, cfg.DashboardCacheTTL)
	}

	pdf := report.NewClient(cfg.GotenbergURL)
	feeOpts := []fees.Option{fees.WithAudit(auditLog), fees.WithReceipts(pdf)}
	if locker != nil {
		feeOpts = append(feeOpts, fees.WithLocks(locker), fees.WithIdempotency(idem))
	}
	feeService := fees.NewService(fees.NewRepository(deps.Store), feeOpts...)

	var hostelLocks hostels.LockPort
	if locker != nil {
		hostelLocks = locker
	}
	hostelService := hostels.NewService(hostels.NewRepository(deps.Store), userRepo, hostelLocks, auditLog)
	examService := exams.NewService(exams.NewRepository(deps.Store), auditLog)
	admissionService := admissions.NewService(admissions.NewRepository(deps.Store), auditLog, deps.Mail, logger)
	dashboardService := dashboard.NewService(deps.Store, dashCache)

	handler := NewRouter(RouterParams{
		Logger:             logger,
		Config:             cfg,
		AuthHandler:        auth.NewHandler(logger, authService, mw),
		UsersHandler:       users.NewHandler(logger, userService, mw),
		StudentsHandler:    students.NewHandler(logger, studentService, mw),
		FeesHandler:        fees.NewHandler(logger, feeService, mw),
		HostelsHandler:     hostels.NewHandler(logger, hostelService, mw),
		ExamsHandler:       exams.NewHandler(logger, examService, mw),
		AdmissionsHandler:  admissions.NewHandler(logger, admissionService, mw),
		AuditHandler:       audit.NewHandler(logger, audit.NewService(audit.NewRepository(deps.Store)), mw),
		DashboardHandler:   dashboard.NewHandler(logger, dashboardService, mw),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, mw),
		ReportHandler:      report.NewHandler(pdf, logger, mw),
		JobHandler:         jobs.NewHandler(deps.Inspector, logger),
		Metrics:            metrics,
	})

	return &Container{
		Users:      userService,
		Students:   studentService,
		Fees:       feeService,
		Hostels:    hostelService,
		Exams:      examService,
		Admissions: admissionService,
		Dashboard:  dashboardService,
		Tokens:     tokens,
		RBAC:       mw,
		Metrics:    metrics,
		Handler:    handler,
		authz:      authz,
	}, nil
}

// Close flushes telemetry.
func (c *Container) Close(ctx context.Context) error {
	return c.authz.Shutdown(ctx)
}

// OpenStore opens the configured document store. The returned close func is never nil.
func OpenStore(ctx context.Context, cfg *Config) (docstore.Store, func(), error) {
	if cfg.StoreDriver == StoreDriverMemory {
		return docstore.NewMemory(), func() {}, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PoolOptions())
	if err != nil {
		return nil, func() {}, err
	}
	store := docstore.NewPostgres(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, func() {}, err
	}
	return store, pool.Close, nil
}
