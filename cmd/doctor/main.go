package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/shaid-7908/display-doctor-v2/internal/app"
	"github.com/shaid-7908/display-doctor-v2/internal/audit"
	audithttp "github.com/shaid-7908/display-doctor-v2/internal/audit/http"
	"github.com/shaid-7908/display-doctor-v2/internal/auth"
	"github.com/shaid-7908/display-doctor-v2/internal/catalog"
	"github.com/shaid-7908/display-doctor-v2/internal/invoices"
	"github.com/shaid-7908/display-doctor-v2/internal/issues"
	"github.com/shaid-7908/display-doctor-v2/internal/observability"
	"github.com/shaid-7908/display-doctor-v2/internal/platform/cache"
	"github.com/shaid-7908/display-doctor-v2/internal/platform/db"
	"github.com/shaid-7908/display-doctor-v2/internal/rbac"
	"github.com/shaid-7908/display-doctor-v2/internal/reports"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
	"github.com/shaid-7908/display-doctor-v2/internal/technicians"
	"github.com/shaid-7908/display-doctor-v2/internal/users"
	"github.com/shaid-7908/display-doctor-v2/jobs"
	"github.com/shaid-7908/display-doctor-v2/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "ddoc_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger}

	queue, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, queue, auditLogger)
	usersDirectory := users.NewDirectory(usersService)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	techRepo := technicians.NewRepository(dbpool)
	techService := technicians.NewService(techRepo, usersDirectory, auditLogger)

	issuesRepo := issues.NewRepository(dbpool)
	resolver := issues.NewAssignmentResolver(usersDirectory, techService)
	issuesService := issues.NewService(issuesRepo, resolver, auditLogger, metrics)
	issuesHandler := issues.NewHandler(logger, issuesService, rbacMiddleware)

	techHandler := technicians.NewHandler(logger, techService, issuesService, rbacMiddleware)

	reportsRepo := reports.NewRepository(dbpool)
	reportsService := reports.NewService(reportsRepo, issuesService, approvalRecorder, auditLogger)
	reportsHandler := reports.NewHandler(logger, reportsService, rbacMiddleware)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, logger)

	invoicesRepo := invoices.NewRepository(dbpool)
	invoicesService := invoices.NewService(invoicesRepo, issuesService, reportsService, idempotencyStore, auditLogger, queue)
	invoiceRenderer := invoices.NewPDFRenderer(reportClient, invoicesService)
	invoicesHandler := invoices.NewHandler(logger, invoicesService, invoiceRenderer, rbacMiddleware)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo, auditLogger)
	catalogHandler := catalog.NewHandler(logger, catalogService, rbacMiddleware)

	auditRepo := audit.NewRepository(dbpool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audithttp.NewHandler(logger, auditService, rbacService)

	rolesHandler := rbac.NewRolesHandler(logger, rbacService, rbacMiddleware)
	permissionsHandler := rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		RBACMiddleware:     rbacMiddleware,
		AuthHandler:        authHandler,
		IssuesHandler:      issuesHandler,
		ReportsHandler:     reportsHandler,
		InvoicesHandler:    invoicesHandler,
		UsersHandler:       usersHandler,
		TechniciansHandler: techHandler,
		CatalogHandler:     catalogHandler,
		AuditHandler:       auditHandler,
		RolesHandler:       rolesHandler,
		PermissionsHandler: permissionsHandler,
		ReportHandler:      reportHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
