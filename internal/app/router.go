package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/shaid-7908/display-doctor-v2/internal/audit/http"
	"github.com/shaid-7908/display-doctor-v2/internal/auth"
	"github.com/shaid-7908/display-doctor-v2/internal/catalog"
	"github.com/shaid-7908/display-doctor-v2/internal/invoices"
	"github.com/shaid-7908/display-doctor-v2/internal/issues"
	"github.com/shaid-7908/display-doctor-v2/internal/observability"
	"github.com/shaid-7908/display-doctor-v2/internal/rbac"
	"github.com/shaid-7908/display-doctor-v2/internal/reports"
	"github.com/shaid-7908/display-doctor-v2/internal/shared"
	"github.com/shaid-7908/display-doctor-v2/internal/technicians"
	"github.com/shaid-7908/display-doctor-v2/internal/users"
	"github.com/shaid-7908/display-doctor-v2/jobs"
	"github.com/shaid-7908/display-doctor-v2/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware

	AuthHandler        *auth.Handler
	IssuesHandler      *issues.Handler
	ReportsHandler     *reports.Handler
	InvoicesHandler    *invoices.Handler
	UsersHandler       *users.Handler
	TechniciansHandler *technicians.Handler
	CatalogHandler     *catalog.Handler
	AuditHandler       *audithttp.Handler
	RolesHandler       *rbac.RolesHandler
	PermissionsHandler *rbac.PermissionsHandler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router for the API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.IssuesHandler != nil {
		r.Route("/issues", func(r chi.Router) {
			params.IssuesHandler.MountRoutes(r)
			if params.TechniciansHandler != nil {
				params.TechniciansHandler.MountIssueRoutes(r)
			}
		})
	}
	if params.ReportsHandler != nil {
		r.Route("/reports", params.ReportsHandler.MountRoutes)
	}
	if params.InvoicesHandler != nil {
		r.Route("/invoices", params.InvoicesHandler.MountRoutes)
	}
	if params.UsersHandler != nil {
		r.Route("/users", params.UsersHandler.MountRoutes)
	}
	if params.TechniciansHandler != nil {
		r.Route("/technicians", params.TechniciansHandler.MountRoutes)
	}
	if params.CatalogHandler != nil {
		r.Route("/catalog", params.CatalogHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.RolesHandler != nil {
		r.Route("/roles", params.RolesHandler.MountRoutes)
	}
	if params.PermissionsHandler != nil {
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
