package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/clinic-admin/app"
	"github.com/upb/clinic-admin/handlers"
	"github.com/upb/clinic-admin/internal/policy"
	appmiddleware "github.com/upb/clinic-admin/middleware"
	"github.com/upb/clinic-admin/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appmiddleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	var db *sql.DB
	if deps.DB != nil {
		db = deps.DB.DB
	}
	health := handlers.NewHealthHandler(db, deps.Table, deps.Logger)
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	// Prometheus metrics
	if deps.Config.Observability.MetricsEnabled {
		r.Method(http.MethodGet, deps.Config.Observability.MetricsPath,
			promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	permissions := handlers.NewPermissionHandler(deps.Table, deps.Logger)

	// A nil *audit.Query must stay a nil interface so the handler reports
	// the trail as disabled.
	var lister handlers.DecisionLister
	if deps.DecisionQuery != nil {
		lister = deps.DecisionQuery
	}
	auditHandler := handlers.NewAuditHandler(lister, deps.Logger)

	authz := deps.Authorizer

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Identity is optional here; guards answer anonymous callers themselves
		r.Use(deps.AuthMiddleware.Authenticate)

		r.Route("/permissions", func(r chi.Router) {
			r.With(deps.AuthMiddleware.RequireAuth).Get("/me", permissions.HandleMe)
			r.With(deps.AuthMiddleware.RequireAuth).Post("/check", permissions.HandleCheck)

			r.With(authz.Authorize(policy.ResourceUsers, policy.ActionView)).
				Get("/roles/{role}", permissions.HandleRole)
			r.With(authz.AuthorizeAny(
				policy.Require(policy.ResourceUsers, policy.ActionView),
				policy.Require(policy.ResourceUsers, policy.ActionUpdate),
			)).Get("/grants", permissions.HandleGrants)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(authz.Authorize(policy.ResourceUsers, policy.ActionView))
			r.Get("/decisions", auditHandler.HandleListDecisions)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
