package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/upb/clinic-admin/config"
	"github.com/upb/clinic-admin/internal/auth"
	"github.com/upb/clinic-admin/internal/observability"
	"github.com/upb/clinic-admin/internal/policy"
	"github.com/upb/clinic-admin/middleware"
	"github.com/upb/clinic-admin/repositories"
	"github.com/upb/clinic-admin/repositories/postgres"
	"github.com/upb/clinic-admin/services/audit"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB // nil when no database is configured
	Logger *zap.Logger

	// Policy
	Table      *policy.Table
	Authorizer *middleware.Authorizer

	// Metrics
	Registry *prometheus.Registry
	Metrics  *observability.DecisionMetrics

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Decisions repositories.DecisionRepository

	// Audit trail, both nil when disabled
	Recorder      *audit.DecisionRecorder
	DecisionQuery *audit.Query

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
		Table:  policy.Default(),
	}

	deps.initMetrics()

	// Initialize PostgreSQL when the audit trail needs it
	if cfg.AuditEnabled() {
		if err := deps.initDatabase(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := deps.initAudit(cfg); err != nil {
			_ = deps.RepoFactory.Close()
			return nil, fmt.Errorf("failed to initialize audit trail: %w", err)
		}
	} else {
		logger.Warn("authorization audit trail disabled",
			zap.Bool("audit_enabled", cfg.Audit.Enabled),
			zap.Bool("database_configured", cfg.Database.Configured()))
	}

	if err := deps.initAuth(cfg); err != nil {
		deps.shutdownAudit()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps.initAuthorizer(cfg)

	logger.Info("all dependencies initialized successfully",
		zap.Int("resources", len(deps.Table.Resources())),
		zap.Bool("strict_requirements", cfg.Policy.StrictRequirements))
	return deps, nil
}

func (d *Dependencies) initMetrics() {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = observability.NewDecisionMetrics(d.Registry)
}

// initDatabase initializes the PostgreSQL database connection and factory
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(ctx, cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	if err := factory.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.DB()
	d.Decisions = factory.NewRepositories().Decisions

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initAudit starts the decision recorder over the decision repository
func (d *Dependencies) initAudit(cfg *config.Config) error {
	recorder := audit.NewDecisionRecorder(d.Decisions, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.Workers,
	})
	if err := recorder.Start(); err != nil {
		return err
	}

	d.Recorder = recorder
	d.DecisionQuery = audit.NewQuery(d.Decisions)
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) error {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("JWT secret not configured, every caller is anonymous")
		// Use reject-all validator so guarded routes answer unauthenticated
		d.AuthMiddleware = d.newAuthMiddleware(cfg, &rejectAllValidator{})
		return nil
	}

	validator, err := auth.NewTokenValidator(auth.Config{
		Secret:    cfg.Auth.JWTSecret,
		Issuer:    cfg.Auth.Issuer,
		Audience:  cfg.Auth.Audience,
		RoleClaim: cfg.Auth.RoleClaim,
		Leeway:    cfg.Auth.Leeway,
	})
	if err != nil {
		return err
	}
	d.AuthMiddleware = d.newAuthMiddleware(cfg, validator)
	d.Logger.Info("token validator initialized",
		zap.String("issuer", cfg.Auth.Issuer),
		zap.String("role_claim", cfg.Auth.RoleClaim))
	return nil
}

func (d *Dependencies) newAuthMiddleware(cfg *config.Config, validator middleware.TokenValidator) *middleware.AuthMiddleware {
	if cfg.Auth.CookieName != "" {
		return middleware.NewAuthMiddleware(validator, d.Logger, cfg.Auth.CookieName)
	}
	return middleware.NewAuthMiddleware(validator, d.Logger)
}

func (d *Dependencies) initAuthorizer(cfg *config.Config) {
	opts := []middleware.AuthorizerOption{
		middleware.WithDecisionObserver(d.Metrics),
		middleware.WithStrictRequirements(cfg.Policy.StrictRequirements),
	}
	if d.Recorder != nil {
		opts = append(opts, middleware.WithDecisionRecorder(d.Recorder))
	}
	d.Authorizer = middleware.NewAuthorizer(d.Table, d.Logger, opts...)
}

// rejectAllValidator rejects all tokens (used when no JWT secret is configured)
type rejectAllValidator struct{}

func (*rejectAllValidator) ValidateToken(context.Context, string) (*policy.Identity, error) {
	return nil, auth.ErrNoSigningKey
}

func (d *Dependencies) shutdownAudit() []error {
	var errs []error

	// Drain the decision buffer before the pool goes away
	if d.Recorder != nil {
		if err := d.Recorder.Stop(d.Config.Audit.ShutdownTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop decision recorder: %w", err))
		} else {
			stats := d.Recorder.GetStats()
			d.Logger.Info("decision recorder stopped",
				zap.Int64("recorded", stats.Recorded),
				zap.Int64("dropped", stats.Dropped),
				zap.Int64("failed", stats.Failed))
		}
		d.Recorder = nil
	}

	// Close database connection
	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
		d.RepoFactory = nil
		d.DB = nil
	}

	return errs
}

// Close gracefully shuts down all dependencies. It is safe to call more
// than once.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	errs := d.shutdownAudit()

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
