// Package api wires the HTTP router of the modlicense server.
package api

import (
	"errors"

	"github.com/MacJediWizard/modlicense/internal/api/handlers"
	"github.com/MacJediWizard/modlicense/internal/api/middleware"
	"github.com/MacJediWizard/modlicense/internal/auth"
	"github.com/MacJediWizard/modlicense/internal/config"
	"github.com/MacJediWizard/modlicense/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/MacJediWizard/modlicense/docs/api"
)

// Config holds router configuration.
type Config struct {
	Environment config.Environment
	// AllowedOrigins for CORS. Empty allows any origin outside production.
	AllowedOrigins []string
	// RateLimitRequests is the number of requests allowed per period.
	RateLimitRequests int64
	// RateLimitPeriod is the rate limit window (e.g., "1m", "1h").
	RateLimitPeriod string
	// Redis, when set, holds rate limit counters shared across replicas.
	Redis *redis.Client
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64
	// RedirectAfterLogin is where users land after signing in.
	RedirectAfterLogin string

	Version   string
	Commit    string
	BuildDate string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Environment:       config.EnvDevelopment,
		AllowedOrigins:    []string{},
		RateLimitRequests: 100,
		RateLimitPeriod:   "1m",
		MaxBodyBytes:      1 << 20,
		Version:           "dev",
		Commit:            "unknown",
		BuildDate:         "unknown",
	}
}

// Database is the persistence the router needs beyond the licensing service.
type Database interface {
	handlers.DatabaseHealthChecker
	handlers.OwnerStore
}

// LicenseService is the full licensing surface served over HTTP.
type LicenseService interface {
	handlers.TokenService
	handlers.AdminService
}

// Dependencies are the collaborators the router serves.
type Dependencies struct {
	Service  LicenseService
	Database Database
	Provider handlers.Authenticator
	Sessions *auth.SessionStore
	Policy   auth.RolePolicy
	// Metrics instruments requests when set.
	Metrics *metrics.PrometheusMetrics
	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer
}

// Router wraps the Gin engine with all API routes.
type Router struct {
	Engine *gin.Engine
	logger zerolog.Logger
}

// NewRouter creates a new Router with all middleware and routes configured.
func NewRouter(cfg Config, deps Dependencies, logger zerolog.Logger) (*Router, error) {
	if deps.Service == nil || deps.Database == nil {
		return nil, errors.New("router requires a license service and a database")
	}
	if deps.Sessions == nil || deps.Provider == nil {
		return nil, errors.New("router requires a session store and an auth provider")
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	r := &Router{
		Engine: gin.New(),
		logger: logger.With().Str("component", "router").Logger(),
	}

	// Global middleware
	r.Engine.Use(gin.Recovery())
	r.Engine.Use(middleware.RequestLogger(logger))

	cors, err := middleware.CORS(cfg.AllowedOrigins, cfg.Environment, logger)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(cors)
	r.Engine.Use(middleware.SecurityHeaders())
	if cfg.MaxBodyBytes > 0 {
		r.Engine.Use(middleware.BodyLimitMiddleware(cfg.MaxBodyBytes))
	}
	if deps.Metrics != nil {
		r.Engine.Use(deps.Metrics.GinMiddleware())
	}

	rateLimiter, err := newRateLimiter(cfg)
	if err != nil {
		return nil, err
	}
	r.Engine.Use(rateLimiter)

	// Public endpoints
	handlers.NewHealthHandler(deps.Database, logger).RegisterPublicRoutes(r.Engine)
	handlers.NewMetricsHandler(deps.Gatherer, logger).RegisterPublicRoutes(r.Engine)
	handlers.NewVersionHandler(handlers.VersionInfo{
		Version:   cfg.Version,
		Commit:    cfg.Commit,
		BuildDate: cfg.BuildDate,
	}, logger).RegisterPublicRoutes(r.Engine)

	r.Engine.GET("/api/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/api/docs/doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	authGroup := r.Engine.Group("/auth")
	handlers.NewAuthHandler(deps.Provider, deps.Sessions, deps.Database, deps.Policy, cfg.RedirectAfterLogin, logger).
		RegisterRoutes(authGroup)

	// API v1 routes (require authentication)
	apiV1 := r.Engine.Group("/api/v1")
	apiV1.Use(middleware.AuthMiddleware(deps.Sessions, deps.Policy, logger))

	handlers.NewTokensHandler(deps.Service, logger).RegisterRoutes(apiV1)

	admin := apiV1.Group("/admin")
	admin.Use(middleware.AdminMiddleware(logger))
	handlers.NewAdminHandler(deps.Service, logger).RegisterRoutes(admin)

	r.logger.Info().
		Str("environment", string(cfg.Environment)).
		Bool("shared_rate_limit", cfg.Redis != nil).
		Msg("API router initialized")
	return r, nil
}

func newRateLimiter(cfg Config) (gin.HandlerFunc, error) {
	if cfg.Redis != nil {
		return middleware.NewRedisRateLimiter(cfg.Redis, cfg.RateLimitRequests, cfg.RateLimitPeriod)
	}
	return middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitPeriod)
}
