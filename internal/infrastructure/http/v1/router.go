// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"credvault/internal/domain/auth"
	"credvault/internal/domain/credential"
	"credvault/internal/domain/directory/division"
	"credvault/internal/domain/directory/ou"
	"credvault/internal/infrastructure/http/v1/handlers"
	"credvault/internal/infrastructure/http/v1/middleware"
	"credvault/internal/infrastructure/storage/postgres"
	"credvault/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// Version reported by /health/info
	Version string

	// AuthService handles registration, login and principal resolution
	AuthService *auth.Service

	// CredentialService handles credential CRUD
	CredentialService *credential.Service

	// OUService handles organisational units
	OUService *ou.Service

	// DivisionService handles divisions
	DivisionService *division.Service

	// AuditStore serves the admin audit history endpoint
	AuditStore handlers.AuditReader

	// LoginRatePerSecond limits unauthenticated auth endpoints per client IP
	LoginRatePerSecond float64
	LoginBurst         int
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Metrics())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	baseHandler := handlers.NewBaseHandler()

	// API v1
	api := router.Group("/api/v1")
	{
		// Public auth endpoints are rate limited per client IP
		publicAuth := api.Group("/auth")
		publicAuth.Use(middleware.RateLimit(cfg.LoginRatePerSecond, cfg.LoginBurst))

		// Everything else requires a valid token and a live account
		protected := api.Group("")
		protected.Use(middleware.Auth(cfg.AuthService, cfg.AuthService))

		protectedAuth := protected.Group("/auth")

		authHandler := handlers.NewAuthHandler(baseHandler, cfg.AuthService)
		authHandler.RegisterRoutes(publicAuth, protectedAuth)

		credentialHandler := handlers.NewCredentialHandler(baseHandler, cfg.CredentialService)
		credentialHandler.RegisterRoutes(protected.Group("/credentials"))

		divisionHandler := handlers.NewDivisionHandler(baseHandler, cfg.DivisionService, cfg.CredentialService)
		divisionHandler.RegisterRoutes(protected.Group("/divisions"))

		ouHandler := handlers.NewOUHandler(baseHandler, cfg.OUService, cfg.AuthService)
		ouHandler.RegisterRoutes(protected.Group("/ous"))

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())

		adminHandler := handlers.NewAdminHandler(baseHandler, cfg.AuthService, cfg.OUService, cfg.DivisionService, cfg.AuditStore)
		adminHandler.RegisterRoutes(admin)
	}

	return router
}
