// Package main is the entry point for the credvault API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credvault/internal/domain/auth"
	"credvault/internal/domain/credential"
	"credvault/internal/domain/directory/division"
	"credvault/internal/domain/directory/ou"
	v1 "credvault/internal/infrastructure/http/v1"
	"credvault/internal/infrastructure/http/v1/middleware"
	"credvault/internal/infrastructure/storage/postgres"
	"credvault/internal/infrastructure/storage/postgres/auth_repo"
	"credvault/internal/infrastructure/storage/postgres/credential_repo"
	"credvault/internal/infrastructure/storage/postgres/directory_repo"
	"credvault/pkg/logger"
)

const version = "0.1.0"

func main() {
	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting credvault server")

	// --- Database connection ---
	poolCfg := postgres.DefaultPoolConfig(mustEnv("DATABASE_URL"))
	if maxConns := getEnvInt("DB_MAX_CONNS", 0); maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	// Periodic pool statistics
	statsCtx, stopStats := context.WithCancel(ctx)
	defer stopStats()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-statsCtx.Done():
				return
			case <-ticker.C:
				postgres.LogPoolStats(statsCtx, pool.Unwrap())
			}
		}
	}()

	txManager := postgres.NewTxManager(pool)

	auditStore, err := postgres.NewAuditStore(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit store", "error", err)
	}

	// --- Repositories ---
	userRepo := auth_repo.NewUserRepo(txManager)
	ouRepo := directory_repo.NewOURepo(txManager)
	divisionRepo := directory_repo.NewDivisionRepo(txManager)
	credentialRepo := credential_repo.NewCredentialRepo(txManager)

	// --- JWT Service ---
	jwtSecret := mustEnv("JWT_SECRET")
	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(jwtSecret))

	// --- Services ---
	authService := auth.NewService(
		userRepo,
		divisionRepo,
		ouRepo,
		jwtService,
		auditStore,
		auth.DefaultServiceConfig(),
	)
	ouService := ou.NewService(ouRepo, divisionRepo)
	divisionService := division.NewService(divisionRepo, ouRepo, credentialRepo, txManager)
	credentialService := credential.NewService(
		credentialRepo,
		divisionRepo,
		auditStore,
		credential.DefaultServiceConfig(),
	)

	// --- Router ---
	middleware.InitMetrics()
	router := v1.NewRouter(v1.RouterConfig{
		Pool:               pool,
		Logger:             log,
		Version:            version,
		AuthService:        authService,
		CredentialService:  credentialService,
		OUService:          ouService,
		DivisionService:    divisionService,
		AuditStore:         auditStore,
		LoginRatePerSecond: getEnvFloat("AUTH_RATE_PER_SECOND", 5),
		LoginBurst:         getEnvInt("AUTH_RATE_BURST", 10),
	})

	// --- HTTP Server ---
	port := getEnv("APP_PORT", "8080")
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func mustEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		fmt.Printf("required environment variable %s not set\n", key)
		os.Exit(1)
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
