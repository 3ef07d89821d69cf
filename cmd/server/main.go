// @title           AllowanceHub API
// @version         1.0.0
// @description     Badge and achievement engine for family allowance tracking

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:9000
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a parent session token.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"allowancehub/internal/config"
	"allowancehub/internal/database"
	"allowancehub/internal/middleware"
	"allowancehub/internal/response"
	"allowancehub/internal/router"
	"allowancehub/internal/services"

	"go.uber.org/zap"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info("Starting AllowanceHub")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	if err := database.InitDB(cfg, logger); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}

	dbManager := database.GetDB()
	if dbManager == nil {
		logger.Fatal("Database connection is not initialized")
	}
	defer dbManager.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	healthStatus := database.Health(ctx)
	if healthStatus.Status != database.StatusHealthy {
		logger.Fatal("Database is not healthy",
			zap.String("status", healthStatus.Status),
			zap.Strings("errors", healthStatus.Errors),
		)
	}
	logger.Info("Database health check passed", zap.String("status", healthStatus.Status))

	serviceCollection, err := services.NewServiceCollection(dbManager, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	// Starts the event bus and subscribes the achievement engine to the
	// trigger stream.
	if err := serviceCollection.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start services", zap.Error(err))
	}

	parentAuth := middleware.NewParentAuth(&cfg.Auth, logger)

	rateLimitConfig := middleware.DefaultRateLimiterConfig()
	rateLimiter := middleware.NewRateLimiter(serviceCollection.Cache, rateLimitConfig, logger)

	responseConfig := response.DefaultConfig()
	responseConfig.PrettyJSON = cfg.Server.Environment != "production"
	responseConfig.MaskInternalErrors = cfg.Server.Environment == "production"
	responseBuilder := response.NewBuilder(responseConfig, logger)

	handler := router.SetupRouter(serviceCollection, parentAuth, rateLimiter, responseBuilder, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server",
			zap.String("address", server.Addr),
			zap.String("environment", cfg.Server.Environment),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Application started",
		zap.String("url", fmt.Sprintf("http://localhost:%s", cfg.Server.Port)),
		zap.String("health_check", "/health"),
		zap.String("api_base", "/api/v1"),
		zap.String("swagger_ui", "/swagger/"),
	)

	<-quit
	logger.Info("Shutting down application...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	} else {
		logger.Info("Server shutdown completed")
	}

	if err := serviceCollection.Shutdown(shutdownCtx); err != nil {
		logger.Error("Service shutdown reported errors", zap.Error(err))
	}

	metrics := database.GetMetrics()
	logger.Info("Final database metrics",
		zap.Int64("query_count", metrics.QueryCount),
		zap.Int64("error_count", metrics.ErrorCount),
		zap.Int64("slow_queries", metrics.SlowQueryCount),
		zap.Duration("avg_query_duration", metrics.AvgQueryDuration),
	)

	logger.Info("Application shutdown completed")
}

func initLogger() (*zap.Logger, error) {
	env := os.Getenv("GO_ENV")
	var config zap.Config

	switch env {
	case "production":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "staging":
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	default:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
