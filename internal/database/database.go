package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"allowancehub/internal/config"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// DB is the global database manager instance.
var DB *Manager

var initMutex sync.Mutex

// InitDB creates the database manager, runs migrations and waits for the
// database to report healthy before returning.
func InitDB(cfg *config.Config, logger *zap.Logger) error {
	initMutex.Lock()
	defer initMutex.Unlock()

	if DB != nil {
		logger.Info("Database manager already initialized")
		return nil
	}

	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	logger.Info("Starting database initialization",
		zap.String("environment", cfg.Server.Environment))

	if err := applyEnvironmentDefaults(&cfg.Database, cfg.Server.Environment); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}

	manager, err := NewManager(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	DB = manager

	migrationsPath := determineMigrationsPath(cfg.Database.MigrationsPath)
	logger.Info("Using migrations path", zap.String("path", migrationsPath))

	if err := runMigrationsWithRetry(manager, migrationsPath, logger, 3); err != nil {
		DB = nil
		manager.Close()
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	healthTimeout := healthTimeoutForEnvironment(cfg.Server.Environment)
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	if err := waitForHealthWithBackoff(ctx, manager, logger); err != nil {
		DB = nil
		manager.Close()
		return fmt.Errorf("database failed to become healthy: %w", err)
	}

	manager.health.StartMonitoring()

	stats := manager.Stats()
	logger.Info("Database initialized",
		zap.String("migrations_path", migrationsPath),
		zap.Int("max_open_connections", stats.MaxOpenConnections),
		zap.Int("open_connections", stats.OpenConnections),
	)

	return nil
}

// applyEnvironmentDefaults fills in pool settings that were not set
// explicitly, sized for the target environment.
func applyEnvironmentDefaults(cfg *config.DatabaseConfig, environment string) error {
	if cfg.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch environment {
	case "production":
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 50
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = 20
		}
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = 15 * time.Minute
		}
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 200 * time.Millisecond
		}
		if !strings.Contains(cfg.URL, "sslmode=") {
			cfg.URL += " sslmode=require"
		}

	case "staging":
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 25
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = 10
		}
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = 10 * time.Minute
		}
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 100 * time.Millisecond
		}

	default: // development
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 10
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = 5
		}
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = 5 * time.Minute
		}
		if cfg.SlowQueryThreshold == 0 {
			cfg.SlowQueryThreshold = 50 * time.Millisecond
		}
	}

	if cfg.HealthCheckInterval == 0 {
		cfg.HealthCheckInterval = 30 * time.Second
	}

	if cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = cfg.MaxOpenConns
	}

	return nil
}

func runMigrationsWithRetry(manager *Manager, migrationsPath string, logger *zap.Logger, maxRetries int) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		logger.Info("Running database migrations",
			zap.String("path", migrationsPath),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", maxRetries))

		if err := manager.Migrate(migrationsPath); err != nil {
			lastErr = err
			if attempt < maxRetries {
				waitTime := time.Duration(attempt) * time.Second
				logger.Warn("Migration attempt failed, retrying",
					zap.Error(err),
					zap.Int("attempt", attempt),
					zap.Duration("retry_in", waitTime))
				time.Sleep(waitTime)
				continue
			}
		} else {
			logger.Info("Database migrations completed")
			return nil
		}
	}

	return fmt.Errorf("migrations failed after %d attempts: %w", maxRetries, lastErr)
}

func waitForHealthWithBackoff(ctx context.Context, manager *Manager, logger *zap.Logger) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = 0 // the surrounding context carries the deadline

	operation := func() error {
		status := manager.Health(ctx)
		if status.Status == StatusHealthy {
			logger.Info("Database is healthy",
				zap.Duration("response_time", status.ResponseTime))
			return nil
		}

		logger.Debug("Database not healthy yet, retrying",
			zap.String("status", status.Status),
			zap.Strings("errors", status.Errors))

		return fmt.Errorf("database status: %s", status.Status)
	}

	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

func determineMigrationsPath(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	paths := []string{
		"./migrations",
		"./internal/database/migrations",
		"./db/migrations",
		"../migrations",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "./migrations"
}

func healthTimeoutForEnvironment(environment string) time.Duration {
	switch environment {
	case "production":
		return 60 * time.Second
	case "staging":
		return 45 * time.Second
	default:
		return 30 * time.Second
	}
}

// GetDB returns the global database manager.
func GetDB() *Manager {
	return DB
}

// Close closes the global database manager.
func Close() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}

// Health reports the health of the global manager.
func Health(ctx context.Context) *HealthStatus {
	if DB == nil {
		return &HealthStatus{
			Status:    StatusUnhealthy,
			Timestamp: time.Now(),
			Errors:    []string{"database not initialized"},
			Details:   make(map[string]interface{}),
		}
	}
	return DB.Health(ctx)
}

// GetMetrics returns a metrics snapshot from the global manager.
func GetMetrics() *MetricsSnapshot {
	if DB == nil {
		return &MetricsSnapshot{Timestamp: time.Now()}
	}
	return DB.Metrics()
}

// ExecuteTransaction runs fn inside a transaction, rolling back on error
// or panic.
func ExecuteTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %v, rollback failed: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// IsConnected reports whether the database is reachable and healthy.
func IsConnected(ctx context.Context) bool {
	if DB == nil {
		return false
	}
	return DB.Health(ctx).Status == StatusHealthy
}
