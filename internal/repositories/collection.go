// file: internal/repositories/collection.go
package repositories

import (
	"context"
	"fmt"
	"time"

	"allowancehub/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection.
type Collection struct {
	Family       FamilyRepository
	Child        ChildRepository
	Badge        BadgeRepository
	Notification NotificationRepository

	// Database and logger for custom operations
	db     *database.Manager
	logger *zap.Logger
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	EnableQueryLogging bool
	SlowQueryThreshold time.Duration
}

// NewCollection creates a repository collection with all dependencies.
func NewCollection(db *database.Manager, logger *zap.Logger, config *RepositoryConfig) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}

	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	if config == nil {
		config = &RepositoryConfig{
			EnableQueryLogging: true,
			SlowQueryThreshold: 100 * time.Millisecond,
		}
	}

	collection := &Collection{
		db:     db,
		logger: logger,
	}

	collection.Family = NewFamilyRepository(db, logger)
	collection.Child = NewChildRepository(db, logger)
	collection.Badge = NewBadgeRepository(db, logger)
	collection.Notification = NewNotificationRepository(db, logger)

	logger.Info("Repository collection initialized")

	return collection, nil
}

// HealthCheck verifies the underlying database is reachable.
func (c *Collection) HealthCheck(ctx context.Context) error {
	status := c.db.Health(ctx)
	if status.Status != database.StatusHealthy {
		return fmt.Errorf("database unhealthy: %v", status.Errors)
	}
	return nil
}

// GetDB returns the underlying database manager.
func (c *Collection) GetDB() *database.Manager {
	return c.db
}
