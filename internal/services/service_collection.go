// file: internal/services/service_collection.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"allowancehub/internal/achievements"
	"allowancehub/internal/cache"
	"allowancehub/internal/config"
	"allowancehub/internal/database"
	"allowancehub/internal/events"
	"allowancehub/internal/notifications"
	"allowancehub/internal/repositories"

	"github.com/cloudinary/cloudinary-go/v2"
	"go.uber.org/zap"
)

// ServiceCollection wires the full service layer with dependency
// injection in initialization order.
type ServiceCollection struct {
	// Core Services
	FamilyService       FamilyService       `json:"-"`
	ChildService        ChildService        `json:"-"`
	AchievementService  AchievementService  `json:"-"`
	NotificationService NotificationService `json:"-"`

	// Infrastructure Services
	FileService  FileService  `json:"-"`
	CacheService CacheService `json:"-"`

	// Repository Collection
	Repositories *repositories.Collection `json:"-"`

	// Infrastructure Components
	Cache      cache.Cache             `json:"-"`
	EventBus   events.EventBus         `json:"-"`
	Hub        *notifications.Hub      `json:"-"`
	Catalog    *achievements.Catalog   `json:"-"`
	Logger     *zap.Logger             `json:"-"`
	Config     *config.Config          `json:"-"`
	DBManager  *database.Manager       `json:"-"`
	Cloudinary *cloudinary.Cloudinary  `json:"-"`

	// Service Management
	healthCheckers map[string]HealthChecker
	startTime      time.Time
	shutdown       chan struct{}
	mu             sync.RWMutex
	initialized    bool
}

// ServiceHealth represents the health status of the service collection.
type ServiceHealth struct {
	Status          string                   `json:"status"`
	Timestamp       time.Time                `json:"timestamp"`
	Services        map[string]ServiceStatus `json:"services"`
	Dependencies    map[string]ServiceStatus `json:"dependencies"`
	Uptime          time.Duration            `json:"uptime"`
	TotalServices   int                      `json:"total_services"`
	HealthyServices int                      `json:"healthy_services"`
	Issues          []string                 `json:"issues,omitempty"`
}

// ServiceStatus represents the status of an individual service.
type ServiceStatus struct {
	Name         string        `json:"name"`
	Status       string        `json:"status"` // healthy, degraded, unhealthy
	LastCheck    time.Time     `json:"last_check"`
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

// HealthChecker interface for service health checks.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	ServiceName() string
}

// NewServiceCollection creates the service collection. Initialization
// runs in dependency order: infrastructure, repositories, services.
func NewServiceCollection(
	dbManager *database.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) (*ServiceCollection, error) {
	if dbManager == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	collection := &ServiceCollection{
		DBManager:      dbManager,
		Config:         cfg,
		Logger:         logger,
		healthCheckers: make(map[string]HealthChecker),
		startTime:      time.Now(),
		shutdown:       make(chan struct{}),
	}

	if err := collection.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}

	if err := collection.initializeRepositories(); err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	if err := collection.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	collection.initialized = true
	logger.Info("Service collection initialized successfully",
		zap.Int("badge_catalog_size", collection.Catalog.Size()),
	)

	return collection, nil
}

// ===============================
// INITIALIZATION METHODS
// ===============================

// initializeInfrastructure sets up the cache, event bus, push hub,
// badge catalog and Cloudinary client.
func (sc *ServiceCollection) initializeInfrastructure() error {
	sc.Logger.Info("Initializing infrastructure components")

	cacheInstance, err := cache.NewCache(&cache.Config{
		Provider:        sc.Config.Cache.Provider,
		TTL:             sc.Config.Cache.TTL,
		MaxKeys:         sc.Config.Cache.MaxKeys,
		CleanupInterval: sc.Config.Cache.CleanupInterval,
		RedisURL:        sc.Config.Cache.RedisURL,
		RedisDB:         sc.Config.Cache.RedisDB,
		RedisPassword:   sc.Config.Cache.RedisPassword,
		PoolSize:        sc.Config.Cache.PoolSize,
	}, sc.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	sc.Cache = cacheInstance

	sc.EventBus = events.NewEventBus(events.DefaultEventBusConfig(), sc.Logger)
	sc.Hub = notifications.NewHub(sc.Logger)

	catalog, err := achievements.DefaultCatalog()
	if err != nil {
		return fmt.Errorf("failed to build badge catalog: %w", err)
	}
	sc.Catalog = catalog

	if sc.Config.Cloudinary.CloudName != "" {
		cld, err := cloudinary.NewFromParams(
			sc.Config.Cloudinary.CloudName,
			sc.Config.Cloudinary.APIKey,
			sc.Config.Cloudinary.APISecret,
		)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudinary: %w", err)
		}
		sc.Cloudinary = cld
	}

	sc.Logger.Info("Infrastructure components initialized")
	return nil
}

// initializeRepositories sets up the repository layer.
func (sc *ServiceCollection) initializeRepositories() error {
	sc.Logger.Info("Initializing repositories")

	var err error
	sc.Repositories, err = repositories.NewCollection(sc.DBManager, sc.Logger, nil)
	if err != nil {
		return fmt.Errorf("failed to create repository collection: %w", err)
	}

	sc.Logger.Info("Repositories initialized")
	return nil
}

// initializeServices sets up the service layer with dependency
// injection.
func (sc *ServiceCollection) initializeServices() error {
	sc.Logger.Info("Initializing services")

	// Infrastructure services first
	sc.CacheService = NewCacheService(sc.Cache, DefaultCacheConfig(), sc.Logger)

	if sc.Cloudinary != nil {
		sc.FileService = NewFileService(sc.Cloudinary, DefaultFileConfig(), sc.Logger)
	}

	// Core business services
	sc.NotificationService = NewNotificationService(
		sc.Repositories.Notification,
		sc.Hub,
		sc.Logger,
	)

	sc.FamilyService = NewFamilyService(
		sc.Repositories.Family,
		&sc.Config.Auth,
		sc.Logger,
	)

	sc.ChildService = NewChildService(
		sc.Repositories.Child,
		sc.Repositories.Family,
		sc.FileService,
		sc.EventBus,
		sc.CacheService,
		sc.Logger,
	)

	sc.AchievementService = NewAchievementService(
		sc.Repositories.Child,
		sc.Repositories.Badge,
		sc.NotificationService,
		sc.Catalog,
		sc.EventBus,
		sc.CacheService,
		sc.Logger,
	)

	if hc, ok := sc.CacheService.(HealthChecker); ok {
		sc.registerHealthChecker(hc)
	}

	sc.Logger.Info("All services initialized")
	return nil
}

// ===============================
// SERVICE ACCESS METHODS
// ===============================

// GetFamilyService returns the family service.
func (sc *ServiceCollection) GetFamilyService() FamilyService {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.FamilyService
}

// GetChildService returns the child service.
func (sc *ServiceCollection) GetChildService() ChildService {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.ChildService
}

// GetAchievementService returns the achievement service.
func (sc *ServiceCollection) GetAchievementService() AchievementService {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.AchievementService
}

// GetNotificationService returns the notification service.
func (sc *ServiceCollection) GetNotificationService() NotificationService {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.NotificationService
}

// GetFileService returns the file service.
func (sc *ServiceCollection) GetFileService() FileService {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.FileService
}

// GetCacheService returns the cache service.
func (sc *ServiceCollection) GetCacheService() CacheService {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.CacheService
}

// ===============================
// HEALTH AND MONITORING
// ===============================

// HealthCheck performs a health check of all services and dependencies.
func (sc *ServiceCollection) HealthCheck(ctx context.Context) (*ServiceHealth, error) {
	health := &ServiceHealth{
		Status:       "healthy",
		Timestamp:    time.Now(),
		Services:     make(map[string]ServiceStatus),
		Dependencies: make(map[string]ServiceStatus),
		Uptime:       time.Since(sc.startTime),
		Issues:       []string{},
	}

	dbStatus := sc.checkDatabaseHealth(ctx)
	health.Dependencies["database"] = dbStatus
	if dbStatus.Status != "healthy" {
		health.Status = "degraded"
		health.Issues = append(health.Issues, fmt.Sprintf("Database: %s", dbStatus.Error))
	}

	busStatus := sc.checkEventBusHealth(ctx)
	health.Dependencies["event_bus"] = busStatus
	if busStatus.Status != "healthy" {
		health.Status = "degraded"
		health.Issues = append(health.Issues, fmt.Sprintf("Event bus: %s", busStatus.Error))
	}

	healthyCount := 0
	totalCount := 0

	sc.mu.RLock()
	checkers := make([]HealthChecker, 0, len(sc.healthCheckers))
	for _, checker := range sc.healthCheckers {
		checkers = append(checkers, checker)
	}
	sc.mu.RUnlock()

	for _, checker := range checkers {
		totalCount++
		status := sc.checkServiceHealth(ctx, checker)
		health.Services[status.Name] = status

		if status.Status == "healthy" {
			healthyCount++
		} else {
			if health.Status == "healthy" {
				health.Status = "degraded"
			}
			health.Issues = append(health.Issues, fmt.Sprintf("%s: %s", status.Name, status.Error))
		}
	}

	health.TotalServices = totalCount
	health.HealthyServices = healthyCount

	return health, nil
}

// ===============================
// SERVICE LIFECYCLE MANAGEMENT
// ===============================

// Start starts the event bus and subscribes the achievement pipeline.
func (sc *ServiceCollection) Start(ctx context.Context) error {
	if !sc.initialized {
		return fmt.Errorf("service collection not initialized")
	}

	sc.Logger.Info("Starting service collection")

	if err := sc.EventBus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start event bus: %w", err)
	}

	if err := sc.AchievementService.RegisterEventHandlers(); err != nil {
		return fmt.Errorf("failed to register achievement handlers: %w", err)
	}

	sc.Logger.Info("Service collection started successfully")
	return nil
}

// Shutdown gracefully shuts down all services in reverse dependency
// order.
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down service collection")

	close(sc.shutdown)

	var shutdownErrors []error

	if sc.EventBus != nil {
		if err := sc.EventBus.Stop(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("event bus shutdown: %w", err))
		}
	}

	if sc.Hub != nil {
		sc.Hub.Close()
	}

	if sc.Cache != nil {
		if err := sc.Cache.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("cache close: %w", err))
		}
	}

	if sc.DBManager != nil {
		if err := sc.DBManager.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		sc.Logger.Error("Errors occurred during shutdown",
			zap.Int("error_count", len(shutdownErrors)),
		)
		return fmt.Errorf("shutdown completed with %d errors", len(shutdownErrors))
	}

	sc.Logger.Info("Service collection shutdown completed successfully")
	return nil
}

// ===============================
// PRIVATE HELPER METHODS
// ===============================

func (sc *ServiceCollection) registerHealthChecker(hc HealthChecker) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.healthCheckers[hc.ServiceName()] = hc
}

func (sc *ServiceCollection) checkServiceHealth(ctx context.Context, checker HealthChecker) ServiceStatus {
	start := time.Now()
	status := ServiceStatus{
		Name:      checker.ServiceName(),
		Status:    "healthy",
		LastCheck: start,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := checker.HealthCheck(checkCtx); err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
	}

	status.ResponseTime = time.Since(start)
	return status
}

func (sc *ServiceCollection) checkDatabaseHealth(ctx context.Context) ServiceStatus {
	start := time.Now()
	status := ServiceStatus{
		Name:      "database",
		Status:    "healthy",
		LastCheck: start,
	}

	if health := sc.DBManager.Health(ctx); health.Status != database.StatusHealthy {
		status.Status = health.Status
		if len(health.Errors) > 0 {
			status.Error = health.Errors[0]
		}
	}

	status.ResponseTime = time.Since(start)
	return status
}

func (sc *ServiceCollection) checkEventBusHealth(ctx context.Context) ServiceStatus {
	start := time.Now()
	status := ServiceStatus{
		Name:      "event_bus",
		Status:    "healthy",
		LastCheck: start,
	}

	if err := sc.EventBus.Health(); err != nil {
		status.Status = "unhealthy"
		status.Error = err.Error()
	}

	status.ResponseTime = time.Since(start)
	return status
}

// IsInitialized returns whether the collection is ready to serve.
func (sc *ServiceCollection) IsInitialized() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.initialized
}

// GetLogger returns the collection logger.
func (sc *ServiceCollection) GetLogger() *zap.Logger {
	return sc.Logger
}

// GetConfig returns the application configuration.
func (sc *ServiceCollection) GetConfig() *config.Config {
	return sc.Config
}
