package database

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// HealthStatus represents the current health of the database.
type HealthStatus struct {
	Status          string                 `json:"status"`
	Timestamp       time.Time              `json:"timestamp"`
	ResponseTime    time.Duration          `json:"response_time"`
	ConnectionCount int                    `json:"connection_count"`
	Errors          []string               `json:"errors,omitempty"`
	Details         map[string]interface{} `json:"details"`
}

// Health check statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
	StatusStarting  = "starting"
	StatusShutdown  = "shutdown"
)

// HealthChecker monitors the database in the background and caches the
// most recent result for cheap reads from the health endpoint.
type HealthChecker struct {
	manager *Manager
	logger  *zap.Logger

	mu        sync.RWMutex
	isActive  int32
	lastCheck time.Time
	status    *HealthStatus

	stopCh  chan struct{}
	stopped chan struct{}

	checkInterval   time.Duration
	timeoutDuration time.Duration
	criticalTables  []string
}

// NewHealthChecker creates a health checker for the manager. Monitoring
// does not start until StartMonitoring is called.
func NewHealthChecker(manager *Manager, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		manager:  manager,
		logger:   logger,
		isActive: 1,

		checkInterval:   30 * time.Second,
		timeoutDuration: 10 * time.Second,
		criticalTables:  []string{"families", "children", "child_badge_progress", "child_badge_awards"},

		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Check runs the full set of health probes and caches the result.
func (hc *HealthChecker) Check(ctx context.Context) *HealthStatus {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return &HealthStatus{
			Status:    StatusShutdown,
			Timestamp: time.Now(),
			Errors:    []string{"health checker is shut down"},
			Details:   make(map[string]interface{}),
		}
	}

	start := time.Now()
	status := &HealthStatus{
		Timestamp: start,
		Details:   make(map[string]interface{}),
		Errors:    make([]string, 0),
	}

	ctx, cancel := context.WithTimeout(ctx, hc.timeoutDuration)
	defer cancel()

	if err := hc.checkConnectivity(ctx, status); err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("connectivity: %v", err))
	}

	hc.checkConnectionPool(status)

	if err := hc.checkTableAccess(ctx, status); err != nil {
		status.Errors = append(status.Errors, fmt.Sprintf("table access: %v", err))
	}

	status.ResponseTime = time.Since(start)
	status.Status = hc.determineOverallStatus(status)

	hc.mu.Lock()
	hc.status = status
	hc.lastCheck = time.Now()
	hc.mu.Unlock()

	if status.Status != StatusHealthy {
		hc.logger.Warn("Database health check degraded",
			zap.String("status", status.Status),
			zap.Strings("errors", status.Errors),
			zap.Duration("response_time", status.ResponseTime),
		)
	}

	return status
}

func (hc *HealthChecker) checkConnectivity(ctx context.Context, status *HealthStatus) error {
	start := time.Now()
	err := hc.manager.DB().PingContext(ctx)
	pingDuration := time.Since(start)

	status.Details["ping_duration_ms"] = pingDuration.Milliseconds()
	status.Details["ping_success"] = err == nil

	if pingDuration > 500*time.Millisecond {
		status.Details["ping_warning"] = "slow ping response"
	}

	return err
}

func (hc *HealthChecker) checkConnectionPool(status *HealthStatus) {
	stats := hc.manager.DB().Stats()

	status.ConnectionCount = stats.OpenConnections
	poolMetrics := map[string]interface{}{
		"max_open":         stats.MaxOpenConnections,
		"open":             stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"wait_count":       stats.WaitCount,
		"wait_duration_ms": stats.WaitDuration.Milliseconds(),
	}

	if stats.MaxOpenConnections > 0 {
		utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections)
		poolMetrics["utilization_percent"] = utilization * 100

		if utilization > 0.8 {
			status.Details["connection_warning"] = "high connection utilization"
		}
	}

	status.Details["connection_pool"] = poolMetrics
}

func (hc *HealthChecker) checkTableAccess(ctx context.Context, status *HealthStatus) error {
	tableResults := make(map[string]interface{})

	for _, table := range hc.criticalTables {
		if atomic.LoadInt32(&hc.isActive) == 0 {
			return fmt.Errorf("database became inactive during table checks")
		}

		start := time.Now()
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s LIMIT 1", table)

		var count int
		err := hc.manager.DB().QueryRowContext(ctx, query).Scan(&count)
		duration := time.Since(start)

		tableResults[table] = map[string]interface{}{
			"accessible":  err == nil,
			"duration_ms": duration.Milliseconds(),
		}

		if err != nil {
			status.Details["table_access"] = tableResults
			return fmt.Errorf("cannot access table %s: %w", table, err)
		}
	}

	status.Details["table_access"] = tableResults
	return nil
}

func (hc *HealthChecker) determineOverallStatus(status *HealthStatus) string {
	if len(status.Errors) > 0 {
		return StatusUnhealthy
	}

	if status.ResponseTime > 1*time.Second {
		return StatusDegraded
	}

	for key := range status.Details {
		if key == "ping_warning" || key == "connection_warning" {
			return StatusDegraded
		}
	}

	return StatusHealthy
}

// StartMonitoring begins the background check loop. Call once the pool
// is confirmed reachable.
func (hc *HealthChecker) StartMonitoring() {
	if atomic.LoadInt32(&hc.isActive) == 1 {
		go hc.startPeriodicChecks()
	}
}

func (hc *HealthChecker) startPeriodicChecks() {
	defer close(hc.stopped)

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if atomic.LoadInt32(&hc.isActive) == 0 {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), hc.timeoutDuration)
			status := hc.Check(ctx)
			cancel()

			hc.mu.RLock()
			last := hc.status
			hc.mu.RUnlock()

			if last != nil && status.Status != last.Status {
				hc.logger.Info("Database health status changed",
					zap.String("from", last.Status),
					zap.String("to", status.Status),
					zap.Duration("response_time", status.ResponseTime),
				)
			}

		case <-hc.stopCh:
			return
		}
	}
}

// Stop shuts down the background check loop.
func (hc *HealthChecker) Stop() {
	atomic.StoreInt32(&hc.isActive, 0)
	close(hc.stopCh)

	select {
	case <-hc.stopped:
	case <-time.After(5 * time.Second):
		hc.logger.Warn("Health checker stop timeout")
	}
}

// GetLastStatus returns the most recent cached health result.
func (hc *HealthChecker) GetLastStatus() *HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	if hc.status == nil {
		return &HealthStatus{
			Status:    StatusStarting,
			Timestamp: time.Now(),
			Errors:    []string{"no health check performed yet"},
			Details:   make(map[string]interface{}),
		}
	}

	return hc.status
}

// IsHealthy reports whether the last check came back healthy.
func (hc *HealthChecker) IsHealthy() bool {
	if atomic.LoadInt32(&hc.isActive) == 0 {
		return false
	}
	return hc.GetLastStatus().Status == StatusHealthy
}

// WaitForHealthy blocks until the database reports healthy or the
// timeout elapses.
func (hc *HealthChecker) WaitForHealthy(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database to become healthy: %w", ctx.Err())
		case <-ticker.C:
			if atomic.LoadInt32(&hc.isActive) == 0 {
				return fmt.Errorf("health checker is not active")
			}
			if hc.Check(ctx).Status == StatusHealthy {
				return nil
			}
		}
	}
}
