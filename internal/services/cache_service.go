// internal/services/cache_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"allowancehub/internal/cache"

	"go.uber.org/zap"
)

// CacheServiceConfig controls application level caching behavior.
type CacheServiceConfig struct {
	DefaultTTL time.Duration `json:"default_ttl"`
	KeyPrefix  string        `json:"key_prefix"`
}

// DefaultCacheConfig returns sensible caching defaults.
func DefaultCacheConfig() *CacheServiceConfig {
	return &CacheServiceConfig{
		DefaultTTL: 5 * time.Minute,
		KeyPrefix:  "allowancehub",
	}
}

// cacheService implements CacheService. Values round-trip through JSON
// so the same code works against the memory and Redis backends.
type cacheService struct {
	backend cache.Cache
	config  *CacheServiceConfig
	logger  *zap.Logger
}

// NewCacheService creates a new instance of CacheService.
func NewCacheService(backend cache.Cache, config *CacheServiceConfig, logger *zap.Logger) CacheService {
	if config == nil {
		config = DefaultCacheConfig()
	}
	return &cacheService{
		backend: backend,
		config:  config,
		logger:  logger,
	}
}

// Get reads a cached value into dest. Returns false on a miss.
func (s *cacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	value, found := s.backend.Get(ctx, s.buildKey(key))
	if !found {
		return false, nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to encode cached value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// A shape mismatch means the entry is stale; treat it as a miss.
		s.logger.Debug("Cached value shape mismatch", zap.String("key", key), zap.Error(err))
		return false, nil
	}

	return true, nil
}

// Set stores a value under the default TTL.
func (s *cacheService) Set(ctx context.Context, key string, value interface{}) error {
	return s.backend.Set(ctx, s.buildKey(key), value, s.config.DefaultTTL)
}

// Delete removes a cached value.
func (s *cacheService) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, s.buildKey(key))
}

// InvalidateChild drops every cached entry for a child.
func (s *cacheService) InvalidateChild(ctx context.Context, childID int64) error {
	pattern := fmt.Sprintf("%s:*child:%d*", s.config.KeyPrefix, childID)
	if err := s.backend.DeletePattern(ctx, pattern); err != nil {
		s.logger.Warn("Failed to invalidate child cache entries",
			zap.Error(err),
			zap.Int64("child_id", childID),
		)
		return err
	}
	return nil
}

// GetStats returns backend cache statistics.
func (s *cacheService) GetStats(ctx context.Context) map[string]interface{} {
	stats, err := s.backend.Stats(ctx)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	return map[string]interface{}{
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"hit_ratio": stats.HitRatio,
		"keys":      stats.Keys,
	}
}

// HealthCheck reports backend connectivity.
func (s *cacheService) HealthCheck(ctx context.Context) error {
	return s.backend.Health(ctx)
}

// ServiceName identifies this service in health reports.
func (s *cacheService) ServiceName() string {
	return "cache"
}

func (s *cacheService) buildKey(key string) string {
	return s.config.KeyPrefix + ":" + key
}
