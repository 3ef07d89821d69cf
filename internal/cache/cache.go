package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache is the caching interface shared by the memory and redis backends.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) bool
	DeletePattern(ctx context.Context, pattern string) error

	SetTTL(ctx context.Context, key string, ttl time.Duration) error
	GetTTL(ctx context.Context, key string) (time.Duration, error)

	Increment(ctx context.Context, key string, delta int64) (int64, error)
	Decrement(ctx context.Context, key string, delta int64) (int64, error)

	Clear(ctx context.Context) error
	Stats(ctx context.Context) (*CacheStats, error)
	Health(ctx context.Context) error
	Close() error
}

// CacheStats represents cache statistics.
type CacheStats struct {
	Hits             int64         `json:"hits"`
	Misses           int64         `json:"misses"`
	Sets             int64         `json:"sets"`
	Deletes          int64         `json:"deletes"`
	Keys             int64         `json:"keys"`
	HitRatio         float64       `json:"hit_ratio"`
	Uptime           time.Duration `json:"uptime"`
	UsedMemory       int64         `json:"used_memory"`
	MaxMemory        int64         `json:"max_memory"`
	ConnectedClients int64         `json:"connected_clients"`
	ExpiredKeys      int64         `json:"expired_keys"`
	EvictedKeys      int64         `json:"evicted_keys"`
}

// ===============================
// CACHE CONFIGURATION
// ===============================

// Config holds cache configuration.
type Config struct {
	Provider        string        `json:"provider"` // "memory", "redis"
	TTL             time.Duration `json:"ttl"`
	MaxKeys         int           `json:"max_keys"`
	CleanupInterval time.Duration `json:"cleanup_interval"`

	RedisURL      string `json:"redis_url"`
	RedisDB       int    `json:"redis_db"`
	RedisPassword string `json:"redis_password"`
	PoolSize      int    `json:"pool_size"`
}

// DefaultConfig returns a default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:        "memory",
		TTL:             15 * time.Minute,
		MaxKeys:         10000,
		CleanupInterval: 5 * time.Minute,
		PoolSize:        10,
	}
}

// NewCache creates a cache instance for the configured provider.
func NewCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(config.Provider) {
	case "redis":
		return NewRedisCache(config, logger)
	case "memory", "":
		logger.Info("Using in-memory cache")
		return NewMemoryCache(config, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", config.Provider)
	}
}

// ===============================
// MEMORY CACHE IMPLEMENTATION
// ===============================

type memoryCache struct {
	mu              sync.RWMutex
	items           map[string]*cacheItem
	maxKeys         int
	cleanupInterval time.Duration
	logger          *zap.Logger
	stats           *CacheStats
	startTime       time.Time
	stopCh          chan struct{}
}

type cacheItem struct {
	Value      interface{}
	ExpiresAt  time.Time
	CreatedAt  time.Time
	AccessedAt time.Time
}

// NewMemoryCache creates an in-memory cache with LRU eviction.
func NewMemoryCache(config *Config, logger *zap.Logger) Cache {
	cache := &memoryCache{
		items:           make(map[string]*cacheItem),
		maxKeys:         config.MaxKeys,
		cleanupInterval: config.CleanupInterval,
		logger:          logger,
		stats:           &CacheStats{},
		startTime:       time.Now(),
		stopCh:          make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

func (c *memoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		c.stats.Misses++
		return nil, false
	}

	if time.Now().After(item.ExpiresAt) {
		delete(c.items, key)
		c.stats.Misses++
		c.stats.Keys = int64(len(c.items))
		return nil, false
	}

	item.AccessedAt = time.Now()
	c.stats.Hits++

	return item.Value, true
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxKeys {
		c.evictLRU()
	}

	now := time.Now()
	c.items[key] = &cacheItem{
		Value:      value,
		ExpiresAt:  now.Add(ttl),
		CreatedAt:  now,
		AccessedAt: now,
	}

	c.stats.Sets++
	c.stats.Keys = int64(len(c.items))

	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		delete(c.items, key)
		c.stats.Deletes++
		c.stats.Keys = int64(len(c.items))
	}

	return nil
}

func (c *memoryCache) Exists(ctx context.Context, key string) bool {
	_, found := c.Get(ctx, key)
	return found
}

func (c *memoryCache) DeletePattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var keysToDelete []string
	for key := range c.items {
		if matchPattern(key, pattern) {
			keysToDelete = append(keysToDelete, key)
		}
	}

	for _, key := range keysToDelete {
		delete(c.items, key)
		c.stats.Deletes++
	}

	c.stats.Keys = int64(len(c.items))

	return nil
}

func (c *memoryCache) SetTTL(ctx context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[key]; exists {
		item.ExpiresAt = time.Now().Add(ttl)
	}

	return nil
}

func (c *memoryCache) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if item, exists := c.items[key]; exists {
		remaining := time.Until(item.ExpiresAt)
		if remaining > 0 {
			return remaining, nil
		}
	}

	return 0, fmt.Errorf("key not found or expired")
}

func (c *memoryCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		now := time.Now()
		c.items[key] = &cacheItem{
			Value:      delta,
			ExpiresAt:  now.Add(24 * time.Hour), // default TTL for counters
			CreatedAt:  now,
			AccessedAt: now,
		}
		return delta, nil
	}

	switch v := item.Value.(type) {
	case int64:
		newValue := v + delta
		item.Value = newValue
		item.AccessedAt = time.Now()
		return newValue, nil
	case int:
		newValue := int64(v) + delta
		item.Value = newValue
		item.AccessedAt = time.Now()
		return newValue, nil
	default:
		return 0, fmt.Errorf("value is not numeric")
	}
}

func (c *memoryCache) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return c.Increment(ctx, key, -delta)
}

func (c *memoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*cacheItem)
	c.stats.Keys = 0

	return nil
}

func (c *memoryCache) Stats(ctx context.Context) (*CacheStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := *c.stats
	stats.Keys = int64(len(c.items))
	stats.Uptime = time.Since(c.startTime)

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}

	return &stats, nil
}

func (c *memoryCache) Health(ctx context.Context) error {
	testKey := "__health_check__"
	testValue := time.Now().Unix()

	if err := c.Set(ctx, testKey, testValue, time.Minute); err != nil {
		return fmt.Errorf("cache health check failed: unable to set value: %w", err)
	}

	if value, found := c.Get(ctx, testKey); !found {
		return fmt.Errorf("cache health check failed: unable to get value")
	} else if value != testValue {
		return fmt.Errorf("cache health check failed: value mismatch")
	}

	c.Delete(ctx, testKey)

	return nil
}

func (c *memoryCache) Close() error {
	close(c.stopCh)
	return nil
}

func (c *memoryCache) cleanup() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var expiredKeys []string

	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			expiredKeys = append(expiredKeys, key)
		}
	}

	for _, key := range expiredKeys {
		delete(c.items, key)
	}

	if len(expiredKeys) > 0 {
		c.logger.Debug("Cleaned up expired cache items",
			zap.Int("expired_count", len(expiredKeys)),
			zap.Int("remaining_count", len(c.items)),
		)
	}

	c.stats.Keys = int64(len(c.items))
}

// evictLRU evicts the least recently used item. Caller holds the lock.
func (c *memoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.AccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.AccessedAt
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

// matchPattern performs simple wildcard pattern matching.
func matchPattern(str, pattern string) bool {
	if pattern == "*" {
		return true
	}

	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(str, strings.TrimSuffix(pattern, "*"))
	}

	if strings.HasPrefix(pattern, "*") {
		return strings.HasSuffix(str, strings.TrimPrefix(pattern, "*"))
	}

	return str == pattern
}

// ===============================
// REDIS CACHE IMPLEMENTATION
// ===============================

type redisCache struct {
	client *redis.Client
	logger *zap.Logger
	config *Config
}

// NewRedisCache creates a Redis-backed cache. The initial connection is
// retried with exponential backoff so a slow-starting Redis container
// does not fail the whole boot.
func NewRedisCache(config *Config, logger *zap.Logger) (Cache, error) {
	if config == nil {
		return nil, fmt.Errorf("cache config cannot be nil")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	var options *redis.Options
	if config.RedisURL != "" {
		var err error
		options, err = redis.ParseURL(config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
	} else {
		options = &redis.Options{
			Addr:     "localhost:6379",
			Password: config.RedisPassword,
			DB:       config.RedisDB,
		}
	}

	if config.PoolSize > 0 {
		options.PoolSize = config.PoolSize
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	connect := func() error {
		_, err := client.Ping(ctx).Result()
		if err != nil {
			logger.Warn("Redis not reachable yet, retrying", zap.Error(err))
		}
		return err
	}

	if err := backoff.Retry(connect, backoff.WithContext(policy, ctx)); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis cache initialized",
		zap.String("addr", options.Addr),
		zap.Int("db", options.DB),
	)

	return &redisCache{
		client: client,
		logger: logger,
		config: config,
	}, nil
}

func (r *redisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	} else if err != nil {
		r.logger.Error("Failed to get from Redis",
			zap.String("key", key),
			zap.Error(err))
		return nil, false
	}

	var result interface{}
	if err := json.Unmarshal([]byte(val), &result); err == nil {
		return result, true
	}

	return val, true
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	var val string
	switch v := value.(type) {
	case string:
		val = v
	case []byte:
		val = string(v)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal value: %w", err)
		}
		val = string(data)
	}

	if ttl <= 0 {
		ttl = r.config.TTL
	}

	return r.client.Set(ctx, key, val, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCache) Exists(ctx context.Context, key string) bool {
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		r.logger.Error("Failed to check key existence",
			zap.String("key", key),
			zap.Error(err))
		return false
	}
	return exists > 0
}

func (r *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		// delete in batches so a huge keyspace does not block Redis
		if len(keys) >= 1000 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}

	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}

	return nil
}

func (r *redisCache) SetTTL(ctx context.Context, key string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.config.TTL
	}
	return r.client.Expire(ctx, key, ttl).Err()
}

func (r *redisCache) GetTTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, key).Result()
}

func (r *redisCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return r.client.IncrBy(ctx, key, delta).Result()
}

func (r *redisCache) Decrement(ctx context.Context, key string, delta int64) (int64, error) {
	return r.client.DecrBy(ctx, key, delta).Result()
}

func (r *redisCache) Clear(ctx context.Context) error {
	return r.client.FlushDB(ctx).Err()
}

func (r *redisCache) Stats(ctx context.Context) (*CacheStats, error) {
	stats := &CacheStats{}

	for _, section := range []string{"stats", "memory", "clients"} {
		info, err := r.client.Info(ctx, section).Result()
		if err != nil {
			r.logger.Warn("Failed to get Redis info",
				zap.String("section", section),
				zap.Error(err))
			continue
		}

		for _, line := range strings.Split(info, "\r\n") {
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}

			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			switch key {
			case "used_memory":
				if v, err := strconv.ParseInt(value, 10, 64); err == nil {
					stats.UsedMemory = v
				}
			case "maxmemory":
				if v, err := strconv.ParseInt(value, 10, 64); err == nil {
					stats.MaxMemory = v
				}
			case "connected_clients":
				if v, err := strconv.ParseInt(value, 10, 64); err == nil {
					stats.ConnectedClients = v
				}
			case "expired_keys":
				if v, err := strconv.ParseInt(value, 10, 64); err == nil {
					stats.ExpiredKeys = v
				}
			case "evicted_keys":
				if v, err := strconv.ParseInt(value, 10, 64); err == nil {
					stats.EvictedKeys = v
				}
			case "keyspace_hits":
				if v, err := strconv.ParseInt(value, 10, 64); err == nil {
					stats.Hits = v
				}
			case "keyspace_misses":
				if v, err := strconv.ParseInt(value, 10, 64); err == nil {
					stats.Misses = v
				}
			}
		}
	}

	if keys, err := r.client.DBSize(ctx).Result(); err == nil {
		stats.Keys = keys
	}

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}

	return stats, nil
}

func (r *redisCache) Health(ctx context.Context) error {
	_, err := r.client.Ping(ctx).Result()
	return err
}

func (r *redisCache) Close() error {
	return r.client.Close()
}

// ===============================
// CACHE MIDDLEWARE
// ===============================

// CacheMiddleware wraps read-through caching around a loader function.
type CacheMiddleware struct {
	cache  Cache
	logger *zap.Logger
}

// NewCacheMiddleware creates cache middleware.
func NewCacheMiddleware(cache Cache, logger *zap.Logger) *CacheMiddleware {
	return &CacheMiddleware{
		cache:  cache,
		logger: logger,
	}
}

// CacheResult returns the cached value for key, or runs fn and caches
// its result.
func (cm *CacheMiddleware) CacheResult(ctx context.Context, key string, ttl time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	if value, found := cm.cache.Get(ctx, key); found {
		cm.logger.Debug("Cache hit", zap.String("key", key))
		return value, nil
	}

	result, err := fn()
	if err != nil {
		return nil, err
	}

	if cacheErr := cm.cache.Set(ctx, key, result, ttl); cacheErr != nil {
		cm.logger.Warn("Failed to cache result",
			zap.String("key", key),
			zap.Error(cacheErr),
		)
	}

	return result, nil
}
