// file: internal/middleware/rate_limiter.go
package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"allowancehub/internal/cache"

	"go.uber.org/zap"
)

// RateLimiterConfig controls the fixed window rate limiter.
type RateLimiterConfig struct {
	RequestsPerWindow int64         `json:"requests_per_window"`
	Window            time.Duration `json:"window"`
	KeyPrefix         string        `json:"key_prefix"`
}

// DefaultRateLimiterConfig returns defaults suitable for the event
// intake endpoint.
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		RequestsPerWindow: 120,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit",
	}
}

// RateLimiter is a cache-backed fixed window limiter keyed by client
// IP. Counters live in the shared cache so limits hold across
// replicas when Redis is the backend.
type RateLimiter struct {
	cache  cache.Cache
	config *RateLimiterConfig
	logger *zap.Logger
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(cacheInstance cache.Cache, config *RateLimiterConfig, logger *zap.Logger) *RateLimiter {
	if config == nil {
		config = DefaultRateLimiterConfig()
	}
	return &RateLimiter{
		cache:  cacheInstance,
		config: config,
		logger: logger,
	}
}

// Limit wraps a handler with rate limiting. When the cache backend is
// unavailable requests pass through; availability wins over strictness
// here.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		window := time.Now().Unix() / int64(rl.config.Window.Seconds())
		key := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, getClientIP(r), window)

		count, err := rl.cache.Increment(ctx, key, 1)
		if err != nil {
			rl.logger.Warn("Rate limiter cache unavailable", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if count == 1 {
			if err := rl.cache.SetTTL(ctx, key, rl.config.Window); err != nil {
				rl.logger.Debug("Failed to set rate limit window TTL", zap.Error(err))
			}
		}

		remaining := rl.config.RequestsPerWindow - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.config.RequestsPerWindow, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > rl.config.RequestsPerWindow {
			GetRequestLogger(ctx).Warn("Rate limit exceeded",
				zap.String("client_ip", getClientIP(r)),
				zap.Int64("count", count),
			)
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.config.Window.Seconds())))
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
