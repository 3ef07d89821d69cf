package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Auth       AuthConfig
	Logging    LoggingConfig
	Cloudinary CloudinaryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	MaxHeaderBytes  int
	CORSOrigin      string
}

// DatabaseConfig holds Postgres configuration
type DatabaseConfig struct {
	URL                 string
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	ConnMaxIdleTime     time.Duration
	SlowQueryThreshold  time.Duration
	HealthCheckInterval time.Duration
	MigrationsPath      string
}

// CacheConfig holds cache backend configuration
type CacheConfig struct {
	Provider        string // "memory", "redis"
	RedisURL        string
	RedisDB         int
	RedisPassword   string
	PoolSize        int
	TTL             time.Duration
	MaxKeys         int
	CleanupInterval time.Duration
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret  string
	JWTExpiry  time.Duration
	BCryptCost int
	MinPINLen  int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// CloudinaryConfig holds Cloudinary configuration for avatar and badge
// icon uploads
type CloudinaryConfig struct {
	CloudName   string
	APIKey      string
	APISecret   string
	MaxFileSize int64
}

// Load reads configuration from the environment, with .env overrides
// outside production.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load() // fallback to .env
		}
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "9000"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Environment:     env,
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulTimeout: getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
			MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20),
			CORSOrigin:      getEnv("CORS_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			URL:                 getEnv("DATABASE_URL", ""),
			MaxOpenConns:        getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:        getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:     getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
			ConnMaxIdleTime:     getDurationEnv("DB_CONN_MAX_IDLE_TIME", 30*time.Minute),
			SlowQueryThreshold:  getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
			HealthCheckInterval: getDurationEnv("DB_HEALTH_CHECK_INTERVAL", 30*time.Second),
			MigrationsPath:      getEnv("DB_MIGRATIONS_PATH", "migrations"),
		},
		Cache: CacheConfig{
			Provider:        getEnv("CACHE_PROVIDER", defaultCacheProvider(env)),
			RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getIntEnv("REDIS_DB", 0),
			RedisPassword:   getEnv("REDIS_PASSWORD", ""),
			PoolSize:        getIntEnv("REDIS_POOL_SIZE", 10),
			TTL:             getDurationEnv("CACHE_TTL", 15*time.Minute),
			MaxKeys:         getIntEnv("CACHE_MAX_KEYS", 10000),
			CleanupInterval: getDurationEnv("CACHE_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			JWTExpiry:  getDurationEnv("JWT_EXPIRY", 24*time.Hour),
			BCryptCost: getIntEnv("BCRYPT_COST", 12),
			MinPINLen:  getIntEnv("MIN_PIN_LENGTH", 4),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", defaultLogLevel(env)),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName:   getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:      getEnv("CLOUDINARY_API_KEY", ""),
			APISecret:   getEnv("CLOUDINARY_API_SECRET", ""),
			MaxFileSize: getInt64Env("CLOUDINARY_MAX_FILE_SIZE", 5<<20),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks required fields and cross-field constraints.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Server.Environment == "production" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.Auth.BCryptCost < 10 || c.Auth.BCryptCost > 15 {
		return fmt.Errorf("BCRYPT_COST must be between 10 and 15, got %d", c.Auth.BCryptCost)
	}
	if c.Cache.Provider != "memory" && c.Cache.Provider != "redis" {
		return fmt.Errorf("CACHE_PROVIDER must be memory or redis, got %q", c.Cache.Provider)
	}
	return nil
}

func defaultCacheProvider(env string) string {
	if env == "production" {
		return "redis"
	}
	return "memory"
}

func defaultLogLevel(env string) string {
	if env == "production" {
		return "info"
	}
	return "debug"
}

// ===============================
// ENV HELPERS
// ===============================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
