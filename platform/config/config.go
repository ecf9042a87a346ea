// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// LegacyDatabaseConfig provides the MySQL DSN of the legacy historic table.
// When empty, the historic source is read from PostgreSQL.
type LegacyDatabaseConfig interface {
	GetLegacyMySQLDSN() string
	IsLegacyMySQLEnabled() bool
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides settings for the asynq refresh queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetRefreshCron() string
}

// CacheConfig provides settings for the report cache.
type CacheConfig interface {
	GetRedisURL() string
	GetCacheTTL() time.Duration
	GetCachePrefix() string
	IsCacheEnabled() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketMetricArchive() string
	GetArchiveRetention() time.Duration
	IsMinIOEnabled() bool
}

// MetricsConfig provides settings for the reconciliation pipeline.
type MetricsConfig interface {
	GetFetchAttempts() int
	GetFetchBaseDelay() time.Duration
	GetTargetsFile() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	LegacyMySQLDSN           string
	JWTAccessSecret          string
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	RedisURL                 string
	RedisTLSInsecure         bool
	AsynqQueueName           string
	AsynqConcurrency         int
	RefreshCron              string
	CacheTTL                 time.Duration
	CachePrefix              string
	CacheEnabled             bool
	MinIOEndpoint            string
	MinIOAccessKey           string
	MinIOSecretKey           string
	MinIOUseSSL              bool
	MinIOMaxFileSize         int64
	MinioBucketMetricArchive string
	ArchiveRetention         time.Duration
	FetchAttempts            int
	FetchBaseDelay           time.Duration
	TargetsFile              string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// LegacyDatabaseConfig implementation
func (c *Config) GetLegacyMySQLDSN() string  { return c.LegacyMySQLDSN }
func (c *Config) IsLegacyMySQLEnabled() bool { return c.LegacyMySQLDSN != "" }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }
func (c *Config) GetRefreshCron() string     { return c.RefreshCron }

// CacheConfig implementation
func (c *Config) GetCacheTTL() time.Duration { return c.CacheTTL }
func (c *Config) GetCachePrefix() string     { return c.CachePrefix }
func (c *Config) IsCacheEnabled() bool       { return c.CacheEnabled && c.RedisURL != "" && c.CacheTTL > 0 }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketMetricArchive() string {
	return c.MinioBucketMetricArchive
}
func (c *Config) GetArchiveRetention() time.Duration { return c.ArchiveRetention }
func (c *Config) IsMinIOEnabled() bool               { return c.MinIOEndpoint != "" }

// MetricsConfig implementation
func (c *Config) GetFetchAttempts() int            { return c.FetchAttempts }
func (c *Config) GetFetchBaseDelay() time.Duration { return c.FetchBaseDelay }
func (c *Config) GetTargetsFile() string           { return c.TargetsFile }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		LegacyMySQLDSN:           getEnv("LEGACY_MYSQL_DSN", ""),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "metrics"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "2")),
		RefreshCron:              getEnv("METRICS_REFRESH_CRON", "@every 1h"),
		CacheTTL:                 mustDuration(getEnv("METRICS_CACHE_TTL", "5m")),
		CachePrefix:              getEnv("METRICS_CACHE_PREFIX", "metrics"),
		CacheEnabled:             strings.EqualFold(getEnv("METRICS_CACHE_ENABLED", "true"), "true"),
		MinIOEndpoint:            getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:           getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:           getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:              strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:         mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "104857600")),
		MinioBucketMetricArchive: getEnv("MINIO_BUCKET_METRIC_ARCHIVE", "metric-archive"),
		ArchiveRetention:         mustDuration(getEnv("METRICS_ARCHIVE_RETENTION", "9600h")),
		FetchAttempts:            mustInt(getEnv("METRICS_FETCH_ATTEMPTS", "3")),
		FetchBaseDelay:           mustDuration(getEnv("METRICS_FETCH_BASE_DELAY", "250ms")),
		TargetsFile:              getEnv("METRICS_TARGETS_FILE", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.FetchAttempts < 1 {
		return nil, fmt.Errorf("METRICS_FETCH_ATTEMPTS must be at least 1")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
