package http

import (
	"context"

	"ops_reporting_backend/platform/config"
	"ops_reporting_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is a dependency /api/ready pings.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is assembled by cmd/api and handed to router.New.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health is checked by /api/ready. Each entry is pinged by name.
	Health  map[string]HealthChecker
	Modules []Module
}
