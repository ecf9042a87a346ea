// Package http holds the pieces the router needs from the outside: the App
// description and the Module contract feature packages implement.
package http

import (
	"ops_reporting_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module mounts one feature area's routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is what a Module may attach routes and middleware to.
type RouterContext struct {
	// V1 is /api/v1 without authentication.
	V1 *gin.RouterGroup
	// Protected is /api/v1 behind AuthRequired.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin behind AuthRequired and the admin role.
	Admin *gin.RouterGroup
	// ReportRateLimiter throttles the report endpoints, which recompute from the sources.
	ReportRateLimiter *httpkit.IPRateLimiter
}
