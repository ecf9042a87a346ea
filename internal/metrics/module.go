// Package metrics is the planilla metrics reconciliation bounded context.
// This file wires the module and registers its routes.
package metrics

import (
	"ops_reporting_backend/internal/events"
	apphttp "ops_reporting_backend/internal/http"
	"ops_reporting_backend/internal/metrics/cache"
	"ops_reporting_backend/internal/metrics/handler"
	"ops_reporting_backend/internal/metrics/service"
	"ops_reporting_backend/internal/metrics/transport"
	"ops_reporting_backend/platform/validator"
)

// ModuleDeps are the collaborators built by the composition root.
// Reports, Refresh and Archives may be nil.
type ModuleDeps struct {
	Service   *service.Service
	Reports   *cache.Reports
	Refresh   handler.RefreshEnqueuer
	Archives  handler.ArchiveLister
	Bus       events.Bus
	Validator *validator.Validator
}

// Module is the metrics bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule registers the request validators and builds the handler.
func NewModule(deps ModuleDeps) (*Module, error) {
	if err := transport.RegisterValidators(deps.Validator); err != nil {
		return nil, err
	}
	h := handler.New(handler.Deps{
		Service:   deps.Service,
		Reports:   deps.Reports,
		Refresh:   deps.Refresh,
		Archives:  deps.Archives,
		Bus:       deps.Bus,
		Validator: deps.Validator,
	})
	return &Module{handler: h, service: deps.Service}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "metrics"
}

// Service exposes the reconciliation service for the worker and CLI.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the report endpoints behind auth and the report rate limiter,
// and the refresh/cache/audit endpoints under the admin group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	reports := ctx.Protected.Group("/metrics")
	if ctx.ReportRateLimiter != nil {
		reports.Use(ctx.ReportRateLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(reports, ctx.Admin.Group("/metrics"))
}

// Compile-time check.
var _ apphttp.Module = (*Module)(nil)
