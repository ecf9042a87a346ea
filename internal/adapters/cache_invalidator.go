// Package adapters connects modules that must not import each other.
package adapters

import (
	"context"

	"ops_reporting_backend/internal/events"
	"ops_reporting_backend/platform/logger"
)

// YearInvalidator drops cached reports covering one year.
type YearInvalidator interface {
	InvalidateYear(ctx context.Context, year int) (int64, error)
}

// RefreshCacheInvalidator drops cached reports of a year once its refresh committed.
type RefreshCacheInvalidator struct {
	cache YearInvalidator
	log   *logger.Logger
}

// NewRefreshCacheInvalidator creates the adapter.
func NewRefreshCacheInvalidator(cache YearInvalidator, log *logger.Logger) *RefreshCacheInvalidator {
	return &RefreshCacheInvalidator{cache: cache, log: log}
}

// RegisterHandlers subscribes to refresh events.
func (a *RefreshCacheInvalidator) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.MetricsRefreshed{}.EventName(), a)
}

// Handle implements events.Handler.
func (a *RefreshCacheInvalidator) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(events.MetricsRefreshed)
	if !ok {
		return nil
	}
	removed, err := a.cache.InvalidateYear(ctx, e.Year)
	if err != nil {
		return err
	}
	if a.log != nil {
		a.log.Info("report cache invalidated after refresh", "year", e.Year, "removed", removed, "refreshId", e.RefreshID)
	}
	return nil
}

// Compile-time check.
var _ events.Handler = (*RefreshCacheInvalidator)(nil)
