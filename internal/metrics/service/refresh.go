package service

import (
	"context"
	"encoding/json"
	"fmt"

	"ops_reporting_backend/internal/events"
	"ops_reporting_backend/internal/metrics/domain"
	"ops_reporting_backend/internal/metrics/repository"
	"ops_reporting_backend/internal/metrics/transport"
	"ops_reporting_backend/platform/apperr"

	"github.com/google/uuid"
)

var refreshGrouping = []domain.Dimension{domain.DimYear, domain.DimMonth, domain.DimSource, domain.DimSector}

// RefreshResult summarizes one materialized refresh.
type RefreshResult struct {
	RefreshID uuid.UUID
	Year      int
	Buckets   int
	Orders    int
	Copied    int64
}

// Refresh recomputes the monthly buckets of year and replaces the persisted copy.
// On success a MetricsRefreshed event carries the bucket JSON to subscribers.
func (s *Service) Refresh(ctx context.Context, year int) (RefreshResult, error) {
	if s.store == nil {
		return RefreshResult{}, apperr.Internal("materialized store not configured")
	}
	started := s.now()

	batch, err := s.Load(ctx, domain.YearWindow(year))
	if err != nil {
		return RefreshResult{}, err
	}
	buckets, err := domain.Aggregate(batch.Snapshots, domain.AggregateOptions{GroupBy: refreshGrouping})
	if err != nil {
		return RefreshResult{}, invalid(err)
	}

	refreshID := uuid.New()
	refreshedAt := s.now().UTC()
	rows := make([]repository.MaterializedBucket, 0, len(buckets))
	payload := make([]transport.BucketResponse, 0, len(buckets))
	for _, b := range buckets {
		rows = append(rows, repository.MaterializedBucket{
			Year:        b.Year,
			Month:       b.Month,
			Source:      b.Dimensions[domain.DimSource],
			Sector:      b.Dimensions[domain.DimSector],
			OrderCount:  b.Count,
			Pabellones:  b.Sums[domain.MeasurePabellones],
			SurfaceM2:   b.Sums[domain.MeasureSurfaceM2],
			Damages:     b.Sums[domain.MeasureDamages],
			FuelLiters:  b.Sums[domain.MeasureFuelLiters],
			RefreshID:   refreshID,
			RefreshedAt: refreshedAt,
		})
		payload = append(payload, toBucketResponse(b))
	}

	copied, err := s.store.ReplaceMaterialized(ctx, year, rows)
	if err != nil {
		if s.log != nil {
			s.log.WithContext(ctx).DatabaseError("replace materialized buckets", err)
		}
		return RefreshResult{}, fmt.Errorf("refresh %d: %w", year, err)
	}

	result := RefreshResult{
		RefreshID: refreshID,
		Year:      year,
		Buckets:   len(rows),
		Orders:    len(batch.Snapshots),
		Copied:    copied,
	}

	if s.bus != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return result, fmt.Errorf("encode refresh payload: %w", err)
		}
		s.bus.Publish(ctx, events.MetricsRefreshed{
			BaseEvent:   events.NewBaseEvent(),
			RefreshID:   refreshID,
			Year:        year,
			Buckets:     len(rows),
			Orders:      len(batch.Snapshots),
			Diagnostics: batch.Diagnostics.Summary(),
			Payload:     raw,
			Duration:    s.now().Sub(started),
		})
	}

	if s.log != nil {
		s.log.WithContext(ctx).Info("metrics refreshed",
			"year", year, "refresh_id", refreshID.String(), "buckets", len(rows), "orders", len(batch.Snapshots))
	}
	return result, nil
}

// ListMaterialized returns the persisted output of the last refresh of a year.
func (s *Service) ListMaterialized(ctx context.Context, req transport.YearRequest) (transport.MaterializedListResponse, error) {
	if s.store == nil {
		return transport.MaterializedListResponse{}, apperr.Internal("materialized store not configured")
	}
	rows, err := s.store.ListMaterialized(ctx, req.Year)
	if err != nil {
		return transport.MaterializedListResponse{}, err
	}
	return toMaterializedResponse(req.Year, rows), nil
}
