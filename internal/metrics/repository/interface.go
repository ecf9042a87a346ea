package repository

import (
	"context"
	"iter"
	"time"

	"ops_reporting_backend/internal/metrics/domain"

	"github.com/google/uuid"
)

// MaterializedBucket is one persisted (year, month, source, sector) row of a refresh.
type MaterializedBucket struct {
	Year        int       `db:"year"`
	Month       int       `db:"month"`
	Source      string    `db:"source"`
	Sector      string    `db:"sector"`
	OrderCount  int       `db:"order_count"`
	Pabellones  float64   `db:"pabellones"`
	SurfaceM2   float64   `db:"surface_m2"`
	Damages     float64   `db:"damages"`
	FuelLiters  float64   `db:"fuel_liters"`
	RefreshID   uuid.UUID `db:"refresh_id"`
	RefreshedAt time.Time `db:"refreshed_at"`
}

// HistoricSource streams rows of the flat historic table.
type HistoricSource interface {
	Historic(ctx context.Context, w domain.Window) iter.Seq2[domain.HistoricRecord, error]
}

// CurrentSource streams rows of the current-schema join, one per fan-out row.
type CurrentSource interface {
	Current(ctx context.Context, w domain.Window) iter.Seq2[domain.CurrentRecord, error]
}

// BudgetReader loads the monthly budget of one measure.
// found is false when no budget row exists for the year.
type BudgetReader interface {
	MonthlyBudget(ctx context.Context, year int, measure domain.Measure) (series domain.MonthlySeries, found bool, err error)
}

// MaterializedStore persists refresh output.
type MaterializedStore interface {
	ReplaceMaterialized(ctx context.Context, year int, rows []MaterializedBucket) (int64, error)
	ListMaterialized(ctx context.Context, year int) ([]MaterializedBucket, error)
}

// Repository is the full PostgreSQL surface of the metrics module.
type Repository interface {
	HistoricSource
	CurrentSource
	BudgetReader
	MaterializedStore
}
