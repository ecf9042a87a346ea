package repository

import (
	"context"
	"fmt"
	"iter"

	"ops_reporting_backend/internal/metrics/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new metrics repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// windowFilter keeps undated rows so the normalizer can report them.
const windowFilter = `(p.service_date IS NULL OR (p.service_date >= $1 AND p.service_date < $2
			AND ($3::int = 0 OR EXTRACT(MONTH FROM p.service_date)::int = $3::int)))`

const historicQuery = `
		SELECT p.id, p.service_date, p.sector, p.supervisor,
			p.total_pabellones::float8, p.surface_m2::float8, p.damage_count::float8, p.fuel_liters::float8
		FROM historic_planillas p
		WHERE ` + windowFilter + `
		ORDER BY p.id`

// currentQuery yields one row per machine assignment, one per damage and one
// bare row for orders with neither. Each row carries only its own event values.
const currentQuery = `
		SELECT p.id, p.service_date, p.sector, p.supervisor,
			p.total_pabellones::float8, p.surface_m2::float8,
			pm.machine_id, m.class, pm.operator_id, pm.fuel_liters::float8, NULL::float8 AS damage_quantity
		FROM planillas p
		JOIN planilla_machines pm ON pm.planilla_id = p.id
		LEFT JOIN machines m ON m.id = pm.machine_id
		WHERE ` + windowFilter + `
		UNION ALL
		SELECT p.id, p.service_date, p.sector, p.supervisor,
			p.total_pabellones::float8, p.surface_m2::float8,
			NULL::text, NULL::text, NULL::text, NULL::float8, d.quantity::float8
		FROM planillas p
		JOIN planilla_damages d ON d.planilla_id = p.id
		WHERE ` + windowFilter + `
		UNION ALL
		SELECT p.id, p.service_date, p.sector, p.supervisor,
			p.total_pabellones::float8, p.surface_m2::float8,
			NULL::text, NULL::text, NULL::text, NULL::float8, NULL::float8
		FROM planillas p
		WHERE ` + windowFilter + `
			AND NOT EXISTS (SELECT 1 FROM planilla_machines x WHERE x.planilla_id = p.id)
			AND NOT EXISTS (SELECT 1 FROM planilla_damages y WHERE y.planilla_id = p.id)
		ORDER BY 1`

func windowArgs(w domain.Window) []any {
	return []any{w.Start(), w.End(), w.Month}
}

// Historic streams historic rows inside w. The cursor is closed when the
// caller stops iterating or the sequence ends.
func (r *Repo) Historic(ctx context.Context, w domain.Window) iter.Seq2[domain.HistoricRecord, error] {
	return func(yield func(domain.HistoricRecord, error) bool) {
		rows, err := r.pool.Query(ctx, historicQuery, windowArgs(w)...)
		if err != nil {
			yield(domain.HistoricRecord{}, fmt.Errorf("query historic planillas: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec domain.HistoricRecord
			if err := rows.Scan(
				&rec.OrderID, &rec.Date, &rec.Sector, &rec.Supervisor,
				&rec.Pabellones, &rec.SurfaceM2, &rec.Damages, &rec.FuelLiters,
			); err != nil {
				yield(domain.HistoricRecord{}, fmt.Errorf("scan historic planilla: %w", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.HistoricRecord{}, fmt.Errorf("iterate historic planillas: %w", err))
		}
	}
}

// Current streams the fan-out rows of current planillas inside w.
func (r *Repo) Current(ctx context.Context, w domain.Window) iter.Seq2[domain.CurrentRecord, error] {
	return func(yield func(domain.CurrentRecord, error) bool) {
		rows, err := r.pool.Query(ctx, currentQuery, windowArgs(w)...)
		if err != nil {
			yield(domain.CurrentRecord{}, fmt.Errorf("query current planillas: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec domain.CurrentRecord
			if err := rows.Scan(
				&rec.OrderID, &rec.Date, &rec.Sector, &rec.Supervisor,
				&rec.Pabellones, &rec.SurfaceM2,
				&rec.MachineID, &rec.MachineClass, &rec.OperatorID, &rec.FuelLiters, &rec.DamageQuantity,
			); err != nil {
				yield(domain.CurrentRecord{}, fmt.Errorf("scan current planilla: %w", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.CurrentRecord{}, fmt.Errorf("iterate current planillas: %w", err))
		}
	}
}

const monthlyBudgetQuery = `
		SELECT month, amount::float8
		FROM metric_budgets
		WHERE year = $1 AND measure = $2
		ORDER BY month`

// MonthlyBudget returns the budget series of measure for year.
func (r *Repo) MonthlyBudget(ctx context.Context, year int, measure domain.Measure) (domain.MonthlySeries, bool, error) {
	series := domain.NewMonthlySeries()
	rows, err := r.pool.Query(ctx, monthlyBudgetQuery, year, string(measure))
	if err != nil {
		return series, false, fmt.Errorf("query metric budgets: %w", err)
	}
	defer rows.Close()

	found := false
	for rows.Next() {
		var month int
		var amount float64
		if err := rows.Scan(&month, &amount); err != nil {
			return series, false, fmt.Errorf("scan metric budget: %w", err)
		}
		if month < 1 || month > 12 {
			continue
		}
		series[month-1].Value = amount
		found = true
	}
	if err := rows.Err(); err != nil {
		return series, false, fmt.Errorf("iterate metric budgets: %w", err)
	}
	return series, found, nil
}

var materializedColumns = []string{
	"year", "month", "source", "sector", "order_count",
	"pabellones", "surface_m2", "damages", "fuel_liters", "refresh_id", "refreshed_at",
}

// ReplaceMaterialized swaps every materialized row of year in one transaction.
func (r *Repo) ReplaceMaterialized(ctx context.Context, year int, rows []MaterializedBucket) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin materialized refresh: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM metric_monthly_buckets WHERE year = $1`, year); err != nil {
		return 0, fmt.Errorf("clear materialized buckets: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"metric_monthly_buckets"},
		materializedColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			b := rows[i]
			return []any{
				b.Year, b.Month, b.Source, b.Sector, b.OrderCount,
				b.Pabellones, b.SurfaceM2, b.Damages, b.FuelLiters, b.RefreshID, b.RefreshedAt,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy materialized buckets: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit materialized refresh: %w", err)
	}
	return copied, nil
}

const listMaterializedQuery = `
		SELECT year, month, source, sector, order_count,
			pabellones::float8, surface_m2::float8, damages::float8, fuel_liters::float8,
			refresh_id, refreshed_at
		FROM metric_monthly_buckets
		WHERE year = $1
		ORDER BY month, source, sector`

// ListMaterialized returns the last refresh output for year.
func (r *Repo) ListMaterialized(ctx context.Context, year int) ([]MaterializedBucket, error) {
	rows, err := r.pool.Query(ctx, listMaterializedQuery, year)
	if err != nil {
		return nil, fmt.Errorf("query materialized buckets: %w", err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[MaterializedBucket])
	if err != nil {
		return nil, fmt.Errorf("collect materialized buckets: %w", err)
	}
	return items, nil
}
