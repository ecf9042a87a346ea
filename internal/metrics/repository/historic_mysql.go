package repository

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"ops_reporting_backend/internal/metrics/domain"
)

// MySQLHistoric reads the historic table from the legacy MySQL database it was migrated from.
type MySQLHistoric struct {
	db *sql.DB
}

// NewMySQLHistoric wraps an open legacy connection.
func NewMySQLHistoric(db *sql.DB) *MySQLHistoric {
	return &MySQLHistoric{db: db}
}

var _ HistoricSource = (*MySQLHistoric)(nil)

const mysqlHistoricQuery = `
		SELECT p.id, p.service_date, p.sector, p.supervisor,
			p.total_pabellones, p.surface_m2, p.damage_count, p.fuel_liters
		FROM historic_planillas p
		WHERE (p.service_date IS NULL OR p.service_date = '0000-00-00'
			OR (p.service_date >= ? AND p.service_date < ?
			AND (? = 0 OR MONTH(p.service_date) = ?)))
		ORDER BY p.id`

func mysqlWindowArgs(w domain.Window) []any {
	return []any{w.Start(), w.End(), w.Month, w.Month}
}

// Historic streams legacy rows inside w.
func (m *MySQLHistoric) Historic(ctx context.Context, w domain.Window) iter.Seq2[domain.HistoricRecord, error] {
	return func(yield func(domain.HistoricRecord, error) bool) {
		rows, err := m.db.QueryContext(ctx, mysqlHistoricQuery, mysqlWindowArgs(w)...)
		if err != nil {
			yield(domain.HistoricRecord{}, fmt.Errorf("query legacy historic planillas: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec domain.HistoricRecord
			var date sql.NullTime
			var sector, supervisor sql.NullString
			var pabellones, surface, damages, fuelLiters sql.NullFloat64
			if err := rows.Scan(&rec.OrderID, &date, &sector, &supervisor, &pabellones, &surface, &damages, &fuelLiters); err != nil {
				yield(domain.HistoricRecord{}, fmt.Errorf("scan legacy historic planilla: %w", err))
				return
			}
			rec.Date = nullTime(date)
			rec.Sector = nullString(sector)
			rec.Supervisor = nullString(supervisor)
			rec.Pabellones = nullFloat(pabellones)
			rec.SurfaceM2 = nullFloat(surface)
			rec.Damages = nullFloat(damages)
			rec.FuelLiters = nullFloat(fuelLiters)
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.HistoricRecord{}, fmt.Errorf("iterate legacy historic planillas: %w", err))
		}
	}
}
