package metrics

import (
	"database/sql"

	"ops_reporting_backend/internal/events"
	"ops_reporting_backend/internal/metrics/repository"
	"ops_reporting_backend/internal/metrics/service"
	"ops_reporting_backend/internal/metrics/targets"
	"ops_reporting_backend/platform/config"
	"ops_reporting_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewService builds the reconciliation service over PostgreSQL. When legacy
// is non-nil the historic table is read from the legacy MySQL database instead.
func NewService(pool *pgxpool.Pool, legacy *sql.DB, cfg config.MetricsConfig, bus events.Bus, log *logger.Logger) (*service.Service, error) {
	policy, err := targets.Load(cfg.GetTargetsFile())
	if err != nil {
		return nil, err
	}

	repo := repository.New(pool)
	var historic repository.HistoricSource = repo
	if legacy != nil {
		historic = repository.NewMySQLHistoric(legacy)
		log.Info("historic planillas read from legacy mysql")
	}

	return service.New(service.Deps{
		Historic:       historic,
		Current:        repo,
		Budgets:        repo,
		Store:          repo,
		Policy:         policy,
		Bus:            bus,
		Log:            log,
		FetchAttempts:  cfg.GetFetchAttempts(),
		FetchBaseDelay: cfg.GetFetchBaseDelay(),
	}), nil
}
