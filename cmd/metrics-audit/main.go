// Command metrics-audit reconciles one year and prints how far per-row sums
// over-count each measure, with the orders that inflate them most.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"ops_reporting_backend/internal/metrics"
	"ops_reporting_backend/internal/metrics/transport"
	"ops_reporting_backend/platform/config"
	"ops_reporting_backend/platform/db"
	"ops_reporting_backend/platform/logger"
	"ops_reporting_backend/platform/retry"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTop = 10

func main() {
	year := flag.Int("year", time.Now().Year(), "year to audit")
	top := flag.Int("top", defaultTop, "number of fan-out orders to list")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting metrics audit", "year", *year)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var pool *pgxpool.Pool
	if err := retry.Do(ctx, log, "database connection", 3, time.Second, func(ctx context.Context) error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var legacy *sql.DB
	if cfg.IsLegacyMySQLEnabled() {
		legacy, err = db.NewMySQL(ctx, cfg)
		if err != nil {
			log.Error("failed to connect to legacy mysql", "error", err)
			os.Exit(1)
		}
		defer func() { _ = legacy.Close() }()
	}

	svc, err := metrics.NewService(pool, legacy, cfg, nil, log)
	if err != nil {
		log.Error("failed to initialize metrics service", "error", err)
		os.Exit(1)
	}

	report, err := svc.GetAudit(ctx, transport.AuditRequest{Year: *year, Top: *top})
	if err != nil {
		log.Error("audit failed", "error", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			log.Error("failed to encode report", "error", err)
			os.Exit(1)
		}
		return
	}
	if err := render(os.Stdout, report); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
