package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ops_reporting_backend/internal/adapters"
	"ops_reporting_backend/internal/adapters/storage"
	"ops_reporting_backend/internal/events"
	"ops_reporting_backend/internal/metrics"
	"ops_reporting_backend/internal/metrics/archive"
	"ops_reporting_backend/internal/metrics/cache"
	"ops_reporting_backend/internal/scheduler"
	"ops_reporting_backend/platform/config"
	"ops_reporting_backend/platform/db"
	"ops_reporting_backend/platform/logger"
	"ops_reporting_backend/platform/retry"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	startupAttempts  = 5
	startupBaseDelay = 2 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := retry.Do(ctx, log, "database connection", startupAttempts, startupBaseDelay, func(ctx context.Context) error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	var legacy *sql.DB
	if cfg.IsLegacyMySQLEnabled() {
		if err := retry.Do(ctx, log, "legacy mysql connection", startupAttempts, startupBaseDelay, func(ctx context.Context) error {
			conn, err := db.NewMySQL(ctx, cfg)
			if err != nil {
				return err
			}
			legacy = conn
			return nil
		}); err != nil {
			log.Error("failed to connect to legacy mysql", "error", err)
			panic("failed to connect to legacy mysql: " + err.Error())
		}
		defer func() { _ = legacy.Close() }()
	}

	eventBus := events.NewInMemoryBus(log)

	// Refresh subscribers: archive the payload, then drop cached reports of the year.
	if cfg.IsMinIOEnabled() {
		storageSvc, err := storage.NewMinIOService(cfg)
		if err != nil {
			log.Error("failed to initialize storage service", "error", err)
			panic("failed to initialize storage service: " + err.Error())
		}
		bucket := cfg.GetMinioBucketMetricArchive()
		if err := retry.Do(ctx, log, "ensure metric archive bucket", startupAttempts, startupBaseDelay, func(ctx context.Context) error {
			return storageSvc.EnsureBucketExists(ctx, bucket)
		}); err != nil {
			log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
			panic("failed to ensure storage bucket exists: " + err.Error())
		}
		archiver := archive.New(storageSvc, bucket, log)
		archiver.RegisterHandlers(eventBus)

		retention := scheduler.NewArchiveRetention(archiver, log, 0, cfg.GetArchiveRetention())
		go retention.Run(ctx)
	}

	if cfg.IsCacheEnabled() {
		rdb, err := cache.NewClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
		if err != nil {
			log.Error("failed to initialize report cache", "error", err)
			panic("failed to initialize report cache: " + err.Error())
		}
		defer func() { _ = rdb.Close() }()
		store, err := cache.NewRedisStore(rdb, cfg.GetCachePrefix(), cfg.GetCacheTTL())
		if err != nil {
			log.Error("failed to initialize report cache", "error", err)
			panic("failed to initialize report cache: " + err.Error())
		}
		adapters.NewRefreshCacheInvalidator(cache.NewReports(store, log), log).RegisterHandlers(eventBus)
	}

	svc, err := metrics.NewService(pool, legacy, cfg, eventBus, log)
	if err != nil {
		log.Error("failed to initialize metrics service", "error", err)
		panic("failed to initialize metrics service: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodicRefresh(cfg, log)
	if err != nil {
		log.Warn("periodic refresh disabled", "error", err)
	} else {
		if err := periodic.Start(); err != nil {
			log.Error("failed to start periodic refresh", "error", err)
			panic("failed to start periodic refresh: " + err.Error())
		}
		defer periodic.Shutdown()
	}

	worker, err := scheduler.NewWorker(cfg, svc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	// let archive and cache subscribers of the last refresh finish
	eventBus.Wait()
}
