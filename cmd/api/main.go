package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ops_reporting_backend/internal/adapters/storage"
	"ops_reporting_backend/internal/events"
	apphttp "ops_reporting_backend/internal/http"
	"ops_reporting_backend/internal/http/router"
	"ops_reporting_backend/internal/metrics"
	"ops_reporting_backend/internal/metrics/archive"
	"ops_reporting_backend/internal/metrics/cache"
	"ops_reporting_backend/internal/metrics/handler"
	"ops_reporting_backend/internal/scheduler"
	"ops_reporting_backend/migrations"
	"ops_reporting_backend/platform/config"
	"ops_reporting_backend/platform/db"
	"ops_reporting_backend/platform/logger"
	"ops_reporting_backend/platform/retry"
	"ops_reporting_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	startupAttempts  = 5
	startupBaseDelay = 2 * time.Second
	shutdownTimeout  = 10 * time.Second
)

type redisHealth struct {
	rdb *redis.Client
}

func (h redisHealth) Ping(ctx context.Context) error {
	return h.rdb.Ping(ctx).Err()
}

type sqlHealth struct {
	db *sql.DB
}

func (h sqlHealth) Ping(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := retry.Do(ctx, log, "database migrations", startupAttempts, startupBaseDelay, func(ctx context.Context) error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	health := map[string]apphttp.HealthChecker{"postgres": pool}

	legacy := openLegacy(ctx, cfg, log)
	if legacy != nil {
		defer func() { _ = legacy.Close() }()
		health["mysql"] = sqlHealth{db: legacy}
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	eventBus.Subscribe(events.MetricsCacheInvalidated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.MetricsCacheInvalidated); ok {
			log.WithContext(ctx).Info("report cache invalidated", "year", e.Year, "reason", e.Reason, "actorId", e.ActorID)
		}
		return nil
	}))

	// Shared validator instance for dependency injection
	val := validator.New()

	reports, closeCache := initReportCache(cfg, log, health)
	if closeCache != nil {
		defer closeCache()
	}

	var refresh handler.RefreshEnqueuer
	if cfg.GetRedisURL() != "" {
		client, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize refresh scheduler client", "error", err)
		} else {
			defer func() { _ = client.Close() }()
			refresh = client
		}
	} else {
		log.Warn("REDIS_URL not configured; refresh endpoint disabled")
	}

	var archives handler.ArchiveLister
	if cfg.IsMinIOEnabled() {
		archiver, err := initArchiver(ctx, cfg, log)
		if err != nil {
			log.Error("failed to initialize refresh archive", "error", err)
		} else {
			archives = archiver
		}
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	svc, err := metrics.NewService(pool, legacy, cfg, eventBus, log)
	if err != nil {
		log.Error("failed to initialize metrics service", "error", err)
		panic("failed to initialize metrics service: " + err.Error())
	}

	metricsModule, err := metrics.NewModule(metrics.ModuleDeps{
		Service:   svc,
		Reports:   reports,
		Refresh:   refresh,
		Archives:  archives,
		Bus:       eventBus,
		Validator: val,
	})
	if err != nil {
		log.Error("failed to initialize metrics module", "error", err)
		panic("failed to initialize metrics module: " + err.Error())
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:  cfg,
		Logger:  log,
		Health:  health,
		Modules: []apphttp.Module{metricsModule},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func openLegacy(ctx context.Context, cfg *config.Config, log *logger.Logger) *sql.DB {
	if !cfg.IsLegacyMySQLEnabled() {
		return nil
	}
	var legacy *sql.DB
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
	return legacy
}

func initReportCache(cfg *config.Config, log *logger.Logger, health map[string]apphttp.HealthChecker) (*cache.Reports, func()) {
	if !cfg.IsCacheEnabled() {
		log.Warn("report cache disabled")
		return nil, nil
	}

	rdb, err := cache.NewClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to initialize report cache", "error", err)
		return nil, nil
	}
	store, err := cache.NewRedisStore(rdb, cfg.GetCachePrefix(), cfg.GetCacheTTL())
	if err != nil {
		_ = rdb.Close()
		log.Error("failed to initialize report cache", "error", err)
		return nil, nil
	}

	health["redis"] = redisHealth{rdb: rdb}
	log.Info("report cache enabled", "ttl", cfg.GetCacheTTL(), "prefix", cfg.GetCachePrefix())
	return cache.NewReports(store, log), func() { _ = rdb.Close() }
}

func initArchiver(ctx context.Context, cfg *config.Config, log *logger.Logger) (*archive.Archiver, error) {
	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		return nil, err
	}
	bucket := cfg.GetMinioBucketMetricArchive()
	if err := retry.Do(ctx, log, "ensure metric archive bucket", startupAttempts, startupBaseDelay, func(ctx context.Context) error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		return nil, err
	}
	log.Info("storage service initialized", "metricArchiveBucket", bucket)
	return archive.New(storageSvc, bucket, log), nil
}
