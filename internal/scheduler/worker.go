package scheduler

import (
	"context"
	"fmt"
	"time"

	"ops_reporting_backend/internal/metrics/service"
	"ops_reporting_backend/platform/apperr"
	"ops_reporting_backend/platform/config"
	"ops_reporting_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// MetricsRefresher rebuilds the materialized buckets of one year.
type MetricsRefresher interface {
	Refresh(ctx context.Context, year int) (service.RefreshResult, error)
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	refresher MetricsRefresher
	log       *logger.Logger
	now       func() time.Time
}

func NewWorker(cfg config.SchedulerConfig, refresher MetricsRefresher, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 2
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(refresher, log)
	w.server = server
	return w, nil
}

func newWorker(refresher MetricsRefresher, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:       mux,
		refresher: refresher,
		log:       log,
		now:       time.Now,
	}
	mux.HandleFunc(TaskMetricsRefresh, w.handleMetricsRefresh)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleMetricsRefresh(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseMetricsRefreshPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if taskID, ok := asynq.GetTaskID(ctx); ok {
		ctx = context.WithValue(ctx, logger.TaskIDKey, taskID)
	}

	for _, year := range w.refreshYears(payload.Year) {
		result, err := w.refresher.Refresh(ctx, year)
		if err != nil {
			if apperr.Is(err, apperr.KindValidation) {
				return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
			}
			return err
		}
		w.log.WithContext(ctx).Info("metrics refresh done",
			"year", year,
			"refreshId", result.RefreshID,
			"buckets", result.Buckets,
			"orders", result.Orders,
			"reason", payload.Reason,
		)
	}
	return nil
}

// refreshYears resolves the periodic payload. In January the previous year
// is refreshed too, since late orders of December still arrive.
func (w *Worker) refreshYears(year int) []int {
	if year != 0 {
		return []int{year}
	}
	now := w.now().UTC()
	if now.Month() == time.January {
		return []int{now.Year() - 1, now.Year()}
	}
	return []int{now.Year()}
}
