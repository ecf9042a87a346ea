package scheduler

import (
	"fmt"
	"time"

	"ops_reporting_backend/platform/config"
	"ops_reporting_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// PeriodicRefresh enqueues a refresh of the current year on a cron schedule.
type PeriodicRefresh struct {
	scheduler *asynq.Scheduler
	cronSpec  string
	queue     string
	log       *logger.Logger
}

func NewPeriodicRefresh(cfg config.SchedulerConfig, log *logger.Logger) (*PeriodicRefresh, error) {
	cronSpec := cfg.GetRefreshCron()
	if cronSpec == "" {
		return nil, fmt.Errorf("refresh cron not configured")
	}

	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	p := &PeriodicRefresh{cronSpec: cronSpec, queue: queueName(cfg), log: log}
	p.scheduler = asynq.NewScheduler(opt, &asynq.SchedulerOpts{
		Location: time.UTC,
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				log.Warn("periodic refresh enqueue failed", "error", err)
				return
			}
			log.Info("periodic refresh enqueued", "taskId", info.ID, "queue", info.Queue)
		},
	})
	return p, nil
}

// Start registers the cron entry and starts the scheduler in the background.
func (p *PeriodicRefresh) Start() error {
	task, err := NewMetricsRefreshTask(MetricsRefreshPayload{Reason: "periodic"})
	if err != nil {
		return err
	}
	entryID, err := p.scheduler.Register(p.cronSpec, task, refreshOptions(p.queue)...)
	if err != nil {
		return fmt.Errorf("register refresh cron %q: %w", p.cronSpec, err)
	}
	p.log.Info("periodic refresh registered", "cron", p.cronSpec, "entryId", entryID)
	return p.scheduler.Start()
}

func (p *PeriodicRefresh) Shutdown() {
	if p == nil || p.scheduler == nil {
		return
	}
	p.scheduler.Shutdown()
}
