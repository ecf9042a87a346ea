package scheduler

import (
	"context"
	"time"

	"ops_reporting_backend/platform/logger"
)

const (
	defaultArchiveRetentionInterval = 24 * time.Hour
	defaultArchiveRetention         = 400 * 24 * time.Hour
)

// ArchivePruner deletes archived refreshes older than a cutoff.
type ArchivePruner interface {
	Prune(ctx context.Context, before time.Time) (int, error)
}

// ArchiveRetention periodically removes old refresh archives.
type ArchiveRetention struct {
	pruner    ArchivePruner
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewArchiveRetention(pruner ArchivePruner, log *logger.Logger, interval, retention time.Duration) *ArchiveRetention {
	if interval <= 0 {
		interval = defaultArchiveRetentionInterval
	}
	if retention <= 0 {
		retention = defaultArchiveRetention
	}

	return &ArchiveRetention{
		pruner:    pruner,
		log:       log,
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

func (r *ArchiveRetention) Run(ctx context.Context) {
	if r == nil || r.pruner == nil {
		return
	}

	r.cleanup(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cleanup(ctx)
		}
	}
}

func (r *ArchiveRetention) cleanup(ctx context.Context) {
	deleted, err := r.pruner.Prune(ctx, r.now().Add(-r.retention))
	if err != nil {
		r.log.Warn("archive retention failed", "error", err)
		return
	}

	if deleted > 0 {
		r.log.Info("archive retention deleted old refreshes", "deleted", deleted)
	}
}
