package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"ops_reporting_backend/platform/apperr"
	"ops_reporting_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	refreshMaxRetry = 3
	refreshTimeout  = 10 * time.Minute
	// refreshUniqueFor rejects a second refresh of the same year while one is queued.
	refreshUniqueFor = 5 * time.Minute
)

type Client struct {
	client *asynq.Client
	queue  string
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queueName(cfg),
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueRefresh queues a refresh of year and returns the task id and queue.
// A refresh of the same year already waiting yields a conflict error.
func (c *Client) EnqueueRefresh(ctx context.Context, year int) (string, string, error) {
	if c == nil || c.client == nil {
		return "", "", apperr.Unavailable(errors.New("refresh scheduler not configured"))
	}

	task, err := NewMetricsRefreshTask(MetricsRefreshPayload{Year: year, Reason: "manual"})
	if err != nil {
		return "", "", err
	}

	info, err := c.client.EnqueueContext(ctx, task, refreshOptions(c.queue)...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", "", apperr.Conflict(fmt.Sprintf("a refresh of %d is already queued", year))
	}
	if err != nil {
		return "", "", err
	}
	return info.ID, info.Queue, nil
}

func refreshOptions(queue string) []asynq.Option {
	return []asynq.Option{
		asynq.Queue(queue),
		asynq.MaxRetry(refreshMaxRetry),
		asynq.Timeout(refreshTimeout),
		asynq.Unique(refreshUniqueFor),
	}
}

func queueName(cfg config.SchedulerConfig) string {
	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	return queue
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
