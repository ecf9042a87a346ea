package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskMetricsRefresh = "metrics.refresh"

// MetricsRefreshPayload asks the worker to rebuild the materialized buckets of Year.
// Year 0 means the current year at processing time, used by the periodic entry.
type MetricsRefreshPayload struct {
	Year   int    `json:"year"`
	Reason string `json:"reason,omitempty"`
}

func NewMetricsRefreshTask(payload MetricsRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMetricsRefresh, data), nil
}

func ParseMetricsRefreshPayload(task *asynq.Task) (MetricsRefreshPayload, error) {
	var payload MetricsRefreshPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return MetricsRefreshPayload{}, err
	}
	return payload, nil
}
