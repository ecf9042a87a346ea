// Package events defines the metrics domain events published on the platform bus.
package events

import (
	"time"

	"ops_reporting_backend/platform/events"
	"ops_reporting_backend/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates the process-local bus shared by the metrics subscribers.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// MetricsRefreshed is published after the materialized buckets of a year were replaced.
type MetricsRefreshed struct {
	BaseEvent
	RefreshID   uuid.UUID      `json:"refreshId"`
	Year        int            `json:"year"`
	Buckets     int            `json:"buckets"`
	Orders      int            `json:"orders"`
	Diagnostics map[string]int `json:"diagnostics"`
	// Payload is the JSON encoding of the refreshed buckets, archived as-is.
	Payload  []byte        `json:"-"`
	Duration time.Duration `json:"duration"`
}

func (e MetricsRefreshed) EventName() string { return "metrics.refreshed" }

// MetricsCacheInvalidated is published when cached reports of a year were dropped on request.
type MetricsCacheInvalidated struct {
	BaseEvent
	Year    int    `json:"year"`
	Reason  string `json:"reason"`
	ActorID string `json:"actorId,omitempty"`
}

func (e MetricsCacheInvalidated) EventName() string { return "metrics.cache.invalidated" }
