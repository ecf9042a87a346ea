package service

import (
	"time"

	"ops_reporting_backend/internal/events"
	"ops_reporting_backend/internal/metrics/repository"
	"ops_reporting_backend/internal/metrics/targets"
	"ops_reporting_backend/platform/logger"
)

const (
	defaultFetchAttempts  = 3
	defaultFetchBaseDelay = 250 * time.Millisecond
)

// Deps are the collaborators of the metrics service. Historic and Current are
// required; the rest may be nil, which disables the operations that need them.
type Deps struct {
	Historic repository.HistoricSource
	Current  repository.CurrentSource
	Budgets  repository.BudgetReader
	Store    repository.MaterializedStore
	Policy   *targets.Policy
	Bus      events.Bus
	Log      *logger.Logger

	FetchAttempts  int
	FetchBaseDelay time.Duration
}

// Service runs the reconciliation pipeline for every report operation.
// It holds no request state; each call fetches, deduplicates and aggregates from scratch.
type Service struct {
	historic repository.HistoricSource
	current  repository.CurrentSource
	budgets  repository.BudgetReader
	store    repository.MaterializedStore
	policy   *targets.Policy
	bus      events.Bus
	log      *logger.Logger

	attempts  int
	baseDelay time.Duration
	now       func() time.Time
}

// New creates a new metrics service.
func New(deps Deps) *Service {
	attempts := deps.FetchAttempts
	if attempts < 1 {
		attempts = defaultFetchAttempts
	}
	baseDelay := deps.FetchBaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultFetchBaseDelay
	}
	policy := deps.Policy
	if policy == nil {
		policy = targets.Default()
	}
	return &Service{
		historic:  deps.Historic,
		current:   deps.Current,
		budgets:   deps.Budgets,
		store:     deps.Store,
		policy:    policy,
		bus:       deps.Bus,
		log:       deps.Log,
		attempts:  attempts,
		baseDelay: baseDelay,
		now:       time.Now,
	}
}
