package service

import (
	"context"
	"errors"
	"iter"

	"ops_reporting_backend/internal/metrics/domain"
	"ops_reporting_backend/platform/apperr"
	"ops_reporting_backend/platform/retry"

	"golang.org/x/sync/errgroup"
)

// Batch is the deduplicated view of one reporting window.
type Batch struct {
	Window      domain.Window
	Snapshots   []domain.OrderSnapshot
	Diagnostics *domain.Diagnostics
	// RawRows counts source rows before deduplication.
	RawRows int
	// Naive is the plain per-row SUM of every measure, kept for auditing.
	Naive map[domain.Measure]float64
}

type eventSeq = iter.Seq2[domain.ServiceEvent, error]

type fetchResult struct {
	events []domain.ServiceEvent
	diag   *domain.Diagnostics
}

// Load fetches both sources concurrently and deduplicates them once both
// are complete. A source that keeps failing after its retries fails the whole
// load; nothing partial is ever returned.
func (s *Service) Load(ctx context.Context, w domain.Window) (Batch, error) {
	if err := w.Validate(); err != nil {
		return Batch{}, invalid(err)
	}

	var historic, current fetchResult
	g, gctx := errgroup.WithContext(ctx)

	if w.Includes(domain.SourceHistoric) && s.historic != nil {
		g.Go(func() error {
			res, err := s.fetch(gctx, "historic planillas", func(ctx context.Context, diag *domain.Diagnostics) eventSeq {
				return domain.HistoricEvents(s.historic.Historic(ctx, w), diag)
			})
			historic = res
			return err
		})
	}
	if w.Includes(domain.SourceCurrent) && s.current != nil {
		g.Go(func() error {
			res, err := s.fetch(gctx, "current planillas", func(ctx context.Context, diag *domain.Diagnostics) eventSeq {
				return domain.CurrentEvents(s.current.Current(ctx, w), diag)
			})
			current = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Batch{}, ctxErr
		}
		if s.log != nil {
			s.log.WithContext(ctx).DatabaseError("load planillas", err)
		}
		return Batch{}, apperr.Unavailable(err)
	}

	diag := domain.NewDiagnostics()
	diag.Merge(historic.diag)
	diag.Merge(current.diag)

	dedup := domain.NewDeduplicator(diag)
	naive := make(map[domain.Measure]float64, len(domain.Measures))
	for _, part := range [][]domain.ServiceEvent{historic.events, current.events} {
		for _, ev := range part {
			dedup.Add(ev)
		}
		for _, m := range domain.Measures {
			naive[m] += domain.NaiveSum(part, m)
		}
	}

	batch := Batch{
		Window:      w,
		Snapshots:   dedup.Snapshots(),
		Diagnostics: diag,
		RawRows:     len(historic.events) + len(current.events),
		Naive:       naive,
	}
	if w.Sector != "" {
		batch = restrictToSector(batch, historic.events, current.events)
	}
	if s.log != nil {
		s.log.WithContext(ctx).DataQuality("load planillas", batch.Diagnostics.Summary())
	}
	return batch, nil
}

// restrictToSector keeps the orders whose reconciled sector label matches the
// window. It runs after deduplication so an order is selected by the same
// label it is grouped under, whatever its raw spelling in the sources.
func restrictToSector(b Batch, parts ...[]domain.ServiceEvent) Batch {
	kept := make(map[string]bool)
	snapshots := b.Snapshots[:0:0]
	for _, snap := range b.Snapshots {
		if b.Window.MatchesSector(snap.Sector) {
			kept[snap.OrderID] = true
			snapshots = append(snapshots, snap)
		}
	}

	diag := domain.NewDiagnostics()
	for _, item := range b.Diagnostics.Items() {
		switch {
		case item.Code == domain.DiagUndatedOrder:
			if b.Window.MatchesSector(item.Sector) {
				diag.Add(item)
			}
		case item.OrderID == "" || kept[item.OrderID]:
			diag.Add(item)
		}
	}

	var rows []domain.ServiceEvent
	for _, part := range parts {
		for _, ev := range part {
			if kept[ev.OrderID] {
				rows = append(rows, ev)
			}
		}
	}
	naive := make(map[domain.Measure]float64, len(domain.Measures))
	for _, m := range domain.Measures {
		naive[m] = domain.NaiveSum(rows, m)
	}

	b.Snapshots = snapshots
	b.Diagnostics = diag
	b.RawRows = len(rows)
	b.Naive = naive
	return b
}

// fetch drains one source into an attempt-local buffer. A failed attempt
// discards its rows and diagnostics before the next one starts.
func (s *Service) fetch(ctx context.Context, name string, open func(context.Context, *domain.Diagnostics) eventSeq) (fetchResult, error) {
	var out fetchResult
	err := retry.Do(ctx, s.log, name, s.attempts, s.baseDelay, func(ctx context.Context) error {
		diag := domain.NewDiagnostics()
		var buf []domain.ServiceEvent
		for ev, err := range open(ctx, diag) {
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return retry.Permanent(err)
				}
				return err
			}
			buf = append(buf, ev)
		}
		out = fetchResult{events: buf, diag: diag}
		return nil
	})
	if err != nil {
		return fetchResult{}, err
	}
	return out, nil
}

// invalid maps caller mistakes from the domain package to a validation error.
func invalid(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidWindow),
		errors.Is(err, domain.ErrUnknownMeasure),
		errors.Is(err, domain.ErrUnknownDimension),
		errors.Is(err, domain.ErrUnknownSource),
		errors.Is(err, domain.ErrUnknownSeries),
		errors.Is(err, domain.ErrInvalidFilter),
		errors.Is(err, domain.ErrInvalidTarget):
		return apperr.Validation(err.Error())
	default:
		return err
	}
}
