package service

import (
	"context"
	"errors"
	"iter"
	"sync"
	"time"

	"ops_reporting_backend/internal/events"
	"ops_reporting_backend/internal/metrics/domain"
	"ops_reporting_backend/internal/metrics/repository"
)

var errConnReset = errors.New("connection reset by peer")

type fakeHistoric struct {
	mu       sync.Mutex
	records  []domain.HistoricRecord
	failures int
	calls    int
}

func (f *fakeHistoric) Historic(_ context.Context, w domain.Window) iter.Seq2[domain.HistoricRecord, error] {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()

	return func(yield func(domain.HistoricRecord, error) bool) {
		for i, rec := range f.records {
			if fail && i == len(f.records)/2 {
				yield(domain.HistoricRecord{}, errConnReset)
				return
			}
			if rec.Date != nil && !w.Contains(*rec.Date) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
		if fail && len(f.records) == 0 {
			yield(domain.HistoricRecord{}, errConnReset)
		}
	}
}

type fakeCurrent struct {
	mu       sync.Mutex
	records  []domain.CurrentRecord
	failures int
	calls    int
}

func (f *fakeCurrent) Current(_ context.Context, w domain.Window) iter.Seq2[domain.CurrentRecord, error] {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()

	return func(yield func(domain.CurrentRecord, error) bool) {
		for i, rec := range f.records {
			if fail && i == len(f.records)/2 {
				yield(domain.CurrentRecord{}, errConnReset)
				return
			}
			if rec.Date != nil && !w.Contains(*rec.Date) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
		if fail && len(f.records) == 0 {
			yield(domain.CurrentRecord{}, errConnReset)
		}
	}
}

type fakeBudgets struct {
	series map[int]domain.MonthlySeries
}

func (f *fakeBudgets) MonthlyBudget(_ context.Context, year int, _ domain.Measure) (domain.MonthlySeries, bool, error) {
	s, ok := f.series[year]
	if !ok {
		return domain.NewMonthlySeries(), false, nil
	}
	return s, true, nil
}

type fakeStore struct {
	replaced map[int][]repository.MaterializedBucket
	err      error
}

func (f *fakeStore) ReplaceMaterialized(_ context.Context, year int, rows []repository.MaterializedBucket) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.replaced == nil {
		f.replaced = make(map[int][]repository.MaterializedBucket)
	}
	f.replaced[year] = rows
	return int64(len(rows)), nil
}

func (f *fakeStore) ListMaterialized(_ context.Context, year int) ([]repository.MaterializedBucket, error) {
	return f.replaced[year], nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func f64(v float64) *float64 { return &v }
func str(v string) *string    { return &v }

// assignmentRows builds n machine rows of one current order, repeating pabellones.
func assignmentRows(orderID string, when *time.Time, n int, pabellones float64) []domain.CurrentRecord {
	rows := make([]domain.CurrentRecord, 0, n)
	for i := 0; i < n; i++ {
		machine := "M-" + string(rune('A'+i%26))
		rows = append(rows, domain.CurrentRecord{
			OrderID:      orderID,
			Date:         when,
			Sector:       str("Norte"),
			Supervisor:   str("Rojas"),
			Pabellones:   f64(pabellones),
			SurfaceM2:    f64(100),
			MachineID:    str(machine),
			MachineClass: str("camion"),
			OperatorID:   str("OP-" + machine),
			FuelLiters:   f64(1),
		})
	}
	return rows
}

func damageRow(orderID string, when *time.Time, pabellones, qty float64) domain.CurrentRecord {
	return domain.CurrentRecord{
		OrderID:        orderID,
		Date:           when,
		Sector:         str("Norte"),
		Supervisor:     str("Rojas"),
		Pabellones:     f64(pabellones),
		SurfaceM2:      f64(100),
		DamageQuantity: f64(qty),
	}
}

func newTestService(h *fakeHistoric, c *fakeCurrent) *Service {
	return New(Deps{
		Historic:       h,
		Current:        c,
		FetchAttempts:  3,
		FetchBaseDelay: time.Millisecond,
	})
}
