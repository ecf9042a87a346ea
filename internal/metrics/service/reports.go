package service

import (
	"context"
	"fmt"
	"slices"

	"ops_reporting_backend/internal/metrics/domain"
	"ops_reporting_backend/internal/metrics/transport"
	"ops_reporting_backend/platform/apperr"
)

const (
	budgetSourceTable      = "table"
	budgetSourceTargetPlan = "target_plan"
)

var monthlyGrouping = []domain.Dimension{domain.DimYear, domain.DimMonth}

func windowFrom(req transport.WindowRequest) (domain.Window, error) {
	src, err := domain.ParseSource(req.Source)
	if err != nil {
		return domain.Window{}, invalid(err)
	}
	w := domain.Window{YearFrom: req.YearFrom, YearTo: req.YearTo, Month: req.Month, Source: src, Sector: req.Sector}
	if w.YearTo == 0 {
		w.YearTo = w.YearFrom
	}
	return w, nil
}

// GetOrderSnapshots returns one deduplicated snapshot per order in the window.
func (s *Service) GetOrderSnapshots(ctx context.Context, req transport.SnapshotsRequest) (transport.SnapshotListResponse, error) {
	w, err := windowFrom(req.WindowRequest)
	if err != nil {
		return transport.SnapshotListResponse{}, err
	}
	filter, err := domain.ParseFilter(req.Filter)
	if err != nil {
		return transport.SnapshotListResponse{}, invalid(err)
	}

	batch, err := s.Load(ctx, w)
	if err != nil {
		return transport.SnapshotListResponse{}, err
	}

	items := make([]transport.SnapshotResponse, 0, len(batch.Snapshots))
	for _, snap := range batch.Snapshots {
		if filter != nil && !filter(snap) {
			continue
		}
		items = append(items, toSnapshotResponse(snap))
	}
	return transport.SnapshotListResponse{
		Items:            items,
		Total:            len(items),
		DiagnosticsBlock: toDiagnostics(batch.Diagnostics),
	}, nil
}

// GetMonthlyBuckets aggregates the window by the requested dimensions.
func (s *Service) GetMonthlyBuckets(ctx context.Context, req transport.BucketsRequest) (transport.BucketListResponse, error) {
	w, err := windowFrom(req.WindowRequest)
	if err != nil {
		return transport.BucketListResponse{}, err
	}
	groupBy, err := domain.ParseGroupBy(req.GroupBy)
	if err != nil {
		return transport.BucketListResponse{}, invalid(err)
	}
	measures, err := domain.ParseMeasures(req.Measures)
	if err != nil {
		return transport.BucketListResponse{}, invalid(err)
	}
	filter, err := domain.ParseFilter(req.Filter)
	if err != nil {
		return transport.BucketListResponse{}, invalid(err)
	}

	batch, err := s.Load(ctx, w)
	if err != nil {
		return transport.BucketListResponse{}, err
	}
	buckets, err := domain.Aggregate(batch.Snapshots, domain.AggregateOptions{GroupBy: groupBy, Measures: measures, Filter: filter})
	if err != nil {
		return transport.BucketListResponse{}, invalid(err)
	}

	resp := transport.BucketListResponse{
		GroupBy:          dimensionNames(groupBy),
		Measures:         measureNames(measures),
		Items:            make([]transport.BucketResponse, 0, len(buckets)),
		DiagnosticsBlock: toDiagnostics(batch.Diagnostics),
	}
	for _, b := range buckets {
		resp.Items = append(resp.Items, toBucketResponse(b))
	}
	if slices.ContainsFunc(groupBy, domain.Dimension.PerAssignment) {
		for _, m := range measures {
			if m.Kind() == domain.OrderAttribute {
				resp.NonAdditive = append(resp.NonAdditive, string(m))
			}
		}
	}
	return resp, nil
}

// GetAccumulatedSeries returns one running-total series of a year.
func (s *Service) GetAccumulatedSeries(ctx context.Context, req transport.SeriesRequest) (transport.AccumulatedResponse, error) {
	m, err := domain.ParseMeasure(req.Measure)
	if err != nil {
		return transport.AccumulatedResponse{}, invalid(err)
	}
	kind, err := domain.ParseSeriesKind(req.Series)
	if err != nil {
		return transport.AccumulatedResponse{}, invalid(err)
	}

	switch kind {
	case domain.SeriesBudget:
		budget, source, diag, err := s.budgetSeries(ctx, req.Year, m)
		if err != nil {
			return transport.AccumulatedResponse{}, err
		}
		return transport.AccumulatedResponse{
			AccumulatedSeriesResponse: toSeriesResponse(domain.Accumulate(req.Year, m, kind, budget)),
			BudgetSource:              source,
			DiagnosticsBlock:          toDiagnostics(diag),
		}, nil
	default:
		year := req.Year
		if kind == domain.SeriesPriorYear {
			year--
		}
		series, diag, err := s.actualSeries(ctx, year, year, m)
		if err != nil {
			return transport.AccumulatedResponse{}, err
		}
		return transport.AccumulatedResponse{
			AccumulatedSeriesResponse: toSeriesResponse(domain.Accumulate(year, m, kind, series[year])),
			DiagnosticsBlock:          toDiagnostics(diag),
		}, nil
	}
}

// GetComparison returns the actual, budget and prior-year series aligned by month.
func (s *Service) GetComparison(ctx context.Context, req transport.ComparisonRequest) (transport.ComparisonResponse, error) {
	m, err := domain.ParseMeasure(req.Measure)
	if err != nil {
		return transport.ComparisonResponse{}, invalid(err)
	}

	series, diag, err := s.actualSeries(ctx, req.Year-1, req.Year, m)
	if err != nil {
		return transport.ComparisonResponse{}, err
	}
	budget, source, err := s.budgetFromActuals(ctx, req.Year, m, series[req.Year-1])
	if err != nil {
		return transport.ComparisonResponse{}, err
	}

	cmp := domain.Compare(req.Year, m, series[req.Year], budget, series[req.Year-1])
	return transport.ComparisonResponse{
		Year:             req.Year,
		Measure:          string(m),
		Actual:           toSeriesResponse(cmp.Actual),
		Budget:           toSeriesResponse(cmp.Budget),
		PriorYear:        toSeriesResponse(cmp.PriorYear),
		BudgetSource:     source,
		DiagnosticsBlock: toDiagnostics(diag),
	}, nil
}

// GetTargetPlan computes a plan from explicit inputs. It never touches the data sources.
func (s *Service) GetTargetPlan(req transport.TargetPlanRequest) (transport.TargetPlanResponse, error) {
	if req.BaselineTotal == nil || req.ReductionPct == nil {
		return transport.TargetPlanResponse{}, apperr.Validation("baselineTotal and reductionPct are required")
	}
	plan, err := domain.NewTargetPlan(req.Year, *req.BaselineTotal, *req.ReductionPct)
	if err != nil {
		return transport.TargetPlanResponse{}, invalid(err)
	}
	return toPlanResponse(plan), nil
}

// GetProjection projects a measure against a plan built from the prior year's actual total.
func (s *Service) GetProjection(ctx context.Context, req transport.ProjectionRequest) (transport.ProjectionResponse, error) {
	m, err := domain.ParseMeasure(req.Measure)
	if err != nil {
		return transport.ProjectionResponse{}, invalid(err)
	}

	series, diag, err := s.actualSeries(ctx, req.Year-1, req.Year, m)
	if err != nil {
		return transport.ProjectionResponse{}, err
	}

	pct := s.policy.ReductionPct(req.Year, m)
	if req.ReductionPct != nil {
		pct = *req.ReductionPct
	}
	plan, err := domain.NewTargetPlan(req.Year, series[req.Year-1].Total(), pct)
	if err != nil {
		return transport.ProjectionResponse{}, invalid(err)
	}

	res := domain.Project(m, plan, series[req.Year])
	return toProjectionResponse(res, diag), nil
}

// actualSeries loads years [from, to] once and splits the monthly series per year.
func (s *Service) actualSeries(ctx context.Context, from, to int, m domain.Measure) (map[int]domain.MonthlySeries, *domain.Diagnostics, error) {
	batch, err := s.Load(ctx, domain.Window{YearFrom: from, YearTo: to})
	if err != nil {
		return nil, nil, err
	}
	buckets, err := domain.Aggregate(batch.Snapshots, domain.AggregateOptions{
		GroupBy:  monthlyGrouping,
		Measures: []domain.Measure{m},
	})
	if err != nil {
		return nil, nil, invalid(err)
	}
	out := make(map[int]domain.MonthlySeries, to-from+1)
	for year := from; year <= to; year++ {
		out[year] = domain.SeriesFromBuckets(buckets, year, m)
	}
	return out, batch.Diagnostics, nil
}

// budgetSeries prefers the budget table and falls back to a flat monthly
// target derived from the prior year's actuals.
func (s *Service) budgetSeries(ctx context.Context, year int, m domain.Measure) (domain.MonthlySeries, string, *domain.Diagnostics, error) {
	if s.budgets != nil {
		series, found, err := s.budgets.MonthlyBudget(ctx, year, m)
		if err != nil {
			return domain.MonthlySeries{}, "", nil, apperr.Unavailable(fmt.Errorf("load budget: %w", err))
		}
		if found {
			return series, budgetSourceTable, domain.NewDiagnostics(), nil
		}
	}
	prior, diag, err := s.actualSeries(ctx, year-1, year-1, m)
	if err != nil {
		return domain.MonthlySeries{}, "", nil, err
	}
	series, err := s.planSeries(year, m, prior[year-1])
	if err != nil {
		return domain.MonthlySeries{}, "", nil, err
	}
	return series, budgetSourceTargetPlan, diag, nil
}

// budgetFromActuals is budgetSeries for callers that already hold the prior year.
func (s *Service) budgetFromActuals(ctx context.Context, year int, m domain.Measure, prior domain.MonthlySeries) (domain.MonthlySeries, string, error) {
	if s.budgets != nil {
		series, found, err := s.budgets.MonthlyBudget(ctx, year, m)
		if err != nil {
			return domain.MonthlySeries{}, "", apperr.Unavailable(fmt.Errorf("load budget: %w", err))
		}
		if found {
			return series, budgetSourceTable, nil
		}
	}
	series, err := s.planSeries(year, m, prior)
	if err != nil {
		return domain.MonthlySeries{}, "", err
	}
	return series, budgetSourceTargetPlan, nil
}

func (s *Service) planSeries(year int, m domain.Measure, prior domain.MonthlySeries) (domain.MonthlySeries, error) {
	plan, err := domain.NewTargetPlan(year, prior.Total(), s.policy.ReductionPct(year, m))
	if err != nil {
		return domain.MonthlySeries{}, invalid(err)
	}
	return domain.FlatSeries(float64(plan.MonthlyTarget)), nil
}
