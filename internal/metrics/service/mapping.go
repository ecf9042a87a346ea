package service

import (
	"time"

	"ops_reporting_backend/internal/metrics/domain"
	"ops_reporting_backend/internal/metrics/repository"
	"ops_reporting_backend/internal/metrics/transport"
)

func toDiagnostics(diag *domain.Diagnostics) transport.DiagnosticsBlock {
	items := diag.Items()
	out := transport.DiagnosticsBlock{
		Diagnostics:        make([]transport.DiagnosticResponse, 0, len(items)),
		DiagnosticsSummary: diag.Summary(),
	}
	for _, d := range items {
		out.Diagnostics = append(out.Diagnostics, transport.DiagnosticResponse{
			Code:    string(d.Code),
			OrderID: d.OrderID,
			Field:   d.Field,
			Detail:  d.Detail,
		})
	}
	return out
}

func measureMap(values map[domain.Measure]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for m, v := range values {
		out[string(m)] = v
	}
	return out
}

func toSnapshotResponse(snap domain.OrderSnapshot) transport.SnapshotResponse {
	resp := transport.SnapshotResponse{
		OrderID:     snap.OrderID,
		Date:        snap.Date.Format(time.DateOnly),
		Sector:      snap.Sector,
		Supervisor:  snap.Supervisor,
		Source:      string(snap.Source),
		Measures:    measureMap(snap.Measures),
		Assignments: make([]transport.AssignmentResponse, 0, len(snap.Assignments)),
		RowCount:    snap.RowCount,
	}
	for _, a := range snap.Assignments {
		resp.Assignments = append(resp.Assignments, transport.AssignmentResponse{
			MachineID:    a.MachineID,
			MachineClass: a.MachineClass,
			OperatorID:   a.OperatorID,
			Events:       measureMap(a.Events),
		})
	}
	for _, m := range snap.Conflicts {
		resp.Conflicts = append(resp.Conflicts, string(m))
	}
	return resp
}

func toBucketResponse(b domain.MonthlyBucket) transport.BucketResponse {
	resp := transport.BucketResponse{
		Year:  b.Year,
		Month: b.Month,
		Count: b.Count,
		Sums:  measureMap(b.Sums),
	}
	if len(b.Dimensions) > 0 {
		resp.Dimensions = make(map[string]string, len(b.Dimensions))
		for d, v := range b.Dimensions {
			resp.Dimensions[string(d)] = v
		}
	}
	return resp
}

func toSeriesResponse(a domain.AccumulatedSeries) transport.AccumulatedSeriesResponse {
	resp := transport.AccumulatedSeriesResponse{
		Year:    a.Year,
		Measure: string(a.Measure),
		Series:  string(a.Kind),
		Points:  make([]transport.AccumulatedPointResponse, 0, len(a.Points)),
		Total:   a.Final(),
	}
	for _, p := range a.Points {
		resp.Points = append(resp.Points, transport.AccumulatedPointResponse{
			Month:        p.Month,
			PeriodValue:  p.PeriodValue,
			RunningTotal: p.RunningTotal,
		})
	}
	return resp
}

func toPlanResponse(p domain.TargetPlan) transport.TargetPlanResponse {
	return transport.TargetPlanResponse{
		Year:          p.Year,
		BaselineTotal: p.BaselineTotal,
		ReductionPct:  p.ReductionPct,
		AnnualTarget:  p.AnnualTarget,
		MonthlyTarget: p.MonthlyTarget,
		Applicable:    p.Applicable(),
	}
}

func toProjectionResponse(res domain.ProjectionResult, diag *domain.Diagnostics) transport.ProjectionResponse {
	resp := transport.ProjectionResponse{
		Year:                 res.Year,
		Measure:              string(res.Measure),
		Plan:                 toPlanResponse(res.Plan),
		YearToDateActual:     res.YearToDateActual,
		MonthsWithData:       res.MonthsWithData,
		AverageMonthlyActual: res.AverageMonthlyActual,
		ProjectedAnnual:      res.ProjectedAnnual,
		CompliancePct:        res.CompliancePct,
		Variance:             make([]transport.MonthVarianceResponse, 0, len(res.Variance)),
		DiagnosticsBlock:     toDiagnostics(diag),
	}
	for _, v := range res.Variance {
		resp.Variance = append(resp.Variance, transport.MonthVarianceResponse{
			Month:       v.Month,
			Actual:      v.Actual,
			Target:      v.Target,
			Variance:    v.Variance,
			AccActual:   v.AccActual,
			AccTarget:   v.AccTarget,
			AccVariance: v.AccVariance,
			HasData:     v.HasData,
		})
	}
	return resp
}

func toMaterializedResponse(year int, rows []repository.MaterializedBucket) transport.MaterializedListResponse {
	resp := transport.MaterializedListResponse{
		Year:  year,
		Items: make([]transport.MaterializedBucketResponse, 0, len(rows)),
	}
	for i, r := range rows {
		if i == 0 {
			id, at := r.RefreshID, r.RefreshedAt
			resp.RefreshID = &id
			resp.RefreshedAt = &at
		}
		resp.Items = append(resp.Items, transport.MaterializedBucketResponse{
			Month:      r.Month,
			Source:     r.Source,
			Sector:     r.Sector,
			OrderCount: r.OrderCount,
			Pabellones: r.Pabellones,
			SurfaceM2:  r.SurfaceM2,
			Damages:    r.Damages,
			FuelLiters: r.FuelLiters,
		})
	}
	return resp
}

func dimensionNames(dims []domain.Dimension) []string {
	out := make([]string, len(dims))
	for i, d := range dims {
		out[i] = string(d)
	}
	return out
}

func measureNames(measures []domain.Measure) []string {
	out := make([]string, len(measures))
	for i, m := range measures {
		out[i] = string(m)
	}
	return out
}
