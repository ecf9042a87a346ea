package service

import (
	"context"
	"sort"

	"ops_reporting_backend/internal/metrics/domain"
	"ops_reporting_backend/internal/metrics/transport"
)

const defaultAuditTop = 20

// MeasureAudit compares the per-row SUM with the reconciled total of one measure.
type MeasureAudit struct {
	Measure    domain.Measure
	Kind       domain.MeasureKind
	Naive      float64
	Reconciled float64
}

// OverCount is Naive minus Reconciled.
func (a MeasureAudit) OverCount() float64 {
	return a.Naive - a.Reconciled
}

// OrderFanOut describes one order that spans several source rows.
type OrderFanOut struct {
	OrderID    string
	Rows       int
	Pabellones float64
	// Inflation is what a per-row SUM adds on top of the true pabellones.
	Inflation float64
}

// AuditReport explains the gap between per-row sums and reconciled totals of a year.
type AuditReport struct {
	Year        int
	RawRows     int
	Orders      int
	Measures    []MeasureAudit
	TopFanOut   []OrderFanOut
	Conflicts   []domain.Diagnostic
	Diagnostics map[string]int
}

// Audit reconciles a year and reports where naive sums over-count. top limits TopFanOut.
func (s *Service) Audit(ctx context.Context, year, top int) (AuditReport, error) {
	batch, err := s.Load(ctx, domain.YearWindow(year))
	if err != nil {
		return AuditReport{}, err
	}

	report := AuditReport{
		Year:        year,
		RawRows:     batch.RawRows,
		Orders:      len(batch.Snapshots),
		Diagnostics: batch.Diagnostics.Summary(),
	}

	reconciled := make(map[domain.Measure]float64, len(domain.Measures))
	var fanOut []OrderFanOut
	for _, snap := range batch.Snapshots {
		for _, m := range domain.Measures {
			reconciled[m] += snap.Value(m)
		}
		if snap.RowCount > 1 {
			p := snap.Value(domain.MeasurePabellones)
			fanOut = append(fanOut, OrderFanOut{
				OrderID:    snap.OrderID,
				Rows:       snap.RowCount,
				Pabellones: p,
				Inflation:  float64(snap.RowCount-1) * p,
			})
		}
	}
	for _, m := range domain.Measures {
		report.Measures = append(report.Measures, MeasureAudit{
			Measure:    m,
			Kind:       m.Kind(),
			Naive:      batch.Naive[m],
			Reconciled: reconciled[m],
		})
	}

	sort.SliceStable(fanOut, func(i, j int) bool {
		if fanOut[i].Inflation != fanOut[j].Inflation {
			return fanOut[i].Inflation > fanOut[j].Inflation
		}
		return fanOut[i].Rows > fanOut[j].Rows
	})
	if top > 0 && len(fanOut) > top {
		fanOut = fanOut[:top]
	}
	report.TopFanOut = fanOut

	for _, d := range batch.Diagnostics.Items() {
		if d.Code == domain.DiagReconciliationConflict {
			report.Conflicts = append(report.Conflicts, d)
		}
	}
	return report, nil
}

// GetAudit is Audit in response form.
func (s *Service) GetAudit(ctx context.Context, req transport.AuditRequest) (transport.AuditResponse, error) {
	top := req.Top
	if top <= 0 {
		top = defaultAuditTop
	}
	report, err := s.Audit(ctx, req.Year, top)
	if err != nil {
		return transport.AuditResponse{}, err
	}
	return toAuditResponse(report), nil
}

func toAuditResponse(r AuditReport) transport.AuditResponse {
	out := transport.AuditResponse{
		Year:      r.Year,
		RawRows:   r.RawRows,
		Orders:    r.Orders,
		Measures:  make([]transport.MeasureAuditResponse, 0, len(r.Measures)),
		TopFanOut: make([]transport.OrderFanOutResponse, 0, len(r.TopFanOut)),
		Conflicts: make([]transport.DiagnosticResponse, 0, len(r.Conflicts)),
		Summary:   r.Diagnostics,
	}
	for _, m := range r.Measures {
		out.Measures = append(out.Measures, transport.MeasureAuditResponse{
			Measure:    string(m.Measure),
			Kind:       m.Kind.String(),
			Naive:      m.Naive,
			Reconciled: m.Reconciled,
			OverCount:  m.OverCount(),
		})
	}
	for _, f := range r.TopFanOut {
		out.TopFanOut = append(out.TopFanOut, transport.OrderFanOutResponse(f))
	}
	for _, d := range r.Conflicts {
		out.Conflicts = append(out.Conflicts, transport.DiagnosticResponse{
			Code:    string(d.Code),
			OrderID: d.OrderID,
			Field:   d.Field,
			Detail:  d.Detail,
		})
	}
	return out
}
