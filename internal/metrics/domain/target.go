package domain

import (
	"fmt"
	"math"
)

// TargetPlan derives an annual and monthly target from a prior-period baseline.
type TargetPlan struct {
	Year          int
	BaselineTotal float64
	ReductionPct  float64
	AnnualTarget  int64
	MonthlyTarget int64
}

// Applicable reports whether compliance can be measured against the plan.
func (p TargetPlan) Applicable() bool {
	return p.AnnualTarget > 0
}

// Round rounds half away from zero.
func Round(v float64) int64 {
	return int64(math.Round(v))
}

// NewTargetPlan computes round(baseline * (1 - pct/100)) and its twelfth.
// A zero baseline gives a zero, non-applicable plan. Reductions above 100%
// clamp the target at zero instead of going negative.
func NewTargetPlan(year int, baselineTotal, reductionPct float64) (TargetPlan, error) {
	if baselineTotal < 0 {
		return TargetPlan{}, fmt.Errorf("%w: baseline %v is negative", ErrInvalidTarget, baselineTotal)
	}
	if math.IsNaN(reductionPct) || math.IsInf(reductionPct, 0) {
		return TargetPlan{}, fmt.Errorf("%w: reduction %v", ErrInvalidTarget, reductionPct)
	}
	plan := TargetPlan{Year: year, BaselineTotal: baselineTotal, ReductionPct: reductionPct}
	if baselineTotal == 0 {
		return plan, nil
	}
	annual := Round(baselineTotal * (1 - reductionPct/100))
	if annual < 0 {
		annual = 0
	}
	plan.AnnualTarget = annual
	plan.MonthlyTarget = Round(float64(annual) / 12)
	return plan, nil
}

// MonthVariance compares one month of actuals with the flat monthly target.
type MonthVariance struct {
	Month       int
	Actual      float64
	Target      int64
	Variance    float64
	AccActual   float64
	AccTarget   int64
	AccVariance float64
	HasData     bool
}

// ProjectionResult is the year-to-date position against a TargetPlan.
type ProjectionResult struct {
	Year                 int
	Measure              Measure
	Plan                 TargetPlan
	YearToDateActual     float64
	MonthsWithData       int
	AverageMonthlyActual int64
	ProjectedAnnual      int64
	// CompliancePct is nil when the plan is not applicable.
	CompliancePct *int64
	Variance      []MonthVariance
}

// Project evaluates actuals against plan. A month counts as having data when
// at least one order landed in it, even if its value is zero.
func Project(m Measure, plan TargetPlan, actual MonthlySeries) ProjectionResult {
	res := ProjectionResult{Year: plan.Year, Measure: m, Plan: plan, Variance: make([]MonthVariance, 0, 12)}

	var accActual float64
	var accTarget int64
	for i, mv := range actual {
		accActual += mv.Value
		accTarget += plan.MonthlyTarget
		hasData := mv.Orders > 0
		if hasData {
			res.MonthsWithData++
		}
		res.Variance = append(res.Variance, MonthVariance{
			Month:       i + 1,
			Actual:      mv.Value,
			Target:      plan.MonthlyTarget,
			Variance:    mv.Value - float64(plan.MonthlyTarget),
			AccActual:   accActual,
			AccTarget:   accTarget,
			AccVariance: accActual - float64(accTarget),
			HasData:     hasData,
		})
	}
	res.YearToDateActual = accActual

	if res.MonthsWithData > 0 {
		res.AverageMonthlyActual = Round(res.YearToDateActual / float64(res.MonthsWithData))
	}
	res.ProjectedAnnual = res.AverageMonthlyActual * 12

	if plan.Applicable() {
		pct := Round(res.YearToDateActual / float64(plan.AnnualTarget) * 100)
		res.CompliancePct = &pct
	}
	return res
}
