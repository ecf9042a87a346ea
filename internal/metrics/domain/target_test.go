package domain

import (
	"errors"
	"testing"
)

func TestNewTargetPlan_FivePercentReduction(t *testing.T) {
	plan, err := NewTargetPlan(2025, 1000, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.AnnualTarget != 950 {
		t.Fatalf("expected annual target 950, got %d", plan.AnnualTarget)
	}
	if plan.MonthlyTarget != 79 {
		t.Fatalf("expected monthly target 79, got %d", plan.MonthlyTarget)
	}
	if !plan.Applicable() {
		t.Fatal("expected plan to be applicable")
	}
}

func TestNewTargetPlan_ZeroBaselineNotApplicable(t *testing.T) {
	plan, err := NewTargetPlan(2025, 0, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.AnnualTarget != 0 || plan.MonthlyTarget != 0 || plan.Applicable() {
		t.Fatalf("expected empty plan, got %#v", plan)
	}

	res := Project(MeasureDamages, plan, FlatSeries(3))
	if res.CompliancePct != nil {
		t.Fatalf("expected compliance not applicable, got %d", *res.CompliancePct)
	}
}

func TestNewTargetPlan_ClampsOverReduction(t *testing.T) {
	plan, err := NewTargetPlan(2025, 100, 150)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.AnnualTarget != 0 {
		t.Fatalf("expected clamped target 0, got %d", plan.AnnualTarget)
	}
}

func TestNewTargetPlan_RejectsNegativeBaseline(t *testing.T) {
	if _, err := NewTargetPlan(2025, -1, 5); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	cases := map[float64]int64{2.5: 3, 3.5: 4, -2.5: -3, 79.1666: 79, 0.49: 0}
	for in, want := range cases {
		if got := Round(in); got != want {
			t.Fatalf("Round(%v): expected %d, got %d", in, want, got)
		}
	}
}

func TestProject_ComplianceAndProjection(t *testing.T) {
	plan, _ := NewTargetPlan(2025, 1000, 5)
	actual := NewMonthlySeries()
	for i, v := range []float64{100, 80, 90, 70, 60, 100} {
		actual[i].Value = v
		actual[i].Orders = 1
	}

	res := Project(MeasurePabellones, plan, actual)

	if res.YearToDateActual != 500 {
		t.Fatalf("expected ytd 500, got %v", res.YearToDateActual)
	}
	if res.MonthsWithData != 6 {
		t.Fatalf("expected 6 months with data, got %d", res.MonthsWithData)
	}
	if res.CompliancePct == nil || *res.CompliancePct != 53 {
		t.Fatalf("expected compliance 53, got %v", res.CompliancePct)
	}
	if res.AverageMonthlyActual != 83 {
		t.Fatalf("expected average 83, got %d", res.AverageMonthlyActual)
	}
	if res.ProjectedAnnual != 996 {
		t.Fatalf("expected projection 996, got %d", res.ProjectedAnnual)
	}

	first := res.Variance[0]
	if first.Target != 79 || first.Variance != 21 || first.AccVariance != 21 {
		t.Fatalf("unexpected January variance: %#v", first)
	}
	june := res.Variance[5]
	if june.AccActual != 500 || june.AccTarget != 474 || june.AccVariance != 26 {
		t.Fatalf("unexpected June variance: %#v", june)
	}
	if res.Variance[6].HasData {
		t.Fatal("expected July without data")
	}
}

func TestProject_ZeroValueMonthWithOrdersCountsAsData(t *testing.T) {
	plan, _ := NewTargetPlan(2025, 120, 0)
	actual := NewMonthlySeries()
	actual[0].Value = 12
	actual[0].Orders = 2
	actual[1].Orders = 1

	res := Project(MeasureDamages, plan, actual)

	if res.MonthsWithData != 2 {
		t.Fatalf("expected 2 months with data, got %d", res.MonthsWithData)
	}
	if res.AverageMonthlyActual != 6 {
		t.Fatalf("expected average 6, got %d", res.AverageMonthlyActual)
	}
}

func TestProject_NoDataHasZeroProjection(t *testing.T) {
	plan, _ := NewTargetPlan(2025, 1000, 5)

	res := Project(MeasurePabellones, plan, NewMonthlySeries())

	if res.MonthsWithData != 0 || res.AverageMonthlyActual != 0 || res.ProjectedAnnual != 0 {
		t.Fatalf("expected zero projection, got %#v", res)
	}
	if res.CompliancePct == nil || *res.CompliancePct != 0 {
		t.Fatalf("expected compliance 0, got %v", res.CompliancePct)
	}
}
