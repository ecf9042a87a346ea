package transport

import (
	"testing"

	"ops_reporting_backend/platform/validator"
)

func newValidator(t *testing.T) *validator.Validator {
	t.Helper()
	v := validator.New()
	if err := RegisterValidators(v); err != nil {
		t.Fatalf("register validators: %v", err)
	}
	return v
}

func TestBucketsRequestValidation(t *testing.T) {
	v := newValidator(t)

	ok := BucketsRequest{
		WindowRequest: WindowRequest{YearFrom: 2023, YearTo: 2024},
		GroupBy:       "year,month,machine",
		Measures:      "pabellones,damages",
	}
	if err := v.Struct(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]BucketsRequest{
		"unknown dimension": {WindowRequest: WindowRequest{YearFrom: 2024}, GroupBy: "year,colour"},
		"unknown measure":   {WindowRequest: WindowRequest{YearFrom: 2024}, Measures: "litres"},
		"reversed years":    {WindowRequest: WindowRequest{YearFrom: 2024, YearTo: 2023}},
		"bad source":        {WindowRequest: WindowRequest{YearFrom: 2024, Source: "legacy"}},
		"missing year":      {},
	}
	for name, req := range cases {
		if err := v.Struct(req); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestSeriesRequestValidation(t *testing.T) {
	v := newValidator(t)

	if err := v.Struct(SeriesRequest{Year: 2024, Measure: "damages", Series: "budget"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Struct(SeriesRequest{Year: 2024, Measure: "damages", Series: "forecast"}); err == nil {
		t.Fatal("expected unknown series to fail")
	}
	if err := v.Struct(SeriesRequest{Year: 2024, Measure: "weight"}); err == nil {
		t.Fatal("expected unknown measure to fail")
	}
}

func TestTargetPlanRequestRequiresInputs(t *testing.T) {
	v := newValidator(t)
	zero := 0.0
	five := 5.0

	if err := v.Struct(TargetPlanRequest{Year: 2025, BaselineTotal: &zero, ReductionPct: &five}); err != nil {
		t.Fatalf("zero baseline must be accepted: %v", err)
	}
	if err := v.Struct(TargetPlanRequest{Year: 2025, ReductionPct: &five}); err == nil {
		t.Fatal("expected missing baseline to fail")
	}
}
