package domain

import (
	"errors"
	"testing"
)

func TestAccumulate_MonotonicForNonNegativeSeries(t *testing.T) {
	s := NewMonthlySeries()
	for i, v := range []float64{5, 0, 3, 0, 0, 8, 1, 0, 0, 2, 0, 4} {
		s[i].Value = v
	}

	acc := Accumulate(2024, MeasurePabellones, SeriesActual, s)

	if len(acc.Points) != 12 {
		t.Fatalf("expected 12 points, got %d", len(acc.Points))
	}
	for i := 1; i < len(acc.Points); i++ {
		if acc.Points[i].RunningTotal < acc.Points[i-1].RunningTotal {
			t.Fatalf("running total decreased at month %d", acc.Points[i].Month)
		}
	}
	if acc.Points[0].RunningTotal != 5 || acc.Points[2].RunningTotal != 8 {
		t.Fatalf("unexpected running totals: %v, %v", acc.Points[0].RunningTotal, acc.Points[2].RunningTotal)
	}
	if acc.Final() != s.Total() || acc.Final() != 23 {
		t.Fatalf("expected final 23, got %v", acc.Final())
	}
}

func TestAccumulate_ResetsEachYear(t *testing.T) {
	buckets := []MonthlyBucket{
		{Year: 2023, Month: 11, Count: 1, Sums: map[Measure]float64{MeasureDamages: 4}},
		{Year: 2023, Month: 12, Count: 2, Sums: map[Measure]float64{MeasureDamages: 6}},
		{Year: 2024, Month: 1, Count: 1, Sums: map[Measure]float64{MeasureDamages: 2}},
	}

	prev := Accumulate(2023, MeasureDamages, SeriesActual, SeriesFromBuckets(buckets, 2023, MeasureDamages))
	next := Accumulate(2024, MeasureDamages, SeriesActual, SeriesFromBuckets(buckets, 2024, MeasureDamages))

	if prev.Points[11].RunningTotal != 10 {
		t.Fatalf("expected December 2023 total 10, got %v", prev.Points[11].RunningTotal)
	}
	if next.Points[0].RunningTotal != 2 {
		t.Fatalf("expected January 2024 to start at its own value 2, got %v", next.Points[0].RunningTotal)
	}
}

func TestSeriesFromBuckets_FillsMissingMonths(t *testing.T) {
	buckets := []MonthlyBucket{
		{Year: 2024, Month: 6, Count: 3, Sums: map[Measure]float64{MeasurePabellones: 90}},
	}

	s := SeriesFromBuckets(buckets, 2024, MeasurePabellones)

	for i, mv := range s {
		if mv.Month != i+1 {
			t.Fatalf("expected month %d at index %d, got %d", i+1, i, mv.Month)
		}
	}
	if s[5].Value != 90 || s[5].Orders != 3 {
		t.Fatalf("unexpected June value: %#v", s[5])
	}
	if s[0].Value != 0 || s[0].Orders != 0 {
		t.Fatalf("expected empty January, got %#v", s[0])
	}
}

func TestCompare_AlignsThreeSeries(t *testing.T) {
	actual := NewMonthlySeries()
	actual[0].Value = 10
	prior := NewMonthlySeries()
	prior[0].Value = 12

	cmp := Compare(2024, MeasurePabellones, actual, FlatSeries(5), prior)

	if cmp.Actual.Kind != SeriesActual || cmp.Budget.Kind != SeriesBudget || cmp.PriorYear.Kind != SeriesPriorYear {
		t.Fatal("unexpected series kinds")
	}
	if cmp.PriorYear.Year != 2023 {
		t.Fatalf("expected prior year 2023, got %d", cmp.PriorYear.Year)
	}
	if cmp.Budget.Final() != 60 {
		t.Fatalf("expected budget total 60, got %v", cmp.Budget.Final())
	}
	for i := range cmp.Actual.Points {
		if cmp.Actual.Points[i].Month != cmp.Budget.Points[i].Month || cmp.Budget.Points[i].Month != cmp.PriorYear.Points[i].Month {
			t.Fatalf("series misaligned at index %d", i)
		}
	}
}

func TestParseSeriesKind(t *testing.T) {
	if k, _ := ParseSeriesKind(""); k != SeriesActual {
		t.Fatalf("expected actual by default, got %q", k)
	}
	if k, _ := ParseSeriesKind("PRIOR_YEAR"); k != SeriesPriorYear {
		t.Fatalf("expected prior_year, got %q", k)
	}
	if _, err := ParseSeriesKind("forecast"); !errors.Is(err, ErrUnknownSeries) {
		t.Fatalf("expected ErrUnknownSeries, got %v", err)
	}
}
