package domain

import (
	"fmt"
	"strings"
)

// SeriesKind tags an accumulated series.
type SeriesKind string

const (
	SeriesActual    SeriesKind = "actual"
	SeriesBudget    SeriesKind = "budget"
	SeriesPriorYear SeriesKind = "prior_year"
)

// ParseSeriesKind resolves a series kind. Empty input means actual.
func ParseSeriesKind(raw string) (SeriesKind, error) {
	switch SeriesKind(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SeriesActual:
		return SeriesActual, nil
	case SeriesBudget:
		return SeriesBudget, nil
	case SeriesPriorYear:
		return SeriesPriorYear, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSeries, raw)
	}
}

// MonthValue is one month of a measure. Orders is the number of distinct orders behind Value.
type MonthValue struct {
	Month  int
	Value  float64
	Orders int
}

// MonthlySeries holds January..December at indices 0..11.
type MonthlySeries [12]MonthValue

// NewMonthlySeries returns a series with every month present and zero.
func NewMonthlySeries() MonthlySeries {
	var s MonthlySeries
	for i := range s {
		s[i].Month = i + 1
	}
	return s
}

// FlatSeries puts the same value in every month.
func FlatSeries(value float64) MonthlySeries {
	s := NewMonthlySeries()
	for i := range s {
		s[i].Value = value
	}
	return s
}

// SeriesFromBuckets reads one measure of one year out of buckets grouped by
// year and month. Buckets from other years are ignored; missing months stay 0.
func SeriesFromBuckets(buckets []MonthlyBucket, year int, m Measure) MonthlySeries {
	s := NewMonthlySeries()
	for _, b := range buckets {
		if b.Year != year || b.Month < 1 || b.Month > 12 {
			continue
		}
		s[b.Month-1].Value += b.Sums[m]
		s[b.Month-1].Orders += b.Count
	}
	return s
}

// Total sums the twelve months.
func (s MonthlySeries) Total() float64 {
	var total float64
	for _, mv := range s {
		total += mv.Value
	}
	return total
}

// AccumulatedPoint is one month of an accumulated series.
type AccumulatedPoint struct {
	Year         int
	Month        int
	PeriodValue  float64
	RunningTotal float64
}

// AccumulatedSeries is a year-to-date running total for one measure and one year.
type AccumulatedSeries struct {
	Year    int
	Measure Measure
	Kind    SeriesKind
	Points  []AccumulatedPoint
}

// Final returns the December running total.
func (a AccumulatedSeries) Final() float64 {
	if len(a.Points) == 0 {
		return 0
	}
	return a.Points[len(a.Points)-1].RunningTotal
}

// Accumulate builds the running total of one year. The total starts at zero
// every call, so nothing carries over from a previous year.
func Accumulate(year int, m Measure, kind SeriesKind, series MonthlySeries) AccumulatedSeries {
	out := AccumulatedSeries{Year: year, Measure: m, Kind: kind, Points: make([]AccumulatedPoint, 0, 12)}
	var running float64
	for i, mv := range series {
		running += mv.Value
		out.Points = append(out.Points, AccumulatedPoint{
			Year:         year,
			Month:        i + 1,
			PeriodValue:  mv.Value,
			RunningTotal: running,
		})
	}
	return out
}

// Comparison aligns the actual, budget and prior-year series of one measure by month.
type Comparison struct {
	Year      int
	Measure   Measure
	Actual    AccumulatedSeries
	Budget    AccumulatedSeries
	PriorYear AccumulatedSeries
}

// Compare accumulates the three series independently.
func Compare(year int, m Measure, actual, budget, priorYear MonthlySeries) Comparison {
	return Comparison{
		Year:      year,
		Measure:   m,
		Actual:    Accumulate(year, m, SeriesActual, actual),
		Budget:    Accumulate(year, m, SeriesBudget, budget),
		PriorYear: Accumulate(year-1, m, SeriesPriorYear, priorYear),
	}
}
