package domain

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// Dimension is a grouping key for the aggregator.
type Dimension string

const (
	DimYear         Dimension = "year"
	DimMonth        Dimension = "month"
	DimSector       Dimension = "sector"
	DimSupervisor   Dimension = "supervisor"
	DimMachine      Dimension = "machine"
	DimMachineClass Dimension = "machine_class"
	DimOperator     Dimension = "operator"
	DimSource       Dimension = "source"
)

// Unknown labels a bucket whose dimension value was missing.
const Unknown = "unknown"

var dimensions = map[Dimension]bool{
	DimYear: true, DimMonth: true, DimSector: true, DimSupervisor: true,
	DimMachine: true, DimMachineClass: true, DimOperator: true, DimSource: true,
}

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool { return dimensions[d] }

// PerAssignment reports whether d is resolved per machine assignment instead of per order.
func (d Dimension) PerAssignment() bool {
	return d == DimMachine || d == DimMachineClass || d == DimOperator
}

// ParseDimension resolves a dimension name.
func ParseDimension(raw string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(raw)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownDimension, raw)
	}
	return d, nil
}

// ParseGroupBy resolves a comma separated dimension list, keeping the caller's order.
// Empty input groups by year and month.
func ParseGroupBy(csv string) ([]Dimension, error) {
	if strings.TrimSpace(csv) == "" {
		return []Dimension{DimYear, DimMonth}, nil
	}
	var out []Dimension
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		d, err := ParseDimension(part)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Predicate selects the snapshots that take part in an aggregation.
type Predicate func(OrderSnapshot) bool

// MeasureAbove keeps snapshots whose m value is strictly greater than threshold.
func MeasureAbove(m Measure, threshold float64) Predicate {
	return func(s OrderSnapshot) bool { return s.Value(m) > threshold }
}

var filterOps = []string{">=", "<=", "!=", ">", "<", "="}

// ParseFilter parses comparisons such as "damages>0" or "pabellones>=10,damages=0".
// Comma separated comparisons must all hold. Empty input keeps every snapshot.
func ParseFilter(raw string) (Predicate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var preds []Predicate
	for _, clause := range strings.Split(raw, ",") {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		p, err := parseComparison(clause)
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return func(s OrderSnapshot) bool {
		for _, p := range preds {
			if !p(s) {
				return false
			}
		}
		return true
	}, nil
}

func parseComparison(clause string) (Predicate, error) {
	for _, op := range filterOps {
		idx := strings.Index(clause, op)
		if idx <= 0 {
			continue
		}
		m, err := ParseMeasure(clause[:idx])
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidFilter, err)
		}
		threshold, err := strconv.ParseFloat(strings.TrimSpace(clause[idx+len(op):]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad number in %q", ErrInvalidFilter, clause)
		}
		switch op {
		case ">":
			return MeasureAbove(m, threshold), nil
		case ">=":
			return func(s OrderSnapshot) bool { return s.Value(m) >= threshold }, nil
		case "<":
			return func(s OrderSnapshot) bool { return s.Value(m) < threshold }, nil
		case "<=":
			return func(s OrderSnapshot) bool { return s.Value(m) <= threshold }, nil
		case "=":
			return func(s OrderSnapshot) bool { return s.Value(m) == threshold }, nil
		case "!=":
			return func(s OrderSnapshot) bool { return s.Value(m) != threshold }, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, clause)
}

// MonthlyBucket is one group of the aggregation. Year and Month are 0 when not grouped by.
type MonthlyBucket struct {
	Year       int
	Month      int
	Dimensions map[Dimension]string
	// Count is the number of distinct orders in the bucket.
	Count int
	Sums  map[Measure]float64
}

// AggregateOptions configures one aggregation.
type AggregateOptions struct {
	GroupBy  []Dimension
	Measures []Measure
	Filter   Predicate
}

type bucketKey struct {
	year  int
	month int
	dims  string
}

// contribution is what one snapshot adds to one bucket.
type contribution struct {
	key    bucketKey
	labels map[Dimension]string
	events map[Measure]float64
}

// Aggregate groups snapshots into buckets. Each order counts once per bucket.
//
// Grouping by machine, machine_class or operator attributes an order to every
// assignment it touched: event measures carry that assignment's own share while
// order-attribute measures carry the full order value, so those buckets do not
// add up across machines for order-attribute measures.
func Aggregate(snapshots []OrderSnapshot, opts AggregateOptions) ([]MonthlyBucket, error) {
	for _, d := range opts.GroupBy {
		if !d.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, d)
		}
	}
	measures := opts.Measures
	if len(measures) == 0 {
		measures = Measures
	}
	for _, m := range measures {
		if !m.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownMeasure, m)
		}
	}

	perAssignment := slices.ContainsFunc(opts.GroupBy, Dimension.PerAssignment)
	buckets := make(map[bucketKey]*MonthlyBucket)

	for _, snap := range snapshots {
		if opts.Filter != nil && !opts.Filter(snap) {
			continue
		}
		for _, c := range contributions(snap, opts.GroupBy, perAssignment) {
			b, ok := buckets[c.key]
			if !ok {
				b = &MonthlyBucket{
					Year:       c.key.year,
					Month:      c.key.month,
					Dimensions: c.labels,
					Sums:       make(map[Measure]float64, len(measures)),
				}
				for _, m := range measures {
					b.Sums[m] = 0
				}
				buckets[c.key] = b
			}
			b.Count++
			for _, m := range measures {
				if m.Kind() == OrderAttribute {
					b.Sums[m] += snap.Value(m)
				} else {
					b.Sums[m] += c.events[m]
				}
			}
		}
	}

	out := make([]MonthlyBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sortBuckets(out, opts.GroupBy)
	return out, nil
}

// contributions resolves the distinct buckets one snapshot feeds. Assignments
// that resolve to the same bucket are merged so the order is counted once there.
func contributions(snap OrderSnapshot, groupBy []Dimension, perAssignment bool) []contribution {
	if !perAssignment {
		events := make(map[Measure]float64)
		for _, m := range Measures {
			if m.Kind() == Event {
				events[m] = snap.Value(m)
			}
		}
		labels := orderLabels(snap, groupBy, Assignment{})
		return []contribution{{key: keyFor(snap, groupBy, labels), labels: labels, events: events}}
	}

	var out []contribution
	index := make(map[bucketKey]int)
	for _, a := range contributingAssignments(snap) {
		labels := orderLabels(snap, groupBy, a)
		key := keyFor(snap, groupBy, labels)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, contribution{key: key, labels: labels, events: make(map[Measure]float64)})
		}
		for m, v := range a.Events {
			out[i].events[m] += v
		}
	}
	return out
}

// contributingAssignments drops the unassigned share when it only carries
// order fields and the order has real assignments.
func contributingAssignments(snap OrderSnapshot) []Assignment {
	assigned := 0
	for _, a := range snap.Assignments {
		if !a.Unassigned() {
			assigned++
		}
	}
	if len(snap.Assignments) == 0 {
		return []Assignment{{}}
	}
	out := make([]Assignment, 0, len(snap.Assignments))
	for _, a := range snap.Assignments {
		if a.Unassigned() && assigned > 0 && !hasEvents(a) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func hasEvents(a Assignment) bool {
	for _, v := range a.Events {
		if v != 0 {
			return true
		}
	}
	return false
}

func orderLabels(snap OrderSnapshot, groupBy []Dimension, a Assignment) map[Dimension]string {
	labels := make(map[Dimension]string)
	for _, d := range groupBy {
		switch d {
		case DimYear, DimMonth:
			continue
		case DimSector:
			labels[d] = orUnknown(snap.Sector)
		case DimSupervisor:
			labels[d] = orUnknown(snap.Supervisor)
		case DimSource:
			labels[d] = orUnknown(string(snap.Source))
		case DimMachine:
			labels[d] = orUnknown(a.MachineID)
		case DimMachineClass:
			labels[d] = orUnknown(a.MachineClass)
		case DimOperator:
			labels[d] = orUnknown(a.OperatorID)
		}
	}
	return labels
}

func keyFor(snap OrderSnapshot, groupBy []Dimension, labels map[Dimension]string) bucketKey {
	var k bucketKey
	parts := make([]string, 0, len(groupBy))
	for _, d := range groupBy {
		switch d {
		case DimYear:
			k.year = snap.Year()
		case DimMonth:
			k.month = snap.Month()
		default:
			parts = append(parts, labels[d])
		}
	}
	k.dims = strings.Join(parts, "\x1f")
	return k
}

func sortBuckets(buckets []MonthlyBucket, groupBy []Dimension) {
	sort.Slice(buckets, func(i, j int) bool {
		a, b := buckets[i], buckets[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		for _, d := range groupBy {
			if d == DimYear || d == DimMonth {
				continue
			}
			if a.Dimensions[d] != b.Dimensions[d] {
				return a.Dimensions[d] < b.Dimensions[d]
			}
		}
		return false
	})
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return Unknown
	}
	return v
}
