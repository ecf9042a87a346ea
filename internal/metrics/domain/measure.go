// Package domain holds the reconciliation engine for planilla metrics:
// normalization of source rows, fan-out deduplication, bucketed aggregation,
// accumulation and target projection. Everything here is pure and request-scoped.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownMeasure   = errors.New("unknown measure")
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownSource    = errors.New("unknown source")
	ErrInvalidFilter    = errors.New("invalid filter")
	ErrInvalidWindow    = errors.New("invalid reporting window")
	ErrUnknownSeries    = errors.New("unknown series")
	ErrInvalidTarget    = errors.New("invalid target input")
)

// Source tags where a ServiceEvent came from.
type Source string

const (
	SourceHistoric Source = "historic"
	SourceCurrent  Source = "current"
)

// ParseSource accepts "historic" or "current". An empty string means both sources.
func ParseSource(raw string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		return "", nil
	case SourceHistoric:
		return SourceHistoric, nil
	case SourceCurrent:
		return SourceCurrent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, raw)
	}
}

// MeasureKind decides how a measure survives fan-out.
type MeasureKind int

const (
	// OrderAttribute measures describe the whole order and repeat on every fan-out row.
	OrderAttribute MeasureKind = iota + 1
	// Event measures describe one occurrence per row and are summed.
	Event
)

func (k MeasureKind) String() string {
	switch k {
	case OrderAttribute:
		return "order_attribute"
	case Event:
		return "event"
	default:
		return "unknown"
	}
}

// Measure names a numeric column tracked per order.
type Measure string

const (
	MeasurePabellones Measure = "pabellones"
	MeasureSurfaceM2  Measure = "surface_m2"
	MeasureDamages    Measure = "damages"
	MeasureFuelLiters Measure = "fuel_liters"
)

// Measures lists every measure in report order.
var Measures = []Measure{MeasurePabellones, MeasureSurfaceM2, MeasureDamages, MeasureFuelLiters}

var measureKinds = map[Measure]MeasureKind{
	MeasurePabellones: OrderAttribute,
	MeasureSurfaceM2:  OrderAttribute,
	MeasureDamages:    Event,
	MeasureFuelLiters: Event,
}

// Kind returns the measure kind, or 0 for an unknown measure.
func (m Measure) Kind() MeasureKind {
	return measureKinds[m]
}

// Valid reports whether m is a known measure.
func (m Measure) Valid() bool {
	_, ok := measureKinds[m]
	return ok
}

// ParseMeasure resolves a measure name.
func ParseMeasure(raw string) (Measure, error) {
	m := Measure(strings.ToLower(strings.TrimSpace(raw)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMeasure, raw)
	}
	return m, nil
}

// ParseMeasures resolves a comma separated list. Empty input selects every measure.
func ParseMeasures(csv string) ([]Measure, error) {
	if strings.TrimSpace(csv) == "" {
		return append([]Measure(nil), Measures...), nil
	}
	seen := make(map[Measure]bool)
	out := make([]Measure, 0, len(Measures))
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		m, err := ParseMeasure(part)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	return out, nil
}

// Value is a nullable measure reading.
type Value struct {
	Amount float64
	Valid  bool
}

// Known returns a non-null Value.
func Known(v float64) Value {
	return Value{Amount: v, Valid: true}
}

// FromPtr converts a nullable scan target into a Value.
func FromPtr(p *float64) Value {
	if p == nil {
		return Value{}
	}
	return Known(*p)
}
