package domain

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"ops_reporting_backend/platform/sanitize"
)

// Window selects the orders a reporting query covers.
type Window struct {
	YearFrom int
	YearTo   int
	// Month restricts every year of the range to one month; 0 means all months.
	Month int
	// Source restricts provenance; empty means both sources.
	Source Source
	// Sector restricts to one sector label as reports show it; empty means
	// all sectors and "unknown" selects orders without a sector.
	Sector string
}

// YearWindow covers a single calendar year from both sources.
func YearWindow(year int) Window {
	return Window{YearFrom: year, YearTo: year}
}

// Validate checks the window bounds.
func (w Window) Validate() error {
	if w.YearFrom < 1900 || w.YearTo < 1900 {
		return fmt.Errorf("%w: year must be >= 1900", ErrInvalidWindow)
	}
	if w.YearTo < w.YearFrom {
		return fmt.Errorf("%w: yearTo %d before yearFrom %d", ErrInvalidWindow, w.YearTo, w.YearFrom)
	}
	if w.Month < 0 || w.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidWindow, w.Month)
	}
	if w.Source != "" && w.Source != SourceHistoric && w.Source != SourceCurrent {
		return fmt.Errorf("%w: %q", ErrUnknownSource, w.Source)
	}
	return nil
}

// Includes reports whether the window reads from src.
func (w Window) Includes(src Source) bool {
	return w.Source == "" || w.Source == src
}

// Start is the first instant covered, in UTC.
func (w Window) Start() time.Time {
	return time.Date(w.YearFrom, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant after the window, in UTC.
func (w Window) End() time.Time {
	return time.Date(w.YearTo+1, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls in the window, honouring the month restriction.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start()) || !t.Before(w.End()) {
		return false
	}
	return w.Month == 0 || int(t.Month()) == w.Month
}

// MatchesSector reports whether an order whose reconciled sector is sector
// belongs to the window. Both sides are compared as canonical labels.
func (w Window) MatchesSector(sector string) bool {
	want := sanitize.Label(w.Sector)
	if want == "" {
		return true
	}
	return orUnknown(sector) == want
}

// HistoricRecord is one flat row of the migrated historic table.
// Every field except OrderID is nullable.
type HistoricRecord struct {
	OrderID    string
	Date       *time.Time
	Sector     *string
	Supervisor *string
	Pabellones *float64
	SurfaceM2  *float64
	Damages    *float64
	FuelLiters *float64
}

// CurrentRecord is one row of the current-schema join. Order fields repeat on
// every row of the same order; MachineID/OperatorID/FuelLiters are set on
// machine-assignment rows and DamageQuantity on damage rows.
type CurrentRecord struct {
	OrderID        string
	Date           *time.Time
	Sector         *string
	Supervisor     *string
	Pabellones     *float64
	SurfaceM2      *float64
	MachineID      *string
	MachineClass   *string
	OperatorID     *string
	FuelLiters     *float64
	DamageQuantity *float64
}

// ServiceEvent is one source row in canonical shape, before deduplication.
type ServiceEvent struct {
	OrderID      string
	Date         time.Time
	Sector       string
	Supervisor   string
	MachineID    string
	MachineClass string
	OperatorID   string
	Source       Source
	Measures     map[Measure]Value
}

// NormalizeHistoric maps a historic row 1:1. Undated rows are dropped.
func NormalizeHistoric(rec HistoricRecord, diag *Diagnostics) (ServiceEvent, bool) {
	ev, ok := baseEvent(rec.OrderID, rec.Date, rec.Sector, rec.Supervisor, SourceHistoric, diag)
	if !ok {
		return ServiceEvent{}, false
	}
	ev.Measures = map[Measure]Value{
		MeasurePabellones: FromPtr(rec.Pabellones),
		MeasureSurfaceM2:  FromPtr(rec.SurfaceM2),
		MeasureDamages:    FromPtr(rec.Damages),
		MeasureFuelLiters: FromPtr(rec.FuelLiters),
	}
	flagNullAttributes(ev, diag)
	return ev, true
}

// NormalizeCurrent maps one row of the current-schema join. Undated rows are dropped.
func NormalizeCurrent(rec CurrentRecord, diag *Diagnostics) (ServiceEvent, bool) {
	ev, ok := baseEvent(rec.OrderID, rec.Date, rec.Sector, rec.Supervisor, SourceCurrent, diag)
	if !ok {
		return ServiceEvent{}, false
	}
	ev.MachineID = trimmed(rec.MachineID)
	ev.MachineClass = sanitize.LabelPtr(rec.MachineClass)
	ev.OperatorID = trimmed(rec.OperatorID)
	ev.Measures = map[Measure]Value{
		MeasurePabellones: FromPtr(rec.Pabellones),
		MeasureSurfaceM2:  FromPtr(rec.SurfaceM2),
		MeasureDamages:    FromPtr(rec.DamageQuantity),
		MeasureFuelLiters: FromPtr(rec.FuelLiters),
	}
	flagNullAttributes(ev, diag)
	return ev, true
}

// HistoricEvents lazily normalizes a historic record stream.
// Source errors are passed through unchanged and end the sequence for the caller.
func HistoricEvents(records iter.Seq2[HistoricRecord, error], diag *Diagnostics) iter.Seq2[ServiceEvent, error] {
	return func(yield func(ServiceEvent, error) bool) {
		for rec, err := range records {
			if err != nil {
				yield(ServiceEvent{}, err)
				return
			}
			ev, ok := NormalizeHistoric(rec, diag)
			if !ok {
				continue
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// CurrentEvents lazily normalizes a current-schema record stream.
func CurrentEvents(records iter.Seq2[CurrentRecord, error], diag *Diagnostics) iter.Seq2[ServiceEvent, error] {
	return func(yield func(ServiceEvent, error) bool) {
		for rec, err := range records {
			if err != nil {
				yield(ServiceEvent{}, err)
				return
			}
			ev, ok := NormalizeCurrent(rec, diag)
			if !ok {
				continue
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func baseEvent(orderID string, date *time.Time, sector, supervisor *string, src Source, diag *Diagnostics) (ServiceEvent, bool) {
	orderID = strings.TrimSpace(orderID)
	if date == nil || date.IsZero() {
		diag.Add(Diagnostic{Code: DiagUndatedOrder, OrderID: orderID, Field: "date", Detail: string(src), Sector: sanitize.LabelPtr(sector)})
		return ServiceEvent{}, false
	}
	ev := ServiceEvent{
		OrderID:    orderID,
		Date:       date.UTC(),
		Sector:     sanitize.LabelPtr(sector),
		Supervisor: sanitize.LabelPtr(supervisor),
		Source:     src,
	}
	if ev.Sector == "" {
		diag.Add(Diagnostic{Code: DiagMissingDimension, OrderID: orderID, Field: "sector"})
	}
	return ev, true
}

func flagNullAttributes(ev ServiceEvent, diag *Diagnostics) {
	for _, m := range Measures {
		if m.Kind() != OrderAttribute {
			continue
		}
		if !ev.Measures[m].Valid {
			diag.Add(Diagnostic{Code: DiagNullOrderAttribute, OrderID: ev.OrderID, Field: string(m), Detail: "treated as 0"})
		}
	}
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
