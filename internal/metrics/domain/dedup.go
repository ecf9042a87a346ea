package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Assignment is the share of an order attributed to one machine/operator pair.
// Rows without a machine (historic rows, damage rows) land on the empty assignment.
type Assignment struct {
	MachineID    string
	MachineClass string
	OperatorID   string
	Events       map[Measure]float64
}

// Unassigned reports whether the share has no machine or operator attached.
func (a Assignment) Unassigned() bool {
	return a.MachineID == "" && a.MachineClass == "" && a.OperatorID == ""
}

// OrderSnapshot is one order after fan-out deduplication.
type OrderSnapshot struct {
	OrderID    string
	Date       time.Time
	Sector     string
	Supervisor string
	Source     Source
	// Measures holds one reconciled value per order-attribute measure and
	// one summed value per event measure.
	Measures    map[Measure]float64
	Assignments []Assignment
	// Conflicts lists order-attribute measures whose rows disagreed.
	Conflicts []Measure
	// RowCount is the number of source rows collapsed into this snapshot.
	RowCount int
}

// Value returns the snapshot value for m.
func (s OrderSnapshot) Value(m Measure) float64 {
	return s.Measures[m]
}

// Year returns the calendar year of the order date.
func (s OrderSnapshot) Year() int { return s.Date.Year() }

// Month returns the calendar month (1..12) of the order date.
func (s OrderSnapshot) Month() int { return int(s.Date.Month()) }

type assignmentKey struct {
	machineID    string
	machineClass string
	operatorID   string
}

// attributeReading tracks the non-null readings of one order-attribute measure.
type attributeReading struct {
	seen     bool
	max      float64
	distinct []float64
}

func (r *attributeReading) observe(v float64) {
	if !r.seen {
		r.seen = true
		r.max = v
		r.distinct = []float64{v}
		return
	}
	if v > r.max {
		r.max = v
	}
	for _, d := range r.distinct {
		if d == v {
			return
		}
	}
	r.distinct = append(r.distinct, v)
}

type orderGroup struct {
	orderID     string
	date        time.Time
	sector      string
	supervisor  string
	source      Source
	rows        int
	attributes  map[Measure]*attributeReading
	events      map[Measure]float64
	assignments map[assignmentKey]*Assignment
	assignOrder []assignmentKey
}

// Deduplicator collapses fan-out rows into one snapshot per order.
// Rows may arrive in any order; reconciliation only happens in Snapshots,
// once the complete group of every order has been added.
type Deduplicator struct {
	diag   *Diagnostics
	order  []string
	groups map[string]*orderGroup
}

// NewDeduplicator returns an empty deduplicator reporting into diag (may be nil).
func NewDeduplicator(diag *Diagnostics) *Deduplicator {
	return &Deduplicator{diag: diag, groups: make(map[string]*orderGroup)}
}

// Add folds one event into its order group.
func (d *Deduplicator) Add(ev ServiceEvent) {
	g, ok := d.groups[ev.OrderID]
	if !ok {
		g = &orderGroup{
			orderID:     ev.OrderID,
			attributes:  make(map[Measure]*attributeReading),
			events:      make(map[Measure]float64),
			assignments: make(map[assignmentKey]*Assignment),
		}
		d.groups[ev.OrderID] = g
		d.order = append(d.order, ev.OrderID)
	}
	g.rows++

	g.date = d.carryTime(g.orderID, "date", g.date, ev.Date)
	g.sector = d.carryString(g.orderID, "sector", g.sector, ev.Sector)
	g.supervisor = d.carryString(g.orderID, "supervisor", g.supervisor, ev.Supervisor)
	g.source = Source(d.carryString(g.orderID, "source", string(g.source), string(ev.Source)))

	key := assignmentKey{machineID: ev.MachineID, machineClass: ev.MachineClass, operatorID: ev.OperatorID}
	share, ok := g.assignments[key]
	if !ok {
		share = &Assignment{
			MachineID:    ev.MachineID,
			MachineClass: ev.MachineClass,
			OperatorID:   ev.OperatorID,
			Events:       make(map[Measure]float64),
		}
		g.assignments[key] = share
		g.assignOrder = append(g.assignOrder, key)
	}

	for _, m := range Measures {
		v, present := ev.Measures[m]
		if !present || !v.Valid {
			continue
		}
		switch m.Kind() {
		case OrderAttribute:
			r := g.attributes[m]
			if r == nil {
				r = &attributeReading{}
				g.attributes[m] = r
			}
			r.observe(v.Amount)
		case Event:
			g.events[m] += v.Amount
			share.Events[m] += v.Amount
		}
	}
}

// Len returns the number of distinct orders seen so far.
func (d *Deduplicator) Len() int {
	return len(d.order)
}

// Snapshots reconciles every group and returns one snapshot per order in first-seen order.
func (d *Deduplicator) Snapshots() []OrderSnapshot {
	out := make([]OrderSnapshot, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.reconcile(d.groups[id]))
	}
	return out
}

func (d *Deduplicator) reconcile(g *orderGroup) OrderSnapshot {
	snap := OrderSnapshot{
		OrderID:    g.orderID,
		Date:       g.date,
		Sector:     g.sector,
		Supervisor: g.supervisor,
		Source:     g.source,
		Measures:   make(map[Measure]float64, len(Measures)),
		RowCount:   g.rows,
	}

	for _, m := range Measures {
		switch m.Kind() {
		case OrderAttribute:
			r := g.attributes[m]
			if r == nil {
				snap.Measures[m] = 0
				continue
			}
			// Max is a heuristic carried over from the SQL fix: fan-out from an
			// unrelated join must never reduce a reported total.
			snap.Measures[m] = r.max
			if len(r.distinct) > 1 {
				snap.Conflicts = append(snap.Conflicts, m)
				d.diag.Add(Diagnostic{
					Code:    DiagReconciliationConflict,
					OrderID: g.orderID,
					Field:   string(m),
					Detail:  fmt.Sprintf("values %s, kept max %s", joinFloats(r.distinct), formatFloat(r.max)),
				})
			}
		case Event:
			snap.Measures[m] = g.events[m]
		}
	}

	snap.Assignments = make([]Assignment, 0, len(g.assignOrder))
	for _, key := range g.assignOrder {
		snap.Assignments = append(snap.Assignments, *g.assignments[key])
	}
	return snap
}

func (d *Deduplicator) carryString(orderID, field, current, next string) string {
	if current == "" {
		return next
	}
	if next != "" && next != current {
		d.diag.Add(Diagnostic{
			Code:    DiagInconsistentField,
			OrderID: orderID,
			Field:   field,
			Detail:  fmt.Sprintf("kept %q, saw %q", current, next),
		})
	}
	return current
}

func (d *Deduplicator) carryTime(orderID, field string, current, next time.Time) time.Time {
	if current.IsZero() {
		return next
	}
	if !next.IsZero() && !next.Equal(current) {
		d.diag.Add(Diagnostic{
			Code:    DiagInconsistentField,
			OrderID: orderID,
			Field:   field,
			Detail:  fmt.Sprintf("kept %s, saw %s", current.Format(time.DateOnly), next.Format(time.DateOnly)),
		})
	}
	return current
}

// Deduplicate is the batch form of Deduplicator.
func Deduplicate(events []ServiceEvent, diag *Diagnostics) []OrderSnapshot {
	d := NewDeduplicator(diag)
	for _, ev := range events {
		d.Add(ev)
	}
	return d.Snapshots()
}

// NaiveSum adds m across raw rows exactly like a SQL SUM over the fan-out join.
// It exists to measure the over-count that deduplication removes.
func NaiveSum(events []ServiceEvent, m Measure) float64 {
	var total float64
	for _, ev := range events {
		if v := ev.Measures[m]; v.Valid {
			total += v.Amount
		}
	}
	return total
}

func joinFloats(values []float64) string {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	parts := make([]string, len(sorted))
	for i, v := range sorted {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ", ")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
