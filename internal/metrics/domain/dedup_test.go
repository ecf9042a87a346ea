package domain

import (
	"fmt"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ptr[T any](v T) *T { return &v }

// fanOut mimics the current-schema join: n assignment rows that all repeat
// the order attributes and carry fuel on the first machine only.
func fanOut(orderID string, n int, pabellones float64) []ServiceEvent {
	events := make([]ServiceEvent, 0, n)
	for i := 0; i < n; i++ {
		fuel := Known(0)
		if i == 0 {
			fuel = Known(10)
		}
		events = append(events, ServiceEvent{
			OrderID:      orderID,
			Date:         date(2024, time.March, 4),
			Sector:       "Norte",
			Supervisor:   "Rojas",
			MachineID:    fmt.Sprintf("M-%d", i),
			MachineClass: "camion",
			OperatorID:   fmt.Sprintf("OP-%d", i),
			Source:       SourceCurrent,
			Measures: map[Measure]Value{
				MeasurePabellones: Known(pabellones),
				MeasureSurfaceM2:  Known(120),
				MeasureDamages:    {},
				MeasureFuelLiters: fuel,
			},
		})
	}
	return events
}

func TestDeduplicate_IndependentOfFanOutCount(t *testing.T) {
	for _, n := range []int{1, 2, 5, 100} {
		diag := NewDiagnostics()
		snaps := Deduplicate(fanOut("P-1", n, 42), diag)

		if len(snaps) != 1 {
			t.Fatalf("n=%d: expected 1 snapshot, got %d", n, len(snaps))
		}
		if got := snaps[0].Value(MeasurePabellones); got != 42 {
			t.Fatalf("n=%d: expected pabellones 42, got %v", n, got)
		}
		if got := snaps[0].Value(MeasureSurfaceM2); got != 120 {
			t.Fatalf("n=%d: expected surface 120, got %v", n, got)
		}
		if got := snaps[0].Value(MeasureFuelLiters); got != 10 {
			t.Fatalf("n=%d: expected fuel 10, got %v", n, got)
		}
		if snaps[0].RowCount != n {
			t.Fatalf("n=%d: expected row count %d, got %d", n, n, snaps[0].RowCount)
		}
		if diag.Has(DiagReconciliationConflict) {
			t.Fatalf("n=%d: unexpected conflict diagnostic", n)
		}
	}
}

func TestDeduplicate_SumsEventMeasuresAcrossMachines(t *testing.T) {
	// damages [2, 0, 5] spread over three machine rows
	events := fanOut("P-2", 3, 10)
	for i, d := range []float64{2, 0, 5} {
		events[i].Measures[MeasureDamages] = Known(d)
	}

	snaps := Deduplicate(events, nil)

	if got := snaps[0].Value(MeasureDamages); got != 7 {
		t.Fatalf("expected damages 7, got %v", got)
	}
	if got := snaps[0].Value(MeasurePabellones); got != 10 {
		t.Fatalf("expected pabellones 10, got %v", got)
	}
	if len(snaps[0].Assignments) != 3 {
		t.Fatalf("expected 3 assignments, got %d", len(snaps[0].Assignments))
	}
}

func TestDeduplicate_ConflictKeepsMaxAndFlags(t *testing.T) {
	events := fanOut("P-3", 3, 40)
	events[1].Measures[MeasurePabellones] = Known(44)

	diag := NewDiagnostics()
	snaps := Deduplicate(events, diag)

	if got := snaps[0].Value(MeasurePabellones); got != 44 {
		t.Fatalf("expected max 44, got %v", got)
	}
	if len(snaps[0].Conflicts) != 1 || snaps[0].Conflicts[0] != MeasurePabellones {
		t.Fatalf("expected pabellones conflict, got %v", snaps[0].Conflicts)
	}
	found := diag.ForOrder("P-3")
	if len(found) != 1 || found[0].Code != DiagReconciliationConflict {
		t.Fatalf("expected one conflict diagnostic, got %#v", found)
	}
	if found[0].Detail != "values 40, 44, kept max 44" {
		t.Fatalf("unexpected detail %q", found[0].Detail)
	}
}

func TestDeduplicate_AllNullAttributeIsZero(t *testing.T) {
	events := fanOut("P-4", 2, 0)
	for i := range events {
		events[i].Measures[MeasurePabellones] = Value{}
	}

	snaps := Deduplicate(events, nil)

	if got := snaps[0].Value(MeasurePabellones); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
	if len(snaps[0].Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", snaps[0].Conflicts)
	}
}

func TestDeduplicate_NullRowsDoNotConflictWithValue(t *testing.T) {
	events := fanOut("P-5", 3, 25)
	events[2].Measures[MeasurePabellones] = Value{}

	diag := NewDiagnostics()
	snaps := Deduplicate(events, diag)

	if got := snaps[0].Value(MeasurePabellones); got != 25 {
		t.Fatalf("expected 25, got %v", got)
	}
	if diag.Has(DiagReconciliationConflict) {
		t.Fatal("null rows must not count as a conflicting value")
	}
}

func TestDeduplicate_InconsistentSectorKeepsFirst(t *testing.T) {
	events := fanOut("P-6", 2, 5)
	events[1].Sector = "Sur"

	diag := NewDiagnostics()
	snaps := Deduplicate(events, diag)

	if snaps[0].Sector != "Norte" {
		t.Fatalf("expected first sector Norte, got %q", snaps[0].Sector)
	}
	if !diag.Has(DiagInconsistentField) {
		t.Fatal("expected inconsistent field diagnostic")
	}
}

func TestDeduplicate_FirstSeenOrderAndInterleavedRows(t *testing.T) {
	a := fanOut("A", 2, 1)
	b := fanOut("B", 2, 2)
	events := []ServiceEvent{b[0], a[0], b[1], a[1]}

	snaps := Deduplicate(events, nil)

	if len(snaps) != 2 || snaps[0].OrderID != "B" || snaps[1].OrderID != "A" {
		t.Fatalf("unexpected snapshot order: %#v", snaps)
	}
	if snaps[0].RowCount != 2 || snaps[1].RowCount != 2 {
		t.Fatalf("expected both groups complete, got %d and %d", snaps[0].RowCount, snaps[1].RowCount)
	}
}

func TestDeduplicate_Order21867(t *testing.T) {
	events := fanOut("21867", 108, 42)
	events = append(events, ServiceEvent{
		OrderID:    "21867",
		Date:       date(2024, time.March, 4),
		Sector:     "Norte",
		Supervisor: "Rojas",
		Source:     SourceCurrent,
		Measures: map[Measure]Value{
			MeasurePabellones: Known(42),
			MeasureSurfaceM2:  Known(120),
			MeasureDamages:    Known(3),
			MeasureFuelLiters: {},
		},
	})
	if len(events) != 109 {
		t.Fatalf("expected 109 fan-out rows, got %d", len(events))
	}

	if naive := NaiveSum(events, MeasurePabellones); naive != 4578 {
		t.Fatalf("expected naive sum 4578, got %v", naive)
	}

	snaps := Deduplicate(events, nil)
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	if got := snaps[0].Value(MeasurePabellones); got != 42 {
		t.Fatalf("expected pabellones 42, got %v", got)
	}
	if got := snaps[0].Value(MeasureDamages); got != 3 {
		t.Fatalf("expected damages 3, got %v", got)
	}
}
