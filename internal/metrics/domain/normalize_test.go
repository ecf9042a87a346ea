package domain

import (
	"errors"
	"iter"
	"testing"
	"time"
)

func TestNormalizeHistoric_MapsOneToOne(t *testing.T) {
	d := date(2022, time.July, 9)
	rec := HistoricRecord{
		OrderID:    " H-1 ",
		Date:       &d,
		Sector:     ptr(" Norte "),
		Supervisor: ptr("Rojas"),
		Pabellones: ptr(12.0),
		SurfaceM2:  ptr(300.5),
		Damages:    ptr(2.0),
	}

	ev, ok := NormalizeHistoric(rec, nil)
	if !ok {
		t.Fatal("expected dated row to be kept")
	}
	if ev.OrderID != "H-1" || ev.Sector != "Norte" || ev.Source != SourceHistoric {
		t.Fatalf("unexpected event fields: %#v", ev)
	}
	if v := ev.Measures[MeasurePabellones]; !v.Valid || v.Amount != 12 {
		t.Fatalf("expected pabellones 12, got %#v", v)
	}
	if v := ev.Measures[MeasureFuelLiters]; v.Valid {
		t.Fatalf("expected null fuel, got %#v", v)
	}
}

func TestNormalize_DropsUndatedRows(t *testing.T) {
	diag := NewDiagnostics()
	var zero time.Time

	if _, ok := NormalizeHistoric(HistoricRecord{OrderID: "H-2"}, diag); ok {
		t.Fatal("expected nil date to be dropped")
	}
	if _, ok := NormalizeCurrent(CurrentRecord{OrderID: "C-2", Date: &zero}, diag); ok {
		t.Fatal("expected zero date to be dropped")
	}
	if got := diag.Summary()[string(DiagUndatedOrder)]; got != 2 {
		t.Fatalf("expected 2 undated diagnostics, got %d", got)
	}
}

func TestNormalizeCurrent_FlagsNullAttributesAndMissingSector(t *testing.T) {
	d := date(2024, time.January, 15)
	diag := NewDiagnostics()

	ev, ok := NormalizeCurrent(CurrentRecord{
		OrderID:    "C-3",
		Date:       &d,
		SurfaceM2:  ptr(80.0),
		MachineID:  ptr("M-7"),
		OperatorID: ptr("OP-1"),
		FuelLiters: ptr(15.5),
	}, diag)
	if !ok {
		t.Fatal("expected row to be kept")
	}
	if ev.MachineID != "M-7" || ev.Measures[MeasureFuelLiters].Amount != 15.5 {
		t.Fatalf("unexpected assignment fields: %#v", ev)
	}
	if !diag.Has(DiagNullOrderAttribute) {
		t.Fatal("expected null pabellones to be flagged")
	}
	if !diag.Has(DiagMissingDimension) {
		t.Fatal("expected missing sector to be flagged")
	}
}

func TestCurrentEvents_StopsOnSourceError(t *testing.T) {
	d := date(2024, time.May, 1)
	boom := errors.New("connection reset")
	var records iter.Seq2[CurrentRecord, error] = func(yield func(CurrentRecord, error) bool) {
		if !yield(CurrentRecord{OrderID: "C-1", Date: &d}, nil) {
			return
		}
		if !yield(CurrentRecord{OrderID: "C-2"}, nil) {
			return
		}
		if !yield(CurrentRecord{}, boom) {
			return
		}
		yield(CurrentRecord{OrderID: "C-3", Date: &d}, nil)
	}

	var ids []string
	var gotErr error
	for ev, err := range CurrentEvents(records, nil) {
		if err != nil {
			gotErr = err
			break
		}
		ids = append(ids, ev.OrderID)
	}

	if !errors.Is(gotErr, boom) {
		t.Fatalf("expected source error, got %v", gotErr)
	}
	if len(ids) != 1 || ids[0] != "C-1" {
		t.Fatalf("expected only C-1 before the error, got %v", ids)
	}
}

func TestWindow_ValidateAndContains(t *testing.T) {
	w := Window{YearFrom: 2023, YearTo: 2024, Month: 3}
	if err := w.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !w.Contains(date(2024, time.March, 31)) {
		t.Fatal("expected March 2024 inside window")
	}
	if w.Contains(date(2024, time.April, 1)) {
		t.Fatal("expected April outside month filter")
	}
	if w.Contains(date(2025, time.March, 1)) {
		t.Fatal("expected 2025 outside year range")
	}

	bad := Window{YearFrom: 2024, YearTo: 2023}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
	if err := (Window{YearFrom: 2024, YearTo: 2024, Source: "legacy"}).Validate(); !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("expected ErrUnknownSource, got %v", err)
	}
}

func TestNormalizeCurrent_CanonicalisesLabels(t *testing.T) {
	d := date(2024, time.May, 2)
	rec := CurrentRecord{
		OrderID:      "C-9",
		Date:         &d,
		Sector:       ptr("<b>Norte</b>  Alto"),
		Supervisor:   ptr("Rojas\t"),
		MachineClass: ptr("  Camion   Aljibe "),
	}

	ev, ok := NormalizeCurrent(rec, NewDiagnostics())
	if !ok {
		t.Fatal("expected dated row to be kept")
	}
	if ev.Sector != "Norte Alto" || ev.Supervisor != "Rojas" || ev.MachineClass != "Camion Aljibe" {
		t.Fatalf("unexpected labels: %q %q %q", ev.Sector, ev.Supervisor, ev.MachineClass)
	}
}

func TestWindow_MatchesSector(t *testing.T) {
	all := Window{YearFrom: 2024, YearTo: 2024}
	if !all.MatchesSector("") || !all.MatchesSector("Sur") {
		t.Fatal("expected an empty sector filter to match everything")
	}

	norte := Window{YearFrom: 2024, YearTo: 2024, Sector: " <i>Norte</i>"}
	if !norte.MatchesSector("Norte") {
		t.Fatal("expected the canonical label to match")
	}
	if norte.MatchesSector("norte") || norte.MatchesSector("") {
		t.Fatal("expected other labels not to match")
	}

	unknown := Window{YearFrom: 2024, YearTo: 2024, Sector: Unknown}
	if !unknown.MatchesSector("") {
		t.Fatal("expected unknown to select orders without a sector")
	}
	if unknown.MatchesSector("Norte") {
		t.Fatal("expected unknown not to match a named sector")
	}
}
