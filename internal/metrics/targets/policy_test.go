package targets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ops_reporting_backend/internal/metrics/domain"
)

func TestParse_YearOverridesDefaults(t *testing.T) {
	p, err := Parse([]byte(`
defaults:
  damages: 5
  fuel_liters: 3
years:
  2025:
    damages: 8
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := p.ReductionPct(2025, domain.MeasureDamages); got != 8 {
		t.Fatalf("expected 2025 override 8, got %v", got)
	}
	if got := p.ReductionPct(2024, domain.MeasureDamages); got != 5 {
		t.Fatalf("expected default 5, got %v", got)
	}
	if got := p.ReductionPct(2025, domain.MeasureFuelLiters); got != 3 {
		t.Fatalf("expected default 3, got %v", got)
	}
	if got := p.ReductionPct(2025, domain.MeasurePabellones); got != DefaultReductionPct {
		t.Fatalf("expected built-in default, got %v", got)
	}
}

func TestParse_RejectsUnknownMeasureAndRange(t *testing.T) {
	if _, err := Parse([]byte("defaults:\n  colour: 5\n")); !errors.Is(err, domain.ErrUnknownMeasure) {
		t.Fatalf("expected ErrUnknownMeasure, got %v", err)
	}
	if _, err := Parse([]byte("years:\n  2025:\n    damages: 120\n")); err == nil {
		t.Fatal("expected out of range reduction to fail")
	}
	if _, err := Parse([]byte("default:\n  damages: 5\n")); err == nil {
		t.Fatal("expected unknown top-level key to fail")
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	p, err := Parse(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.ReductionPct(2025, domain.MeasureDamages); got != DefaultReductionPct {
		t.Fatalf("expected built-in default, got %v", got)
	}
}

func TestLoad(t *testing.T) {
	p, err := Load("")
	if err != nil || p.ReductionPct(2025, domain.MeasureDamages) != DefaultReductionPct {
		t.Fatalf("expected default policy, got %v / %v", p, err)
	}

	path := filepath.Join(t.TempDir(), "targets.yaml")
	if err := os.WriteFile(path, []byte("defaults:\n  damages: 10\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err = Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.ReductionPct(2030, domain.MeasureDamages); got != 10 {
		t.Fatalf("expected 10, got %v", got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file to fail")
	}
}
