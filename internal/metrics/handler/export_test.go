package handler

import (
	"net/http"
	"strings"
	"testing"
)

func TestExportBucketsCSV(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/metrics/buckets.csv?yearFrom=2024&measures=pabellones,fuel_liters", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected csv content type, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "metrics_buckets_2024_2024.csv") {
		t.Fatalf("unexpected disposition %q", cd)
	}
	want := "year,month,count,pabellones,fuel_liters\n2024,3,1,42,6\n"
	if rec.Body.String() != want {
		t.Fatalf("unexpected csv:\n%s", rec.Body.String())
	}
}

func TestExportBucketsCSV_ValidationError(t *testing.T) {
	f := newFixture(t, nil, nil)

	rec := f.do(http.MethodGet, "/metrics/buckets.csv?yearFrom=2024&measures=weight", nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
