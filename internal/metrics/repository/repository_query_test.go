package repository

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"ops_reporting_backend/internal/metrics/domain"
)

func TestCurrentQueryKeepsEventValuesOnTheirOwnRows(t *testing.T) {
	query := strings.ToLower(currentQuery)

	requiredFragments := []string{
		"join planilla_machines pm on pm.planilla_id = p.id",
		"join planilla_damages d on d.planilla_id = p.id",
		"null::float8 as damage_quantity",
		"union all",
		"not exists (select 1 from planilla_machines x where x.planilla_id = p.id)",
	}
	for _, fragment := range requiredFragments {
		if !strings.Contains(query, fragment) {
			t.Fatalf("expected current query fragment %q to be present", fragment)
		}
	}

	// machines and damages must never be joined in the same branch
	for _, branch := range strings.Split(query, "union all") {
		if strings.Contains(branch, "join planilla_machines") && strings.Contains(branch, "join planilla_damages") {
			t.Fatal("machine and damage joins in one branch multiply rows")
		}
	}
}

func TestSourceQueriesDoNotAggregateInSQL(t *testing.T) {
	for name, query := range map[string]string{
		"historic":       historicQuery,
		"current":        currentQuery,
		"mysql historic": mysqlHistoricQuery,
	} {
		lower := strings.ToLower(query)
		if strings.Contains(lower, "sum(") || strings.Contains(lower, "group by") {
			t.Fatalf("%s query must return raw rows, aggregation happens in the engine", name)
		}
		if !strings.Contains(lower, "service_date is null or") {
			t.Fatalf("%s query must keep undated rows for diagnostics", name)
		}
	}
}

func TestWindowArgsMatchPlaceholders(t *testing.T) {
	w := domain.Window{YearFrom: 2023, YearTo: 2024, Month: 5, Sector: "Norte"}

	args := windowArgs(w)
	if len(args) != 3 {
		t.Fatalf("expected 3 postgres args, got %d", len(args))
	}
	if args[0].(time.Time) != time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected window start %v", args[0])
	}
	if args[1].(time.Time) != time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected window end %v", args[1])
	}

	mysqlArgs := mysqlWindowArgs(w)
	if got := strings.Count(mysqlHistoricQuery, "?"); got != len(mysqlArgs) {
		t.Fatalf("expected %d mysql args, got %d", got, len(mysqlArgs))
	}
}

func TestSourceQueriesLeaveSectorToTheEngine(t *testing.T) {
	for name, query := range map[string]string{
		"historic":       historicQuery,
		"current":        currentQuery,
		"mysql historic": mysqlHistoricQuery,
	} {
		if strings.Contains(strings.ToLower(query), "p.sector =") {
			t.Fatalf("%s query filters on the raw sector column", name)
		}
	}
}

func TestMySQLQueryKeepsZeroDates(t *testing.T) {
	if !strings.Contains(mysqlHistoricQuery, "p.service_date = '0000-00-00'") {
		t.Fatal("legacy zero dates must reach the normalizer")
	}
}

func TestNullTimeKeepsZeroDate(t *testing.T) {
	got := nullTime(sql.NullTime{Valid: true})
	if got == nil || !got.IsZero() {
		t.Fatalf("expected zero time pointer, got %v", got)
	}
	if nullTime(sql.NullTime{}) != nil {
		t.Fatal("expected nil for NULL date")
	}
}

func TestMaterializedColumnsMatchStructOrder(t *testing.T) {
	if len(materializedColumns) != 11 {
		t.Fatalf("expected 11 materialized columns, got %d", len(materializedColumns))
	}
	if materializedColumns[0] != "year" || materializedColumns[10] != "refreshed_at" {
		t.Fatalf("unexpected column order: %v", materializedColumns)
	}
}

func TestNullableHelpers(t *testing.T) {
	if nullFloat(sql.NullFloat64{}) != nil {
		t.Fatal("expected nil for NULL float")
	}
	if got := nullFloat(sql.NullFloat64{Float64: 4.5, Valid: true}); got == nil || *got != 4.5 {
		t.Fatalf("expected 4.5, got %v", got)
	}
	if got := nullString(sql.NullString{String: "Norte", Valid: true}); got == nil || *got != "Norte" {
		t.Fatalf("expected Norte, got %v", got)
	}
	if nullTime(sql.NullTime{}) != nil {
		t.Fatal("expected nil for NULL time")
	}
}
