package config

import (
	"testing"
	"time"
)

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_ACCESS_SECRET", "secret")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}
}

func TestLoadAppliesMetricsDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/metrics")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000")
	t.Setenv("METRICS_FETCH_ATTEMPTS", "4")
	t.Setenv("METRICS_CACHE_TTL", "90s")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GetFetchAttempts() != 4 {
		t.Fatalf("expected 4 fetch attempts, got %d", cfg.GetFetchAttempts())
	}
	if cfg.GetCacheTTL() != 90*time.Second {
		t.Fatalf("expected 90s cache ttl, got %s", cfg.GetCacheTTL())
	}
	if cfg.IsCacheEnabled() {
		t.Fatal("expected cache disabled without REDIS_URL")
	}
	if cfg.IsLegacyMySQLEnabled() {
		t.Fatal("expected legacy MySQL disabled by default")
	}
}

func TestLoadRejectsWildcardCORSWithCredentials(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/metrics")
	t.Setenv("JWT_ACCESS_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "*")
	t.Setenv("CORS_ALLOW_CREDENTIALS", "true")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for wildcard CORS with credentials")
	}
}

func TestSplitCSVDropsBlanks(t *testing.T) {
	got := splitCSV(" a, ,b ,")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected split result: %#v", got)
	}
}
