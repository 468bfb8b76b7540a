package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.DBPath != "./data/vigil.db" {
		t.Fatalf("unexpected defaults: port=%q db=%q", cfg.Port, cfg.DBPath)
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("SessionTTL = %v, want 1h", cfg.SessionTTL)
	}
	if cfg.Stream.ChunkSize != 100 || cfg.Stream.MaxRequestBodySize != 1<<20 {
		t.Fatalf("unexpected stream defaults: %+v", cfg.Stream)
	}
	if cfg.AnalystAddr != "" {
		t.Fatalf("analyst should be disabled by default, got %q", cfg.AnalystAddr)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("QUERY_TIMEOUT", "5s")
	t.Setenv("SESSION_TTL", "90")
	t.Setenv("RATE_LIMIT_RPS", "0.5")
	t.Setenv("WAREHOUSE_SEED", "off")
	t.Setenv("ANALYST_ADDR", "analyst:50051")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.QueryTimeout != 5*time.Second {
		t.Fatalf("QueryTimeout = %v", cfg.QueryTimeout)
	}
	if cfg.SessionTTL != 90*time.Second {
		t.Fatalf("SessionTTL = %v, bare seconds should parse", cfg.SessionTTL)
	}
	if cfg.RateLimit.RequestsPerSecond != 0.5 {
		t.Fatalf("RequestsPerSecond = %v", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.WarehouseSeed {
		t.Fatal("WAREHOUSE_SEED=off should disable seeding")
	}
	if cfg.AnalystAddr != "analyst:50051" {
		t.Fatalf("AnalystAddr = %q", cfg.AnalystAddr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("STREAM_CHUNK_SIZE", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero chunk size")
	}
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("SSE_KEEPALIVE_INTERVAL", "soon")
	t.Setenv("RATE_LIMIT_BURST", "many")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Stream.KeepaliveInterval != 10*time.Second {
		t.Fatalf("KeepaliveInterval = %v", cfg.Stream.KeepaliveInterval)
	}
	if cfg.RateLimit.Burst != 10 {
		t.Fatalf("Burst = %d", cfg.RateLimit.Burst)
	}
}

func TestSweepInterval(t *testing.T) {
	cfg := &Config{SessionTTL: time.Hour}
	if got := cfg.SweepInterval(); got != 10*time.Minute {
		t.Fatalf("SweepInterval = %v", got)
	}
	cfg.SessionTTL = time.Second
	if got := cfg.SweepInterval(); got != time.Second {
		t.Fatalf("SweepInterval floor = %v", got)
	}
}
