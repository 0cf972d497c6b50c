package config

import "testing"

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("MAX_CONCURRENT_REQUESTS", "")
	t.Setenv("MONITOR_MAX_POLLS", "")
	t.Setenv("BREAKER_ENABLED", "")

	cfg := Load()
	if cfg.NATSSubject != "taxdocs.uploaded" {
		t.Fatalf("expected default subject taxdocs.uploaded, got %q", cfg.NATSSubject)
	}
	if cfg.RateLimitRPS != 10 {
		t.Fatalf("expected default rate limit 10 rps, got %v", cfg.RateLimitRPS)
	}
	if cfg.MaxConcurrent != 64 {
		t.Fatalf("expected default concurrency gate 64, got %d", cfg.MaxConcurrent)
	}
	if cfg.MonitorMaxPolls != 300 {
		t.Fatalf("expected default monitor poll budget 300, got %d", cfg.MonitorMaxPolls)
	}
	if !cfg.BreakerEnabled {
		t.Fatalf("expected circuit breaker enabled by default")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("WORKER_PROCESS_TIMEOUT_SECONDS", "120")

	cfg := Load()
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override 2.5, got %v", cfg.RateLimitRPS)
	}
	if cfg.RateLimitBurst != 5 {
		t.Fatalf("expected burst override 5, got %d", cfg.RateLimitBurst)
	}
	if !cfg.DevMode {
		t.Fatalf("expected dev mode enabled")
	}
	if cfg.WorkerProcessTimeout.Seconds() != 120 {
		t.Fatalf("expected worker timeout 120s, got %v", cfg.WorkerProcessTimeout)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RETRY_MAX_ATTEMPTS", "lots")
	t.Setenv("RATE_LIMIT_RPS", "fast")

	cfg := Load()
	if cfg.RetryMaxAttempts != 3 {
		t.Fatalf("expected malformed retry attempts to fall back to 3, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.RateLimitRPS != 10 {
		t.Fatalf("expected malformed rps to fall back to 10, got %v", cfg.RateLimitRPS)
	}
}
