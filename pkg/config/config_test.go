package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session.Backend != "memory" {
		t.Errorf("default backend %q, want memory", cfg.Session.Backend)
	}
	if cfg.Session.MaxIdle.Std() != 24*time.Hour {
		t.Errorf("default max idle %v, want 24h", cfg.Session.MaxIdle)
	}
	if cfg.NLU.Provider != "http" || cfg.NLU.Timeout.Std() != 5*time.Second {
		t.Errorf("unexpected NLU defaults: %+v", cfg.NLU)
	}
	if cfg.Gateway.Port != 8080 || cfg.Gateway.TokenTTL.Std() != time.Hour {
		t.Errorf("unexpected gateway defaults: %+v", cfg.Gateway)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
session:
  backend: redis
  redis:
    addr: localhost:6379
    session_ttl: 48h
  max_idle: 1h
nlu:
  provider: keyword
gateway:
  rate_limit:
    requests_per_second: 50
    burst: 100
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port %d, want 9000", cfg.Server.Port)
	}
	if cfg.Session.Backend != "redis" || cfg.Session.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Session.MaxIdle.Std() != time.Hour {
		t.Errorf("max idle %v, want 1h", cfg.Session.MaxIdle)
	}
	if cfg.Session.Redis.SessionTTL.Std() != 48*time.Hour {
		t.Errorf("session ttl %v, want 48h", cfg.Session.Redis.SessionTTL)
	}
	if cfg.NLU.Provider != "keyword" {
		t.Errorf("provider %q, want keyword", cfg.NLU.Provider)
	}
	if cfg.Gateway.RateLimit.RequestsPerSecond != 50 {
		t.Errorf("rate limit %v, want 50", cfg.Gateway.RateLimit.RequestsPerSecond)
	}
	// Unset fields keep their defaults.
	if cfg.Server.MetricsPort != 9091 {
		t.Errorf("metrics port %d, want default 9091", cfg.Server.MetricsPort)
	}
	if cfg.Session.SweepSchedule != "@hourly" {
		t.Errorf("sweep schedule %q, want default @hourly", cfg.Session.SweepSchedule)
	}
}

func TestLoadEnvFallback(t *testing.T) {
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("NLU_SERVICE_URL", "http://nlu.internal:8000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Gateway.JWTSecret != "env-secret" {
		t.Errorf("jwt secret %q, want env-secret", cfg.Gateway.JWTSecret)
	}
	if cfg.Gateway.NLUServiceURL != "http://nlu.internal:8000" {
		t.Errorf("NLU URL %q", cfg.Gateway.NLUServiceURL)
	}
	if got := cfg.NLU.Options["base_url"]; got != "http://nlu.internal:8000" {
		t.Errorf("classifier base_url %v", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown backend", "session:\n  backend: dynamo\n"},
		{"redis without addr", "session:\n  backend: redis\n"},
		{"firestore without project", "session:\n  backend: firestore\n"},
		{"negative timeout", "nlu:\n  timeout: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
