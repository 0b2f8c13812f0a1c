// Package config loads service configuration from YAML with
// environment-variable fallbacks.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chatgo-dev/chatgo/pkg/observability"
	"github.com/chatgo-dev/chatgo/pkg/session"
)

// Duration is re-exported so YAML configs can use values like "30m".
type Duration = session.Duration

// Config represents the full configuration shared by the chatgo
// binaries. Each service reads the sections it needs.
type Config struct {
	// Server holds HTTP listener settings for the session service.
	Server ServerConfig `yaml:"server"`

	// Session selects and configures the session store backend.
	Session session.Config `yaml:"session"`

	// NLU configures the intent classifier.
	NLU NLUConfig `yaml:"nlu"`

	// Gateway configures the API gateway.
	Gateway GatewayConfig `yaml:"gateway"`

	// Tracing configures the OpenTelemetry exporter.
	Tracing observability.Config `yaml:"tracing"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int `yaml:"port"`
	MetricsPort int `yaml:"metrics_port"`
}

// NLUConfig configures the intent classifier.
type NLUConfig struct {
	// Provider names a registered classifier: "http", "keyword",
	// "openai" or "gemini". Default: "http".
	Provider string `yaml:"provider"`

	// Timeout bounds a single classification call within a chat turn.
	// Default: 5s.
	Timeout Duration `yaml:"timeout"`

	// Options holds provider-specific settings such as base_url,
	// api_key or model.
	Options map[string]any `yaml:"options"`
}

// GatewayConfig configures the API gateway.
type GatewayConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	JWTSecret   string `yaml:"jwt_secret"`

	// TokenTTL is how long issued bearer tokens stay valid.
	// Default: 1h.
	TokenTTL Duration `yaml:"token_ttl"`

	// SessionServiceURL and NLUServiceURL are the backend base URLs
	// that authorized traffic is proxied to.
	SessionServiceURL string `yaml:"session_service_url"`
	NLUServiceURL     string `yaml:"nlu_service_url"`

	// RateLimit is the per-client request budget.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds token-bucket rate limit settings.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:        8081,
			MetricsPort: 9091,
		},
		Session: session.DefaultConfig(),
		NLU: NLUConfig{
			Provider: "http",
			Timeout:  Duration(5 * time.Second),
		},
		Gateway: GatewayConfig{
			Port:              8080,
			MetricsPort:       9090,
			TokenTTL:          Duration(time.Hour),
			SessionServiceURL: "http://localhost:8081",
			NLUServiceURL:     "http://localhost:8000",
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 10,
				Burst:             20,
			},
		},
	}
}

// Load reads configuration from a YAML file. An empty path returns
// the defaults. Secrets absent from the file are taken from the
// environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.MetricsPort == 0 {
		cfg.Server.MetricsPort = def.Server.MetricsPort
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = def.Session.Backend
	}
	if cfg.Session.MaxIdle == 0 {
		cfg.Session.MaxIdle = def.Session.MaxIdle
	}
	if cfg.Session.SweepSchedule == "" {
		cfg.Session.SweepSchedule = def.Session.SweepSchedule
	}
	if cfg.NLU.Provider == "" {
		cfg.NLU.Provider = def.NLU.Provider
	}
	if cfg.NLU.Timeout == 0 {
		cfg.NLU.Timeout = def.NLU.Timeout
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = def.Gateway.Port
	}
	if cfg.Gateway.MetricsPort == 0 {
		cfg.Gateway.MetricsPort = def.Gateway.MetricsPort
	}
	if cfg.Gateway.TokenTTL == 0 {
		cfg.Gateway.TokenTTL = def.Gateway.TokenTTL
	}
	if cfg.Gateway.SessionServiceURL == "" {
		cfg.Gateway.SessionServiceURL = def.Gateway.SessionServiceURL
	}
	if cfg.Gateway.NLUServiceURL == "" {
		cfg.Gateway.NLUServiceURL = def.Gateway.NLUServiceURL
	}
	if cfg.Gateway.RateLimit.RequestsPerSecond == 0 {
		cfg.Gateway.RateLimit = def.Gateway.RateLimit
	}
}

func applyEnv(cfg *Config) {
	if cfg.Gateway.JWTSecret == "" {
		cfg.Gateway.JWTSecret = os.Getenv("JWT_SECRET")
	}
	if v := os.Getenv("SESSION_BACKEND"); v != "" {
		cfg.Session.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Session.Redis.Addr = v
	}
	if v := os.Getenv("SESSION_SERVICE_URL"); v != "" {
		cfg.Gateway.SessionServiceURL = v
	}
	if v := os.Getenv("NLU_SERVICE_URL"); v != "" {
		cfg.Gateway.NLUServiceURL = v
		if cfg.NLU.Options == nil {
			cfg.NLU.Options = map[string]any{}
		}
		if _, ok := cfg.NLU.Options["base_url"]; !ok {
			cfg.NLU.Options["base_url"] = v
		}
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Session.Backend {
	case "memory", "redis", "firestore":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if c.Session.Backend == "redis" && c.Session.Redis.Addr == "" {
		return fmt.Errorf("redis backend requires an address")
	}
	if c.Session.Backend == "firestore" && c.Session.Firestore.ProjectID == "" {
		return fmt.Errorf("firestore backend requires a project ID")
	}
	if c.NLU.Timeout < 0 {
		return fmt.Errorf("nlu timeout must not be negative")
	}
	if c.Gateway.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate limit must not be negative")
	}
	return nil
}
