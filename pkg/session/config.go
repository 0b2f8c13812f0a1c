package session

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can use values like
// "30m" or "24h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config selects and configures the session store backend from YAML.
type Config struct {
	// Backend specifies the storage backend type.
	// Options: "memory", "redis", "firestore".
	// Default: "memory".
	Backend string `yaml:"backend"`

	// Redis holds redis backend settings.
	Redis RedisConfig `yaml:"redis"`

	// Firestore holds firestore backend settings.
	Firestore FirestoreConfig `yaml:"firestore"`

	// MaxIdle is how long an active session may sit idle before the
	// expiry sweep retires it. Default: 24h.
	MaxIdle Duration `yaml:"max_idle"`

	// SweepSchedule is the cron spec for the expiry sweep.
	// Default: "@hourly".
	SweepSchedule string `yaml:"sweep_schedule"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Backend:       "memory",
		MaxIdle:       Duration(24 * time.Hour),
		SweepSchedule: "@hourly",
	}
}

// Open builds the configured store backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.Redis)
	case "firestore":
		return NewFirestoreStore(ctx, cfg.Firestore)
	default:
		return nil, fmt.Errorf("unknown session store backend %q", cfg.Backend)
	}
}
