package nlu

import (
	"fmt"
	"sync"
)

// Factory builds a classifier from provider-specific configuration.
type Factory func(config map[string]any) (Classifier, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a classifier factory under a provider name.
// Providers register themselves in init().
func RegisterFactory(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// New builds the named classifier provider.
func New(name string, config map[string]any) (Classifier, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown classifier provider %q (have %v)", name, Providers())
	}
	return factory(config)
}

// Providers lists the registered provider names.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}

func stringOption(config map[string]any, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}
