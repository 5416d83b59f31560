package llm

import (
	"fmt"
	"sort"
	"sync"
)

// Settings carries provider credentials resolved from configuration.
type Settings struct {
	APIKey  string
	Model   string
	BaseURL string
}

// defines a function that creates a new provider instance
type ProviderFactory func(Settings) (Provider, error)

var (
	mu        sync.RWMutex
	providers = make(map[string]ProviderFactory)
)

// registers a provider factory with the given name
func RegisterProvider(name string, factory ProviderFactory) {
	mu.Lock()
	defer mu.Unlock()
	providers[name] = factory
}

// creates a new provider instance based on the given name
func NewProvider(name string, settings Settings) (Provider, error) {
	mu.RLock()
	factory, exists := providers[name]
	mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	return factory(settings)
}

// Registered lists provider names in sorted order.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
