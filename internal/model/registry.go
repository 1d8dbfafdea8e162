package model

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var ErrUnknownProvider = errors.New("unknown provider")

// ProviderFactory builds a provider from its API key.
type ProviderFactory func(ctx context.Context, apiKey string) (Provider, error)

// Registry maps configured provider names onto the factories that build them.
// Names are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ProviderFactory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]ProviderFactory)}
}

func (r *Registry) Register(name string, factory ProviderFactory) {
	key := normalizeProviderName(name)
	if r == nil || factory == nil || key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key] = factory
}

func (r *Registry) Build(ctx context.Context, name, apiKey string) (Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownProvider, name)
	}
	r.mu.RLock()
	factory, ok := r.factories[normalizeProviderName(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (known: %s)", ErrUnknownProvider, name, strings.Join(r.Names(), ", "))
	}

	provider, err := factory(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("build %s provider: %w", normalizeProviderName(name), err)
	}
	if provider == nil {
		return nil, fmt.Errorf("build %s provider: factory returned nothing", normalizeProviderName(name))
	}
	return provider, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func normalizeProviderName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
