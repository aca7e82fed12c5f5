package provider

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mealsnap/mealsnap/internal/config"
	apperrors "github.com/mealsnap/mealsnap/internal/errors"
	"golang.org/x/sync/errgroup"
)

// Registry holds the providers built at startup in configuration order. The
// provider set is read-only after construction; only the default name and the
// health snapshot change.
type Registry struct {
	names         []string
	providers     map[string]Provider
	fallbackOrder []string
	defaultName   atomic.Pointer[string]

	healthMu sync.RWMutex
	health   map[string]bool
}

// Descriptor is the public view of a registered provider.
type Descriptor struct {
	Name         string       `json:"name"`
	Type         ProviderType `json:"type"`
	Capabilities Capabilities `json:"capabilities"`
	Healthy      bool         `json:"healthy"`
	IsDefault    bool         `json:"is_default"`
}

// NewRegistry builds a registry from already constructed providers. Later
// duplicates of a name are ignored.
func NewRegistry(providers []Provider, defaultName string, fallbackOrder []string) *Registry {
	r := &Registry{
		providers:     make(map[string]Provider, len(providers)),
		fallbackOrder: fallbackOrder,
		health:        make(map[string]bool, len(providers)),
	}
	for _, p := range providers {
		if _, exists := r.providers[p.Name()]; exists {
			continue
		}
		r.names = append(r.names, p.Name())
		r.providers[p.Name()] = p
	}
	r.defaultName.Store(&defaultName)
	return r
}

// CreateAllProviders builds every enabled, credentialed entry of the bundle.
// Entries that are disabled, lack a credential or fail construction are
// skipped; the result may be empty.
func CreateAllProviders(bundle *config.ProvidersConfig) *Registry {
	if bundle == nil {
		return NewRegistry(nil, "", nil)
	}

	var providers []Provider
	for _, entry := range bundle.Entries {
		cfg := entry.Config
		if !cfg.IsEnabled() {
			slog.Info("Provider disabled, skipping", "provider", entry.Name)
			continue
		}
		if cfg.APIKey == "" {
			slog.Info("Provider has no API key, skipping", "provider", entry.Name)
			continue
		}

		p, err := CreateProvider(entry.Name, cfg.Type, &cfg)
		if err != nil {
			slog.Warn("Failed to create provider, skipping",
				"provider", entry.Name,
				"type", cfg.Type,
				"error", err)
			continue
		}

		slog.Info("Provider registered",
			"provider", entry.Name,
			"type", p.Type(),
			"capabilities", p.Capabilities().List())
		providers = append(providers, p)
	}

	return NewRegistry(providers, bundle.DefaultProvider, bundle.FallbackOrder)
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns provider names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Providers returns providers in registration order.
func (r *Registry) Providers() []Provider {
	out := make([]Provider, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.providers[name])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.names)
}

// DefaultName returns the configured default name, which may not be registered.
func (r *Registry) DefaultName() string {
	return *r.defaultName.Load()
}

// Default returns the default provider, or nil when it is unset or not registered.
func (r *Registry) Default() Provider {
	name := r.DefaultName()
	if name == "" {
		return nil
	}
	return r.providers[name]
}

// SetDefault swaps the default provider. Requests already running keep the
// provider they selected.
func (r *Registry) SetDefault(name string) error {
	if _, ok := r.providers[name]; !ok {
		return apperrors.NewNotFoundError("provider "+name+" is not registered", "PROVIDER_NOT_FOUND",
			"Pick one of the names listed by GET /api/providers.")
	}
	r.defaultName.Store(&name)
	slog.Info("Default provider changed", "provider", name)
	return nil
}

// ResolveWithFallback picks the preferred provider if registered, then the
// default, then the first fallback-order entry that is registered, then the
// first registered provider.
func (r *Registry) ResolveWithFallback(preferred string) (Provider, error) {
	if preferred != "" {
		if p, ok := r.providers[preferred]; ok {
			return p, nil
		}
	}
	if p := r.Default(); p != nil {
		return p, nil
	}
	for _, name := range r.fallbackOrder {
		if p, ok := r.providers[name]; ok {
			return p, nil
		}
	}
	if len(r.names) > 0 {
		return r.providers[r.names[0]], nil
	}
	return nil, apperrors.NewNoProviderAvailableError()
}

// ResolveByCapability returns the first registered provider with capability
// c, or nil.
func (r *Registry) ResolveByCapability(c Capability) Provider {
	for _, name := range r.names {
		if p := r.providers[name]; p.Capabilities().Has(c) {
			return p
		}
	}
	return nil
}

// CheckHealth checks every provider concurrently, each under its own timeout,
// and waits for all of them. Individual failures only mark that provider
// unhealthy.
func (r *Registry) CheckHealth(ctx context.Context, timeout time.Duration) map[string]bool {
	results := make([]bool, len(r.names))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range r.names {
		p := r.providers[name]
		g.Go(func() error {
			checkCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				checkCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			results[i] = p.HealthCheck(checkCtx)
			return nil
		})
	}
	_ = g.Wait()

	snapshot := make(map[string]bool, len(r.names))
	for i, name := range r.names {
		snapshot[name] = results[i]
		if !results[i] {
			slog.Warn("Provider health check failed", "provider", name)
		}
	}

	r.healthMu.Lock()
	r.health = snapshot
	r.healthMu.Unlock()

	return r.Health()
}

// Health returns a copy of the last health snapshot.
func (r *Registry) Health() map[string]bool {
	r.healthMu.RLock()
	defer r.healthMu.RUnlock()

	out := make(map[string]bool, len(r.health))
	for k, v := range r.health {
		out[k] = v
	}
	return out
}

// Describe lists providers in registration order for API responses.
func (r *Registry) Describe() []Descriptor {
	health := r.Health()
	def := r.DefaultName()

	out := make([]Descriptor, 0, len(r.names))
	for _, name := range r.names {
		p := r.providers[name]
		out = append(out, Descriptor{
			Name:         name,
			Type:         p.Type(),
			Capabilities: p.Capabilities(),
			Healthy:      health[name],
			IsDefault:    name == def,
		})
	}
	return out
}
