package container

import (
	"fmt"
	"sync"

	"github.com/km-arc/go-micro/framework/inject"
)

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related registrations.
//
// Register binds services. Boot runs after every provider is registered, so it
// is safe to resolve other bindings there.
//
//	type RoutesProvider struct{ container.BaseProvider }
//
//	func (p *RoutesProvider) Register(app *container.Container) {
//	    app.Singleton("router", func(c *container.Container) any {
//	        return routing.New()
//	    })
//	}
//
//	func (p *RoutesProvider) Boot(app *container.Container) {
//	    router := container.MustResolve[*routing.Router](app, "router")
//	    router.Get("/health", health)
//	}
type ServiceProvider interface {
	// Register binds services into the container.
	// Do NOT resolve other bindings here; use Boot() for that.
	Register(app *Container)

	// Boot is called after all providers are registered.
	Boot(app *Container)

	// Provides lists the keys a deferred provider registers.
	Provides() []string

	// IsDeferred reports whether the provider loads lazily, on the first
	// Make of one of its Provides() keys.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Boot, Provides and
// IsDeferred.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container)  {}
func (p *BaseProvider) Provides() []string { return nil }
func (p *BaseProvider) IsDeferred() bool   { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred providers.
type ProviderRegistry struct {
	mu         sync.Mutex
	app        *Container
	eager      []ServiceProvider
	deferred   map[string]ServiceProvider // abstract → provider
	registered map[ServiceProvider]bool
	loaded     map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		deferred:   make(map[string]ServiceProvider),
		registered: make(map[ServiceProvider]bool),
		loaded:     make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and calls its Register() method unless deferred.
// Registering the same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) {
	r.mu.Lock()
	if r.registered[provider] {
		r.mu.Unlock()
		return
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		for _, abstract := range provider.Provides() {
			r.deferred[abstract] = provider
		}
		r.mu.Unlock()
		r.interceptDeferred(provider)
		return
	}

	r.eager = append(r.eager, provider)
	r.loaded[provider] = true
	booted := r.booted
	r.mu.Unlock()

	provider.Register(r.app)
	if booted {
		provider.Boot(r.app)
	}
}

// interceptDeferred binds a placeholder for each deferred key. The first Make
// registers the provider for real, then resolves the real binding on the
// application container. A fork taken before that still holds the
// placeholder, so every call goes through the application container.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) {
	for _, abstract := range provider.Provides() {
		abs := abstract
		var placeholder *binding
		r.app.Bind(abs, ContainerFactory(func(_ *Container, _ inject.Args) (any, error) {
			r.load(provider)
			if r.app.binding(abs) == placeholder {
				return nil, fmt.Errorf("container: deferred provider did not bind [%s]: %w", abs, ErrSymbolNotFound)
			}
			return r.app.Make(abs)
		}))
		placeholder = r.app.binding(abs)
	}
}

// load registers a deferred provider once.
func (r *ProviderRegistry) load(provider ServiceProvider) {
	r.mu.Lock()
	if r.loaded[provider] {
		r.mu.Unlock()
		return
	}
	r.loaded[provider] = true
	for _, abs := range provider.Provides() {
		delete(r.deferred, abs)
	}
	booted := r.booted
	r.mu.Unlock()

	provider.Register(r.app)
	if booted {
		provider.Boot(r.app)
	}
}

// Boot calls Boot() on all eager providers. Later calls are no-ops.
func (r *ProviderRegistry) Boot() {
	r.mu.Lock()
	if r.booted {
		r.mu.Unlock()
		return
	}
	r.booted = true
	eager := append([]ServiceProvider(nil), r.eager...)
	r.mu.Unlock()

	for _, provider := range eager {
		provider.Boot(r.app)
	}
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.booted
}

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ServiceProvider(nil), r.eager...)
}

// Deferred lists the keys whose providers have not loaded yet.
func (r *ProviderRegistry) Deferred() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.deferred))
	for k := range r.deferred {
		out = append(out, k)
	}
	return out
}
