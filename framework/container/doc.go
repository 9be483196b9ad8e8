// Package container provides the service container and the ServiceProvider
// system.
//
// # Overview
//
// The container maps keys to recipes and resolves them into instances. A key
// is a string, an *inject.Type (keyed by its fully-qualified name) or any Go
// value (keyed by TypeKey). Keys with no binding fall back to the registry
// configured with WithResolver.
//
// Because Go has no runtime constructor reflection, types describe their
// parameters explicitly through inject.Param lists and the container
// satisfies each one in priority order: call-site override, injected
// dependency, default, catch-all, and finally inject.Unresolved.
//
// # Bindings
//
//	// Factory: new instance every Make()
//	c.Bind("mailer", mailerType)
//
//	// Singleton: created once, reused until Reload()
//	c.Singleton("cache", func(c *container.Container) any {
//	    return cache.New()
//	})
//
//	// Pre-built value
//	c.Instance("config", cfg)
//
//	// Registry name with parameter overrides
//	c.Bind("Home", "app.controllers.home.Home", container.Params{"title": "Hi"})
//
//	// Alias
//	c.Alias("store", "cache")
//
// # Resolving
//
//	raw, err := c.Make("cache")
//	cache, err := container.Resolve[*Cache](c, "cache")
//	fresh, err := c.Make("cache", container.ForceBuild())
//
// # Calling handlers
//
//	out, err := c.Call("Home@Index", map[string]any{"name": "Ada"})
//
// # Service Providers
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&AppServiceProvider{})
//	registry.Boot()
//
// A deferred provider is registered on the first Make of one of the keys its
// Provides() method lists.
package container
