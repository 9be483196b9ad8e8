package providers

import (
	"log/slog"

	"github.com/km-arc/go-micro/framework/config"
	"github.com/km-arc/go-micro/framework/container"
	"github.com/km-arc/go-micro/framework/middleware"
	"github.com/km-arc/go-micro/framework/registry"
	"github.com/km-arc/go-micro/framework/routing"
)

// Container keys bound by the framework providers.
const (
	ConfigKey   = "config"
	SettingsKey = "settings"
	LoggerKey   = "logger"
	RegistryKey = "registry"
	RouterKey   = "router"

	ThrottleKey = "middleware.throttle"
	AuthKey     = "middleware.auth"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration and binds it.
//
// Bound abstracts:
//   - "config"        → *config.Config
//   - "configuration" → alias of "config"
//   - "settings"      → *config.Settings
//
// Laravel equivalent:
//
//	// Illuminate\Foundation\Bootstrap\LoadConfiguration
//	$app->singleton('config', fn() => new Repository($items));
type ConfigServiceProvider struct {
	container.BaseProvider
	Options config.Options
}

func (p *ConfigServiceProvider) Register(app *container.Container) {
	opts := p.Options
	app.Singleton(ConfigKey, func(c *container.Container) any {
		cfg, err := config.New(opts)
		if err != nil {
			logger(c).Error("config: falling back to defaults", "error", err)
			return config.Defaults()
		}
		return cfg
	})
	_ = app.Alias("configuration", ConfigKey)
	app.Singleton(SettingsKey, func(c *container.Container) any {
		return Config(c).Settings()
	})
}

// ── RegistryServiceProvider ───────────────────────────────────────────────────

// RegistryServiceProvider builds the type registry from the configured roots
// and installs it as the container's fallback resolver on boot.
//
// Bound abstracts:
//   - "registry" → *registry.Registry
type RegistryServiceProvider struct {
	container.BaseProvider
	Catalog *registry.Catalog
	Roots   []string // added after config's registry.roots
}

func (p *RegistryServiceProvider) Register(app *container.Container) {
	catalog := p.Catalog
	if catalog == nil {
		catalog = registry.NewCatalog()
	}
	extra := p.Roots
	app.Singleton(RegistryKey, func(c *container.Container) any {
		log := logger(c)
		reg := registry.New(catalog, registry.WithLogger(log))
		roots := append(append([]string(nil), Config(c).Registry.Roots...), extra...)
		for _, root := range roots {
			if err := reg.AddRoot(root); err != nil {
				log.Warn("registry: skipping root", "root", root, "error", err)
			}
		}
		if err := reg.Scan(); err != nil {
			log.Error("registry: scan failed", "error", err)
		}
		return reg
	})
}

func (p *RegistryServiceProvider) Boot(app *container.Container) {
	reg, err := container.Resolve[*registry.Registry](app, RegistryKey)
	if err != nil {
		logger(app).Error("registry: not available", "error", err)
		return
	}
	app.SetResolver(reg)
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the router.
//
// Bound abstracts:
//   - "router" → *routing.Router
//
// Laravel equivalent:
//
//	// Illuminate\Routing\RoutingServiceProvider
//	$app->singleton('router', fn($app) => new Router($app['events'], $app));
type RoutingServiceProvider struct {
	container.BaseProvider
	Options []routing.Option
}

func (p *RoutingServiceProvider) Register(app *container.Container) {
	extra := p.Options
	app.Singleton(RouterKey, func(c *container.Container) any {
		opts := []routing.Option{routing.WithLogger(logger(c))}
		if ttl := Config(c).Routing.MatchCache; ttl > 0 {
			opts = append(opts, routing.WithMatchCache(ttl))
		}
		return routing.New(append(opts, extra...)...)
	})
}

// ── MiddlewareServiceProvider ─────────────────────────────────────────────────

// MiddlewareServiceProvider binds the stock middleware and registers them on
// the router by container key, so "throttle" and "auth" can be named in
// routes and route files.
//
// Bound abstracts:
//   - "middleware.throttle" → *middleware.Throttle
//   - "middleware.auth"     → *middleware.BearerAuth
type MiddlewareServiceProvider struct {
	container.BaseProvider
}

func (p *MiddlewareServiceProvider) Register(app *container.Container) {
	app.Singleton(ThrottleKey, func(c *container.Container) any {
		t := Config(c).Throttle
		return middleware.NewThrottle(t.Rate, t.Burst)
	})
	app.Singleton(AuthKey, func(c *container.Container) any {
		cfg := Config(c).Auth
		auth := middleware.NewBearerAuth(cfg.Tokens...)
		if cfg.AllowAny {
			auth.AllowAny()
		}
		return auth
	})
}

func (p *MiddlewareServiceProvider) Boot(app *container.Container) {
	router, err := container.Resolve[*routing.Router](app, RouterKey)
	if err != nil {
		logger(app).Error("middleware: router not available", "error", err)
		return
	}
	// Built at boot so a bad setting fails before the first request.
	for name, key := range map[string]string{"throttle": ThrottleKey, "auth": AuthKey} {
		if _, err := app.Make(key); err != nil {
			logger(app).Error("middleware: build failed", "name", name, "error", err)
			continue
		}
		router.RegisterMiddleware(name, key)
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

// Config resolves the bound configuration, or the defaults when none is bound.
func Config(c *container.Container) *config.Config {
	cfg, err := container.Resolve[*config.Config](c, ConfigKey)
	if err != nil {
		return config.Defaults()
	}
	return cfg
}

func logger(c *container.Container) *slog.Logger {
	if !c.Bound(LoggerKey) {
		return slog.Default()
	}
	l, err := container.Resolve[*slog.Logger](c, LoggerKey)
	if err != nil {
		return slog.Default()
	}
	return l
}
