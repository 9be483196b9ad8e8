package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"

	"github.com/km-arc/go-micro/framework/config"
	"github.com/km-arc/go-micro/framework/container"
	gohttp "github.com/km-arc/go-micro/framework/http"
	"github.com/km-arc/go-micro/framework/middleware"
	"github.com/km-arc/go-micro/framework/providers"
	"github.com/km-arc/go-micro/framework/registry"
	"github.com/km-arc/go-micro/framework/routing"
)

// Version is reported by the CLI.
const Version = "0.1.0"

// Application is the top-level application container.
// It embeds the IoC Container and ProviderRegistry so user code can
// call app.Bind(), app.Singleton(), app.Register() directly,
// like $app in Laravel's bootstrap/app.php.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	logger *slog.Logger
	static map[string]string

	bootOnce sync.Once
	bootErr  error
	mux      *chi.Mux
}

type options struct {
	config  config.Options
	catalog *registry.Catalog
	roots   []string
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures New.
type Option func(*options)

// WithConfig sets where configuration is read from.
func WithConfig(opts config.Options) Option {
	return func(o *options) { o.config = opts }
}

// WithCatalog sets the constructors registry manifests may reference.
func WithCatalog(c *registry.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithRoots adds registry roots to the configured ones.
func WithRoots(roots ...string) Option {
	return func(o *options) { o.roots = append(o.roots, roots...) }
}

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// New creates the application and registers the framework providers in
// dependency order. Nothing is resolved until Boot.
func New(opts ...Option) *Application {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	c := container.New(container.WithLogger(o.logger))
	c.Instance(providers.LoggerKey, o.logger)

	var routeOpts []routing.Option
	if o.tracer != nil {
		routeOpts = append(routeOpts, routing.WithTracer(o.tracer))
	}

	app := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
		logger:    o.logger,
		static:    make(map[string]string),
	}
	app.Register(&providers.ConfigServiceProvider{Options: o.config})
	app.Register(&providers.RegistryServiceProvider{Catalog: o.catalog, Roots: o.roots})
	app.Register(&providers.RoutingServiceProvider{Options: routeOpts})
	app.Register(&providers.MiddlewareServiceProvider{})
	return app
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) {
	a.Providers.Register(provider)
}

// Static serves dir under prefix, ahead of the router.
//
//	app.Static("/public", "./public")
func (a *Application) Static(prefix, dir string) {
	a.static[prefix] = dir
}

// Boot runs the Boot() phase on all providers, loads the configured route
// files and builds the HTTP handler. Later calls return the first result.
func (a *Application) Boot() error {
	a.bootOnce.Do(func() {
		a.Providers.Boot()

		router := a.Router()
		for _, file := range a.Config().Routing.Files {
			if err := router.LoadFile(file); err != nil {
				a.bootErr = fmt.Errorf("loading routes: %w", err)
				return
			}
		}
		a.mux = a.buildMux()
	})
	return a.bootErr
}

func (a *Application) buildMux() *chi.Mux {
	mux := chi.NewRouter()
	mux.Use(chimiddleware.RealIP)
	mux.Use(chimiddleware.RequestID)
	if a.IsDebug() {
		mux.Use(chimiddleware.Logger)
	}
	mux.Use(chimiddleware.Recoverer)

	for prefix, dir := range a.static {
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
		mux.Get(prefix+"/*", fs.ServeHTTP)
	}
	// Everything else goes to the router, which applies its own matching.
	mux.Handle("/*", http.HandlerFunc(a.dispatch))
	return mux
}

// ── Accessors ─────────────────────────────────────────────────────────────────

// Config resolves *config.Config from the container.
func (a *Application) Config() *config.Config {
	return providers.Config(a.Container)
}

// Router resolves *routing.Router from the container.
func (a *Application) Router() *routing.Router {
	return container.MustResolve[*routing.Router](a.Container, providers.RouterKey)
}

// Registry resolves *registry.Registry from the container.
func (a *Application) Registry() *registry.Registry {
	return container.MustResolve[*registry.Registry](a.Container, providers.RegistryKey)
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.Config().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.Config().App.Debug }

// ── HTTP ──────────────────────────────────────────────────────────────────────

// ServeHTTP implements http.Handler, booting on first use.
func (a *Application) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := a.Boot(); err != nil {
		a.logger.Error("boot failed", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	a.mux.ServeHTTP(w, r)
}

// dispatch runs one request through the router on a per-request fork of the
// container, so "request" and "response" never leak between requests.
func (a *Application) dispatch(w http.ResponseWriter, r *http.Request) {
	scope := a.Fork()
	req := gohttp.NewRequest(r)
	res := gohttp.NewResponse(w)
	scope.Instance("request", req)
	scope.Instance(middleware.ResponseKey, res)

	err := a.Router().Dispatch(r.Context(), scope, req)
	if err != nil && !res.Sent() {
		a.fail(res, req, err)
	}
	if res.Sent() {
		return
	}
	if err := res.Send(); err != nil {
		a.logger.Warn("response write failed", "request_id", req.ID(), "error", err)
	}
}

// fail replaces whatever the handler buffered with an error response.
func (a *Application) fail(res *gohttp.Response, req *gohttp.Request, err error) {
	if errors.Is(err, routing.ErrRouteNotFound) {
		_ = res.NotFound()
		return
	}
	a.logger.Error("request failed",
		"request_id", req.ID(),
		"method", req.Method(),
		"uri", req.URI(),
		"error", err,
	)
	if a.IsDebug() {
		_ = res.ServerError(err.Error())
		return
	}
	_ = res.ServerError()
}

// Run boots the application and serves on APP_PORT until ctx is cancelled,
// then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	if err := a.Boot(); err != nil {
		return err
	}
	cfg := a.Config()
	addr := ":" + cfg.App.Port

	if cfg.Registry.Watch {
		go func() {
			err := a.Registry().Watch(ctx, registry.DefaultDebounce, func(s registry.Stats) {
				a.logger.Info("registry rescanned", "stats", s.String())
			})
			if err != nil {
				a.logger.Error("registry watch stopped", "error", err)
			}
		}()
	}

	a.logger.Info("server starting", "app", cfg.App.Name, "addr", addr, "env", cfg.App.Env)
	return a.ListenAndServe(ctx, addr)
}

// ListenAndServe serves on addr until ctx is cancelled.
func (a *Application) ListenAndServe(ctx context.Context, addr string) error {
	if err := a.Boot(); err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
