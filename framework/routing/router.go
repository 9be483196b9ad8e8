package routing

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/km-arc/go-micro/framework/container"
	"github.com/km-arc/go-micro/framework/inject"
)

var (
	// ErrRouteNotFound is returned by Dispatch when no route matches.
	ErrRouteNotFound = errors.New("route not found")

	// ErrMiddlewareNotFound is returned by Dispatch when a route names an
	// unregistered middleware.
	ErrMiddlewareNotFound = errors.New("middleware not found")
)

// ── Collaborator contracts ────────────────────────────────────────────────────

// Request is what the router needs from an incoming request.
type Request interface {
	URI() string
	Method() string
	Params() map[string]string
}

// ParamSetter is implemented by requests that want the matched route
// parameters before the middleware chain runs.
type ParamSetter interface {
	SetParams(params map[string]string)
}

// Next continues the middleware chain.
type Next func() error

// Middleware wraps a route. Returning without calling next ends the chain.
//
//	type Auth struct{}
//
//	func (Auth) Handle(c *container.Container, req routing.Request, next routing.Next) error {
//	    if !authorized(req) {
//	        return deny(c)
//	    }
//	    return next()
//	}
type Middleware interface {
	Handle(c *container.Container, req Request, next Next) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(c *container.Container, req Request, next Next) error

// Handle calls f.
func (f MiddlewareFunc) Handle(c *container.Container, req Request, next Next) error {
	return f(c, req, next)
}

// ── Routes ────────────────────────────────────────────────────────────────────

// Route is one registered route. Routes are immutable once added.
type Route struct {
	Method     string
	Path       string
	Handler    inject.Handler
	Middleware []string
	Extra      map[string]any

	pattern *pattern
}

// RouteInfo describes a route for listings.
type RouteInfo struct {
	Method     string
	Path       string
	Handler    string
	Middleware []string
}

// table is the state shared by a router and its groups.
type table struct {
	mu         sync.RWMutex
	routes     []*Route
	middleware map[string]any

	cache  *gocache.Cache
	tracer trace.Tracer
	logger *slog.Logger
}

// Router matches requests to routes in registration order and runs the
// matched route through its middleware chain.
type Router struct {
	*table

	prefix string
	stack  []string
}

// Option configures a Router.
type Option func(*table)

// WithTracer sets the tracer used for dispatch spans.
func WithTracer(t trace.Tracer) Option {
	return func(tb *table) {
		if t != nil {
			tb.tracer = t
		}
	}
}

// WithLogger sets the router logger.
func WithLogger(l *slog.Logger) Option {
	return func(tb *table) { tb.logger = l }
}

// WithMatchCache memoizes (method, path) lookups for ttl. The cache is
// flushed whenever a route is added.
func WithMatchCache(ttl time.Duration) Option {
	return func(tb *table) { tb.cache = gocache.New(ttl, 2*ttl) }
}

// New creates an empty router.
func New(opts ...Option) *Router {
	tb := &table{
		middleware: make(map[string]any),
		tracer:     noop.NewTracerProvider().Tracer("noop"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(tb)
	}
	return &Router{table: tb}
}

// AddRoute appends a route. The method is upper-cased and the handler is
// normalized here, once. Route parameters, extra parameters, "container" and
// "request" are passed to the handler by name on every dispatch.
//
//	r.AddRoute("/greet/{name}", http.MethodGet, "Greeter@Hello", []string{"auth"}, nil)
func (r *Router) AddRoute(path, method string, handler any, middleware []string, extra map[string]any) (*Route, error) {
	h, err := inject.ParseHandler(handler)
	if err != nil {
		return nil, fmt.Errorf("route %s %s: %w", method, path, err)
	}
	full := joinPath(r.prefix, path)
	p, err := compilePattern(full)
	if err != nil {
		return nil, err
	}

	route := &Route{
		Method:     strings.ToUpper(method),
		Path:       full,
		Handler:    h,
		Middleware: append(append([]string(nil), r.stack...), middleware...),
		Extra:      extra,
		pattern:    p,
	}

	r.mu.Lock()
	r.routes = append(r.routes, route)
	r.mu.Unlock()
	if r.cache != nil {
		r.cache.Flush()
	}
	return route, nil
}

// ── HTTP verbs ────────────────────────────────────────────────────────────────

// The verb helpers panic on an invalid pattern or handler, like chi does for
// malformed routes.

func (r *Router) Get(path string, handler any, middleware ...string) *Route {
	return r.must(r.AddRoute(path, http.MethodGet, handler, middleware, nil))
}

func (r *Router) Post(path string, handler any, middleware ...string) *Route {
	return r.must(r.AddRoute(path, http.MethodPost, handler, middleware, nil))
}

func (r *Router) Put(path string, handler any, middleware ...string) *Route {
	return r.must(r.AddRoute(path, http.MethodPut, handler, middleware, nil))
}

func (r *Router) Patch(path string, handler any, middleware ...string) *Route {
	return r.must(r.AddRoute(path, http.MethodPatch, handler, middleware, nil))
}

func (r *Router) Delete(path string, handler any, middleware ...string) *Route {
	return r.must(r.AddRoute(path, http.MethodDelete, handler, middleware, nil))
}

// Any registers handler for all common HTTP methods.
func (r *Router) Any(path string, handler any, middleware ...string) {
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"} {
		r.must(r.AddRoute(path, m, handler, middleware, nil))
	}
}

func (r *Router) must(route *Route, err error) *Route {
	if err != nil {
		panic(err)
	}
	return route
}

// ── Groups & Prefixes ─────────────────────────────────────────────────────────

// Group registers routes that share middleware.
//
//	r.Group([]string{"auth"}, func(r *routing.Router) {
//	    r.Get("/me", "Profile@Show")
//	})
func (r *Router) Group(middleware []string, fn func(r *Router)) {
	fn(&Router{
		table:  r.table,
		prefix: r.prefix,
		stack:  append(append([]string(nil), r.stack...), middleware...),
	})
}

// Prefix registers routes under a path prefix.
//
//	r.Prefix("/api", func(r *routing.Router) {
//	    r.Get("/users/{id}", "Users@Show")
//	})
func (r *Router) Prefix(prefix string, fn func(r *Router), middleware ...string) {
	fn(&Router{
		table:  r.table,
		prefix: joinPath(r.prefix, prefix),
		stack:  append(append([]string(nil), r.stack...), middleware...),
	})
}

// Resource registers the RESTful routes of a controller type:
//
//	GET    /photos        → Photos@Index
//	POST   /photos        → Photos@Store
//	GET    /photos/{id}   → Photos@Show
//	PUT    /photos/{id}   → Photos@Update
//	PATCH  /photos/{id}   → Photos@Update
//	DELETE /photos/{id}   → Photos@Destroy
func (r *Router) Resource(path, controller string, middleware ...string) {
	item := joinPath(path, "{id}")
	r.Get(path, controller+"@Index", middleware...)
	r.Post(path, controller+"@Store", middleware...)
	r.Get(item, controller+"@Show", middleware...)
	r.Put(item, controller+"@Update", middleware...)
	r.Patch(item, controller+"@Update", middleware...)
	r.Delete(item, controller+"@Destroy", middleware...)
}

// ── Middleware ────────────────────────────────────────────────────────────────

// RegisterMiddleware names a middleware. ref is a Middleware, a function with
// the MiddlewareFunc signature, or a container key resolved at dispatch time.
// Registering a name again replaces it.
func (r *Router) RegisterMiddleware(name string, ref any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware[name] = ref
}

// HasMiddleware reports whether name is registered.
func (r *Router) HasMiddleware(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.middleware[name]
	return ok
}

func (r *Router) resolveMiddleware(c *container.Container, name string) (Middleware, error) {
	r.mu.RLock()
	ref, ok := r.middleware[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMiddlewareNotFound, name)
	}

	if key, isKey := ref.(string); isKey {
		inst, err := c.Make(key)
		if err != nil {
			return nil, fmt.Errorf("middleware %s: %w", name, err)
		}
		ref = inst
	}
	switch mw := ref.(type) {
	case Middleware:
		return mw, nil
	case func(*container.Container, Request, Next) error:
		return MiddlewareFunc(mw), nil
	default:
		return nil, fmt.Errorf("middleware %s: %T is not a middleware: %w", name, ref, inject.ErrInvalidRecipe)
	}
}

// ── Introspection ─────────────────────────────────────────────────────────────

// Routes lists the registered routes in match order.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RouteInfo, 0, len(r.routes))
	for _, route := range r.routes {
		out = append(out, RouteInfo{
			Method:     route.Method,
			Path:       route.Path,
			Handler:    route.Handler.String(),
			Middleware: append([]string(nil), route.Middleware...),
		})
	}
	return out
}

// MiddlewareNames lists registered middleware names, sorted.
func (r *Router) MiddlewareNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.middleware))
	for name := range r.middleware {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
