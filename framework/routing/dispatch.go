package routing

import (
	"context"
	"fmt"
	"maps"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/km-arc/go-micro/framework/container"
)

type matchResult struct {
	route  *Route
	params map[string]string
}

// Match finds the first route registered for method whose pattern accepts uri.
func (r *Router) Match(method, uri string) (*Route, map[string]string, error) {
	cacheKey := method + " " + uri
	if r.cache != nil {
		if hit, ok := r.cache.Get(cacheKey); ok {
			m := hit.(matchResult)
			return m.route, maps.Clone(m.params), nil
		}
	}

	r.mu.RLock()
	routes := r.routes
	r.mu.RUnlock()

	for _, route := range routes {
		if route.Method != method {
			continue
		}
		params, ok := route.pattern.match(uri)
		if !ok {
			continue
		}
		if r.cache != nil {
			r.cache.SetDefault(cacheKey, matchResult{route: route, params: maps.Clone(params)})
		}
		return route, params, nil
	}
	return nil, nil, fmt.Errorf("%w: %s %s", ErrRouteNotFound, method, uri)
}

// Dispatch runs the first matching route for req: its middleware in declared
// order, then its handler through c.Call. Errors from middleware and the
// handler are returned unchanged.
func (r *Router) Dispatch(ctx context.Context, c *container.Container, req Request) (err error) {
	_, span := r.tracer.Start(ctx, "routing.dispatch",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method()),
			attribute.String("url.path", req.URI()),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	route, params, err := r.Match(req.Method(), req.URI())
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.String("http.route", route.Path),
		attribute.String("routing.handler", route.Handler.String()),
	)
	if ps, ok := req.(ParamSetter); ok {
		ps.SetParams(params)
	}

	chain, err := r.chain(c, route, req, params)
	if err != nil {
		return err
	}
	return chain()
}

// chain folds the route's middleware right-to-left around the handler call, so
// the first declared middleware runs first. Every name is resolved before
// anything runs.
func (r *Router) chain(c *container.Container, route *Route, req Request, params map[string]string) (Next, error) {
	named := make(map[string]any, len(params)+len(route.Extra)+2)
	for k, v := range params {
		named[k] = v
	}
	for k, v := range route.Extra {
		named[k] = v
	}
	named["container"] = c
	named["request"] = req

	next := Next(func() error {
		_, err := c.Call(route.Handler, named)
		return err
	})

	for i := len(route.Middleware) - 1; i >= 0; i-- {
		mw, err := r.resolveMiddleware(c, route.Middleware[i])
		if err != nil {
			return nil, err
		}
		inner := next
		next = func() error { return mw.Handle(c, req, inner) }
	}
	return next, nil
}
