// Package routing matches (method, path) pairs to routes and runs each matched
// route through its named middleware before calling the handler via the
// container.
//
// Routes are tried in registration order and the first match wins, so
// "/user/{id}" registered before "/user/active" also serves "/user/active".
//
//	r := routing.New()
//	r.RegisterMiddleware("auth", "middleware.bearer")
//	r.Get("/greet/{name}", "Greeter@Hello", "auth")
//
//	err := r.Dispatch(ctx, c, req)
//	if errors.Is(err, routing.ErrRouteNotFound) {
//	    // 404
//	}
package routing
