// Package middleware provides the stock route middleware: request throttling,
// bearer-token authentication and route-parameter validation.
//
// Each middleware implements routing.Middleware. When the dispatching
// container has a *http.Response bound under "response" (the kernel binds one
// per request), a rejected request is answered on it and the chain ends
// without an error. Without a response the rejection is returned as an error
// so callers outside HTTP still see it.
//
//	router.RegisterMiddleware("throttle", middleware.NewThrottle(10, 20))
//	router.RegisterMiddleware("auth", middleware.NewBearerAuth("secret"))
//	router.RegisterMiddleware("numeric-id", middleware.ValidateParams(validation.Rules{"id": "integer"}))
package middleware
