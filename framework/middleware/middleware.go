package middleware

import (
	"errors"
	"net"

	"github.com/km-arc/go-micro/framework/container"
	gohttp "github.com/km-arc/go-micro/framework/http"
	"github.com/km-arc/go-micro/framework/routing"
)

var (
	// ErrTooManyRequests is returned by Throttle when no response is bound.
	ErrTooManyRequests = errors.New("too many requests")

	// ErrUnauthenticated is returned by BearerAuth when no response is bound.
	ErrUnauthenticated = errors.New("unauthenticated")
)

// ResponseKey is the container key the kernel binds the response under.
const ResponseKey = "response"

// response returns the bound response, or nil outside an HTTP dispatch.
func response(c *container.Container) *gohttp.Response {
	if !c.Bound(ResponseKey) {
		return nil
	}
	res, err := container.Resolve[*gohttp.Response](c, ResponseKey)
	if err != nil {
		return nil
	}
	return res
}

// clientIP returns the host part of the request's remote address when the
// request exposes one.
func clientIP(req routing.Request) string {
	r, ok := req.(interface{ IP() string })
	if !ok {
		return ""
	}
	addr := r.IP()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
