package middleware

import (
	"crypto/subtle"

	"github.com/km-arc/go-micro/framework/container"
	"github.com/km-arc/go-micro/framework/routing"
)

// TokenKey is the container key an accepted bearer token is bound under, so
// handlers can declare a "token" parameter injected from it.
const TokenKey = "auth.token"

// BearerAuth rejects requests without an acceptable
// "Authorization: Bearer <token>" header.
type BearerAuth struct {
	tokens   [][]byte
	allowAny bool
}

// NewBearerAuth accepts the given tokens. With no tokens every request is
// rejected unless AllowAny is called.
func NewBearerAuth(tokens ...string) *BearerAuth {
	a := &BearerAuth{}
	for _, t := range tokens {
		if t != "" {
			a.tokens = append(a.tokens, []byte(t))
		}
	}
	return a
}

// AllowAny accepts any non-empty bearer token in addition to the configured
// ones.
func (a *BearerAuth) AllowAny() *BearerAuth {
	a.allowAny = true
	return a
}

// Handle implements routing.Middleware.
func (a *BearerAuth) Handle(c *container.Container, req routing.Request, next routing.Next) error {
	token := bearerToken(req)
	if token == "" || !a.accepts(token) {
		res := response(c)
		if res == nil {
			return ErrUnauthenticated
		}
		return res.Unauthorized()
	}
	c.Instance(TokenKey, token)
	return next()
}

func (a *BearerAuth) accepts(token string) bool {
	if a.allowAny {
		return true
	}
	for _, t := range a.tokens {
		if subtle.ConstantTimeCompare(t, []byte(token)) == 1 {
			return true
		}
	}
	return false
}

func bearerToken(req routing.Request) string {
	if r, ok := req.(interface{ BearerToken() string }); ok {
		return r.BearerToken()
	}
	return ""
}
