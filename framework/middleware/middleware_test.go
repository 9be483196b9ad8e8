package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-micro/framework/container"
	gohttp "github.com/km-arc/go-micro/framework/http"
	"github.com/km-arc/go-micro/framework/http/validation"
	"github.com/km-arc/go-micro/framework/inject"
	"github.com/km-arc/go-micro/framework/middleware"
	"github.com/km-arc/go-micro/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

// harness wires a router with one protected route and counts handler runs.
type harness struct {
	router *routing.Router
	calls  int
	token  string
}

func newHarness(t *testing.T, name string, mw routing.Middleware, path string) *harness {
	t.Helper()
	h := &harness{router: routing.New()}
	h.router.RegisterMiddleware(name, mw)
	h.router.Get(path, inject.NewFunc(func(a inject.Args) (any, error) {
		h.calls++
		h.token = a.String("token")
		c := a.Value("container").(*container.Container)
		res := container.MustResolve[*gohttp.Response](c, middleware.ResponseKey)
		return nil, res.Success("ok")
	}, inject.Named("container"), inject.Inject("token", middleware.TokenKey).WithDefault("")), name)
	return h
}

// serve dispatches r and returns the recorded response.
func (h *harness) serve(t *testing.T, r *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	c := container.New()
	res := gohttp.NewResponse(rr)
	c.Instance(middleware.ResponseKey, res)
	require.NoError(t, h.router.Dispatch(context.Background(), c, gohttp.NewRequest(r)))
	require.NoError(t, res.Send())
	return rr
}

func request(target, remote string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	r.RemoteAddr = remote
	return r
}

// ── Throttle ─────────────────────────────────────────────────────────────────

func TestThrottle_RejectsOverBurst(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "throttle", middleware.NewThrottle(0.001, 2), "/limited")

	for range 2 {
		assert.Equal(t, http.StatusOK, h.serve(t, request("/limited", "10.0.0.1:1000")).Code)
	}
	rr := h.serve(t, request("/limited", "10.0.0.1:2000"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "1000", rr.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"message":"Too Many Attempts."}`, rr.Body.String())
	assert.Equal(t, 2, h.calls)

	// Another client has its own bucket.
	assert.Equal(t, http.StatusOK, h.serve(t, request("/limited", "10.0.0.2:1000")).Code)
}

func TestThrottle_KeyFunc(t *testing.T) {
	t.Parallel()
	shared := middleware.NewThrottle(0.001, 1, middleware.WithKeyFunc(func(routing.Request) string { return "all" }))
	h := newHarness(t, "throttle", shared, "/limited")

	assert.Equal(t, http.StatusOK, h.serve(t, request("/limited", "10.0.0.1:1")).Code)
	assert.Equal(t, http.StatusTooManyRequests, h.serve(t, request("/limited", "10.0.0.2:1")).Code)
}

func TestThrottle_WithoutResponse(t *testing.T) {
	t.Parallel()
	th := middleware.NewThrottle(0.001, 1)
	next := func() error { return nil }
	req := gohttp.NewRequest(request("/", "10.0.0.1:1"))

	require.NoError(t, th.Handle(container.New(), req, next))
	assert.ErrorIs(t, th.Handle(container.New(), req, next), middleware.ErrTooManyRequests)
}

func TestThrottle_EvictsIdleLimiters(t *testing.T) {
	t.Parallel()
	th := middleware.NewThrottle(1, 1, middleware.WithIdleEviction(0, time.Nanosecond))
	next := func() error { return nil }

	require.NoError(t, th.Handle(container.New(), gohttp.NewRequest(request("/", "10.0.0.1:1")), next))
	time.Sleep(time.Millisecond)
	require.NoError(t, th.Handle(container.New(), gohttp.NewRequest(request("/", "10.0.0.2:1")), next))
	assert.Equal(t, 1, th.Tracked())
}

// ── BearerAuth ───────────────────────────────────────────────────────────────

func TestBearerAuth(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic c2VjcmV0", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"accepted", "Bearer secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, "auth", middleware.NewBearerAuth("secret", "other"), "/me")
			r := request("/me", "10.0.0.1:1")
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rr := h.serve(t, r)
			assert.Equal(t, tt.status, rr.Code)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"message":"Unauthenticated."}`, rr.Body.String())
				assert.Zero(t, h.calls)
			} else {
				assert.Equal(t, "secret", h.token)
			}
		})
	}
}

func TestBearerAuth_NoTokensRejectsEverything(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "auth", middleware.NewBearerAuth(), "/me")
	r := request("/me", "10.0.0.1:1")
	r.Header.Set("Authorization", "Bearer whatever")

	assert.Equal(t, http.StatusUnauthorized, h.serve(t, r).Code)
	assert.Empty(t, h.token)
}

func TestBearerAuth_AllowAny(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "auth", middleware.NewBearerAuth().AllowAny(), "/me")
	r := request("/me", "10.0.0.1:1")
	r.Header.Set("Authorization", "Bearer whatever")

	assert.Equal(t, http.StatusOK, h.serve(t, r).Code)
	assert.Equal(t, "whatever", h.token)

	missing := request("/me", "10.0.0.1:1")
	assert.Equal(t, http.StatusUnauthorized, h.serve(t, missing).Code)
}

func TestBearerAuth_WithoutResponse(t *testing.T) {
	t.Parallel()
	err := middleware.NewBearerAuth("secret").Handle(container.New(), gohttp.NewRequest(request("/", "")), func() error {
		t.Fatal("next must not run")
		return nil
	})
	assert.ErrorIs(t, err, middleware.ErrUnauthenticated)
}

// ── Validate ─────────────────────────────────────────────────────────────────

func TestValidateParams(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "numeric", middleware.ValidateParams(validation.Rules{"id": "required|integer|gt:0"}), "/users/{id}")

	assert.Equal(t, http.StatusOK, h.serve(t, request("/users/42", "")).Code)

	rr := h.serve(t, request("/users/abc", ""))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, []string{"The id must be an integer."}, body.Errors["id"])
	assert.Equal(t, 1, h.calls)
}

func TestValidateInput_IncludesQuery(t *testing.T) {
	t.Parallel()
	h := newHarness(t, "paged", middleware.ValidateInput(validation.Rules{"page": "required|integer"}), "/posts")

	assert.Equal(t, http.StatusOK, h.serve(t, request("/posts?page=2", "")).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, h.serve(t, request("/posts", "")).Code)

	// Params only ignores the query string.
	strict := newHarness(t, "paged", middleware.ValidateParams(validation.Rules{"page": "required"}), "/posts")
	assert.Equal(t, http.StatusUnprocessableEntity, strict.serve(t, request("/posts?page=2", "")).Code)
}

func TestValidate_WithoutResponse(t *testing.T) {
	t.Parallel()
	req := gohttp.NewRequest(request("/users/x", ""))
	req.SetParams(map[string]string{"id": "x"})

	err := middleware.ValidateParams(validation.Rules{"id": "integer"}).Handle(container.New(), req, func() error { return nil })
	var bag *validation.Errors
	require.True(t, errors.As(err, &bag))
	assert.Equal(t, "The id must be an integer.", bag.First("id"))
}
