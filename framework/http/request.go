package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const maxMemory = 32 << 20 // 32 MB

// Request wraps *http.Request with Laravel-style helpers and carries the
// route parameters the router matched.
type Request struct {
	raw *http.Request
	id  string

	mu     sync.RWMutex
	params map[string]string
}

// NewRequest wraps a standard *http.Request. The request ID is taken from
// chi's RequestID middleware when present, otherwise a UUID is generated.
func NewRequest(r *http.Request) *Request {
	id := middleware.GetReqID(r.Context())
	if id == "" {
		id = uuid.NewString()
	}
	return &Request{raw: r, id: id, params: map[string]string{}}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// Context returns the request context.
func (req *Request) Context() context.Context { return req.raw.Context() }

// ID returns the request ID.
func (req *Request) ID() string { return req.id }

// ── Routing ───────────────────────────────────────────────────────────────────

// URI returns the request path with its query string.
func (req *Request) URI() string {
	if req.raw.URL.RawQuery == "" {
		return req.raw.URL.Path
	}
	return req.raw.URL.Path + "?" + req.raw.URL.RawQuery
}

// Method returns the HTTP method.
func (req *Request) Method() string { return req.raw.Method }

// Path returns the URL path.
func (req *Request) Path() string { return req.raw.URL.Path }

// Params returns a copy of the matched route parameters.
func (req *Request) Params() map[string]string {
	req.mu.RLock()
	defer req.mu.RUnlock()
	return maps.Clone(req.params)
}

// SetParams records the matched route parameters.
func (req *Request) SetParams(params map[string]string) {
	req.mu.Lock()
	defer req.mu.Unlock()
	req.params = maps.Clone(params)
}

// RouteParam returns a single route parameter.
//
//	id := req.RouteParam("id")
func (req *Request) RouteParam(key string) string {
	req.mu.RLock()
	defer req.mu.RUnlock()
	return req.params[key]
}

// ── Binding ───────────────────────────────────────────────────────────────────

// Bind decodes the request body into v.
// Supports JSON and application/x-www-form-urlencoded / multipart.
func (req *Request) Bind(v any) error {
	ct := req.ContentType()

	switch {
	case strings.Contains(ct, "application/json"):
		return req.bindJSON(v)
	case strings.Contains(ct, "multipart/form-data"):
		if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
			return err
		}
		return bindForm(req.raw.MultipartForm.Value, v)
	default:
		if err := req.raw.ParseForm(); err != nil {
			return err
		}
		return bindForm(map[string][]string(req.raw.PostForm), v)
	}
}

func (req *Request) bindJSON(v any) error {
	defer req.raw.Body.Close()
	body, err := io.ReadAll(req.raw.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	return json.Unmarshal(body, v)
}

// bindForm maps form values onto a struct through its json tags.
func bindForm(values map[string][]string, v any) error {
	m := make(map[string]any, len(values))
	for k, vals := range values {
		if len(vals) == 1 {
			m[k] = vals[0]
		} else {
			m[k] = vals
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// ── Input helpers ─────────────────────────────────────────────────────────────

// Input returns a single input value (query string OR post body).
func (req *Request) Input(key string, fallback ...string) string {
	_ = req.raw.ParseForm()
	v := req.raw.FormValue(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// All returns all input as a flat map: query, post body, then route
// parameters, later sources winning.
func (req *Request) All() map[string]string {
	_ = req.raw.ParseForm()
	out := make(map[string]string)
	for k, v := range req.raw.Form {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	req.mu.RLock()
	for k, v := range req.params {
		out[k] = v
	}
	req.mu.RUnlock()
	return out
}

// Has returns true if the key is present and non-empty.
func (req *Request) Has(key string) bool {
	return req.Input(key) != ""
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// BearerToken extracts the token from Authorization: Bearer <token>.
func (req *Request) BearerToken() string {
	auth := req.raw.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// IP returns the client IP (respects RealIP middleware).
func (req *Request) IP() string {
	return req.raw.RemoteAddr
}

// ContentType returns the Content-Type header value.
func (req *Request) ContentType() string {
	return req.raw.Header.Get("Content-Type")
}

// IsJSON returns true when the request expects a JSON response.
func (req *Request) IsJSON() bool {
	return strings.Contains(req.raw.Header.Get("Accept"), "application/json") ||
		strings.Contains(req.ContentType(), "application/json")
}

// ── File uploads ──────────────────────────────────────────────────────────────

// File returns an uploaded file by field name.
func (req *Request) File(key string) (*multipart.FileHeader, error) {
	if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	_, fh, err := req.raw.FormFile(key)
	return fh, err
}

// Files returns all uploaded files for a field.
func (req *Request) Files(key string) ([]*multipart.FileHeader, error) {
	if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	if req.raw.MultipartForm == nil {
		return nil, errors.New("no multipart form")
	}
	return req.raw.MultipartForm.File[key], nil
}
