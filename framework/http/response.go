package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/km-arc/go-micro/framework/http/validation"
)

// ErrAlreadySent is returned by Send once the response has been written.
var ErrAlreadySent = errors.New("response already sent")

// ── Response ──────────────────────────────────────────────────────────────────

// Response buffers a status, headers and a body, and writes them to the
// underlying ResponseWriter on Send. Handlers obtain it from the container
// under "response".
type Response struct {
	w http.ResponseWriter

	mu     sync.Mutex
	status int
	header http.Header
	body   []byte
	sent   bool
}

// NewResponse wraps a ResponseWriter. The status defaults to 200.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w, status: http.StatusOK, header: make(http.Header)}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// SetStatusCode sets the status written on Send.
func (res *Response) SetStatusCode(code int) *Response {
	res.mu.Lock()
	defer res.mu.Unlock()
	res.status = code
	return res
}

// SetHeader sets a header written on Send.
func (res *Response) SetHeader(name, value string) *Response {
	res.mu.Lock()
	defer res.mu.Unlock()
	res.header.Set(name, value)
	return res
}

// SetBody replaces the body.
func (res *Response) SetBody(body string) *Response {
	res.mu.Lock()
	defer res.mu.Unlock()
	res.body = []byte(body)
	return res
}

// StatusCode returns the buffered status.
func (res *Response) StatusCode() int {
	res.mu.Lock()
	defer res.mu.Unlock()
	return res.status
}

// Body returns the buffered body.
func (res *Response) Body() string {
	res.mu.Lock()
	defer res.mu.Unlock()
	return string(res.body)
}

// Sent reports whether Send has written the response.
func (res *Response) Sent() bool {
	res.mu.Lock()
	defer res.mu.Unlock()
	return res.sent
}

// Send writes the buffered response. Calling it twice is an error.
func (res *Response) Send() error {
	res.mu.Lock()
	defer res.mu.Unlock()
	if res.sent {
		return ErrAlreadySent
	}
	res.sent = true

	h := res.w.Header()
	for k, v := range res.header {
		h[k] = v
	}
	if h.Get("Content-Length") == "" {
		h.Set("Content-Length", strconv.Itoa(len(res.body)))
	}
	res.w.WriteHeader(res.status)
	_, err := res.w.Write(res.body)
	return err
}

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON buffers a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	res.SetHeader("Content-Type", "application/json")
	res.SetStatusCode(status)
	res.mu.Lock()
	res.body = append(b, '\n')
	res.mu.Unlock()
	return nil
}

// Success buffers 200 JSON: {"data": v}
func (res *Response) Success(v any) error {
	return res.JSON(http.StatusOK, envelope{"data": v})
}

// Created buffers 201 JSON: {"data": v}
func (res *Response) Created(v any) error {
	return res.JSON(http.StatusCreated, envelope{"data": v})
}

// NoContent buffers 204 with no body.
func (res *Response) NoContent() {
	res.SetStatusCode(http.StatusNoContent).SetBody("")
}

// Error buffers a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) error {
	return res.JSON(status, envelope{"message": message})
}

// Unauthorized buffers 401.
func (res *Response) Unauthorized(message ...string) error {
	return res.Error(http.StatusUnauthorized, first(message, "Unauthenticated."))
}

// Forbidden buffers 403.
func (res *Response) Forbidden(message ...string) error {
	return res.Error(http.StatusForbidden, first(message, "This action is unauthorized."))
}

// NotFound buffers 404.
func (res *Response) NotFound(message ...string) error {
	return res.Error(http.StatusNotFound, first(message, "Not found."))
}

// TooManyRequests buffers 429.
func (res *Response) TooManyRequests(message ...string) error {
	return res.Error(http.StatusTooManyRequests, first(message, "Too Many Attempts."))
}

// ServerError buffers 500.
func (res *Response) ServerError(message ...string) error {
	return res.Error(http.StatusInternalServerError, first(message, "Server Error."))
}

// ValidationError buffers 422 with the standard error bag.
//
//	res.ValidationError(v.Errors())
func (res *Response) ValidationError(errs *validation.Errors) error {
	return res.JSON(http.StatusUnprocessableEntity, errs)
}

// Redirect buffers a redirect to url.
//
//	res.Redirect(http.StatusFound, "/dashboard")
func (res *Response) Redirect(status int, url string) {
	res.SetHeader("Location", url).SetStatusCode(status)
}

// RedirectTo buffers a 302 redirect.
func (res *Response) RedirectTo(url string) {
	res.Redirect(http.StatusFound, url)
}

// RedirectBack redirects to the Referer, or to fallback without one.
func (res *Response) RedirectBack(req *Request, fallback string) {
	if ref := req.Header("Referer"); ref != "" {
		res.RedirectTo(ref)
		return
	}
	res.RedirectTo(fallback)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
