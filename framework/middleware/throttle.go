package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/km-arc/go-micro/framework/container"
	"github.com/km-arc/go-micro/framework/routing"
)

// Throttle applies a token-bucket rate limit per client key.
type Throttle struct {
	limit rate.Limit
	burst int
	key   func(routing.Request) string

	cleanupInterval time.Duration
	maxIdle         time.Duration

	mu          sync.Mutex
	limiters    map[string]*limiterEntry
	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ThrottleOption configures a Throttle.
type ThrottleOption func(*Throttle)

// WithKeyFunc sets how requests are grouped. The default is the client IP,
// with every request sharing one bucket when the IP is unknown.
func WithKeyFunc(fn func(routing.Request) string) ThrottleOption {
	return func(t *Throttle) { t.key = fn }
}

// WithIdleEviction removes limiters idle longer than maxIdle, checking at
// most once per interval.
func WithIdleEviction(interval, maxIdle time.Duration) ThrottleOption {
	return func(t *Throttle) {
		t.cleanupInterval = interval
		t.maxIdle = maxIdle
	}
}

// NewThrottle allows perSecond requests per second per key, with bursts of
// up to burst requests.
func NewThrottle(perSecond float64, burst int, opts ...ThrottleOption) *Throttle {
	t := &Throttle{
		limit:           rate.Limit(perSecond),
		burst:           burst,
		key:             clientIP,
		cleanupInterval: time.Minute,
		maxIdle:         5 * time.Minute,
		limiters:        make(map[string]*limiterEntry),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Handle implements routing.Middleware.
func (t *Throttle) Handle(c *container.Container, req routing.Request, next routing.Next) error {
	if t.allow(t.key(req)) {
		return next()
	}

	res := response(c)
	if res == nil {
		return ErrTooManyRequests
	}
	res.SetHeader("Retry-After", t.retryAfter())
	return res.TooManyRequests()
}

func (t *Throttle) allow(key string) bool {
	t.mu.Lock()
	now := time.Now()

	// Lazy cleanup of idle limiters.
	if now.Sub(t.lastCleanup) >= t.cleanupInterval {
		for k, e := range t.limiters {
			if now.Sub(e.lastSeen) > t.maxIdle {
				delete(t.limiters, k)
			}
		}
		t.lastCleanup = now
	}

	entry, ok := t.limiters[key]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[key] = entry
	}
	entry.lastSeen = now
	t.mu.Unlock()

	return entry.limiter.AllowN(now, 1)
}

// Tracked returns the number of live limiters.
func (t *Throttle) Tracked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}

// retryAfter is the wait for one token, in whole seconds, at least 1.
func (t *Throttle) retryAfter() string {
	if t.limit <= 0 {
		return "60"
	}
	secs := math.Ceil(1 / float64(t.limit))
	return strconv.Itoa(max(1, int(secs)))
}
