package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxLimiters     = 10000
	sweepInterval   = 5 * time.Minute
	idleLimiterTTL  = 15 * time.Minute
	rateLimitedBody = `{"error":"Rate limit exceeded"}`
)

// KeyFunc picks the bucket a request is counted against
type KeyFunc func(r *http.Request) string

// ClientIP keys requests by remote host, dropping the port. Run it behind
// chi's RealIP middleware so proxied requests resolve to the caller.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per key with a token bucket each
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	key     KeyFunc
	now     func() time.Time
	stop    context.CancelFunc
}

// RateLimiterOption configures a RateLimiter
type RateLimiterOption func(*RateLimiter)

// WithKeyFunc replaces ClientIP as the bucket key
func WithKeyFunc(fn KeyFunc) RateLimiterOption {
	return func(rl *RateLimiter) { rl.key = fn }
}

// WithLimiterClock sets the clock used for idle eviction
func WithLimiterClock(now func() time.Time) RateLimiterOption {
	return func(rl *RateLimiter) { rl.now = now }
}

// NewRateLimiter allows perSecond requests on average per key with the given
// burst. Idle buckets are swept in the background until ctx ends or Stop is
// called.
func NewRateLimiter(ctx context.Context, perSecond float64, burst int, opts ...RateLimiterOption) *RateLimiter {
	ctx, cancel := context.WithCancel(ctx)
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		key:     ClientIP,
		now:     time.Now,
		stop:    cancel,
	}
	for _, opt := range opts {
		opt(rl)
	}

	go rl.sweepLoop(ctx)
	return rl
}

func (rl *RateLimiter) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep drops idle buckets, then the least recently seen ones while the map
// is still over capacity.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idleLimiterTTL)
	for k, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, k)
		}
	}
	if len(rl.buckets) <= maxLimiters {
		return
	}

	keys := make([]string, 0, len(rl.buckets))
	for k := range rl.buckets {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		return rl.buckets[a].lastSeen.Compare(rl.buckets[b].lastSeen)
	})
	for _, k := range keys[:len(keys)-maxLimiters/2] {
		delete(rl.buckets, k)
	}
}

// Len reports how many buckets are tracked
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// Stop ends the background sweep
func (rl *RateLimiter) Stop() {
	rl.stop()
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = rl.now()
	return b.limiter
}

// Middleware rejects requests over the limit with 429 and a Retry-After hint
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.limiterFor(rl.key(r))

			if !limiter.Allow() {
				w.Header().Set("Retry-After", retryAfter(rl.limit))
				writeJSONError(w, rateLimitedBody, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func retryAfter(limit rate.Limit) string {
	if limit <= 0 || limit == rate.Inf {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(limit))))
}
