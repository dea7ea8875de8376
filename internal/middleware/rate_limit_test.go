package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serve(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Burst(t *testing.T) {
	rl := NewRateLimiter(t.Context(), 1, 2)
	defer rl.Stop()
	handler := rl.Middleware()(okHandler())

	assert.Equal(t, http.StatusOK, serve(handler, "192.168.1.1:1234").Code)
	assert.Equal(t, http.StatusOK, serve(handler, "192.168.1.1:1234").Code)

	w := serve(handler, "192.168.1.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.JSONEq(t, rateLimitedBody, w.Body.String())
}

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(t.Context(), 1, 1)
	defer rl.Stop()
	handler := rl.Middleware()(okHandler())

	assert.Equal(t, http.StatusOK, serve(handler, "192.168.1.1:1234").Code)
	assert.Equal(t, http.StatusOK, serve(handler, "192.168.1.2:1234").Code)

	t.Run("port_is_ignored", func(t *testing.T) {
		assert.Equal(t, http.StatusTooManyRequests, serve(handler, "192.168.1.1:9999").Code)
	})
}

func TestRateLimiter_CustomKey(t *testing.T) {
	rl := NewRateLimiter(t.Context(), 1, 1, WithKeyFunc(func(r *http.Request) string { return "shared" }))
	defer rl.Stop()
	handler := rl.Middleware()(okHandler())

	assert.Equal(t, http.StatusOK, serve(handler, "10.0.0.1:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, "10.0.0.2:1").Code)
	assert.Equal(t, 1, rl.Len())
}

func TestRateLimiter_Sweep(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(t.Context(), 10, 10, WithLimiterClock(func() time.Time { return now }))
	defer rl.Stop()

	t.Run("drops_idle_buckets", func(t *testing.T) {
		rl.limiterFor("old")
		now = now.Add(idleLimiterTTL + time.Second)
		rl.limiterFor("fresh")

		rl.sweep()
		assert.Equal(t, 1, rl.Len())
	})

	t.Run("caps_tracked_buckets", func(t *testing.T) {
		for i := range maxLimiters + 10 {
			now = now.Add(time.Millisecond)
			rl.limiterFor(fmt.Sprintf("client-%d", i))
		}

		rl.sweep()
		assert.Equal(t, maxLimiters/2, rl.Len())
		_, newest := rl.buckets[fmt.Sprintf("client-%d", maxLimiters+9)]
		assert.True(t, newest, "most recent bucket survives")
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	assert.Equal(t, "203.0.113.7", ClientIP(req))

	req.RemoteAddr = "203.0.113.7"
	assert.Equal(t, "203.0.113.7", ClientIP(req))
}
