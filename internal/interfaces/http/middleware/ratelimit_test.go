package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newTestLimiter(limit int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limit, window)
	rl.now = clock.now
	return rl, clock
}

func TestRateLimiter(t *testing.T) {
	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		limiter, _ := newTestLimiter(3, time.Minute)

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("sid-1"), "request %d should be allowed", i+1)
		}
		assert.False(t, limiter.Allow("sid-1"))
		assert.Equal(t, 0, limiter.Remaining("sid-1"))
	})

	t.Run("separate limits per session", func(t *testing.T) {
		limiter, _ := newTestLimiter(1, time.Minute)

		assert.True(t, limiter.Allow("sid-a"))
		assert.False(t, limiter.Allow("sid-a"))
		assert.True(t, limiter.Allow("sid-b"))
	})

	t.Run("resets after window", func(t *testing.T) {
		limiter, clock := newTestLimiter(2, time.Minute)

		assert.True(t, limiter.Allow("sid-2"))
		assert.True(t, limiter.Allow("sid-2"))
		assert.False(t, limiter.Allow("sid-2"))

		clock.t = clock.t.Add(time.Minute + time.Second)
		assert.Equal(t, 2, limiter.Remaining("sid-2"))
		assert.True(t, limiter.Allow("sid-2"))
	})

	t.Run("refills one request per slice of the window", func(t *testing.T) {
		limiter, clock := newTestLimiter(4, time.Minute)

		for i := 0; i < 4; i++ {
			assert.True(t, limiter.Allow("sid-3"))
		}
		assert.False(t, limiter.Allow("sid-3"))

		clock.t = clock.t.Add(16 * time.Second)
		assert.Equal(t, 1, limiter.Remaining("sid-3"))
		assert.True(t, limiter.Allow("sid-3"))
		assert.False(t, limiter.Allow("sid-3"))
	})

	t.Run("cleanup drops idle sessions", func(t *testing.T) {
		limiter, clock := newTestLimiter(2, time.Minute)
		limiter.Allow("idle")
		clock.t = clock.t.Add(90 * time.Second)
		limiter.Allow("active")

		clock.t = clock.t.Add(90 * time.Second)
		limiter.cleanup()

		limiter.mu.Lock()
		defer limiter.mu.Unlock()
		assert.NotContains(t, limiter.clients, "idle")
		assert.Contains(t, limiter.clients, "active")
	})

	t.Run("run stops with its context", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Millisecond)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			limiter.Run(ctx)
			close(done)
		}()
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})
}

func TestRateLimitBySession(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(SessionIDKey, c.GetHeader("X-Test-Session"))
		c.Next()
	})
	router.Use(RateLimitBySession(limiter))
	router.POST("/checkout/paypal", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	do := func(sid string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/checkout/paypal", nil)
		req.Header.Set("X-Test-Session", sid)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := do("sid-1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", first.Header().Get("X-RateLimit-Remaining"))

	second := do("sid-1")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Contains(t, second.Body.String(), "ERR_TOO_MANY_REQUESTS")

	assert.Equal(t, http.StatusOK, do("sid-2").Code)
}
