package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// scriptedEval replays canned script results in order.
type scriptedEval struct {
	results []interface{}
	err     error
	calls   int
}

func (s *scriptedEval) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	if s.err != nil {
		return redis.NewCmdResult(nil, s.err)
	}
	i := s.calls
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	s.calls++
	return redis.NewCmdResult(s.results[i], nil)
}

func testConfig() *Config {
	return &Config{
		Enabled:         true,
		WindowDuration:  time.Minute,
		DefaultRequests: 10,
		PublicRequests:  100,
		ReserveRequests: 10,
		AdminRequests:   30,
		StreamRequests:  5,
		HealthRequests:  60,
	}
}

func TestIsAllowed(t *testing.T) {
	ctx := context.Background()

	t.Run("under the limit is allowed", func(t *testing.T) {
		eval := &scriptedEval{results: []interface{}{
			[]interface{}{int64(1), int64(3), int64(7)},
		}}
		limiter := &RateLimiter{client: eval, config: testConfig()}

		result, err := limiter.IsAllowed(ctx, "10.0.0.1", RateLimitTypeReserve)
		if err != nil {
			t.Fatalf("IsAllowed: %v", err)
		}
		if !result.Allowed {
			t.Fatal("request under the limit was denied")
		}
		if result.Remaining != 7 {
			t.Fatalf("remaining = %d, want 7", result.Remaining)
		}
	})

	t.Run("over the limit is denied", func(t *testing.T) {
		eval := &scriptedEval{results: []interface{}{
			[]interface{}{int64(0), int64(10), int64(0)},
		}}
		limiter := &RateLimiter{client: eval, config: testConfig()}

		result, err := limiter.IsAllowed(ctx, "10.0.0.1", RateLimitTypeReserve)
		if err != nil {
			t.Fatalf("IsAllowed: %v", err)
		}
		if result.Allowed {
			t.Fatal("request over the limit was allowed")
		}
		if result.Remaining != 0 {
			t.Fatalf("remaining = %d, want 0", result.Remaining)
		}
	})

	t.Run("exactly at the limit is denied", func(t *testing.T) {
		// The script stops adding entries once the window is full, so the
		// reject branch reports the same count as the last accepted call.
		eval := &scriptedEval{results: []interface{}{
			[]interface{}{int64(1), int64(10), int64(0)},
			[]interface{}{int64(0), int64(10), int64(0)},
		}}
		limiter := &RateLimiter{client: eval, config: testConfig()}

		tenth, err := limiter.IsAllowed(ctx, "10.0.0.1", RateLimitTypeReserve)
		if err != nil {
			t.Fatalf("IsAllowed: %v", err)
		}
		eleventh, err := limiter.IsAllowed(ctx, "10.0.0.1", RateLimitTypeReserve)
		if err != nil {
			t.Fatalf("IsAllowed: %v", err)
		}
		if !tenth.Allowed {
			t.Fatal("final request inside the window was denied")
		}
		if eleventh.Allowed {
			t.Fatal("first request past the window was allowed")
		}
	})

	t.Run("disabled config skips redis", func(t *testing.T) {
		eval := &scriptedEval{err: errors.New("must not be called")}
		cfg := testConfig()
		cfg.Enabled = false
		limiter := &RateLimiter{client: eval, config: cfg}

		result, err := limiter.IsAllowed(ctx, "10.0.0.1", RateLimitTypeDefault)
		if err != nil {
			t.Fatalf("IsAllowed: %v", err)
		}
		if !result.Allowed || eval.calls != 0 {
			t.Fatalf("disabled limiter hit redis (calls=%d, allowed=%v)", eval.calls, result.Allowed)
		}
	})

	t.Run("whitelisted ip skips redis", func(t *testing.T) {
		eval := &scriptedEval{err: errors.New("must not be called")}
		cfg := testConfig()
		cfg.WhitelistedIPs = []string{"192.168.1.5"}
		limiter := &RateLimiter{client: eval, config: cfg}

		result, err := limiter.IsAllowed(ctx, "192.168.1.5", RateLimitTypeDefault)
		if err != nil {
			t.Fatalf("IsAllowed: %v", err)
		}
		if !result.Allowed || eval.calls != 0 {
			t.Fatalf("whitelisted ip hit redis (calls=%d, allowed=%v)", eval.calls, result.Allowed)
		}
	})

	t.Run("eval error surfaces", func(t *testing.T) {
		eval := &scriptedEval{err: errors.New("connection refused")}
		limiter := &RateLimiter{client: eval, config: testConfig()}

		if _, err := limiter.IsAllowed(ctx, "10.0.0.1", RateLimitTypeDefault); err == nil {
			t.Fatal("expected error from failing evaluator")
		}
	})
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newEngine := func(limiter *RateLimiter) *gin.Engine {
		engine := gin.New()
		engine.Use(Middleware(limiter))
		engine.POST("/api/v1/reservations", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return engine
	}

	t.Run("denied request gets 429", func(t *testing.T) {
		eval := &scriptedEval{results: []interface{}{
			[]interface{}{int64(0), int64(10), int64(0)},
		}}
		engine := newEngine(&RateLimiter{client: eval, config: testConfig()})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", nil)
		req.RemoteAddr = "10.0.0.1:52000"
		engine.ServeHTTP(rec, req)

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != "0" {
			t.Fatalf("X-RateLimit-Remaining = %q, want 0", got)
		}
	})

	t.Run("allowed request passes with headers", func(t *testing.T) {
		eval := &scriptedEval{results: []interface{}{
			[]interface{}{int64(1), int64(1), int64(9)},
		}}
		engine := newEngine(&RateLimiter{client: eval, config: testConfig()})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", nil)
		req.RemoteAddr = "10.0.0.1:52000"
		engine.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if got := rec.Header().Get("X-RateLimit-Remaining"); got != "9" {
			t.Fatalf("X-RateLimit-Remaining = %q, want 9", got)
		}
	})

	t.Run("limiter outage fails open", func(t *testing.T) {
		eval := &scriptedEval{err: errors.New("connection refused")}
		engine := newEngine(&RateLimiter{client: eval, config: testConfig()})

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", nil)
		req.RemoteAddr = "10.0.0.1:52000"
		engine.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
	})
}

func TestGetRateLimitType(t *testing.T) {
	cases := []struct {
		path string
		want RateLimitType
	}{
		{"/health", RateLimitTypeHealth},
		{"/api/v1/admin/booths/:id/unavailable", RateLimitTypeAdmin},
		{"/api/v1/events/:eventId/stream", RateLimitTypeStream},
		{"/api/v1/reservations", RateLimitTypeReserve},
		{"/api/v1/payments/callback", RateLimitTypeReserve},
		{"/api/v1/events/:eventId/booths", RateLimitTypePublic},
		{"/metrics", RateLimitTypeDefault},
	}
	for _, tc := range cases {
		if got := getRateLimitType(tc.path); got != tc.want {
			t.Errorf("getRateLimitType(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
