package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/bodyfit/internal/auth"
)

func newLimitedRouter(limiter *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if user := c.GetHeader("X-Test-User"); user != "" {
			c.Request = c.Request.WithContext(auth.WithUserID(c.Request.Context(), user))
		}
		c.Next()
	})
	router.POST("/analyze", limiter.Middleware(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func post(router *gin.Engine, user string) int {
	req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
	req.Header.Set("X-Test-User", user)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp.Code
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(1, 2, zap.NewNop()))

	for i := 0; i < 2; i++ {
		if code := post(router, "alice"); code != http.StatusOK {
			t.Fatalf("request %d: expected status %d, got %d", i, http.StatusOK, code)
		}
	}
	if code := post(router, "alice"); code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, code)
	}
}

func TestRateLimiterIsPerUser(t *testing.T) {
	router := newLimitedRouter(NewRateLimiter(1, 1, zap.NewNop()))

	if code := post(router, "alice"); code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, code)
	}
	if code := post(router, "bob"); code != http.StatusOK {
		t.Fatalf("expected a separate bucket for bob, got %d", code)
	}
	if code := post(router, "alice"); code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d, got %d", http.StatusTooManyRequests, code)
	}
}

func TestRateLimiterEvictsIdleBuckets(t *testing.T) {
	limiter := NewRateLimiter(60, 1, zap.NewNop())
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return clock }

	for i := 0; i < 1000; i++ {
		limiter.limiterFor(fmt.Sprintf("ip-%d", i))
	}
	if got := len(limiter.buckets); got != 1000 {
		t.Fatalf("expected 1000 buckets, got %d", got)
	}

	clock = clock.Add(30 * time.Second)
	limiter.limiterFor("ip-7")

	clock = clock.Add(40 * time.Second)
	limiter.limiterFor("fresh")

	if got := len(limiter.buckets); got != 2 {
		t.Fatalf("expected idle buckets to be evicted, %d remain", got)
	}
	if _, ok := limiter.buckets["ip-7"]; !ok {
		t.Fatal("recently used bucket was evicted")
	}
}
