package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/example/bodyfit/internal/auth"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per caller.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
	logger    *zap.Logger
}

// NewRateLimiter allows perMinute requests per caller with the given burst.
func NewRateLimiter(perMinute, burst int, logger *zap.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	interval := time.Minute / time.Duration(max(perMinute, 1))
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(interval),
		burst:   burst,
		// a bucket untouched for this long is full again, dropping it loses nothing
		idleTTL: max(interval*time.Duration(burst), time.Minute),
		now:     time.Now,
		logger:  logger,
	}
}

func (r *RateLimiter) limiterFor(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= r.idleTTL {
		r.evictIdle(now)
		r.lastSweep = now
	}

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (r *RateLimiter) evictIdle(now time.Time) {
	for key, b := range r.buckets {
		if now.Sub(b.lastSeen) >= r.idleTTL {
			delete(r.buckets, key)
		}
	}
}

// Middleware limits by authenticated user, falling back to the client IP.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := auth.GetUserID(c.Request.Context()); ok {
			key = "user:" + userID
		}

		if !r.limiterFor(key).Allow() {
			r.logger.Warn("too many requests", zap.String("key", key), zap.String("path", c.FullPath()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
