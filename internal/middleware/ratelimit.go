package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/chmc/wbms-api/internal/handler"
	apperrors "github.com/chmc/wbms-api/pkg/errors"
)

// RateLimiter keeps one token bucket per client IP. Buckets of clients idle
// for longer than the TTL are evicted.
type RateLimiter struct {
	limiters *cache.Cache
	rps      rate.Limit
	burst    int
	ttl      time.Duration
}

func NewRateLimiter(rps float64, burst int, idleTTL time.Duration) *RateLimiter {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &RateLimiter{
		limiters: cache.New(idleTTL, idleTTL),
		rps:      rate.Limit(rps),
		burst:    burst,
		ttl:      idleTTL,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.limiters.Get(key); ok {
		l := v.(*rate.Limiter)
		rl.limiters.Set(key, l, rl.ttl)
		return l
	}
	l := rate.NewLimiter(rl.rps, rl.burst)
	if err := rl.limiters.Add(key, l, rl.ttl); err != nil {
		// lost a race with another request from the same client
		if v, ok := rl.limiters.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			handler.RespondError(c, apperrors.TooManyRequests())
			return
		}
		c.Next()
	}
}
