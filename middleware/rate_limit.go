package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/flameberry/PrimePatrol/utils"
)

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// RateLimitMiddleware applies a per-IP token bucket. A non-positive limit disables it.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	var (
		mu       sync.Mutex
		limiters = map[string]*rateLimiter{}
	)
	every := rate.Every(time.Minute / time.Duration(perMinute))
	burst := max(perMinute/2, 1)

	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		for k, l := range limiters {
			if now.After(l.expires) {
				delete(limiters, k)
			}
		}
		l, ok := limiters[key]
		if !ok {
			l = &rateLimiter{limiter: rate.NewLimiter(every, burst)}
			limiters[key] = l
		}
		l.expires = now.Add(5 * time.Minute)
		return l.limiter
	}

	return func(ctx *gin.Context) {
		if !get(ctx.ClientIP()).Allow() {
			utils.Error(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
