package middleware

import (
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"natours/internal/core/errs"
)

// maxTrackedIPs 超过后整表重建，防止无限增长
const maxTrackedIPs = 10000

// RateLimit 全局令牌桶限速
func RateLimit(rps rate.Limit, burst int) gin.HandlerFunc {
	lim := rate.NewLimiter(rps, burst)
	return func(c *gin.Context) {
		if lim.Allow() {
			c.Next()
			return
		}
		_ = c.Error(errs.New(errs.KindTooManyRequests, "Too many requests, please try again later."))
		c.Abort()
	}
}

// RateLimitPerIP 每 IP 限速
func RateLimitPerIP(rps rate.Limit, burst int, msg string) gin.HandlerFunc {
	var mu sync.Mutex
	buckets := make(map[string]*rate.Limiter)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		lim, ok := buckets[ip]
		if !ok {
			if len(buckets) >= maxTrackedIPs {
				buckets = make(map[string]*rate.Limiter)
			}
			lim = rate.NewLimiter(rps, burst)
			buckets[ip] = lim
		}
		mu.Unlock()
		if lim.Allow() {
			c.Next()
			return
		}
		_ = c.Error(errs.New(errs.KindTooManyRequests, msg))
		c.Abort()
	}
}
