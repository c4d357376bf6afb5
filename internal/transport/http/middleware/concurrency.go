package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"natours/internal/core/errs"
)

// ConcurrencyLimit 限制同时在处理的请求数（保护 DB 下游）
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	if max <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if err := sem.Acquire(c.Request.Context(), 1); err != nil {
			_ = c.Error(errs.Wrap(errs.KindUnavailable, "Server is busy, please try again later.", err))
			c.Abort()
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
