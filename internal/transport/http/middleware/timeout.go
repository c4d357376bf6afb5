package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"natours/internal/core/errs"
)

// Timeout 给请求 ctx 设置截止时间；超时且尚未写响应时报 504。d<=0 不限时
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			_ = c.Error(errs.Wrap(errs.KindTimeout, "Request timed out", ctx.Err()))
		}
	}
}
