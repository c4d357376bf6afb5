package middleware

import (
	"fmt"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"natours/internal/core/errs"
)

// Recovery panic 记录堆栈后交给 ErrorReporter 输出 500
func Recovery(l *zap.Logger) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(l, true, func(c *gin.Context, rec any) {
		_ = c.Error(errs.Internal("panic recovered", fmt.Errorf("%v", rec)))
		c.Abort()
	})
}
