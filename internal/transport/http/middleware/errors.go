package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"natours/internal/core/errs"
	resp "natours/internal/transport/http/response"
)

const msgUnexpected = "Something went very wrong!"

// ErrorReporter 唯一的错误输出阶段，必须挂在最外层。
// verbose 为 true 时 Unexpected 错误也原样输出；pages 为 true 时非 /api 的 GET 渲染 error 模板。
func ErrorReporter(l *zap.Logger, verbose, pages bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 {
			return
		}
		raw := c.Errors.Last().Err
		e := errs.Classify(raw)
		status := e.Kind.Status()
		httpErrors.WithLabelValues(e.Kind.String()).Inc()

		if status >= http.StatusInternalServerError {
			l.Error("request failed",
				zap.String("rid", c.GetString(KeyRequestID)),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.String("kind", e.Kind.String()),
				zap.Error(raw),
			)
		}
		if c.Writer.Written() {
			return
		}

		msg := e.Msg
		if msg == "" {
			msg = raw.Error()
		}
		if !e.Kind.Operational() && !verbose {
			msg = msgUnexpected
		}

		if pages && c.Request.Method == http.MethodGet && !strings.HasPrefix(c.Request.URL.Path, "/api") {
			if !e.Kind.Operational() && !verbose {
				msg = "Please try again later."
			}
			c.HTML(status, "error", gin.H{"Title": "Something went wrong!", "Msg": msg})
			return
		}

		data := gin.H{}
		if len(e.Fields) > 0 {
			data["errors"] = e.Fields
		}
		if verbose {
			data["kind"] = e.Kind.String()
			if e.Err != nil {
				data["error"] = e.Err.Error()
			}
		}
		c.JSON(status, resp.Fail(status, msg, data))
	}
}
