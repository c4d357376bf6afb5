package router

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"natours/internal/core/config"
	"natours/internal/domain"
	"natours/internal/service"
	httpez "natours/internal/transport/http/ez"
	mdw "natours/internal/transport/http/middleware"
	resp "natours/internal/transport/http/response"
)

const msgTooManyFromIP = "Too many requests from this IP, please try again in an hour!"

// Stores 通用 CRUD 使用的存储；生产环境是 repo 包里的各个仓库
type Stores struct {
	Users    httpez.Repository[domain.User]
	Tours    httpez.Repository[domain.Tour]
	Reviews  httpez.Repository[domain.Review]
	Bookings httpez.Repository[domain.Booking]
}

type Deps struct {
	Log    *zap.Logger
	Config *config.Config
	Stores Stores

	Auth     *service.AuthService
	Users    *service.UserService
	Tours    *service.TourService
	Reviews  *service.ReviewService
	Bookings *service.BookingService
}

// NewAPIEngine 页面 + /api/v1 + webhook
func NewAPIEngine(d Deps) *gin.Engine {
	cfg := d.Config
	r := gin.New()
	setViews(r)

	// ErrorReporter 必须最先挂，其余中间件的错误都交给它输出
	r.Use(
		mdw.ErrorReporter(d.Log, cfg.App.Dev(), true),
		mdw.Recovery(d.Log),
		mdw.RequestID(),
		mdw.SecureHeaders(),
		cors.Default(),
		mdw.Metrics(),
		mdw.AccessLog(d.Log),
		mdw.RateLimit(rate.Limit(cfg.Limits.RPS), cfg.Limits.Burst),
		mdw.ConcurrencyLimit(cfg.Limits.MaxConcurrent),
		mdw.MaxBodyBytes(cfg.Limits.MaxBodyBytes),
		mdw.Timeout(time.Duration(cfg.Limits.TimeoutSec)*time.Second),
	)

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", mdw.MetricsHandler())

	// 支付回调要原始 body 验签，不能走 JSON 绑定
	r.POST("/webhook-checkout", func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			fail(c, err)
			return
		}
		if err := d.Bookings.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, resp.OK(gin.H{"received": true}))
	})

	authn := &mdw.Authenticator{Resolver: d.Auth, CookieName: cfg.JWT.CookieName}

	mountViews(r, authn, d)

	// 前缀
	apiGroup := r.Group("/api/v1")
	if n := cfg.Limits.PerIPPerHour; n > 0 {
		apiGroup.Use(mdw.RateLimitPerIP(rate.Every(time.Hour/time.Duration(n)), n, msgTooManyFromIP))
	}
	api := httpez.New(apiGroup, authn)

	mountTours(api, d)
	mountUsers(api, d)
	mountReviews(api.Group("/reviews"), d)
	mountBookings(api, d)

	r.NoRoute(func(c *gin.Context) { fail(c, errNoRoute(c)) })
	return r
}
