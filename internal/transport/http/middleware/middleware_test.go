package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"natours/internal/core/errs"
	"natours/internal/domain"
)

func init() { gin.SetMode(gin.TestMode) }

type mapResolver map[string]*domain.User

func (m mapResolver) Resolve(_ context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, errs.Unauthenticated("You are not logged in! Please log in to get access.")
	}
	if u, ok := m[token]; ok {
		return u, nil
	}
	return nil, errs.New(errs.KindInvalidCredential, "Invalid token. Please log in again.")
}

type body struct {
	Code int            `json:"code"`
	Msg  string         `json:"msg"`
	Data map[string]any `json:"data"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) body {
	t.Helper()
	var b body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	return b
}

func newEngine(verbose bool, l *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(ErrorReporter(l, verbose, false))
	return r
}

func authEngine() *gin.Engine {
	a := &Authenticator{
		Resolver: mapResolver{
			"admin-token": {ID: "a1", Role: domain.RoleAdmin},
			"user-token":  {ID: "u1", Role: domain.RoleUser},
		},
		CookieName: "jwt",
	}
	r := newEngine(false, zap.NewNop())
	who := func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, u.ID+":"+c.GetString(KeyRole))
	}
	r.GET("/me", a.Authenticate(), who)
	r.GET("/admin", a.Authenticate(), Authorize(domain.Roles(domain.RoleAdmin)), who)
	r.GET("/page", a.OptionalAuthenticate(), who)
	r.GET("/bare", Authorize(nil), who)
	return r
}

func do(r http.Handler, path string, setup func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(tok string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+tok) }
}

func cookie(tok string) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "jwt", Value: tok}) }
}

func TestAuthenticate(t *testing.T) {
	r := authEngine()

	w := do(r, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "You are not logged in! Please log in to get access.", decode(t, w).Msg)

	w = do(r, "/me", bearer("bogus"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "/me", cookie("user-token"))
	assert.Equal(t, "u1:user", w.Body.String())

	// header 优先于 cookie
	w = do(r, "/me", func(req *http.Request) {
		bearer("admin-token")(req)
		cookie("user-token")(req)
	})
	assert.Equal(t, "a1:admin", w.Body.String())
}

func TestAuthorize(t *testing.T) {
	r := authEngine()

	w := do(r, "/admin", bearer("user-token"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	b := decode(t, w)
	assert.Equal(t, http.StatusForbidden, b.Code)
	assert.Equal(t, "You do not have permission to perform this action", b.Msg)

	w = do(r, "/admin", bearer("admin-token"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, "/bare", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuthenticate(t *testing.T) {
	r := authEngine()
	assert.Equal(t, "anonymous", do(r, "/page", nil).Body.String())
	assert.Equal(t, "anonymous", do(r, "/page", cookie("bogus")).Body.String())
	assert.Equal(t, "anonymous", do(r, "/page", cookie("loggedout")).Body.String())
	assert.Equal(t, "u1:user", do(r, "/page", cookie("user-token")).Body.String())
}

func TestErrorReporter(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	failWith := func(err error) gin.HandlerFunc {
		return func(c *gin.Context) { _ = c.Error(err); c.Abort() }
	}

	r := newEngine(false, zap.New(core))
	r.GET("/api/boom", failWith(errors.New("db exploded")))
	r.GET("/api/missing", failWith(errs.NotFound("No document found with that ID")))
	r.GET("/api/invalid", failWith(errs.Validation("Invalid input data.", map[string]string{"name": "name is required"})))

	w := do(r, "/api/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Something went very wrong!", decode(t, w).Msg)
	assert.Equal(t, 1, logs.Len())

	w = do(r, "/api/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No document found with that ID", decode(t, w).Msg)

	w = do(r, "/api/invalid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	b := decode(t, w)
	assert.Equal(t, map[string]any{"name": "name is required"}, b.Data["errors"])
	// 4xx 不记 error 日志
	assert.Equal(t, 1, logs.Len())

	dev := newEngine(true, zap.NewNop())
	dev.GET("/api/boom", failWith(errors.New("db exploded")))
	b = decode(t, do(dev, "/api/boom", nil))
	assert.Equal(t, "db exploded", b.Msg)
	assert.Equal(t, "Unexpected", b.Data["kind"])
}

func TestRecovery(t *testing.T) {
	r := newEngine(false, zap.NewNop())
	r.Use(Recovery(zap.NewNop()))
	r.GET("/api/panic", func(*gin.Context) { panic("kaboom") })

	w := do(r, "/api/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Something went very wrong!", decode(t, w).Msg)
}

func TestRateLimitPerIP(t *testing.T) {
	r := newEngine(false, zap.NewNop())
	r.Use(RateLimitPerIP(rate.Every(time.Hour), 2, "Too many requests from this IP, please try again in an hour!"))
	r.GET("/api/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	from := func(ip string) func(*http.Request) {
		return func(req *http.Request) { req.RemoteAddr = ip + ":1234" }
	}
	assert.Equal(t, http.StatusNoContent, do(r, "/api/x", from("10.0.0.1")).Code)
	assert.Equal(t, http.StatusNoContent, do(r, "/api/x", from("10.0.0.1")).Code)
	w := do(r, "/api/x", from("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Too many requests from this IP, please try again in an hour!", decode(t, w).Msg)
	assert.Equal(t, http.StatusNoContent, do(r, "/api/x", from("10.0.0.2")).Code)
}

func TestTimeout(t *testing.T) {
	r := newEngine(false, zap.NewNop())
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/api/slow", func(c *gin.Context) { <-c.Request.Context().Done() })

	w := do(r, "/api/slow", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "Request timed out", decode(t, w).Msg)
}

func TestRequestIDAndSecureHeaders(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), SecureHeaders())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	w := do(r, "/x", func(req *http.Request) { req.Header.Set(KeyRequestID, "abc") })
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(KeyRequestID))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = do(r, "/x", nil)
	assert.Len(t, w.Body.String(), 36)
}
