package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"natours/internal/core/errs"
	"natours/internal/domain"
)

const (
	KeyUser   = "user"
	KeyUserID = "userId"
	KeyRole   = "role"
)

const msgForbidden = "You do not have permission to perform this action"

// Resolver 凭证 → 用户（签名、过期、用户存在、改密时间都在这里校验）
type Resolver interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
}

type Authenticator struct {
	Resolver   Resolver
	CookieName string
}

// token Authorization: Bearer 优先，其次 cookie
func (a *Authenticator) token(c *gin.Context) string {
	if ah := c.GetHeader("Authorization"); strings.HasPrefix(ah, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))
	}
	if a.CookieName != "" {
		if v, err := c.Cookie(a.CookieName); err == nil && v != "loggedout" {
			return v
		}
	}
	return ""
}

func (a *Authenticator) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := a.Resolver.Resolve(c.Request.Context(), a.token(c))
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		setIdentity(c, u)
		c.Next()
	}
}

// OptionalAuthenticate 页面用：任何失败都当作未登录
func (a *Authenticator) OptionalAuthenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := a.token(c); tok != "" {
			if u, err := a.Resolver.Resolve(c.Request.Context(), tok); err == nil {
				setIdentity(c, u)
			}
		}
		c.Next()
	}
}

// Authorize 必须在 Authenticate 之后；空集合只要求已登录
func Authorize(roles domain.RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)
		if !ok {
			_ = c.Error(errs.Unauthenticated("You are not logged in! Please log in to get access."))
			c.Abort()
			return
		}
		if !roles.Empty() && !roles.Has(u.Role) {
			_ = c.Error(errs.Forbidden(msgForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(KeyUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok && u != nil
}

func setIdentity(c *gin.Context, u *domain.User) {
	c.Set(KeyUser, u)
	c.Set(KeyUserID, u.ID)
	c.Set(KeyRole, string(u.Role))
}
