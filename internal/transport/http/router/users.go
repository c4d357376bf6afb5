package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"natours/internal/domain"
	"natours/internal/service"
	httpez "natours/internal/transport/http/ez"
	mdw "natours/internal/transport/http/middleware"
)

var admins = domain.Roles(domain.RoleAdmin)

type authOut struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type forgotIn struct {
	Email string `json:"email" binding:"required,email"`
}

type message struct {
	Message string `json:"message"`
}

// sendSession 登录类接口统一：写 cookie，body 里带 token 和用户
func sendSession(c *gin.Context, d Deps, s *service.Session) authOut {
	jc := d.Config.JWT
	maxAge := jc.CookieTTLDays * 24 * 3600
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(jc.CookieName, s.Token, maxAge, "/", "", !d.Config.App.Dev(), true)
	return authOut{Token: s.Token, User: s.User}
}

func currentID(c *gin.Context) string { return c.GetString(mdw.KeyUserID) }

func mountUsers(api httpez.EZ, d Deps) {
	users := api.Group("/users")
	as, us := d.Auth, d.Users

	httpez.RegisterAction(users, httpez.Action[service.SignupInput, authOut]{
		Method: http.MethodPost, Path: "/signup", Binder: httpez.BindJSON, Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.SignupInput) (authOut, error) {
			s, err := as.Signup(c.Request.Context(), *in)
			if err != nil {
				return authOut{}, err
			}
			return sendSession(c, d, s), nil
		},
	})

	// 缺字段时由 service 给出固定提示，这里不做绑定校验
	httpez.RegisterAction(users, httpez.Action[service.LoginInput, authOut]{
		Method: http.MethodPost, Path: "/login", Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *service.LoginInput) (authOut, error) {
			s, err := as.Login(c.Request.Context(), *in)
			if err != nil {
				return authOut{}, err
			}
			return sendSession(c, d, s), nil
		},
	})

	httpez.RegisterAction(users, httpez.Action[struct{}, struct{}]{
		Method: http.MethodGet, Path: "/logout", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			c.SetCookie(d.Config.JWT.CookieName, "loggedout", int((10 * time.Second).Seconds()), "/", "", !d.Config.App.Dev(), true)
			return struct{}{}, nil
		},
	})

	httpez.RegisterAction(users, httpez.Action[forgotIn, message]{
		Method: http.MethodPost, Path: "/forgotPassword", Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *forgotIn) (message, error) {
			if err := as.ForgotPassword(c.Request.Context(), in.Email); err != nil {
				return message{}, err
			}
			return message{Message: "Token sent to email!"}, nil
		},
	})

	httpez.RegisterAction(users, httpez.Action[service.PasswordInput, authOut]{
		Method: http.MethodPatch, Path: "/resetPassword/:token", Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *service.PasswordInput) (authOut, error) {
			s, err := as.ResetPassword(c.Request.Context(), c.Param("token"), *in)
			if err != nil {
				return authOut{}, err
			}
			return sendSession(c, d, s), nil
		},
	})

	// 以下需要登录
	httpez.RegisterAction(users, httpez.Action[service.UpdatePasswordInput, authOut]{
		Method: http.MethodPatch, Path: "/updateMyPassword", Binder: httpez.BindJSON, Auth: true,
		Handler: func(c *gin.Context, in *service.UpdatePasswordInput) (authOut, error) {
			s, err := as.UpdatePassword(c.Request.Context(), currentID(c), *in)
			if err != nil {
				return authOut{}, err
			}
			return sendSession(c, d, s), nil
		},
	})

	httpez.RegisterAction(users, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet, Path: "/me", Binder: httpez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			return us.Me(c.Request.Context(), currentID(c))
		},
	})

	httpez.RegisterAction(users, httpez.Action[service.UpdateMeInput, *domain.User]{
		Method: http.MethodPatch, Path: "/updateMe", Binder: httpez.BindJSON, Auth: true,
		Handler: func(c *gin.Context, in *service.UpdateMeInput) (*domain.User, error) {
			return us.UpdateMe(c.Request.Context(), currentID(c), *in)
		},
	})

	httpez.RegisterAction(users, httpez.Action[struct{}, struct{}]{
		Method: http.MethodDelete, Path: "/deleteMe", Binder: httpez.BindNone, Auth: true, Status: http.StatusNoContent,
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			return struct{}{}, us.DeleteMe(c.Request.Context(), currentID(c))
		},
	})

	// 管理员；创建用户只能走 /signup
	httpez.RegisterAction(users, httpez.Action[struct{}, struct{}]{
		Method: http.MethodPost, Path: "", Binder: httpez.BindNone, Roles: admins,
		Handler: func(*gin.Context, *struct{}) (struct{}, error) {
			return struct{}{}, us.RefuseCreate()
		},
	})
	httpez.Crud(httpez.CrudConfig[domain.User]{
		EZ:     users,
		Repo:   d.Stores.Users,
		Create: httpez.Guard{Off: true},
		List:   httpez.Guard{Roles: admins},
		Get:    httpez.Guard{Roles: admins},
		Update: httpez.Guard{Roles: admins},
		Delete: httpez.Guard{Roles: admins},
	})
}
