package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"natours/internal/core/errs"
	"natours/internal/domain"
	mdw "natours/internal/transport/http/middleware"
	resp "natours/internal/transport/http/response"
)

type EZ struct {
	g    *gin.RouterGroup
	auth *mdw.Authenticator
}

func New(g *gin.RouterGroup, auth *mdw.Authenticator) EZ { return EZ{g: g, auth: auth} }

// Group 子路由
func (e EZ) Group(path string, handlers ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, handlers...), auth: e.auth}
}

func (e EZ) Router() *gin.RouterGroup { return e.g }

// Guard 单个接口的访问控制；Roles 非空时隐含 Auth
type Guard struct {
	Off   bool
	Auth  bool
	Roles domain.RoleSet
}

func (e EZ) chain(gd Guard, h ...gin.HandlerFunc) []gin.HandlerFunc {
	if !gd.Auth && gd.Roles.Empty() {
		return h
	}
	return append([]gin.HandlerFunc{e.auth.Authenticate(), mdw.Authorize(gd.Roles)}, h...)
}

func (e EZ) handle(method, path string, gd Guard, h ...gin.HandlerFunc) {
	e.g.Handle(method, path, e.chain(gd, h...)...)
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindURI   Binder = "uri"   // 从路由参数绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param / c.PostForm 取
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string         // "GET" | "POST" | "PATCH" | "DELETE"
	Path    string         // 例："/login"、"/checkout-session/:tourId"
	Binder  Binder         // 绑定方式
	Auth    bool           // 是否要求登录
	Roles   domain.RoleSet // 限定角色（可选，隐含 Auth）
	Status  int            // 成功状态码，默认 200
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction 非 CRUD 接口一行注册；错误统一交给 ErrorReporter
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		case BindURI:
			bindErr = c.ShouldBindUri(&in)
		default: // BindNone: 不绑定
		}
		if bindErr != nil {
			fail(c, bindError(bindErr))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			fail(c, err)
			return
		}
		// handler 自己写了响应（文件、重定向）
		if c.Writer.Written() || c.IsAborted() {
			return
		}
		if status == http.StatusNoContent {
			c.Status(status)
			return
		}
		c.JSON(status, resp.OK(out))
	}
	e.handle(strings.ToUpper(a.Method), a.Path, Guard{Auth: a.Auth, Roles: a.Roles}, h)
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// decodeJSON 只解码不校验；空 body 视为 {}
func decodeJSON(c *gin.Context, v any) error {
	if c.Request.Body == nil {
		return nil
	}
	err := json.NewDecoder(c.Request.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return bindError(err)
	}
	return nil
}

// bindError 把绑定阶段的错误归为 400；字段校验错误原样交给 errs.Classify
func bindError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return err
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return errs.BadRequest("Request body too large")
	}
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return errs.Validation(fmt.Sprintf("Invalid %s: expected %s.", ute.Field, ute.Type), map[string]string{ute.Field: "invalid type"})
	}
	return errs.Wrap(errs.KindBadRequest, "Invalid request body", err)
}
