package ez

import (
	"context"
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"natours/internal/core/errs"
	"natours/internal/core/query"
	"natours/internal/domain"
	mdw "natours/internal/transport/http/middleware"
	resp "natours/internal/transport/http/response"
	"natours/pkg/utils"
)

const msgNotOwner = "You do not have permission to perform this action"

// Repository Crud 需要的存储能力；repo.Store[T] 及其包装都满足
type Repository[T any] interface {
	FindByID(ctx context.Context, id string, expand ...string) (*T, error)
	FindMany(ctx context.Context, pre map[string]any, spec query.Spec) ([]T, error)
	Create(ctx context.Context, m *T) error
	Save(ctx context.Context, m *T) error
	Delete(ctx context.Context, id string) error
}

// Hooks 显式的生命周期步骤
type Hooks[T any] struct {
	BeforeSave  func(ctx context.Context, m *T, creating bool) error // 校验之前
	AfterCommit func(ctx context.Context, m *T) error                // create/update 落库之后
	AfterDelete func(ctx context.Context, m *T) error
}

// Scope 嵌套路由与归属
type Scope struct {
	OwnerField   string // 结构体字段名，例如 "UserID"；创建时总是用当前用户覆盖
	ParentField  string // 结构体字段名，例如 "TourID"；缺省时从路由参数补齐
	ParentParam  string // 路由参数名
	ParentColumn string // 列名，嵌套列表的前置过滤
	OwnerBypass  domain.RoleSet
}

type CrudConfig[T any] struct {
	EZ    EZ
	Path  string
	Repo  Repository[T]
	Hooks Hooks[T]
	Scope Scope

	Expand []string // Get 时额外展开的关联

	// Protected 派生字段（结构体字段名），客户端不能写：更新时恢复原值，创建时由 BeforeSave 赋初值
	Protected []string

	Create Guard
	List   Guard
	Get    Guard
	Update Guard
	Delete Guard

	IDGen func() string // 默认 utils.NewID
}

// Resource 各动作的 handler，便于别名路由复用
type Resource[T any] struct {
	cfg CrudConfig[T]
}

// 反射 & 工具
func stringField(obj any, name string) (*string, bool) {
	if name == "" {
		return nil, false
	}
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, false
	}
	fv := v.Elem().FieldByName(name)
	if !fv.IsValid() || fv.Kind() != reflect.String || !fv.CanSet() {
		return nil, false
	}
	return fv.Addr().Interface().(*string), true
}

func readField(obj any, name string) string {
	if p, ok := stringField(obj, name); ok {
		return *p
	}
	return ""
}

func writeField(obj any, name, val string) {
	if p, ok := stringField(obj, name); ok {
		*p = val
	}
}

// snapshot 复制 names 对应字段的当前值，返回的函数把它们写回
func snapshot(obj any, names []string) (restore func()) {
	v := reflect.ValueOf(obj).Elem()
	saved := make(map[string]reflect.Value, len(names))
	for _, n := range names {
		fv := v.FieldByName(n)
		if !fv.IsValid() || !fv.CanSet() {
			continue
		}
		cp := reflect.New(fv.Type()).Elem()
		cp.Set(fv)
		saved[n] = cp
	}
	return func() {
		for n, val := range saved {
			v.FieldByName(n).Set(val)
		}
	}
}

func zeroFields(obj any, names []string) {
	v := reflect.ValueOf(obj).Elem()
	for _, n := range names {
		if fv := v.FieldByName(n); fv.IsValid() && fv.CanSet() {
			fv.Set(reflect.Zero(fv.Type()))
		}
	}
}

// Crud 注册 create/list/get/update/delete，返回各 handler
func Crud[T any](cfg CrudConfig[T]) *Resource[T] {
	if cfg.IDGen == nil {
		cfg.IDGen = utils.NewID
	}
	r := &Resource[T]{cfg: cfg}
	e, p := cfg.EZ, cfg.Path

	if !cfg.Create.Off {
		e.handle(http.MethodPost, p, cfg.Create, r.CreateHandler)
	}
	if !cfg.List.Off {
		e.handle(http.MethodGet, p, cfg.List, r.ListHandler)
	}
	if !cfg.Get.Off {
		e.handle(http.MethodGet, p+"/:id", cfg.Get, r.GetHandler)
	}
	if !cfg.Update.Off {
		e.handle(http.MethodPatch, p+"/:id", cfg.Update, r.UpdateHandler)
	}
	if !cfg.Delete.Off {
		e.handle(http.MethodDelete, p+"/:id", cfg.Delete, r.DeleteHandler)
	}
	return r
}

// inject 父 id 缺省时取路由参数；owner 总是取当前用户
func (r *Resource[T]) inject(c *gin.Context, m *T) error {
	sc := r.cfg.Scope
	if sc.ParentField != "" && readField(m, sc.ParentField) == "" {
		writeField(m, sc.ParentField, c.Param(sc.ParentParam))
	}
	if sc.OwnerField != "" {
		u, ok := mdw.CurrentUser(c)
		if !ok {
			return errs.Unauthenticated("You are not logged in! Please log in to get access.")
		}
		writeField(m, sc.OwnerField, u.ID)
	}
	return nil
}

// checkOwner 非 OwnerBypass 角色只能改自己的记录
func (r *Resource[T]) checkOwner(c *gin.Context, m *T) error {
	sc := r.cfg.Scope
	if sc.OwnerField == "" {
		return nil
	}
	u, ok := mdw.CurrentUser(c)
	if !ok {
		return errs.Unauthenticated("You are not logged in! Please log in to get access.")
	}
	if sc.OwnerBypass.Has(u.Role) || readField(m, sc.OwnerField) == u.ID {
		return nil
	}
	return errs.Forbidden(msgNotOwner)
}

func (r *Resource[T]) CreateHandler(c *gin.Context) {
	ctx := c.Request.Context()
	m := new(T)
	if err := decodeJSON(c, m); err != nil {
		fail(c, err)
		return
	}
	// 主键总是服务端生成
	writeField(m, "ID", r.cfg.IDGen())
	zeroFields(m, r.cfg.Protected)
	if err := r.inject(c, m); err != nil {
		fail(c, err)
		return
	}
	if err := r.save(ctx, m, true); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp.OK(m))
}

func (r *Resource[T]) ListHandler(c *gin.Context) {
	spec := query.Parse(c.Request.URL.Query())
	var pre map[string]any
	if sc := r.cfg.Scope; sc.ParentColumn != "" {
		if v := c.Param(sc.ParentParam); v != "" {
			pre = map[string]any{sc.ParentColumn: v}
		}
	}
	items, err := r.cfg.Repo.FindMany(c.Request.Context(), pre, spec)
	if err != nil {
		fail(c, err)
		return
	}
	list, err := query.Project(items, spec)
	if err != nil {
		fail(c, errs.Internal("project list failed", err))
		return
	}
	c.JSON(http.StatusOK, resp.OK(resp.Page[any]{
		Results: len(items), Page: spec.Page, Limit: spec.Limit, List: list,
	}))
}

func (r *Resource[T]) GetHandler(c *gin.Context) {
	m, err := r.cfg.Repo.FindByID(c.Request.Context(), c.Param("id"), r.cfg.Expand...)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(m))
}

// UpdateHandler 合并提交的字段后重新校验；id、owner、parent 和 Protected 不允许修改
func (r *Resource[T]) UpdateHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	m, err := r.cfg.Repo.FindByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := r.checkOwner(c, m); err != nil {
		fail(c, err)
		return
	}
	sc := r.cfg.Scope
	owner, parent := readField(m, sc.OwnerField), readField(m, sc.ParentField)
	restore := snapshot(m, r.cfg.Protected)
	if err := decodeJSON(c, m); err != nil {
		fail(c, err)
		return
	}
	writeField(m, "ID", id)
	writeField(m, sc.OwnerField, owner)
	writeField(m, sc.ParentField, parent)
	restore()

	if err := r.save(ctx, m, false); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.OK(m))
}

func (r *Resource[T]) DeleteHandler(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	m, err := r.cfg.Repo.FindByID(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := r.checkOwner(c, m); err != nil {
		fail(c, err)
		return
	}
	if err := r.cfg.Repo.Delete(ctx, id); err != nil {
		fail(c, err)
		return
	}
	if h := r.cfg.Hooks.AfterDelete; h != nil {
		if err := h(ctx, m); err != nil {
			fail(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// save BeforeSave → 校验 → 落库 → AfterCommit
func (r *Resource[T]) save(ctx context.Context, m *T, creating bool) error {
	hk := r.cfg.Hooks
	if hk.BeforeSave != nil {
		if err := hk.BeforeSave(ctx, m, creating); err != nil {
			return err
		}
	}
	if err := binding.Validator.ValidateStruct(m); err != nil {
		return err
	}
	var err error
	if creating {
		err = r.cfg.Repo.Create(ctx, m)
	} else {
		err = r.cfg.Repo.Save(ctx, m)
	}
	if err != nil {
		return err
	}
	if hk.AfterCommit != nil {
		return hk.AfterCommit(ctx, m)
	}
	return nil
}
