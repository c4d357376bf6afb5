package query

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"natours/internal/core/errs"
)

var timeType = reflect.TypeOf(time.Time{})

// Field 对外（JSON）字段与列的映射
type Field struct {
	Name   string
	Column string
	Type   reflect.Type
	Scalar bool // 只有标量列可以过滤/排序
	Multi  bool // 允许重复参数 → IN
}

// FieldSet 某个资源允许出现在 query string 里的字段集合
type FieldSet struct {
	byName  map[string]Field
	columns []string
	primary string
}

// FieldsOf 从 gorm schema 推导字段集合；json:"-" 的列视为内部字段，不对外暴露
func FieldsOf(db *gorm.DB, model any, multi ...string) (FieldSet, error) {
	s, err := schema.Parse(model, &sync.Map{}, db.NamingStrategy)
	if err != nil {
		return FieldSet{}, err
	}
	allowMulti := make(map[string]bool, len(multi))
	for _, m := range multi {
		allowMulti[m] = true
	}

	fs := FieldSet{byName: map[string]Field{}}
	if s.PrioritizedPrimaryField != nil {
		fs.primary = s.PrioritizedPrimaryField.DBName
	}
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		name := jsonName(f.StructField)
		if name == "-" {
			continue
		}
		t := f.IndirectFieldType
		fs.byName[name] = Field{
			Name:   name,
			Column: f.DBName,
			Type:   t,
			Scalar: f.Serializer == nil && isScalar(t),
			Multi:  allowMulti[name],
		}
		fs.columns = append(fs.columns, f.DBName)
	}
	return fs, nil
}

func jsonName(sf reflect.StructField) string {
	tag := sf.Tag.Get("json")
	if tag == "" {
		return sf.Name
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return sf.Name
	}
	return name
}

func isScalar(t reflect.Type) bool {
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func (fs FieldSet) Lookup(name string) (Field, bool) {
	f, ok := fs.byName[name]
	return f, ok
}

func (fs FieldSet) Primary() string { return fs.primary }

// Where 过滤条件 → gorm 表达式；未知字段忽略，类型转换失败返回 Validation 错误
func (fs FieldSet) Where(filter map[string][]Condition) ([]clause.Expression, error) {
	names := make([]string, 0, len(filter))
	for name := range filter {
		names = append(names, name)
	}
	sort.Strings(names)

	var exprs []clause.Expression
	for _, name := range names {
		f, ok := fs.byName[name]
		if !ok || !f.Scalar {
			continue
		}
		for _, cond := range filter[name] {
			e, err := f.expression(cond)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, e)
		}
	}
	return exprs, nil
}

func (f Field) expression(c Condition) (clause.Expression, error) {
	col := clause.Column{Name: f.Column}
	if c.Op == OpIn {
		if !f.Multi {
			// 参数污染：非白名单字段只取最后一个值
			v, err := f.Coerce(c.Value())
			if err != nil {
				return nil, err
			}
			return clause.Eq{Column: col, Value: v}, nil
		}
		vals := make([]any, 0, len(c.Values))
		for _, raw := range c.Values {
			v, err := f.Coerce(raw)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return clause.IN{Column: col, Values: vals}, nil
	}

	v, err := f.Coerce(c.Value())
	if err != nil {
		return nil, err
	}
	switch c.Op {
	case OpGt:
		return clause.Gt{Column: col, Value: v}, nil
	case OpGte:
		return clause.Gte{Column: col, Value: v}, nil
	case OpLt:
		return clause.Lt{Column: col, Value: v}, nil
	case OpLte:
		return clause.Lte{Column: col, Value: v}, nil
	default:
		return clause.Eq{Column: col, Value: v}, nil
	}
}

// Coerce 按列的 Go 类型转换原始字符串
func (f Field) Coerce(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	var (
		v   any
		err error
	)
	switch {
	case f.Type == timeType:
		v, err = parseTime(raw)
	case f.Type.Kind() == reflect.String:
		v = raw
	case f.Type.Kind() == reflect.Bool:
		v, err = strconv.ParseBool(raw)
	case f.Type.Kind() >= reflect.Int && f.Type.Kind() <= reflect.Int64:
		v, err = strconv.ParseInt(raw, 10, 64)
	case f.Type.Kind() >= reflect.Uint && f.Type.Kind() <= reflect.Uint64:
		v, err = strconv.ParseUint(raw, 10, 64)
	case f.Type.Kind() == reflect.Float32 || f.Type.Kind() == reflect.Float64:
		v, err = strconv.ParseFloat(raw, 64)
	default:
		v = raw
	}
	if err != nil {
		msg := fmt.Sprintf("Invalid %s: %s.", f.Name, raw)
		return nil, errs.Validation(msg, map[string]string{f.Name: msg})
	}
	return v, nil
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", raw)
}

// OrderBy 排序；全部字段未知时回落到默认排序，最后追加主键保证分页稳定
func (fs FieldSet) OrderBy(orders []Order) []clause.OrderByColumn {
	var out []clause.OrderByColumn
	seen := map[string]bool{}
	add := func(o Order) {
		f, ok := fs.byName[o.Field]
		if !ok || !f.Scalar || seen[f.Column] {
			return
		}
		seen[f.Column] = true
		out = append(out, clause.OrderByColumn{Column: clause.Column{Name: f.Column}, Desc: o.Desc})
	}
	for _, o := range orders {
		add(o)
	}
	if len(out) == 0 {
		add(Order{Field: strings.TrimPrefix(DefaultSort, "-"), Desc: strings.HasPrefix(DefaultSort, "-")})
	}
	if fs.primary != "" && !seen[fs.primary] {
		out = append(out, clause.OrderByColumn{Column: clause.Column{Name: fs.primary}})
	}
	return out
}

// Columns 投影；nil 表示全部列
func (fs FieldSet) Columns(spec Spec) []string {
	switch {
	case len(spec.Fields) > 0:
		cols := []string{}
		if fs.primary != "" {
			cols = append(cols, fs.primary)
		}
		for _, name := range spec.Fields {
			if f, ok := fs.byName[name]; ok && f.Column != fs.primary {
				cols = append(cols, f.Column)
			}
		}
		return cols
	case len(spec.Omit) > 0:
		omit := map[string]bool{}
		for _, name := range spec.Omit {
			if f, ok := fs.byName[name]; ok && f.Column != fs.primary {
				omit[f.Column] = true
			}
		}
		cols := []string{}
		for _, c := range fs.columns {
			if !omit[c] {
				cols = append(cols, c)
			}
		}
		return cols
	}
	return nil
}

// Filtered 只加过滤条件（用于 count）
func (fs FieldSet) Filtered(db *gorm.DB, spec Spec) (*gorm.DB, error) {
	exprs, err := fs.Where(spec.Filter)
	if err != nil {
		return nil, err
	}
	for _, e := range exprs {
		db = db.Where(e)
	}
	return db, nil
}

// Window 排序 + 投影 + 分页
func (fs FieldSet) Window(db *gorm.DB, spec Spec) *gorm.DB {
	for _, o := range fs.OrderBy(spec.Sort) {
		db = db.Order(o)
	}
	if cols := fs.Columns(spec); cols != nil {
		db = db.Select(cols)
	}
	page, limit := spec.Page, spec.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	return db.Offset((page - 1) * limit).Limit(limit)
}
