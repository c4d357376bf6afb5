// Package query 把列表接口的 query string 转成过滤/排序/投影/分页描述（Spec），
// 再由 FieldSet 翻译成 gorm 子句。构建过程不做任何 I/O。
package query

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type Op string

const (
	OpEq  Op = "eq"
	OpIn  Op = "in"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

const (
	DefaultPage  = 1
	DefaultLimit = 100
	DefaultSort  = "-createdAt"
)

// 保留参数，永远不会进入过滤条件
var reserved = map[string]struct{}{"page": {}, "sort": {}, "limit": {}, "fields": {}}

var comparisonKey = regexp.MustCompile(`^([A-Za-z0-9_.]+)\[(gt|gte|lt|lte)\]$`)

// Condition 单个比较；同一字段的多个 Condition 以 AND 组合
type Condition struct {
	Op     Op
	Values []string // OpIn 使用全部值，其余只用 Values[0]
}

func (c Condition) Value() string {
	if len(c.Values) == 0 {
		return ""
	}
	return c.Values[len(c.Values)-1]
}

type Order struct {
	Field string
	Desc  bool
}

// Spec 一次查询的完整描述
type Spec struct {
	Filter map[string][]Condition
	Sort   []Order
	Fields []string // 只返回这些字段
	Omit   []string // 排除这些字段
	Page   int
	Limit  int
}

func (s Spec) Offset() int { return (s.Page - 1) * s.Limit }

func (s Spec) clone() Spec {
	out := Spec{Page: s.Page, Limit: s.Limit}
	if s.Filter != nil {
		out.Filter = make(map[string][]Condition, len(s.Filter))
		for k, cs := range s.Filter {
			cp := make([]Condition, len(cs))
			for i, c := range cs {
				cp[i] = Condition{Op: c.Op, Values: append([]string(nil), c.Values...)}
			}
			out.Filter[k] = cp
		}
	}
	out.Sort = append([]Order(nil), s.Sort...)
	out.Fields = append([]string(nil), s.Fields...)
	out.Omit = append([]string(nil), s.Omit...)
	return out
}

// Builder 链式构建 Spec，各步骤可任意子集/顺序调用
type Builder struct {
	params url.Values
	spec   Spec
}

// New 拷贝一份参数，调用方的 url.Values 不会被修改
func New(params url.Values) *Builder {
	cp := make(url.Values, len(params))
	for k, v := range params {
		cp[k] = append([]string(nil), v...)
	}
	return &Builder{
		params: cp,
		spec:   Spec{Page: DefaultPage, Limit: DefaultLimit},
	}
}

// Parse 按规范顺序 filter → sort → project → paginate
func Parse(params url.Values) Spec {
	return New(params).Filter().Sort().Project().Paginate().Spec()
}

func (b *Builder) Spec() Spec { return b.spec.clone() }

func (b *Builder) Filter() *Builder {
	keys := make([]string, 0, len(b.params))
	for k := range b.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	filter := map[string][]Condition{}
	for _, key := range keys {
		vals := b.params[key]
		if len(vals) == 0 {
			continue
		}
		field, op := key, OpEq
		if m := comparisonKey.FindStringSubmatch(key); m != nil {
			field, op = m[1], Op(m[2])
		}
		if _, ok := reserved[field]; ok {
			continue
		}
		switch {
		case op == OpEq && len(vals) > 1:
			filter[field] = append(filter[field], Condition{Op: OpIn, Values: append([]string(nil), vals...)})
		default:
			filter[field] = append(filter[field], Condition{Op: op, Values: []string{vals[len(vals)-1]}})
		}
	}
	b.spec.Filter = filter
	return b
}

func (b *Builder) Sort() *Builder {
	var orders []Order
	for _, f := range splitList(last(b.params, "sort")) {
		if strings.HasPrefix(f, "-") {
			if name := strings.TrimPrefix(f, "-"); name != "" {
				orders = append(orders, Order{Field: name, Desc: true})
			}
			continue
		}
		orders = append(orders, Order{Field: f})
	}
	if len(orders) == 0 {
		orders = []Order{{Field: strings.TrimPrefix(DefaultSort, "-"), Desc: true}}
	}
	b.spec.Sort = orders
	return b
}

func (b *Builder) Project() *Builder {
	var include, omit []string
	for _, f := range splitList(last(b.params, "fields")) {
		if strings.HasPrefix(f, "-") {
			if name := strings.TrimPrefix(f, "-"); name != "" {
				omit = append(omit, name)
			}
			continue
		}
		include = append(include, f)
	}
	if len(include) > 0 {
		omit = nil
	}
	b.spec.Fields, b.spec.Omit = include, omit
	return b
}

// Paginate 非法输入回落默认值，不报错
func (b *Builder) Paginate() *Builder {
	b.spec.Page = positiveInt(last(b.params, "page"), DefaultPage)
	b.spec.Limit = positiveInt(last(b.params, "limit"), DefaultLimit)
	return b
}

func last(v url.Values, key string) string {
	vals := v[key]
	if len(vals) == 0 {
		return ""
	}
	return vals[len(vals)-1]
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func positiveInt(s string, def int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && v > 0 {
		return v
	}
	return def
}
