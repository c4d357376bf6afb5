// Package repo 基于 gorm 的持久化层。所有读操作都会经过构造时传入的可见性范围。
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"natours/internal/core/errs"
	"natours/internal/core/query"
)

const notFoundMsg = "No document found with that ID"

// Scope 追加在查询上的条件
type Scope func(*gorm.DB) *gorm.DB

// Options Store 的构造参数
type Options struct {
	// Visible 软删除/隐藏过滤，所有读（包括 update/delete 之前的查找）都会经过它
	Visible Scope
	// Preload 每次读都展开的关联
	Preload []string
	// Multi 允许重复参数（IN 查询）的字段
	Multi []string
}

type Store[T any] struct {
	db      *gorm.DB
	fields  query.FieldSet
	visible Scope
	preload []string
}

func NewStore[T any](db *gorm.DB, opts Options) (*Store[T], error) {
	fs, err := query.FieldsOf(db, new(T), opts.Multi...)
	if err != nil {
		return nil, err
	}
	return &Store[T]{db: db, fields: fs, visible: opts.Visible, preload: opts.Preload}, nil
}

func (s *Store[T]) Fields() query.FieldSet { return s.fields }

// DB 未加可见性范围的会话，只给同包的特定仓库使用
func (s *Store[T]) DB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(new(T))
}

// Scoped 带可见性范围的查询起点
func (s *Store[T]) Scoped(ctx context.Context) *gorm.DB {
	q := s.DB(ctx)
	if s.visible != nil {
		q = q.Scopes(s.visible)
	}
	return q
}

func (s *Store[T]) withPreload(q *gorm.DB, extra []string) *gorm.DB {
	for _, p := range s.preload {
		q = q.Preload(p)
	}
	for _, p := range extra {
		q = q.Preload(p)
	}
	return q
}

func (s *Store[T]) FindByID(ctx context.Context, id string, expand ...string) (*T, error) {
	return s.FindOne(ctx, clause.Eq{Column: clause.PrimaryColumn, Value: id}, expand...)
}

// FindOne cond 可以是 map[string]any 或 clause.Expression
func (s *Store[T]) FindOne(ctx context.Context, cond any, expand ...string) (*T, error) {
	m := new(T)
	err := s.withPreload(s.Scoped(ctx), expand).Where(cond).Take(m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Wrap(errs.KindNotFound, notFoundMsg, err)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store[T]) FindByIDs(ctx context.Context, ids []string) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	vals := make([]any, len(ids))
	for i, id := range ids {
		vals[i] = id
	}
	var out []T
	err := s.withPreload(s.Scoped(ctx), nil).
		Where(clause.IN{Column: clause.PrimaryColumn, Values: vals}).
		Find(&out).Error
	return out, err
}

// FindMany pre 为嵌套路由的前置过滤（列名 → 值），与查询描述合并后执行
func (s *Store[T]) FindMany(ctx context.Context, pre map[string]any, spec query.Spec) ([]T, error) {
	q := s.Scoped(ctx)
	if len(pre) > 0 {
		q = q.Where(pre)
	}
	q, err := s.fields.Filtered(q, spec)
	if err != nil {
		return nil, err
	}
	q = s.withPreload(s.fields.Window(q, spec), nil)

	out := make([]T, 0)
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store[T]) Create(ctx context.Context, m *T) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error
}

func (s *Store[T]) Save(ctx context.Context, m *T) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Save(m).Error
}

// Delete 只能删除可见的记录
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	res := s.Scoped(ctx).Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).Delete(new(T))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.NotFound(notFoundMsg)
	}
	return nil
}
