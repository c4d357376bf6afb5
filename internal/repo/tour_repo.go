package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"natours/internal/core/query"
	"natours/internal/domain"
)

// VisibleTours 隐藏 secret tour
func VisibleTours(db *gorm.DB) *gorm.DB {
	return db.Where(clause.Eq{Column: clause.Column{Name: "secret_tour"}, Value: false})
}

// TourMulti 允许重复参数的字段
var TourMulti = []string{"duration", "ratingsQuantity", "ratingsAverage", "maxGroupSize", "difficulty", "price"}

// TourRepo 读取时展开向导（guides）与 durationWeeks
type TourRepo struct {
	*Store[domain.Tour]
	users *Store[domain.User]
}

var _ domain.TourRepository = (*TourRepo)(nil)

// NewTourRepo multi 为空时使用 TourMulti
func NewTourRepo(db *gorm.DB, users *UserRepo, multi ...string) (*TourRepo, error) {
	if len(multi) == 0 {
		multi = TourMulti
	}
	s, err := NewStore[domain.Tour](db, Options{Visible: VisibleTours, Multi: multi})
	if err != nil {
		return nil, err
	}
	return &TourRepo{Store: s, users: users.Store}, nil
}

func (r *TourRepo) FindByID(ctx context.Context, id string, expand ...string) (*domain.Tour, error) {
	t, err := r.Store.FindByID(ctx, id, expand...)
	if err != nil {
		return nil, err
	}
	return t, r.expand(ctx, []*domain.Tour{t})
}

func (r *TourRepo) FindBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	t, err := r.Store.FindOne(ctx, map[string]any{"slug": slug}, "Reviews", "Reviews.Author")
	if err != nil {
		return nil, err
	}
	return t, r.expand(ctx, []*domain.Tour{t})
}

func (r *TourRepo) FindMany(ctx context.Context, pre map[string]any, spec query.Spec) ([]domain.Tour, error) {
	out, err := r.Store.FindMany(ctx, pre, spec)
	if err != nil {
		return nil, err
	}
	return out, r.expand(ctx, ptrs(out))
}

func (r *TourRepo) FindByIDs(ctx context.Context, ids []string) ([]domain.Tour, error) {
	out, err := r.Store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return out, r.expand(ctx, ptrs(out))
}

// FindAll 全部可见的团，供地理查询和月度计划在内存里计算
func (r *TourRepo) FindAll(ctx context.Context) ([]domain.Tour, error) {
	var out []domain.Tour
	if err := r.Scoped(ctx).Order(clause.OrderByColumn{Column: clause.PrimaryColumn}).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Stats 按难度分组，只统计 ratingsAverage >= minRating 的团，按均价升序
func (r *TourRepo) Stats(ctx context.Context, minRating float64) ([]domain.TourStat, error) {
	out := make([]domain.TourStat, 0)
	err := r.Scoped(ctx).
		Select(`UPPER(difficulty) AS difficulty, COUNT(*) AS num_tours, SUM(ratings_quantity) AS num_ratings,
			AVG(ratings_average) AS avg_rating, AVG(price) AS avg_price, MIN(price) AS min_price, MAX(price) AS max_price`).
		Where("ratings_average >= ?", minRating).
		Group("UPPER(difficulty)").
		Order("avg_price").
		Scan(&out).Error
	return out, err
}

// UpdateRatings 直接写聚合字段，不受可见性影响
func (r *TourRepo) UpdateRatings(ctx context.Context, id string, quantity int, average float64) error {
	return r.DB(ctx).
		Where(clause.Eq{Column: clause.PrimaryColumn, Value: id}).
		Updates(map[string]any{"ratings_quantity": quantity, "ratings_average": average}).Error
}

// ListIDs 所有团（含 secret）的 id
func (r *TourRepo) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.DB(ctx).Pluck("id", &ids).Error
	return ids, err
}

func (r *TourRepo) expand(ctx context.Context, tours []*domain.Tour) error {
	seen := map[string]bool{}
	var ids []string
	for _, t := range tours {
		t.DurationWeeks = float64(t.Duration) / 7
		for _, id := range t.GuideIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	guides, err := r.users.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]domain.User, len(guides))
	for _, g := range guides {
		byID[g.ID] = g
	}
	for _, t := range tours {
		t.Guides = t.Guides[:0]
		for _, id := range t.GuideIDs {
			if g, ok := byID[id]; ok {
				t.Guides = append(t.Guides, g)
			}
		}
	}
	return nil
}

func ptrs[T any](items []T) []*T {
	out := make([]*T, len(items))
	for i := range items {
		out[i] = &items[i]
	}
	return out
}
