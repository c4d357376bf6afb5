package repo

import (
	"context"

	"gorm.io/gorm"

	"natours/internal/domain"
)

type ReviewRepo struct {
	*Store[domain.Review]
}

var _ domain.ReviewRepository = (*ReviewRepo)(nil)

func NewReviewRepo(db *gorm.DB) (*ReviewRepo, error) {
	s, err := NewStore[domain.Review](db, Options{Preload: []string{"Author"}, Multi: []string{"rating"}})
	if err != nil {
		return nil, err
	}
	return &ReviewRepo{Store: s}, nil
}

// Stats 某个团当前全部评价的数量和平均分
func (r *ReviewRepo) Stats(ctx context.Context, tourID string) (domain.RatingStats, error) {
	var row struct {
		Quantity int
		Average  float64
	}
	err := r.DB(ctx).
		Select("COUNT(*) AS quantity, COALESCE(AVG(rating), 0) AS average").
		Where("tour_id = ?", tourID).
		Scan(&row).Error
	if err != nil {
		return domain.RatingStats{}, err
	}
	return domain.RatingStats{Quantity: row.Quantity, Average: row.Average}, nil
}
