package repo

import (
	"context"

	"gorm.io/gorm"

	"natours/internal/domain"
)

type BookingRepo struct {
	*Store[domain.Booking]
}

var _ domain.BookingRepository = (*BookingRepo)(nil)

func NewBookingRepo(db *gorm.DB) (*BookingRepo, error) {
	s, err := NewStore[domain.Booking](db, Options{Preload: []string{"Customer", "Tour"}})
	if err != nil {
		return nil, err
	}
	return &BookingRepo{Store: s}, nil
}

func (r *BookingRepo) FindByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0)
	err := r.withPreload(r.Scoped(ctx), nil).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}
