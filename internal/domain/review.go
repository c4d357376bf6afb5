package domain

import (
	"context"
	"time"
)

// Review 同一用户对同一个团只能评价一次
type Review struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Review    string    `gorm:"type:text;not null" json:"review" binding:"required"`
	Rating    float64   `gorm:"not null" json:"rating" binding:"required,gte=1,lte=5"`
	TourID    string    `gorm:"size:36;not null;uniqueIndex:idx_reviews_tour_user,priority:1" json:"tour" binding:"required"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_reviews_tour_user,priority:2" json:"user" binding:"required"`
	CreatedAt time.Time `json:"createdAt"`

	Author *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"author,omitempty"`
}

// RatingStats 某个团的评分聚合
type RatingStats struct {
	Quantity int
	Average  float64
}

type ReviewRepository interface {
	FindByID(ctx context.Context, id string, expand ...string) (*Review, error)
	Stats(ctx context.Context, tourID string) (RatingStats, error)
}
