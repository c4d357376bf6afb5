package domain

import (
	"context"
	"time"
)

type Booking struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	TourID    string    `gorm:"size:36;not null;index" json:"tour" binding:"required"`
	UserID    string    `gorm:"size:36;not null;index" json:"user" binding:"required"`
	Price     float64   `gorm:"not null" json:"price" binding:"required,gt=0"`
	Paid      bool      `gorm:"not null;default:true" json:"paid"`
	CreatedAt time.Time `json:"createdAt"`

	Tour     *Tour `gorm:"foreignKey:TourID;constraint:OnDelete:CASCADE" json:"tourInfo,omitempty"`
	Customer *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`
}

type BookingRepository interface {
	FindByID(ctx context.Context, id string, expand ...string) (*Booking, error)
	Create(ctx context.Context, b *Booking) error
	FindByUser(ctx context.Context, userID string) ([]Booking, error)
}
