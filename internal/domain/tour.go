package domain

import (
	"context"
	"time"
)

// Location GeoJSON Point，Coordinates 为 [lng, lat]
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address,omitempty"`
	Description string    `json:"description,omitempty"`
	Day         int       `json:"day,omitempty"`
}

func (l Location) LatLng() (lat, lng float64, ok bool) {
	if len(l.Coordinates) < 2 {
		return 0, 0, false
	}
	return l.Coordinates[1], l.Coordinates[0], true
}

const DefaultRatingsAverage = 4.5

type Tour struct {
	ID              string      `gorm:"primaryKey;size:36" json:"id"`
	Name            string      `gorm:"uniqueIndex;size:64;not null" json:"name" binding:"required,min=10,max=40"`
	Slug            string      `gorm:"index;size:96" json:"slug"`
	Duration        int         `gorm:"not null" json:"duration" binding:"required,gt=0"`
	MaxGroupSize    int         `gorm:"not null" json:"maxGroupSize" binding:"required,gt=0"`
	Difficulty      string      `gorm:"size:16;not null" json:"difficulty" binding:"required,oneof=easy medium difficult"`
	RatingsAverage  float64     `gorm:"not null;default:4.5;index:idx_tours_price_rating,priority:2" json:"ratingsAverage" binding:"omitempty,gte=1,lte=5"`
	RatingsQuantity int         `gorm:"not null;default:0" json:"ratingsQuantity" binding:"gte=0"`
	Price           float64     `gorm:"not null;index:idx_tours_price_rating,priority:1" json:"price" binding:"required,gt=0"`
	PriceDiscount   float64     `json:"priceDiscount,omitempty" binding:"omitempty,ltfield=Price"`
	Summary         string      `gorm:"size:255;not null" json:"summary" binding:"required"`
	Description     string      `gorm:"type:text" json:"description,omitempty"`
	ImageCover      string      `gorm:"size:191;not null" json:"imageCover" binding:"required"`
	Images          []string    `gorm:"serializer:json" json:"images"`
	StartDates      []time.Time `gorm:"serializer:json" json:"startDates"`
	SecretTour      bool        `gorm:"not null;default:false;index" json:"secretTour"`
	StartLocation   Location    `gorm:"serializer:json" json:"startLocation"`
	Locations       []Location  `gorm:"serializer:json" json:"locations"`
	GuideIDs        []string    `gorm:"serializer:json" json:"guideIds"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`

	// 读取时展开
	Guides        []User   `gorm:"-" json:"guides,omitempty"`
	Reviews       []Review `gorm:"foreignKey:TourID;constraint:OnDelete:CASCADE" json:"reviews,omitempty"`
	DurationWeeks float64  `gorm:"-" json:"durationWeeks"`
}

// TourStat 按难度分组的统计
type TourStat struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int64   `json:"numTours"`
	NumRatings int64   `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// MonthPlan 某月出发的团
type MonthPlan struct {
	Month         int      `json:"month"`
	NumTourStarts int      `json:"numTourStarts"`
	Tours         []string `json:"tours"`
}

// TourDistance 距离某点的距离
type TourDistance struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

type TourRepository interface {
	FindByID(ctx context.Context, id string, expand ...string) (*Tour, error)
	FindBySlug(ctx context.Context, slug string) (*Tour, error)
	FindByIDs(ctx context.Context, ids []string) ([]Tour, error)
	FindAll(ctx context.Context) ([]Tour, error)
	Stats(ctx context.Context, minRating float64) ([]TourStat, error)
	UpdateRatings(ctx context.Context, id string, quantity int, average float64) error
	ListIDs(ctx context.Context) ([]string, error)
}
