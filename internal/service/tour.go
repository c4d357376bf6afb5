package service

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"natours/internal/core/cache"
	"natours/internal/core/errs"
	"natours/internal/domain"
	"natours/pkg/utils"
)

const (
	tourNS        = "tours"
	statsMinRate  = 4.5
	earthMiles    = 3963.2
	earthKm       = 6378.1
	earthMeters   = 6378100.0
	metersToMiles = 0.000621371
	metersToKm    = 0.001
)

type TourService struct {
	Tours    domain.TourRepository
	Cache    *cache.Cache
	CacheTTL time.Duration
	Log      *zap.Logger
}

// TopCheap 把 top-5-cheap 别名展开成普通的列表查询参数
func TopCheap(q url.Values) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	out.Set("limit", "5")
	out.Set("sort", "-ratingsAverage,price")
	out.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	return out
}

// BeforeSave 每次保存都按名称重新生成 slug；评分字段不接受客户端输入
func (s *TourService) BeforeSave(_ context.Context, t *domain.Tour, creating bool) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Slug = utils.Slugify(t.Name)
	// 评分是评价的聚合，新建时一律从默认值开始
	if creating {
		t.RatingsQuantity = 0
		t.RatingsAverage = domain.DefaultRatingsAverage
	}
	t.RatingsAverage = math.Round(t.RatingsAverage*10) / 10
	if t.StartLocation.Type == "" && len(t.StartLocation.Coordinates) > 0 {
		t.StartLocation.Type = "Point"
	}
	for i := range t.Locations {
		if t.Locations[i].Type == "" {
			t.Locations[i].Type = "Point"
		}
	}
	return nil
}

// Invalidate 写操作之后让统计类缓存失效
func (s *TourService) Invalidate(ctx context.Context) {
	if err := s.Cache.Bump(ctx, tourNS); err != nil {
		s.Log.Warn("tour cache bump failed", zap.Error(err))
	}
}

func (s *TourService) key(ctx context.Context, suffix string) string {
	return fmt.Sprintf("%s:%d:%s", tourNS, s.Cache.Generation(ctx, tourNS), suffix)
}

func (s *TourService) BySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	t, err := s.Tours.FindBySlug(ctx, slug)
	if errs.IsNotFound(err) {
		return nil, errs.NotFound("There is no tour with that name.")
	}
	return t, err
}

// Stats ratingsAverage >= 4.5 的团按难度分组统计
func (s *TourService) Stats(ctx context.Context) ([]domain.TourStat, error) {
	return cache.GetOrLoadJSON(s.Cache, ctx, s.key(ctx, "stats"), s.CacheTTL,
		func(ctx context.Context) ([]domain.TourStat, error) {
			return s.Tours.Stats(ctx, statsMinRate)
		})
}

// MonthlyPlan 某年每个月出发的团，按出发次数降序，最多 12 条
func (s *TourService) MonthlyPlan(ctx context.Context, yearParam string) ([]domain.MonthPlan, error) {
	year, err := strconv.Atoi(yearParam)
	if err != nil || year < 1 {
		return nil, errs.BadRequest(fmt.Sprintf("Invalid year: %s.", yearParam))
	}
	return cache.GetOrLoadJSON(s.Cache, ctx, s.key(ctx, fmt.Sprintf("plan:%d", year)), s.CacheTTL,
		func(ctx context.Context) ([]domain.MonthPlan, error) {
			tours, err := s.Tours.FindAll(ctx)
			if err != nil {
				return nil, err
			}
			return monthlyPlan(tours, year), nil
		})
}

func monthlyPlan(tours []domain.Tour, year int) []domain.MonthPlan {
	byMonth := map[int]*domain.MonthPlan{}
	for _, t := range tours {
		for _, d := range t.StartDates {
			d = d.UTC()
			if d.Year() != year {
				continue
			}
			m := int(d.Month())
			p, ok := byMonth[m]
			if !ok {
				p = &domain.MonthPlan{Month: m, Tours: []string{}}
				byMonth[m] = p
			}
			p.NumTourStarts++
			p.Tours = append(p.Tours, t.Name)
		}
	}
	out := make([]domain.MonthPlan, 0, len(byMonth))
	for _, p := range byMonth {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NumTourStarts != out[j].NumTourStarts {
			return out[i].NumTourStarts > out[j].NumTourStarts
		}
		return out[i].Month < out[j].Month
	})
	if len(out) > 12 {
		out = out[:12]
	}
	return out
}

// Within 起点落在以 center 为圆心、distance 为半径范围内的团
func (s *TourService) Within(ctx context.Context, distance, latlng, unit string) ([]domain.Tour, error) {
	d, err := strconv.ParseFloat(distance, 64)
	if err != nil || d < 0 {
		return nil, errs.BadRequest(fmt.Sprintf("Invalid distance: %s.", distance))
	}
	lat, lng, err := parseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	radius := d / earthKm
	if unit == "mi" {
		radius = d / earthMiles
	}

	tours, err := s.Tours.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Tour, 0)
	for _, t := range tours {
		tlat, tlng, ok := t.StartLocation.LatLng()
		if ok && angle(lat, lng, tlat, tlng) <= radius {
			out = append(out, t)
		}
	}
	return out, nil
}

// Distances 所有团起点到 center 的距离，由近到远
func (s *TourService) Distances(ctx context.Context, latlng, unit string) ([]domain.TourDistance, error) {
	lat, lng, err := parseLatLng(latlng)
	if err != nil {
		return nil, err
	}
	mult := metersToKm
	if unit == "mi" {
		mult = metersToMiles
	}

	tours, err := s.Tours.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TourDistance, 0, len(tours))
	for _, t := range tours {
		tlat, tlng, ok := t.StartLocation.LatLng()
		if !ok {
			continue
		}
		out = append(out, domain.TourDistance{
			ID:       t.ID,
			Name:     t.Name,
			Distance: angle(lat, lng, tlat, tlng) * earthMeters * mult,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out, nil
}

func parseLatLng(s string) (lat, lng float64, err error) {
	bad := errs.BadRequest("Please provide latitude and longitude in the format lat,lng.")
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, bad
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return 0, 0, bad
	}
	return lat, lng, nil
}

// angle 两点之间的球面角距离（弧度），haversine
func angle(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * math.Asin(math.Min(1, math.Sqrt(a)))
}
