package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"natours/internal/core/errs"
	"natours/internal/domain"
)

func point(lat, lng float64) domain.Location {
	return domain.Location{Type: "Point", Coordinates: []float64{lng, lat}}
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 9, 0, 0, 0, time.UTC) }

func sampleTours() []domain.Tour {
	return []domain.Tour{
		{
			ID: "t1", Name: "The Forest Hiker", StartLocation: point(51.417611, -116.214531),
			StartDates: []time.Time{date(2021, 4, 25), date(2021, 7, 20), date(2022, 1, 5)},
		},
		{
			ID: "t2", Name: "The Sea Explorer", StartLocation: point(25.781842, -80.128473),
			StartDates: []time.Time{date(2021, 6, 19), date(2021, 7, 20)},
		},
		{
			ID: "t3", Name: "The Snow Adventurer", StartLocation: point(51.0, -115.5),
			StartDates: []time.Time{date(2021, 7, 1)},
		},
		{
			ID: "t4", Name: "The Secret Place", SecretTour: true, StartLocation: point(51.4, -116.2),
			StartDates: []time.Time{date(2021, 7, 2)},
		},
	}
}

func newTourService(ts ...domain.Tour) (*TourService, *fakeTours) {
	f := newFakeTours(ts...)
	return &TourService{Tours: f, CacheTTL: time.Minute, Log: zap.NewNop()}, f
}

func TestTopCheap(t *testing.T) {
	in := url.Values{"difficulty": {"easy"}, "limit": {"50"}}
	out := TopCheap(in)
	assert.Equal(t, "5", out.Get("limit"))
	assert.Equal(t, "-ratingsAverage,price", out.Get("sort"))
	assert.Equal(t, "name,price,ratingsAverage,summary,difficulty", out.Get("fields"))
	assert.Equal(t, "easy", out.Get("difficulty"))
	assert.Equal(t, "50", in.Get("limit"))
}

func TestTourBeforeSave(t *testing.T) {
	s, _ := newTourService()
	tour := &domain.Tour{
		Name:            "  Crème de la Crème Tour ",
		StartLocation:   domain.Location{Coordinates: []float64{1, 2}},
		RatingsQuantity: 999,
		RatingsAverage:  1.2,
	}
	require.NoError(t, s.BeforeSave(context.Background(), tour, true))
	assert.Equal(t, "creme-de-la-creme-tour", tour.Slug)
	assert.Equal(t, 0, tour.RatingsQuantity)
	assert.Equal(t, 4.5, tour.RatingsAverage)
	assert.Equal(t, "Point", tour.StartLocation.Type)

	tour.Name = "Renamed Forest Tour"
	tour.RatingsAverage = 4.666
	require.NoError(t, s.BeforeSave(context.Background(), tour, false))
	assert.Equal(t, "renamed-forest-tour", tour.Slug)
	assert.Equal(t, 4.7, tour.RatingsAverage)
}

func TestTourStats_UsesThreshold(t *testing.T) {
	s, f := newTourService()
	got, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 4.5, f.minRate)
}

func TestMonthlyPlan(t *testing.T) {
	s, _ := newTourService(sampleTours()...)

	plan, err := s.MonthlyPlan(context.Background(), "2021")
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Equal(t, 7, plan[0].Month)
	assert.Equal(t, 3, plan[0].NumTourStarts)
	assert.ElementsMatch(t, []string{"The Forest Hiker", "The Sea Explorer", "The Snow Adventurer"}, plan[0].Tours)
	// 次数相同按月份升序
	assert.Equal(t, 4, plan[1].Month)
	assert.Equal(t, 6, plan[2].Month)

	_, err = s.MonthlyPlan(context.Background(), "next")
	assert.Equal(t, errs.KindBadRequest, errs.KindOf(err))
}

func TestMonthlyPlan_LimitsToTwelve(t *testing.T) {
	var dates []time.Time
	for y := 0; y < 2; y++ {
		for m := time.January; m <= time.December; m++ {
			dates = append(dates, date(2021, m, 1+y))
		}
	}
	dates = append(dates, date(2021, time.March, 15))
	plan := monthlyPlan([]domain.Tour{{Name: "Year Round", StartDates: dates}}, 2021)
	require.Len(t, plan, 12)
	assert.Equal(t, 3, plan[0].Month)
	assert.Equal(t, 3, plan[0].NumTourStarts)
}

func TestWithin(t *testing.T) {
	s, _ := newTourService(sampleTours()...)
	ctx := context.Background()

	got, err := s.Within(ctx, "100", "51.2,-115.9", "mi")
	require.NoError(t, err)
	ids := []string{}
	for _, tr := range got {
		ids = append(ids, tr.ID)
	}
	assert.ElementsMatch(t, []string{"t1", "t3"}, ids)

	got, err = s.Within(ctx, "10", "51.2,-115.9", "km")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = s.Within(ctx, "100", "51.2", "mi")
	e := errs.Classify(err)
	assert.Equal(t, errs.KindBadRequest, e.Kind)
	assert.Equal(t, "Please provide latitude and longitude in the format lat,lng.", e.Msg)

	_, err = s.Within(ctx, "far", "51.2,-115.9", "mi")
	assert.Equal(t, errs.KindBadRequest, errs.KindOf(err))
}

func TestDistances(t *testing.T) {
	s, _ := newTourService(sampleTours()...)

	km, err := s.Distances(context.Background(), "51.417611,-116.214531", "km")
	require.NoError(t, err)
	require.Len(t, km, 3)
	assert.Equal(t, "t1", km[0].ID)
	assert.InDelta(t, 0, km[0].Distance, 0.001)
	assert.Equal(t, "t3", km[1].ID)
	assert.Equal(t, "t2", km[2].ID)

	mi, err := s.Distances(context.Background(), "51.417611,-116.214531", "mi")
	require.NoError(t, err)
	assert.InDelta(t, km[2].Distance*0.621371, mi[2].Distance, 0.01)
}

func TestBySlug_NotFound(t *testing.T) {
	s, _ := newTourService(sampleTours()...)
	_, err := s.BySlug(context.Background(), "nope")
	e := errs.Classify(err)
	assert.Equal(t, errs.KindNotFound, e.Kind)
	assert.Equal(t, "There is no tour with that name.", e.Msg)
}
