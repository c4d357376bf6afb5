package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"natours/internal/core/errs"
	"natours/internal/domain"
)

func newReviewService(byTour map[string][]float64, tours ...domain.Tour) (*ReviewService, *fakeTours, *countingInvalidator) {
	ft := newFakeTours(tours...)
	inv := &countingInvalidator{}
	return &ReviewService{
		Reviews: &fakeReviews{byTour: byTour},
		Tours:   ft,
		Cache:   inv,
		Log:     zap.NewNop(),
	}, ft, inv
}

func TestRecompute(t *testing.T) {
	s, ft, inv := newReviewService(map[string][]float64{"t1": {5, 4, 5}})
	ctx := context.Background()

	require.NoError(t, s.Recompute(ctx, "t1"))
	assert.Equal(t, ratingUpdate{Quantity: 3, Average: 4.7}, ft.ratings["t1"])

	// 没有评价时回到默认值
	require.NoError(t, s.Recompute(ctx, "t2"))
	assert.Equal(t, ratingUpdate{Quantity: 0, Average: 4.5}, ft.ratings["t2"])
	assert.Equal(t, 2, inv.n)
}

func TestRecompute_Idempotent(t *testing.T) {
	s, ft, _ := newReviewService(map[string][]float64{"t1": {3, 4}})
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Recompute(context.Background(), "t1"))
	}
	assert.Equal(t, ratingUpdate{Quantity: 2, Average: 3.5}, ft.ratings["t1"])
}

func TestReviewHooks(t *testing.T) {
	s, ft, _ := newReviewService(map[string][]float64{"t1": {4}}, domain.Tour{ID: "t1"})
	ctx := context.Background()

	err := s.BeforeSave(ctx, &domain.Review{TourID: "missing"}, true)
	assert.True(t, errs.IsNotFound(err))
	assert.NoError(t, s.BeforeSave(ctx, &domain.Review{TourID: "missing"}, false))
	assert.NoError(t, s.BeforeSave(ctx, &domain.Review{TourID: "t1"}, true))

	require.NoError(t, s.AfterWrite(ctx, &domain.Review{TourID: "t1"}))
	assert.Equal(t, ratingUpdate{Quantity: 1, Average: 4}, ft.ratings["t1"])
}

func TestReconcileAll(t *testing.T) {
	s, ft, _ := newReviewService(
		map[string][]float64{"t1": {5}},
		domain.Tour{ID: "t1"}, domain.Tour{ID: "t2", SecretTour: true},
	)
	require.NoError(t, s.ReconcileAll(context.Background()))
	assert.Equal(t, ratingUpdate{Quantity: 1, Average: 5}, ft.ratings["t1"])
	assert.Equal(t, ratingUpdate{Quantity: 0, Average: 4.5}, ft.ratings["t2"])
}
