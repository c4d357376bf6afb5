package service

import (
	"context"
	"errors"
	"math"

	"go.uber.org/zap"

	"natours/internal/domain"
)

// ReviewService 评价变更后从头重算所属团的评分聚合
type ReviewService struct {
	Reviews domain.ReviewRepository
	Tours   domain.TourRepository
	Cache   interface{ Invalidate(ctx context.Context) }
	Log     *zap.Logger
}

// BeforeSave 新建评价时所属团必须存在
func (s *ReviewService) BeforeSave(ctx context.Context, r *domain.Review, creating bool) error {
	if !creating {
		return nil
	}
	_, err := s.Tours.FindByID(ctx, r.TourID)
	return err
}

// AfterWrite create/update/delete 之后调用；聚合失败只记日志，下一次写会自愈
func (s *ReviewService) AfterWrite(ctx context.Context, r *domain.Review) error {
	if err := s.Recompute(ctx, r.TourID); err != nil {
		s.Log.Warn("recompute ratings failed", zap.String("tour", r.TourID), zap.Error(err))
	}
	return nil
}

// Recompute 没有评价时回到 (0, 4.5)；均分保留一位小数
func (s *ReviewService) Recompute(ctx context.Context, tourID string) error {
	st, err := s.Reviews.Stats(ctx, tourID)
	if err != nil {
		return err
	}
	quantity, average := 0, domain.DefaultRatingsAverage
	if st.Quantity > 0 {
		quantity, average = st.Quantity, math.Round(st.Average*10)/10
	}
	if err := s.Tours.UpdateRatings(ctx, tourID, quantity, average); err != nil {
		return err
	}
	ratingsRecomputed.Inc()
	if s.Cache != nil {
		s.Cache.Invalidate(ctx)
	}
	return nil
}

// ReconcileAll 定时任务：重算所有团（含 secret）
func (s *ReviewService) ReconcileAll(ctx context.Context) error {
	ids, err := s.Tours.ListIDs(ctx)
	if err != nil {
		return err
	}
	var errList []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Recompute(ctx, id); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
