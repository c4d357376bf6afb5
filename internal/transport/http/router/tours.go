package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"natours/internal/domain"
	"natours/internal/service"
	httpez "natours/internal/transport/http/ez"
	resp "natours/internal/transport/http/response"
)

var (
	tourEditors  = domain.Roles(domain.RoleAdmin, domain.RoleLeadGuide)
	tourPlanners = domain.Roles(domain.RoleAdmin, domain.RoleLeadGuide, domain.RoleGuide)
)

func mountTours(api httpez.EZ, d Deps) {
	tours := api.Group("/tours")
	ts := d.Tours

	res := httpez.Crud(httpez.CrudConfig[domain.Tour]{
		EZ:   tours,
		Repo: d.Stores.Tours,
		Hooks: httpez.Hooks[domain.Tour]{
			BeforeSave: ts.BeforeSave,
			AfterCommit: func(ctx context.Context, _ *domain.Tour) error {
				ts.Invalidate(ctx)
				return nil
			},
			AfterDelete: func(ctx context.Context, _ *domain.Tour) error {
				ts.Invalidate(ctx)
				return nil
			},
		},
		Expand: []string{"Reviews"},

		// 评分由评价聚合而来，接口不能直接写
		Protected: []string{"RatingsQuantity", "RatingsAverage"},

		Create: httpez.Guard{Roles: tourEditors},
		Update: httpez.Guard{Roles: tourEditors},
		Delete: httpez.Guard{Roles: tourEditors},
	})

	// 别名：改写 query 之后复用列表 handler
	tours.Router().GET("/top-5-cheap", func(c *gin.Context) {
		c.Request.URL.RawQuery = service.TopCheap(c.Request.URL.Query()).Encode()
		res.ListHandler(c)
	})

	httpez.RegisterAction(tours, httpez.Action[struct{}, []domain.TourStat]{
		Method: http.MethodGet, Path: "/tour-stats", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.TourStat, error) {
			return ts.Stats(c.Request.Context())
		},
	})

	httpez.RegisterAction(tours, httpez.Action[struct{}, []domain.MonthPlan]{
		Method: http.MethodGet, Path: "/monthly-plan/:year", Binder: httpez.BindNone, Roles: tourPlanners,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.MonthPlan, error) {
			return ts.MonthlyPlan(c.Request.Context(), c.Param("year"))
		},
	})

	httpez.RegisterAction(tours, httpez.Action[struct{}, resp.Page[[]domain.Tour]]{
		Method: http.MethodGet, Path: "/tours-within/:distance/center/:latlng/unit/:unit", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (resp.Page[[]domain.Tour], error) {
			list, err := ts.Within(c.Request.Context(), c.Param("distance"), c.Param("latlng"), c.Param("unit"))
			if err != nil {
				return resp.Page[[]domain.Tour]{}, err
			}
			return resp.Page[[]domain.Tour]{Results: len(list), Page: 1, Limit: len(list), List: list}, nil
		},
	})

	httpez.RegisterAction(tours, httpez.Action[struct{}, []domain.TourDistance]{
		Method: http.MethodGet, Path: "/distances/:latlng/unit/:unit", Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.TourDistance, error) {
			return ts.Distances(c.Request.Context(), c.Param("latlng"), c.Param("unit"))
		},
	})

	// 嵌套评价：/tours/:id/reviews，只开放创建和列表
	mountTourReviews(tours.Group("/:id/reviews"), d)
}
