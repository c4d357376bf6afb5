package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"natours/internal/core/payment"
	"natours/internal/domain"
	httpez "natours/internal/transport/http/ez"
	mdw "natours/internal/transport/http/middleware"
)

var bookingManagers = domain.Roles(domain.RoleAdmin, domain.RoleLeadGuide)

type checkoutOut struct {
	Session *payment.Session `json:"session"`
}

func mountBookings(api httpez.EZ, d Deps) {
	bookings := api.Group("/bookings")
	bs := d.Bookings

	httpez.RegisterAction(bookings, httpez.Action[struct{}, checkoutOut]{
		Method: http.MethodGet, Path: "/checkout-session/:tourId", Binder: httpez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (checkoutOut, error) {
			u, _ := mdw.CurrentUser(c)
			s, err := bs.Checkout(c.Request.Context(), u, c.Param("tourId"))
			if err != nil {
				return checkoutOut{}, err
			}
			return checkoutOut{Session: s}, nil
		},
	})

	httpez.RegisterAction(bookings, httpez.Action[struct{}, []domain.Tour]{
		Method: http.MethodGet, Path: "/mine", Binder: httpez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Tour, error) {
			return bs.MyTours(c.Request.Context(), currentID(c))
		},
	})

	// 收据直接写 PDF，RegisterAction 看到已写响应就不再包一层
	httpez.RegisterAction(bookings, httpez.Action[struct{}, struct{}]{
		Method: http.MethodGet, Path: "/:id/receipt", Binder: httpez.BindNone, Auth: true,
		Handler: func(c *gin.Context, _ *struct{}) (struct{}, error) {
			u, _ := mdw.CurrentUser(c)
			pdf, err := bs.Receipt(c.Request.Context(), u, c.Param("id"))
			if err != nil {
				return struct{}{}, err
			}
			c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="receipt-%s.pdf"`, c.Param("id")))
			c.Data(http.StatusOK, "application/pdf", pdf)
			return struct{}{}, nil
		},
	})

	httpez.Crud(httpez.CrudConfig[domain.Booking]{
		EZ:     bookings,
		Repo:   d.Stores.Bookings,
		Create: httpez.Guard{Roles: bookingManagers},
		List:   httpez.Guard{Roles: bookingManagers},
		Get:    httpez.Guard{Roles: bookingManagers},
		Update: httpez.Guard{Roles: bookingManagers},
		Delete: httpez.Guard{Roles: bookingManagers},
	})
}
