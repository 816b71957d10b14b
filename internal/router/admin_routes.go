package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodge-booking/internal/handler"
	"github.com/iliyamo/lodge-booking/internal/middleware"
	"github.com/iliyamo/lodge-booking/internal/utils"
)

// Admin bundles the handlers of the administrator API.
type Admin struct {
	Bookings  *handler.BookingHandler
	Blockages *handler.BlockageHandler
	Holds     *handler.HoldHandler
}

// RegisterAdmin registers the administrator endpoints under /v1/admin.
// All routes require a valid JWT with the ADMIN role.
func RegisterAdmin(e *echo.Echo, a Admin, jwtSecret string) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAdmin),
	)

	g.GET("/bookings", a.Bookings.List)
	g.GET("/bookings/:id", a.Bookings.Get)
	g.PUT("/bookings/:id", a.Bookings.Update(true))
	g.DELETE("/bookings/:id", a.Bookings.Delete(true))
	g.GET("/bookings/:id/price-audit", a.Bookings.PriceAudit)

	g.GET("/blockages", a.Blockages.List)
	g.POST("/blockages", a.Blockages.Create)
	g.DELETE("/blockages/:id", a.Blockages.Delete)

	g.GET("/holds", a.Holds.ListByRange)
	g.POST("/holds/purge", a.Holds.Purge)
}
