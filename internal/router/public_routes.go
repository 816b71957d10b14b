package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodge-booking/internal/handler"
)

// Public bundles the handlers and middleware of the guest-facing API.
type Public struct {
	Catalog  *handler.CatalogHandler
	Holds    *handler.HoldHandler
	Bookings *handler.BookingHandler
	Session  echo.MiddlewareFunc // reads X-Session-ID
	Limit    echo.MiddlewareFunc // rate limits writes
	Cache    echo.MiddlewareFunc // caches reference data
}

// RegisterPublic registers the guest-facing endpoints under /v1.  No JWT
// is required; holds are scoped to X-Session-ID and bookings are changed
// with their X-Edit-Token.
func RegisterPublic(e *echo.Echo, p Public) {
	p.Session, p.Limit, p.Cache = orPass(p.Session), orPass(p.Limit), orPass(p.Cache)
	g := e.Group("/v1", p.Session)

	g.GET("/rooms", p.Catalog.Rooms, p.Cache)
	g.GET("/prices", p.Catalog.Prices, p.Cache)
	g.GET("/availability", p.Catalog.Availability)

	g.POST("/quote", p.Bookings.Quote, p.Limit)

	g.POST("/holds", p.Holds.Create, p.Limit)
	g.GET("/holds", p.Holds.List)
	g.DELETE("/holds", p.Holds.DeleteAll)
	g.DELETE("/holds/:id", p.Holds.Delete)

	g.POST("/bookings", p.Bookings.Create, p.Limit)
	g.GET("/bookings/self", p.Bookings.Self)
	g.PUT("/bookings/:id", p.Bookings.Update(false), p.Limit)
	g.DELETE("/bookings/:id", p.Bookings.Delete(false), p.Limit)
}

func orPass(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return mw
}
