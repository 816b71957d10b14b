package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodge-booking/internal/availability"
	"github.com/iliyamo/lodge-booking/internal/middleware"
	"github.com/iliyamo/lodge-booking/internal/store"
)

// CatalogHandler serves the reference data and the availability calendar.
type CatalogHandler struct {
	Store    store.Reader
	Resolver *availability.Resolver
	L        *log.Logger
}

// NewCatalogHandler panics if a dependency is nil.
func NewCatalogHandler(st store.Reader, res *availability.Resolver, l *log.Logger) *CatalogHandler {
	if st == nil || res == nil {
		panic("nil dependency passed to NewCatalogHandler")
	}
	return &CatalogHandler{Store: st, Resolver: res, L: l}
}

// Rooms handles GET /v1/rooms.
func (h *CatalogHandler) Rooms(c echo.Context) error {
	rooms, err := h.Store.ListRooms(c.Request().Context())
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"rooms": rooms})
}

// Prices handles GET /v1/prices.
func (h *CatalogHandler) Prices(c echo.Context) error {
	cfg, err := h.Store.GetPriceConfig(c.Request().Context())
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusOK, cfg)
}

// Availability handles GET /v1/availability?from=&to=&rooms=11,12.  The
// range is inclusive of from and exclusive of to.  Holds of the caller's
// own session are not shown.
func (h *CatalogHandler) Availability(c echo.Context) error {
	window, err := parseRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return respond(c, h.L, err)
	}
	if window.Nights() > maxCalendarDays {
		return badRequest(c, "calendar window too large")
	}
	var roomIDs []string
	for _, id := range strings.Split(c.QueryParam("rooms"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			roomIDs = append(roomIDs, id)
		}
	}
	cal, err := h.Resolver.Calendar(c.Request().Context(), roomIDs, window, middleware.SessionID(c))
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusOK, toCalendarResponse(cal))
}

const maxCalendarDays = 400
