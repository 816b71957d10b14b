package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodge-booking/internal/middleware"
	"github.com/iliyamo/lodge-booking/internal/service"
)

// BookingHandler serves the booking lifecycle.  Guests authorize changes
// with the X-Edit-Token they received on creation; the admin routes are
// guarded by JWT middleware and act with administrator rights.
type BookingHandler struct {
	Bookings *service.BookingService
	L        *log.Logger
}

// NewBookingHandler panics if s is nil.
func NewBookingHandler(s *service.BookingService, l *log.Logger) *BookingHandler {
	if s == nil {
		panic("nil booking service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: s, L: l}
}

func bookingID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id != 0
}

func (h *BookingHandler) bind(c echo.Context) (service.BookingInput, error) {
	var body bookingRequest
	if err := c.Bind(&body); err != nil {
		return service.BookingInput{}, errInvalidBody
	}
	return body.input(middleware.SessionID(c))
}

// Quote handles POST /v1/quote.  Nothing is stored and availability is
// not checked.
func (h *BookingHandler) Quote(c echo.Context) error {
	in, err := h.bind(c)
	if err != nil {
		return respond(c, h.L, err)
	}
	q, err := h.Bookings.Quote(c.Request().Context(), in)
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Create handles POST /v1/bookings.  The response carries the edit token;
// it is not retrievable later.
func (h *BookingHandler) Create(c echo.Context) error {
	in, err := h.bind(c)
	if err != nil {
		return respond(c, h.L, err)
	}
	in.Reprice = false
	b, token, err := h.Bookings.CreateBooking(c.Request().Context(), in)
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusCreated, toBookingResponse(b, token))
}

// Self handles GET /v1/bookings/self.
func (h *BookingHandler) Self(c echo.Context) error {
	b, err := h.Bookings.GetBookingByEditToken(c.Request().Context(), c.Request().Header.Get(middleware.HeaderEditToken))
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b, ""))
}

// Update handles PUT /v1/bookings/:id and PUT /v1/admin/bookings/:id.
func (h *BookingHandler) Update(admin bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := bookingID(c)
		if !ok {
			return badRequest(c, "invalid booking id")
		}
		in, err := h.bind(c)
		if err != nil {
			return respond(c, h.L, err)
		}
		b, err := h.Bookings.UpdateBooking(c.Request().Context(), id, h.access(c, admin), in)
		if err != nil {
			return respond(c, h.L, err)
		}
		return c.JSON(http.StatusOK, toBookingResponse(b, ""))
	}
}

// Delete handles DELETE /v1/bookings/:id and DELETE /v1/admin/bookings/:id.
func (h *BookingHandler) Delete(admin bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := bookingID(c)
		if !ok {
			return badRequest(c, "invalid booking id")
		}
		if err := h.Bookings.DeleteBooking(c.Request().Context(), id, h.access(c, admin)); err != nil {
			return respond(c, h.L, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

// List handles GET /v1/admin/bookings.
func (h *BookingHandler) List(c echo.Context) error {
	bs, err := h.Bookings.ListBookings(c.Request().Context())
	if err != nil {
		return respond(c, h.L, err)
	}
	out := make([]bookingResponse, 0, len(bs))
	for i := range bs {
		out = append(out, toBookingResponse(&bs[i], ""))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// Get handles GET /v1/admin/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, ok := bookingID(c)
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	b, err := h.Bookings.GetBooking(c.Request().Context(), id)
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusOK, toBookingResponse(b, ""))
}

// PriceAudit handles GET /v1/admin/bookings/:id/price-audit.
func (h *BookingHandler) PriceAudit(c echo.Context) error {
	id, ok := bookingID(c)
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	a, err := h.Bookings.AuditPrice(c.Request().Context(), id)
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *BookingHandler) access(c echo.Context, admin bool) service.Access {
	if admin {
		return service.Access{Admin: true}
	}
	return service.Access{EditToken: c.Request().Header.Get(middleware.HeaderEditToken)}
}
