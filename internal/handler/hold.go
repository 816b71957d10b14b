package handler

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodge-booking/internal/hold"
	"github.com/iliyamo/lodge-booking/internal/middleware"
)

// HoldHandler exposes the hold manager.  Every public operation acts on
// the caller's X-Session-ID.
type HoldHandler struct {
	Holds *hold.Manager
	L     *log.Logger
}

// NewHoldHandler panics if m is nil.
func NewHoldHandler(m *hold.Manager, l *log.Logger) *HoldHandler {
	if m == nil {
		panic("nil hold manager passed to NewHoldHandler")
	}
	return &HoldHandler{Holds: m, L: l}
}

// Create handles POST /v1/holds.
func (h *HoldHandler) Create(c echo.Context) error {
	var body holdRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	r, err := parseRange(body.Start, body.End)
	if err != nil {
		return respond(c, h.L, err)
	}
	guests, err := body.Guests.composition()
	if err != nil {
		return respond(c, h.L, err)
	}
	p, err := h.Holds.CreateHold(c.Request().Context(), middleware.SessionID(c), r, body.RoomIDs, guests)
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusCreated, toHoldResponse(p))
}

// List handles GET /v1/holds.
func (h *HoldHandler) List(c echo.Context) error {
	session := middleware.SessionID(c)
	if session == "" {
		return badRequest(c, "missing session id")
	}
	ps, err := h.Holds.ListActiveBySession(c.Request().Context(), session)
	if err != nil {
		return respond(c, h.L, err)
	}
	out := make([]holdResponse, 0, len(ps))
	for i := range ps {
		out = append(out, toHoldResponse(&ps[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"holds": out})
}

// Delete handles DELETE /v1/holds/:id.
func (h *HoldHandler) Delete(c echo.Context) error {
	if err := h.Holds.DeleteHold(c.Request().Context(), middleware.SessionID(c), c.Param("id")); err != nil {
		return respond(c, h.L, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteAll handles DELETE /v1/holds, releasing every hold of the session.
func (h *HoldHandler) DeleteAll(c echo.Context) error {
	n, err := h.Holds.DeleteHoldsBySession(c.Request().Context(), middleware.SessionID(c))
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": n})
}

// ListByRange handles GET /v1/admin/holds?from=&to=.
func (h *HoldHandler) ListByRange(c echo.Context) error {
	window, err := parseRange(c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return respond(c, h.L, err)
	}
	ps, err := h.Holds.ListActiveByDateRange(c.Request().Context(), window)
	if err != nil {
		return respond(c, h.L, err)
	}
	out := make([]echo.Map, 0, len(ps))
	for i := range ps {
		out = append(out, echo.Map{"session_id": ps[i].SessionID, "hold": toHoldResponse(&ps[i])})
	}
	return c.JSON(http.StatusOK, echo.Map{"holds": out})
}

// Purge handles POST /v1/admin/holds/purge.
func (h *HoldHandler) Purge(c echo.Context) error {
	n, err := h.Holds.PurgeExpired(c.Request().Context())
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"purged": n})
}
