package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodge-booking/internal/service"
)

// BlockageHandler manages blockages on the admin API.
type BlockageHandler struct {
	Blockages *service.BlockageService
	L         *log.Logger
}

// NewBlockageHandler panics if s is nil.
func NewBlockageHandler(s *service.BlockageService, l *log.Logger) *BlockageHandler {
	if s == nil {
		panic("nil blockage service passed to NewBlockageHandler")
	}
	return &BlockageHandler{Blockages: s, L: l}
}

// List handles GET /v1/admin/blockages.
func (h *BlockageHandler) List(c echo.Context) error {
	bs, err := h.Blockages.ListBlockages(c.Request().Context())
	if err != nil {
		return respond(c, h.L, err)
	}
	out := make([]blockageResponse, 0, len(bs))
	for _, b := range bs {
		out = append(out, toBlockageResponse(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"blockages": out})
}

// Create handles POST /v1/admin/blockages.  An empty room_ids blocks the
// whole property.
func (h *BlockageHandler) Create(c echo.Context) error {
	var body blockageRequest
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	r, err := parseRange(body.Start, body.End)
	if err != nil {
		return respond(c, h.L, err)
	}
	b, err := h.Blockages.CreateBlockage(c.Request().Context(), r, body.RoomIDs, body.Reason)
	if err != nil {
		return respond(c, h.L, err)
	}
	return c.JSON(http.StatusCreated, toBlockageResponse(*b))
}

// Delete handles DELETE /v1/admin/blockages/:id.
func (h *BlockageHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return badRequest(c, "invalid blockage id")
	}
	if err := h.Blockages.DeleteBlockage(c.Request().Context(), id); err != nil {
		return respond(c, h.L, err)
	}
	return c.NoContent(http.StatusNoContent)
}
