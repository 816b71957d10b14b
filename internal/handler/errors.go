package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/lodge-booking/internal/model"
)

var errInvalidBody = errors.New("invalid request body")

// respond writes err as {"error": ...} with the matching status.  Storage
// and unknown errors are logged and hidden behind a generic message.
func respond(c echo.Context, l *log.Logger, err error) error {
	if ru := model.IsRoomUnavailable(err); ru != nil {
		dates := make([]string, 0, len(ru.Dates))
		for _, d := range ru.Dates {
			dates = append(dates, date(d))
		}
		body := echo.Map{"error": ru.Error(), "room_id": ru.RoomID, "dates": dates}
		if ru.BlockageID != 0 {
			body["blockage_id"] = ru.BlockageID
		}
		return c.JSON(http.StatusConflict, body)
	}
	if ce := model.IsCapacityExceeded(err); ce != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ce.Error(), "room_id": ce.RoomID, "bed_count": ce.BedCount})
	}

	switch {
	case errors.Is(err, errInvalidBody),
		errors.Is(err, model.ErrInvalidDateRange),
		errors.Is(err, model.ErrInvalidGuests),
		errors.Is(err, model.ErrNoRooms),
		errors.Is(err, model.ErrDuplicateRoom),
		errors.Is(err, model.ErrMissingSession):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrRoomNotFound),
		errors.Is(err, model.ErrBookingNotFound),
		errors.Is(err, model.ErrProposalNotFound),
		errors.Is(err, model.ErrBlockageNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrProposalExpired):
		return c.JSON(http.StatusGone, echo.Map{"error": err.Error()})
	case errors.Is(err, model.ErrInvalidEditToken):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "invalid edit token"})
	}

	if l != nil {
		l.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
