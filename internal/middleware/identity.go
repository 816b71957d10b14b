package middleware

import (
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
)

// Request headers carrying the caller's identity.
const (
	HeaderSessionID = "X-Session-ID"
	HeaderEditToken = "X-Edit-Token"
)

const ctxSessionID = "session_id"

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

// Session reads the client session id from X-Session-ID.  A missing
// header is allowed; handlers that need a session reject the request
// themselves.  A malformed id is rejected with 400.
func Session() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(HeaderSessionID)
			if id != "" && !sessionPattern.MatchString(id) {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "malformed session id"})
			}
			c.Set(ctxSessionID, id)
			return next(c)
		}
	}
}

// SessionID returns the session id stored by Session.
func SessionID(c echo.Context) string {
	s, _ := c.Get(ctxSessionID).(string)
	return s
}

// clientID identifies the caller for rate limiting: the verified admin
// subject, else "anon".  Session ids are chosen by the client and do not
// split the per-IP bucket.
func clientID(c echo.Context) string {
	if s := AdminID(c); s != "" {
		return "admin:" + s
	}
	return "anon"
}
