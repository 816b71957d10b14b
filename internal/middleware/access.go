package middleware

import (
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/iliyamo/lodge-booking/internal/metrics"
)

// HeaderRequestID is echoed back on every response.
const HeaderRequestID = "X-Request-ID"

// AccessLog writes one line per request and records the latency
// histogram.  The trace id comes from the request's span context when a
// tracer is installed; otherwise the request id is logged in its place.
func AccessLog(l *log.Logger, m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now().UTC()
			req := c.Request()

			reqID := req.Header.Get(HeaderRequestID)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			c.Response().Header().Set(HeaderRequestID, reqID)

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			traceID := reqID
			if sc := trace.SpanContextFromContext(req.Context()); sc.IsValid() {
				traceID = sc.TraceID().String()
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			latency := time.Since(start)

			m.ObserveRequest(req.Method, route, strconv.Itoa(status), latency)
			if l != nil {
				l.Printf("type: access, method: %s, route: %s, path: %s, status: %d, session: %s, traceID: %s, latency: %s",
					req.Method, route, req.URL.Path, status, SessionID(c), traceID, latency)
			}
			return nil
		}
	}
}
