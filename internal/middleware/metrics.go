package middleware

import (
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/flightdesk/internal/metrics"
)

// RequestMetrics observes request latency by method, route template and
// status.  Requests that match no route are labelled "unmatched".
func RequestMetrics(m *metrics.Metrics) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            status := c.Response().Status
            if he, ok := err.(*echo.HTTPError); ok {
                status = he.Code
            }
            route := c.Path()
            if route == "" || route == "/*" {
                route = "unmatched"
            }
            m.RequestDuration.
                WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
                Observe(time.Since(start).Seconds())
            return err
        }
    }
}
