package middleware

import (
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/flightdesk/internal/logger"
)

// RequestLogger writes one structured line per request.
func RequestLogger(log logger.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let the error handler set the final status
                c.Error(err)
            }
            req, res := c.Request(), c.Response()
            kv := []interface{}{
                "method", req.Method,
                "path", req.URL.Path,
                "route", c.Path(),
                "status", res.Status,
                "bytes", res.Size,
                "latency_ms", time.Since(start).Milliseconds(),
                "ip", c.RealIP(),
                "subject", Subject(c),
            }
            if id := res.Header().Get(echo.HeaderXRequestID); id != "" {
                kv = append(kv, "request_id", id)
            }
            switch {
            case res.Status >= 500:
                log.Error("request", kv...)
            case res.Status >= 400:
                log.Warn("request", kv...)
            default:
                log.Info("request", kv...)
            }
            return nil
        }
    }
}
