// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/flightdesk/internal/config"
	"github.com/iliyamo/flightdesk/internal/handler"
	"github.com/iliyamo/flightdesk/internal/logger"
	"github.com/iliyamo/flightdesk/internal/metrics"
	"github.com/iliyamo/flightdesk/internal/middleware"
)

// Deps collects what the routes need.  Redis may be nil, which disables
// rate limiting and response caching.
type Deps struct {
	Config       config.Config
	Log          logger.Logger
	Metrics      *metrics.Metrics
	Gatherer     prometheus.Gatherer
	Redis        *redis.Client
	DB           handler.Pinger
	Availability *handler.AvailabilityHandler
	Dispatch     *handler.DispatchHandler
	Manifest     *handler.ManifestHandler
}

// New builds the Echo instance with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Log), middleware.RequestMetrics(d.Metrics))

	RegisterRoutes(e, d)
	RegisterDispatch(e, d)
	return e
}

// RegisterRoutes registers the routes that need no token: health, metrics
// and the public availability check, which is rate limited per client.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	limit := middleware.NewTokenBucket(d.Config.RateLimit, d.Redis, d.Log)
	e.POST("/v1/availability", d.Availability.Check, limit)
}
