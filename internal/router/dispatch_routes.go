package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flightdesk/internal/middleware"
)

// RegisterDispatch registers the operator and automation endpoints under
// /v1.  Every route requires a valid JWT with the ADMIN or AUTOMATION
// role.  Only the manifest view is cached; writes always reach the store.
func RegisterDispatch(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.Config.JWTSecret),
		middleware.RequireRole(middleware.RoleAdmin, middleware.RoleAutomation),
		middleware.NewTokenBucket(d.Config.RateLimit, d.Redis, d.Log),
	)

	g.POST("/dispatch/assign", d.Dispatch.Assign)
	g.POST("/dispatch/reset-counters", d.Dispatch.ResetCounters)
	g.GET("/pilots", d.Dispatch.ListPilots)
	g.POST("/bookings/:id/status", d.Dispatch.UpdateBookingStatus)

	g.POST("/manifest/create", d.Manifest.Create)
	g.POST("/manifest/autofill", d.Manifest.AutoFill)
	g.GET("/manifest/:id", d.Manifest.Get, middleware.NewRedisCache(d.Config.Cache, d.Redis, d.Log))
}
