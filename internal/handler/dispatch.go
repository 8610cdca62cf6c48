package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flightdesk/internal/logger"
)

// DispatchHandler serves the pilot dispatch and roster endpoints.  All of
// them sit behind the admin/automation JWT guard.
type DispatchHandler struct {
	Dispatcher PilotDispatcher
	Log        logger.Logger
}

// Assign handles POST /v1/dispatch/assign {bookingId}.
func (h *DispatchHandler) Assign(c echo.Context) error {
	var body struct {
		BookingID uint64 `json:"bookingId"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.BookingID == 0 {
		return badRequest(c, "bookingId is required")
	}
	res, err := h.Dispatcher.AssignPilot(c.Request().Context(), body.BookingID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":      true,
		"pilotName":    res.PilotName,
		"pilotId":      res.PilotID,
		"assignmentId": res.AssignmentID,
	})
}

// UpdateBookingStatus handles POST /v1/bookings/:id/status {status}.
func (h *DispatchHandler) UpdateBookingStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid booking id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.Dispatcher.UpdateBookingStatus(c.Request().Context(), id, body.Status); err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "bookingId": id, "status": body.Status})
}

// ResetCounters handles POST /v1/dispatch/reset-counters.
func (h *DispatchHandler) ResetCounters(c echo.Context) error {
	n, err := h.Dispatcher.ResetDailyFlightCounts(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "reset": n})
}

// ListPilots handles GET /v1/pilots.
func (h *DispatchHandler) ListPilots(c echo.Context) error {
	pilots, err := h.Dispatcher.ListPilots(c.Request().Context())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"pilots": pilots})
}
