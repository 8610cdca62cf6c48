package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flightdesk/internal/dispatch"
	"github.com/iliyamo/flightdesk/internal/logger"
)

// AvailabilityHandler serves the public capacity check used by the
// booking form.
type AvailabilityHandler struct {
	Checker AvailabilityChecker
	Log     logger.Logger
}

type availabilityRequest struct {
	Date     string `json:"date"`
	Time     string `json:"time"`
	Adults   int    `json:"adults"`
	Children int    `json:"children"`
}

// Check handles POST /v1/availability.  Store failures produce a 500 and
// never an "unavailable" answer.
func (h *AvailabilityHandler) Check(c echo.Context) error {
	var body availabilityRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Adults < 0 || body.Children < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "adults and children must not be negative"})
	}
	res, err := h.Checker.CheckAvailability(c.Request().Context(), body.Date, body.Time, body.Adults+body.Children)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.Log.Error("availability check failed", "date", body.Date, "time", body.Time, "error", err)
		}
		return c.JSON(status, echo.Map{"error": dispatch.Message(err)})
	}
	return c.JSON(http.StatusOK, res)
}
