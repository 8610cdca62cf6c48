// Package handler exposes the dispatch core over HTTP.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flightdesk/internal/dispatch"
	"github.com/iliyamo/flightdesk/internal/logger"
	"github.com/iliyamo/flightdesk/internal/model"
)

// AvailabilityChecker answers capacity questions for a slot.
type AvailabilityChecker interface {
	CheckAvailability(ctx context.Context, date, slot string, requested int) (dispatch.Availability, error)
}

// PilotDispatcher assigns pilots and manages the roster counters.
type PilotDispatcher interface {
	AssignPilot(ctx context.Context, bookingID uint64) (*dispatch.AssignResult, error)
	UpdateBookingStatus(ctx context.Context, bookingID uint64, status string) error
	ResetDailyFlightCounts(ctx context.Context) (int64, error)
	ListPilots(ctx context.Context) ([]model.Pilot, error)
}

// ManifestService schedules shuttles and fills their manifests.
type ManifestService interface {
	CreateShuttle(ctx context.Context, departure time.Time, capacity int) (*model.Shuttle, error)
	AutoFill(ctx context.Context, shuttleID uint64) (int, error)
	Manifest(ctx context.Context, shuttleID uint64) (model.Shuttle, []model.ManifestEntry, error)
}

// statusFor maps a dispatch error to its HTTP status.
func statusFor(err error) int {
	switch dispatch.KindOf(err) {
	case dispatch.KindInvalid:
		return http.StatusBadRequest
	case dispatch.KindNotFound:
		return http.StatusNotFound
	case dispatch.KindConflict, dispatch.KindNoCandidate:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes the {success:false,error} envelope.  Store failures are
// logged with their cause; the caller only sees the safe message.
func fail(c echo.Context, log logger.Logger, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, echo.Map{"success": false, "error": dispatch.Message(err)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": msg})
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
