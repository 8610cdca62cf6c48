package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flightdesk/internal/logger"
	"github.com/iliyamo/flightdesk/internal/model"
)

// ManifestHandler serves shuttle scheduling and manifest filling.
type ManifestHandler struct {
	Manifests ManifestService
	Log       logger.Logger
}

// Create handles POST /v1/manifest/create {departureTime, capacity?}.  A
// missing capacity selects the configured default.
func (h *ManifestHandler) Create(c echo.Context) error {
	var body struct {
		DepartureTime time.Time `json:"departureTime"`
		Capacity      int       `json:"capacity"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	s, err := h.Manifests.CreateShuttle(c.Request().Context(), body.DepartureTime, body.Capacity)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// AutoFill handles POST /v1/manifest/autofill {shuttleId}.
func (h *ManifestHandler) AutoFill(c echo.Context) error {
	var body struct {
		ShuttleID uint64 `json:"shuttleId"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "invalid request body")
	}
	if body.ShuttleID == 0 {
		return badRequest(c, "shuttleId is required")
	}
	n, err := h.Manifests.AutoFill(c.Request().Context(), body.ShuttleID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "count": n})
}

type manifestView struct {
	Shuttle   model.Shuttle         `json:"shuttle"`
	SeatsUsed int                   `json:"seatsUsed"`
	Entries   []model.ManifestEntry `json:"manifest"`
}

// Get handles GET /v1/manifest/:id.
func (h *ManifestHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid shuttle id")
	}
	s, entries, err := h.Manifests.Manifest(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, manifestView{
		Shuttle:   s,
		SeatsUsed: len(entries) * model.SeatsPerAssignment,
		Entries:   entries,
	})
}
