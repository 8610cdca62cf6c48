package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/flightdesk/internal/config"
	"github.com/iliyamo/flightdesk/internal/dispatch"
	"github.com/iliyamo/flightdesk/internal/handler"
	"github.com/iliyamo/flightdesk/internal/logger"
	"github.com/iliyamo/flightdesk/internal/metrics"
	"github.com/iliyamo/flightdesk/internal/model"
	"github.com/iliyamo/flightdesk/internal/utils"
)

type stubChecker struct{}

func (stubChecker) CheckAvailability(context.Context, string, string, int) (dispatch.Availability, error) {
	return dispatch.Availability{Available: true, AvailableSeats: 2, Message: "2 seats available"}, nil
}

type stubDispatcher struct{}

func (stubDispatcher) AssignPilot(context.Context, uint64) (*dispatch.AssignResult, error) {
	return &dispatch.AssignResult{AssignmentID: 1, PilotID: 1, PilotName: "Ana"}, nil
}
func (stubDispatcher) UpdateBookingStatus(context.Context, uint64, string) error { return nil }
func (stubDispatcher) ResetDailyFlightCounts(context.Context) (int64, error)     { return 0, nil }
func (stubDispatcher) ListPilots(context.Context) ([]model.Pilot, error)         { return nil, nil }

type stubManifests struct{}

func (stubManifests) CreateShuttle(context.Context, time.Time, int) (*model.Shuttle, error) {
	return &model.Shuttle{ID: 1}, nil
}
func (stubManifests) AutoFill(context.Context, uint64) (int, error) { return 1, nil }
func (stubManifests) Manifest(context.Context, uint64) (model.Shuttle, []model.ManifestEntry, error) {
	return model.Shuttle{ID: 1}, nil, nil
}

func newTestEcho(t *testing.T) *echo.Echo {
	reg := prometheus.NewRegistry()
	m, err := metrics.New("fdtest", reg)
	require.NoError(t, err)
	log := logger.Nop()
	return New(Deps{
		Config:       config.Config{JWTSecret: "secret"},
		Log:          log,
		Metrics:      m,
		Gatherer:     reg,
		Availability: &handler.AvailabilityHandler{Checker: stubChecker{}, Log: log},
		Dispatch:     &handler.DispatchHandler{Dispatcher: stubDispatcher{}, Log: log},
		Manifest:     &handler.ManifestHandler{Manifests: stubManifests{}, Log: log},
	})
}

func serve(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPublicRoutes(t *testing.T) {
	e := newTestEcho(t)

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/healthz", "", "").Code)

	rec := serve(e, http.MethodPost, "/v1/availability", `{"date":"2026-07-14","time":"10:30","adults":1}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"availableSeats":2`)

	rec = serve(e, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fdtest_http_request_duration_seconds")
}

func TestDispatchRoutesRequireToken(t *testing.T) {
	e := newTestEcho(t)

	assert.Equal(t, http.StatusUnauthorized, serve(e, http.MethodPost, "/v1/dispatch/assign", `{"bookingId":1}`, "").Code)

	admin, err := utils.NewAccessToken("secret", "ops", "ADMIN", time.Minute)
	require.NoError(t, err)
	rec := serve(e, http.MethodPost, "/v1/dispatch/assign", `{"bookingId":1}`, admin.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pilotName":"Ana"`)

	assert.Equal(t, http.StatusCreated,
		serve(e, http.MethodPost, "/v1/manifest/create", `{"departureTime":"2026-07-14T09:00:00Z"}`, admin.Token).Code)
	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/v1/manifest/1", "", admin.Token).Code)
}
