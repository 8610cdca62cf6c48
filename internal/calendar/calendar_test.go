package calendar

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/iliyamo/flightdesk/internal/logger"
	"github.com/iliyamo/flightdesk/internal/queue"
)

// fakeEvents behaves like Google Calendar in that an id stays taken after
// its event is deleted.
type fakeEvents struct {
	inserted  []*gcal.Event
	deleted   []string
	used      map[string]bool
	insertErr error
	deleteErr error
}

func (f *fakeEvents) Insert(_ context.Context, _ string, ev *gcal.Event) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if f.used == nil {
		f.used = map[string]bool{}
	}
	if f.used[ev.Id] {
		return &googleapi.Error{Code: http.StatusConflict}
	}
	f.used[ev.Id] = true
	f.inserted = append(f.inserted, ev)
	return nil
}

func (f *fakeEvents) Delete(_ context.Context, _ string, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

var assigned = queue.AssignmentCreatedEvent{
	AssignmentID: 31, BookingID: 12, PilotID: 4,
	PilotName: "Ana", CustomerName: "Marta",
	Date: "2026-07-14", Time: "10:30",
}

func TestBuildEvent(t *testing.T) {
	loc := time.FixedZone("Europe/Madrid", 2*3600)

	ev, err := BuildEvent(assigned, loc)
	require.NoError(t, err)
	assert.Equal(t, "flightdesk12a31", ev.Id)
	assert.Equal(t, "Tandem: Ana / Marta", ev.Summary)
	assert.Equal(t, "2026-07-14T10:30:00+02:00", ev.Start.DateTime)
	assert.Equal(t, "2026-07-14T11:00:00+02:00", ev.End.DateTime)
	assert.Equal(t, "31", ev.ExtendedProperties.Private["assignment_id"])

	bad := assigned
	bad.Time = "25:99"
	_, err = BuildEvent(bad, loc)
	assert.Error(t, err)
}

func TestSink_AssignmentCreated(t *testing.T) {
	api := &fakeEvents{}
	s := &Sink{api: api, calendarID: "primary", loc: time.UTC, log: logger.Nop()}

	require.NoError(t, s.Handle(context.Background(), assigned, time.Now()))
	require.Len(t, api.inserted, 1)
	assert.Equal(t, "2026-07-14T10:30:00Z", api.inserted[0].Start.DateTime)

	api.insertErr = &googleapi.Error{Code: http.StatusConflict}
	assert.NoError(t, s.Handle(context.Background(), assigned, time.Now()), "duplicate delivery is not an error")

	api.insertErr = &googleapi.Error{Code: http.StatusInternalServerError}
	err := s.Handle(context.Background(), assigned, time.Now())
	require.Error(t, err)
	assert.False(t, queue.IsPermanent(err))

	api.insertErr = &googleapi.Error{Code: http.StatusBadRequest}
	assert.True(t, queue.IsPermanent(s.Handle(context.Background(), assigned, time.Now())))

	bad := assigned
	bad.Date = "14/07/2026"
	api.insertErr = nil
	assert.True(t, queue.IsPermanent(s.Handle(context.Background(), bad, time.Now())))
}

func TestSink_BookingCancelled(t *testing.T) {
	api := &fakeEvents{}
	s := &Sink{api: api, calendarID: "primary", loc: time.UTC, log: logger.Nop()}
	ev := queue.BookingStatusChangedEvent{
		BookingID: 12, PreviousStatus: "confirmed", Status: "cancelled",
		CancelledAssignments: 1, CancelledAssignmentIDs: []uint64{31},
	}

	require.NoError(t, s.Handle(context.Background(), ev, time.Now()))
	assert.Equal(t, []string{"flightdesk12a31"}, api.deleted)

	api.deleteErr = &googleapi.Error{Code: http.StatusGone}
	assert.NoError(t, s.Handle(context.Background(), ev, time.Now()))

	api.deleteErr = errors.New("network")
	assert.Error(t, s.Handle(context.Background(), ev, time.Now()))

	ev.CancelledAssignments, ev.CancelledAssignmentIDs = 0, nil
	assert.NoError(t, s.Handle(context.Background(), ev, time.Now()))
}

func TestSink_ReassignAfterCancelCreatesNewEvent(t *testing.T) {
	api := &fakeEvents{}
	s := &Sink{api: api, calendarID: "primary", loc: time.UTC, log: logger.Nop()}
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, assigned, time.Now()))
	require.NoError(t, s.Handle(ctx, queue.BookingStatusChangedEvent{
		BookingID: 12, Status: "cancelled", CancelledAssignments: 1, CancelledAssignmentIDs: []uint64{31},
	}, time.Now()))

	again := assigned
	again.AssignmentID = 40
	again.PilotName = "Bo"
	require.NoError(t, s.Handle(ctx, again, time.Now()))

	require.Len(t, api.inserted, 2)
	assert.Equal(t, "flightdesk12a40", api.inserted[1].Id)
	assert.Equal(t, "Tandem: Bo / Marta", api.inserted[1].Summary)
	assert.Equal(t, []string{"flightdesk12a31"}, api.deleted)
}

func TestLogSink_NeverCallsGoogle(t *testing.T) {
	s := NewLogSink(logger.Nop())
	assert.NoError(t, s.Handle(context.Background(), assigned, time.Now()))
	assert.NoError(t, s.Handle(context.Background(), queue.ManifestFilledEvent{ShuttleID: 1}, time.Now()))
	assert.NoError(t, s.Handle(context.Background(),
		queue.BookingStatusChangedEvent{BookingID: 1, CancelledAssignments: 1, CancelledAssignmentIDs: []uint64{2}}, time.Now()))
}
