// Package calendar turns dispatch events into Google Calendar entries so
// pilots see their tandem flights next to the rest of their schedule.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/iliyamo/flightdesk/internal/config"
	"github.com/iliyamo/flightdesk/internal/logger"
	"github.com/iliyamo/flightdesk/internal/queue"
)

// FlightDuration is the length of the calendar block for one tandem flight.
const FlightDuration = 30 * time.Minute

// eventsAPI is the slice of the Calendar API the sink needs.
type eventsAPI interface {
	Insert(ctx context.Context, calendarID string, ev *gcal.Event) error
	Delete(ctx context.Context, calendarID, eventID string) error
}

type googleEvents struct{ svc *gcal.Service }

func (g googleEvents) Insert(ctx context.Context, calendarID string, ev *gcal.Event) error {
	_, err := g.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	return err
}

func (g googleEvents) Delete(ctx context.Context, calendarID, eventID string) error {
	return g.svc.Events.Delete(calendarID, eventID).Context(ctx).Do()
}

// Sink writes assignment events to a calendar and removes them again when
// the booking is cancelled.  Other events are only logged.
type Sink struct {
	api        eventsAPI
	calendarID string
	loc        *time.Location
	log        logger.Logger
}

// NewGoogleSink authenticates with the stored refresh token and returns a
// sink bound to cfg.CalendarID.
func NewGoogleSink(ctx context.Context, cfg config.CalendarConfig, log logger.Logger) (*Sink, error) {
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("calendar timezone %q: %w", cfg.TimeZone, err)
	}
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gcal.CalendarEventsScope},
	}
	// expired on purpose so the first call refreshes
	ts := oc.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken, Expiry: time.Now()})
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}
	return &Sink{api: googleEvents{svc: svc}, calendarID: cfg.CalendarID, loc: loc, log: log}, nil
}

// NewLogSink returns a sink that only logs.  It is used when no Google
// credentials are configured.
func NewLogSink(log logger.Logger) *Sink {
	return &Sink{loc: time.UTC, log: log}
}

var _ queue.Sink = (*Sink)(nil)

// Handle implements queue.Sink.
func (s *Sink) Handle(ctx context.Context, ev queue.Event, occurredAt time.Time) error {
	switch e := ev.(type) {
	case queue.AssignmentCreatedEvent:
		s.log.Info("assignment created",
			"booking_id", e.BookingID, "pilot", e.PilotName, "slot", e.Date+" "+e.Time,
			"counter_updated", e.CounterUpdated, "occurred_at", occurredAt)
		if s.api == nil {
			return nil
		}
		cev, err := BuildEvent(e, s.loc)
		if err != nil {
			return queue.Permanent(err)
		}
		err = s.api.Insert(ctx, s.calendarID, cev)
		if hasStatus(err, http.StatusConflict) {
			s.log.Debug("calendar event already exists", "event_id", cev.Id)
			return nil
		}
		return classify(err)

	case queue.BookingStatusChangedEvent:
		s.log.Info("booking status changed",
			"booking_id", e.BookingID, "from", e.PreviousStatus, "to", e.Status,
			"cancelled_assignments", e.CancelledAssignments)
		if s.api == nil {
			return nil
		}
		var errs []error
		for _, id := range e.CancelledAssignmentIDs {
			err := s.api.Delete(ctx, s.calendarID, EventID(e.BookingID, id))
			if err == nil || hasStatus(err, http.StatusNotFound) || hasStatus(err, http.StatusGone) {
				continue
			}
			errs = append(errs, classify(err))
		}
		return errors.Join(errs...)

	case queue.ManifestFilledEvent:
		s.log.Info("manifest filled",
			"shuttle_id", e.ShuttleID, "departure", e.DepartureTime, "assignments", len(e.AssignmentIDs))
		return nil
	}
	s.log.Warn("ignoring unknown event", "event", ev.EventType())
	return nil
}

// EventID derives the calendar event id from the assignment.  Google keeps
// deleted ids reserved, so a booking that is reassigned needs a fresh one.
// Ids are limited to the base32hex alphabet (0-9, a-v).
func EventID(bookingID, assignmentID uint64) string {
	return fmt.Sprintf("flightdesk%da%d", bookingID, assignmentID)
}

// BuildEvent converts an assignment into a calendar entry starting at the
// booking slot in loc.
func BuildEvent(e queue.AssignmentCreatedEvent, loc *time.Location) (*gcal.Event, error) {
	start, err := time.ParseInLocation("2006-01-02 15:04", e.Date+" "+e.Time, loc)
	if err != nil {
		return nil, fmt.Errorf("booking %d slot: %w", e.BookingID, err)
	}
	end := start.Add(FlightDuration)
	return &gcal.Event{
		Id:          EventID(e.BookingID, e.AssignmentID),
		Summary:     fmt.Sprintf("Tandem: %s / %s", e.PilotName, e.CustomerName),
		Description: fmt.Sprintf("Booking #%d, assignment #%d", e.BookingID, e.AssignmentID),
		Start:       &gcal.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: loc.String()},
		End:         &gcal.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: loc.String()},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{
				"assignment_id": fmt.Sprint(e.AssignmentID),
				"pilot_id":      fmt.Sprint(e.PilotID),
			},
		},
	}, nil
}

// classify marks client errors other than rate limiting as permanent so
// the consumer does not retry a request Google will keep rejecting.
func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code >= 400 && gerr.Code < 500 &&
		gerr.Code != http.StatusTooManyRequests && gerr.Code != http.StatusUnauthorized {
		return queue.Permanent(err)
	}
	return err
}

func hasStatus(err error, code int) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == code
}
