// Package queue defines the dispatch events exchanged over RabbitMQ and
// the publisher and consumer that move them.
package queue

import (
    "encoding/json"
    "fmt"
    "time"
)

// Event type names carried in Envelope.Type.
const (
    TypeAssignmentCreated    = "assignment.created"
    TypeManifestFilled       = "manifest.filled"
    TypeBookingStatusChanged = "booking.status_changed"
)

// Event is implemented by every payload that can be published.
type Event interface {
    EventType() string
}

// Envelope is the wire format of every message on the dispatch queue.
type Envelope struct {
    Type       string          `json:"type"`
    OccurredAt time.Time       `json:"occurred_at"`
    Data       json.RawMessage `json:"data"`
}

// AssignmentCreatedEvent is published after a pilot assignment commits.
// It carries enough of the booking for the calendar collaborator to
// create an entry without reading the database.
type AssignmentCreatedEvent struct {
    AssignmentID   uint64    `json:"assignment_id"`
    BookingID      uint64    `json:"booking_id"`
    PilotID        uint64    `json:"pilot_id"`
    PilotName      string    `json:"pilot_name"`
    CustomerName   string    `json:"customer_name"`
    Date           string    `json:"date"`
    Time           string    `json:"time"`
    AssignedAt     time.Time `json:"assigned_at"`
    CounterUpdated bool      `json:"counter_updated"`
}

func (AssignmentCreatedEvent) EventType() string { return TypeAssignmentCreated }

// ManifestFilledEvent is published after auto-fill attaches assignments
// to a shuttle.
type ManifestFilledEvent struct {
    ShuttleID     uint64    `json:"shuttle_id"`
    DepartureTime time.Time `json:"departure_time"`
    AssignmentIDs []uint64  `json:"assignment_ids"`
}

func (ManifestFilledEvent) EventType() string { return TypeManifestFilled }

// BookingStatusChangedEvent is published after a booking transition
// commits.  CancelledAssignmentIDs lists the assignments released with it.
type BookingStatusChangedEvent struct {
    BookingID              uint64   `json:"booking_id"`
    CustomerName           string   `json:"customer_name"`
    PreviousStatus         string   `json:"previous_status"`
    Status                 string   `json:"status"`
    Date                   string   `json:"date"`
    Time                   string   `json:"time"`
    CancelledAssignments   int64    `json:"cancelled_assignments"`
    CancelledAssignmentIDs []uint64 `json:"cancelled_assignment_ids,omitempty"`
}

func (BookingStatusChangedEvent) EventType() string { return TypeBookingStatusChanged }

// Encode wraps ev in an Envelope and marshals it.
func Encode(ev Event, at time.Time) ([]byte, error) {
    data, err := json.Marshal(ev)
    if err != nil {
        return nil, fmt.Errorf("marshal %s: %w", ev.EventType(), err)
    }
    return json.Marshal(Envelope{Type: ev.EventType(), OccurredAt: at.UTC(), Data: data})
}

// Decode parses an envelope and its typed payload.
func Decode(body []byte) (Event, time.Time, error) {
    var env Envelope
    if err := json.Unmarshal(body, &env); err != nil {
        return nil, time.Time{}, fmt.Errorf("unmarshal envelope: %w", err)
    }
    var ev Event
    switch env.Type {
    case TypeAssignmentCreated:
        var e AssignmentCreatedEvent
        if err := json.Unmarshal(env.Data, &e); err != nil {
            return nil, env.OccurredAt, fmt.Errorf("unmarshal %s: %w", env.Type, err)
        }
        ev = e
    case TypeManifestFilled:
        var e ManifestFilledEvent
        if err := json.Unmarshal(env.Data, &e); err != nil {
            return nil, env.OccurredAt, fmt.Errorf("unmarshal %s: %w", env.Type, err)
        }
        ev = e
    case TypeBookingStatusChanged:
        var e BookingStatusChangedEvent
        if err := json.Unmarshal(env.Data, &e); err != nil {
            return nil, env.OccurredAt, fmt.Errorf("unmarshal %s: %w", env.Type, err)
        }
        ev = e
    default:
        return nil, env.OccurredAt, fmt.Errorf("unknown event type %q", env.Type)
    }
    return ev, env.OccurredAt, nil
}
