package model

import "time"

// Assignment status values.  An assignment is active while it is
// assigned or accepted; only active assignments are placed on shuttles.
const (
    AssignmentAssigned  = "assigned"
    AssignmentAccepted  = "accepted"
    AssignmentCompleted = "completed"
    AssignmentCancelled = "cancelled"
)

// Assignment binds one booking to one pilot.  At most one non-cancelled
// assignment exists per booking.  ShuttleID stays nil until the manifest
// filler places the pair on a shuttle.
type Assignment struct {
    ID         uint64    `json:"id"`         // assignments.id
    BookingID  uint64    `json:"booking_id"` // assignments.booking_id
    PilotID    uint64    `json:"pilot_id"`   // assignments.pilot_id
    Status     string    `json:"status"`     // assignments.status
    ShuttleID  *uint64   `json:"shuttle_id"` // assignments.shuttle_id (nullable)
    AssignedAt time.Time `json:"assigned_at"` // assignments.assigned_at
}

// Pending reports whether the assignment may still be put on a shuttle.
func (a Assignment) Pending() bool {
    return a.ShuttleID == nil && (a.Status == AssignmentAssigned || a.Status == AssignmentAccepted)
}

// ManifestEntry is one row of a shuttle manifest as shown to operators.
type ManifestEntry struct {
    AssignmentID uint64    `json:"assignment_id"`
    BookingID    uint64    `json:"booking_id"`
    PilotID      uint64    `json:"pilot_id"`
    PilotName    string    `json:"pilot_name"`
    CustomerName string    `json:"customer_name"`
    Status       string    `json:"status"`
    AssignedAt   time.Time `json:"assigned_at"`
}
