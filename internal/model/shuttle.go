package model

import "time"

// ShuttlePending is the status given to newly scheduled shuttles.
const ShuttlePending = "pending"

// SeatsPerAssignment is the number of shuttle seats one pilot/customer
// pair occupies.
const SeatsPerAssignment = 2

// Shuttle is a ground-transport run with a fixed seat capacity.
//
// Fields:
//  ID            – primary key identifier.
//  DepartureTime – scheduled departure in UTC.
//  Capacity      – total seats, fixed at creation.
//  Status        – lifecycle status, "pending" on creation.
type Shuttle struct {
    ID            uint64    `json:"id"`             // shuttles.id
    DepartureTime time.Time `json:"departure_time"` // shuttles.departure_time
    Capacity      int       `json:"capacity"`       // shuttles.capacity
    Status        string    `json:"status"`         // shuttles.status
    CreatedAt     time.Time `json:"created_at"`     // shuttles.created_at
}

// MaxAssignments returns how many pilot/customer pairs fit on the shuttle.
func (s Shuttle) MaxAssignments() int {
    if s.Capacity <= 0 {
        return 0
    }
    return s.Capacity / SeatsPerAssignment
}
