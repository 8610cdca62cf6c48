package model

import "time"

// Pilot status values.
const (
    PilotActive   = "active"
    PilotInactive = "inactive"
)

// Pilot is a tandem-flight operator.  Only active pilots whose weight
// envelope covers the passenger may be dispatched.
//
// Fields:
//  ID               – primary key identifier.
//  Name             – display name returned to callers after dispatch.
//  Status           – roster status (active, inactive).
//  WeightLimitMin   – lightest passenger the pilot may carry, in kg.
//  WeightLimitMax   – heaviest passenger the pilot may carry, in kg.
//  DailyFlightCount – flights assigned today; reset once per operating day.
//  Skills           – free-form skill tags maintained by the roster manager.
type Pilot struct {
    ID               uint64    `json:"id"`                 // pilots.id
    Name             string    `json:"name"`               // pilots.name
    Status           string    `json:"status"`             // pilots.status
    WeightLimitMin   float64   `json:"weight_limit_min"`   // pilots.weight_limit_min
    WeightLimitMax   float64   `json:"weight_limit_max"`   // pilots.weight_limit_max
    DailyFlightCount int       `json:"daily_flight_count"` // pilots.daily_flight_count
    Skills           []string  `json:"skills"`             // pilots.skills (comma separated)
    CreatedAt        time.Time `json:"created_at"`         // pilots.created_at
}

// Covers reports whether weight lies inside the pilot's inclusive envelope.
func (p Pilot) Covers(weight float64) bool {
    return p.WeightLimitMin <= weight && weight <= p.WeightLimitMax
}

// Eligible reports whether the pilot is active and can carry weight.
func (p Pilot) Eligible(weight float64) bool {
    return p.Status == PilotActive && p.Covers(weight)
}
