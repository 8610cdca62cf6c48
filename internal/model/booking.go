package model

import "time"

// Booking status values.
const (
    BookingPending   = "pending"
    BookingConfirmed = "confirmed"
    BookingCompleted = "completed"
    BookingCancelled = "cancelled"
)

// Booking is a customer's request to fly in a given slot.  Bookings are
// created by the reservation flow; the dispatch core only reads them.
//
// Fields:
//  ID             – primary key identifier.
//  CustomerName   – customer display name.
//  CustomerWeight – customer weight in kg, nil when unknown.
//  Date           – slot date formatted YYYY-MM-DD.
//  Time           – slot time formatted HH:MM.
//  Adults         – adult passengers on the booking.
//  Children       – child passengers on the booking.
//  Status         – pending, confirmed, completed or cancelled.
type Booking struct {
    ID             uint64    `json:"id"`              // bookings.id
    CustomerName   string    `json:"customer_name"`   // bookings.customer_name
    CustomerWeight *float64  `json:"customer_weight"` // bookings.customer_weight (nullable)
    Date           string    `json:"date"`            // bookings.booking_date
    Time           string    `json:"time"`            // bookings.booking_time
    Adults         int       `json:"adults"`          // bookings.adults
    Children       int       `json:"children"`        // bookings.children
    Status         string    `json:"status"`          // bookings.status
    CreatedAt      time.Time `json:"created_at"`      // bookings.created_at
}

// WeightOr returns the customer weight, or def when it is unknown.
func (b Booking) WeightOr(def float64) float64 {
    if b.CustomerWeight == nil || *b.CustomerWeight <= 0 {
        return def
    }
    return *b.CustomerWeight
}

// ValidBookingStatus reports whether s is a known booking status.
func ValidBookingStatus(s string) bool {
    switch s {
    case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
        return true
    }
    return false
}
