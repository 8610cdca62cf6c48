package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/iliyamo/flightdesk/internal/config"
	"github.com/iliyamo/flightdesk/internal/logger"
	"github.com/iliyamo/flightdesk/internal/metrics"
)

// Availability answers whether a slot can take the requested passengers.
// AvailableSeats is filled in even when Available is false.
type Availability struct {
	Available      bool   `json:"available"`
	AvailableSeats int    `json:"availableSeats"`
	Message        string `json:"message"`
}

// CapacityChecker is the read-only availability query consulted before a
// booking is accepted.
type CapacityChecker struct {
	store CapacityStore
	cfg   config.DispatchConfig
	log   logger.Logger
	m     *metrics.Metrics
}

func NewCapacityChecker(store CapacityStore, cfg config.DispatchConfig, log logger.Logger, m *metrics.Metrics) *CapacityChecker {
	return &CapacityChecker{store: store, cfg: cfg, log: log, m: m}
}

// CheckAvailability reports spare pilot capacity for the slot identified
// by date (YYYY-MM-DD) and slot (HH:MM).  requested must be positive.
// Store failures come back as a KindStore error, never as an
// unavailable answer.
func (c *CapacityChecker) CheckAvailability(ctx context.Context, date, slot string, requested int) (Availability, error) {
	date, slot, err := NormalizeSlot(date, slot)
	if err != nil {
		return Availability{}, err
	}
	if requested <= 0 {
		return Availability{}, invalid("requested passengers must be greater than zero")
	}

	pilots, err := c.store.ActivePilots(ctx)
	if err != nil {
		return Availability{}, storeErr("Failed to check availability", err)
	}
	busy, err := c.store.BusyPilotIDs(ctx, date, slot)
	if err != nil {
		return Availability{}, storeErr("Failed to check availability", err)
	}

	seats := SpareSeats(pilots, busy, c.cfg.DefaultWeightKg, c.cfg.MaxDailyFlights)
	res := Availability{Available: seats >= requested, AvailableSeats: seats}
	switch {
	case res.Available:
		res.Message = fmt.Sprintf("%d seats available", seats)
	case seats == 0:
		res.Message = fmt.Sprintf("No pilots available for %s %s", date, slot)
	default:
		res.Message = fmt.Sprintf("Only %d seats available for %s %s", seats, date, slot)
	}
	c.m.AvailabilityChecks.WithLabelValues(strconv.FormatBool(res.Available)).Inc()
	c.log.Debug("availability checked", "date", date, "time", slot, "requested", requested, "seats", seats)
	return res, nil
}

// NormalizeSlot validates the slot key and returns it in the stored form
// (YYYY-MM-DD, zero-padded HH:MM).  The time parser accepts "9:00", which
// must still match the "09:00" held in bookings.booking_time.
func NormalizeSlot(date, slot string) (string, string, error) {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return "", "", invalid("date must be formatted YYYY-MM-DD")
	}
	t, err := time.Parse("15:04", slot)
	if err != nil {
		return "", "", invalid("time must be formatted HH:MM")
	}
	return d.Format(time.DateOnly), t.Format("15:04"), nil
}
