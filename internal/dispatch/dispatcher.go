package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/flightdesk/internal/config"
	"github.com/iliyamo/flightdesk/internal/logger"
	"github.com/iliyamo/flightdesk/internal/metrics"
	"github.com/iliyamo/flightdesk/internal/model"
	"github.com/iliyamo/flightdesk/internal/queue"
)

// AssignResult describes a committed pilot assignment.  CounterUpdated is
// false when the best-effort flight counter increment failed.
type AssignResult struct {
	AssignmentID   uint64 `json:"assignmentId"`
	PilotID        uint64 `json:"pilotId"`
	PilotName      string `json:"pilotName"`
	CounterUpdated bool   `json:"-"`
}

// Dispatcher assigns pilots to bookings and manages the per-day flight
// counters and booking transitions that feed fairness.
type Dispatcher struct {
	store  Store
	cfg    config.DispatchConfig
	log    logger.Logger
	m      *metrics.Metrics
	events *notifier
	now    func() time.Time
}

func NewDispatcher(store Store, pub Publisher, cfg config.DispatchConfig, log logger.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		store:  store,
		cfg:    cfg,
		log:    log,
		m:      m,
		events: &notifier{pub: pub, log: log, m: m},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// AssignPilot picks the least-flown active pilot whose weight envelope
// covers the booking's passenger and records the assignment.
//
// Selection and claim run in one transaction with the booking and the
// candidate pilot rows locked, so concurrent calls cannot both claim a
// pilot on the same stale counter.  The counter increment is best-effort:
// when it fails the assignment still commits and the failure is logged.
func (d *Dispatcher) AssignPilot(ctx context.Context, bookingID uint64) (*AssignResult, error) {
	res, ev, err := d.assign(ctx, bookingID)
	d.m.Dispatches.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		if KindOf(err) == KindStore {
			d.log.Error("pilot assignment failed", "booking_id", bookingID, "error", err)
		}
		return nil, err
	}
	d.log.Info("pilot assigned", "booking_id", bookingID, "pilot_id", res.PilotID, "assignment_id", res.AssignmentID)
	d.events.emit(ctx, ev)
	return res, nil
}

func (d *Dispatcher) assign(ctx context.Context, bookingID uint64) (*AssignResult, queue.AssignmentCreatedEvent, error) {
	var (
		res AssignResult
		ev  queue.AssignmentCreatedEvent
	)
	if bookingID == 0 {
		return nil, ev, invalid("bookingId is required")
	}
	err := d.store.InTx(ctx, func(tx Tx) error {
		b, err := tx.BookingForUpdate(ctx, bookingID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return storeErr("Failed to load booking", err)
		}
		if b.Status == model.BookingCancelled || b.Status == model.BookingCompleted {
			return ErrBookingClosed
		}
		assigned, err := tx.HasActiveAssignment(ctx, bookingID)
		if err != nil {
			return storeErr("Failed to load booking", err)
		}
		if assigned {
			return ErrAlreadyAssigned
		}

		weight := b.WeightOr(d.cfg.DefaultWeightKg)
		pilots, err := tx.EligiblePilotsForUpdate(ctx, weight)
		if err != nil {
			return storeErr("Failed to load pilots", err)
		}
		pilot, ok := SelectPilot(pilots, weight)
		if !ok {
			return ErrNoSuitablePilots
		}

		a := &model.Assignment{
			BookingID:  bookingID,
			PilotID:    pilot.ID,
			Status:     model.AssignmentAssigned,
			AssignedAt: d.now(),
		}
		if err := tx.InsertAssignment(ctx, a); err != nil {
			return storeErr(ErrCreateAssignment.Msg, err)
		}

		res = AssignResult{AssignmentID: a.ID, PilotID: pilot.ID, PilotName: pilot.Name, CounterUpdated: true}
		if err := tx.IncrementFlightCount(ctx, pilot.ID); err != nil {
			res.CounterUpdated = false
			d.log.Warn("flight counter increment failed; assignment kept",
				"pilot_id", pilot.ID, "booking_id", bookingID, "error", err)
			d.m.BestEffortFailures.WithLabelValues("flight_counter").Inc()
		}
		ev = queue.AssignmentCreatedEvent{
			AssignmentID:   a.ID,
			BookingID:      bookingID,
			PilotID:        pilot.ID,
			PilotName:      pilot.Name,
			CustomerName:   b.CustomerName,
			Date:           b.Date,
			Time:           b.Time,
			AssignedAt:     a.AssignedAt,
			CounterUpdated: res.CounterUpdated,
		}
		return nil
	})
	if err != nil {
		var de *Error
		if errors.As(err, &de) {
			return nil, ev, err
		}
		// commit failed
		return nil, ev, storeErr(ErrCreateAssignment.Msg, err)
	}
	return &res, ev, nil
}

// UpdateBookingStatus moves a booking to status.  Cancelling a booking
// also cancels its active assignment so the pilot is released.  The
// calendar collaborator is notified after commit; that notification can
// fail without affecting the transition.
func (d *Dispatcher) UpdateBookingStatus(ctx context.Context, bookingID uint64, status string) error {
	if bookingID == 0 {
		return invalid("bookingId is required")
	}
	if !model.ValidBookingStatus(status) {
		return invalid("unknown booking status")
	}
	var ev queue.BookingStatusChangedEvent
	err := d.store.InTx(ctx, func(tx Tx) error {
		b, err := tx.BookingForUpdate(ctx, bookingID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrBookingNotFound
		}
		if err != nil {
			return storeErr("Failed to load booking", err)
		}
		if err := tx.UpdateBookingStatus(ctx, bookingID, status); err != nil {
			return storeErr("Failed to update booking", err)
		}
		var released []uint64
		if status == model.BookingCancelled {
			if released, err = tx.CancelActiveAssignments(ctx, bookingID); err != nil {
				return storeErr("Failed to update booking", err)
			}
		}
		ev = queue.BookingStatusChangedEvent{
			BookingID:              bookingID,
			CustomerName:           b.CustomerName,
			PreviousStatus:         b.Status,
			Status:                 status,
			Date:                   b.Date,
			Time:                   b.Time,
			CancelledAssignments:   int64(len(released)),
			CancelledAssignmentIDs: released,
		}
		return nil
	})
	if err != nil {
		var de *Error
		if !errors.As(err, &de) {
			err = storeErr("Failed to update booking", err)
		}
		return err
	}
	d.log.Info("booking status changed", "booking_id", bookingID, "from", ev.PreviousStatus, "to", status)
	d.events.emit(ctx, ev)
	return nil
}

// ResetDailyFlightCounts zeroes every pilot's counter at the start of an
// operating day.
func (d *Dispatcher) ResetDailyFlightCounts(ctx context.Context) (int64, error) {
	n, err := d.store.ResetDailyFlightCounts(ctx)
	if err != nil {
		return 0, storeErr("Failed to reset flight counts", err)
	}
	d.log.Info("daily flight counts reset", "pilots", n)
	return n, nil
}

// ListPilots returns the roster with current counters.
func (d *Dispatcher) ListPilots(ctx context.Context) ([]model.Pilot, error) {
	ps, err := d.store.ListPilots(ctx)
	if err != nil {
		return nil, storeErr("Failed to load pilots", err)
	}
	return ps, nil
}

// Wait blocks until pending event publishes complete.
func (d *Dispatcher) Wait() { d.events.wait() }
