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

// ManifestFiller schedules shuttles and batches pending pilot/customer
// pairs onto them.
type ManifestFiller struct {
	store  Store
	cfg    config.DispatchConfig
	log    logger.Logger
	m      *metrics.Metrics
	events *notifier
}

func NewManifestFiller(store Store, pub Publisher, cfg config.DispatchConfig, log logger.Logger, m *metrics.Metrics) *ManifestFiller {
	return &ManifestFiller{
		store:  store,
		cfg:    cfg,
		log:    log,
		m:      m,
		events: &notifier{pub: pub, log: log, m: m},
	}
}

// CreateShuttle schedules a pending shuttle.  A zero capacity selects the
// configured default.
func (f *ManifestFiller) CreateShuttle(ctx context.Context, departure time.Time, capacity int) (*model.Shuttle, error) {
	if departure.IsZero() {
		return nil, invalid("departureTime is required")
	}
	if capacity == 0 {
		capacity = f.cfg.DefaultShuttleCapacity
	}
	if capacity < 0 {
		return nil, invalid("capacity must be positive")
	}
	s := &model.Shuttle{
		DepartureTime: departure.UTC(),
		Capacity:      capacity,
		Status:        model.ShuttlePending,
	}
	if err := f.store.InsertShuttle(ctx, s); err != nil {
		f.log.Error("shuttle insert failed", "error", err)
		return nil, storeErr("Failed to create shuttle", err)
	}
	f.log.Info("shuttle created", "shuttle_id", s.ID, "capacity", s.Capacity, "departure", s.DepartureTime)
	return s, nil
}

// AutoFill attaches the oldest pending assignments to the shuttle, two
// seats per assignment, and returns how many were placed.  Pairs already
// on the shuttle count against its capacity, so filling a full shuttle
// again reports ErrNoPendingAssignments.  Booking time is not matched
// against departure time.
func (f *ManifestFiller) AutoFill(ctx context.Context, shuttleID uint64) (int, error) {
	count, ev, err := f.fill(ctx, shuttleID)
	f.m.Autofills.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		if KindOf(err) == KindStore {
			f.log.Error("auto-fill failed", "shuttle_id", shuttleID, "error", err)
		}
		return 0, err
	}
	f.m.AutofillAssigned.Add(float64(count))
	f.log.Info("shuttle auto-filled", "shuttle_id", shuttleID, "count", count)
	f.events.emit(ctx, ev)
	return count, nil
}

func (f *ManifestFiller) fill(ctx context.Context, shuttleID uint64) (int, queue.ManifestFilledEvent, error) {
	var ev queue.ManifestFilledEvent
	if shuttleID == 0 {
		return 0, ev, invalid("shuttleId is required")
	}
	count := 0
	err := f.store.InTx(ctx, func(tx Tx) error {
		s, err := tx.ShuttleForUpdate(ctx, shuttleID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrShuttleNotFound
		}
		if err != nil {
			return storeErr("Failed to load shuttle", err)
		}
		onBoard, err := tx.CountOnShuttle(ctx, s.ID)
		if err != nil {
			return storeErr("Failed to load shuttle", err)
		}
		room := s.MaxAssignments() - onBoard
		if room <= 0 {
			return ErrNoPendingAssignments
		}

		pending, err := tx.PendingAssignmentsForUpdate(ctx, room)
		if err != nil {
			return storeErr("Failed to load pending assignments", err)
		}
		picked := OldestPending(pending, room)
		if len(picked) == 0 {
			return ErrNoPendingAssignments
		}
		ids := make([]uint64, len(picked))
		for i, a := range picked {
			ids[i] = a.ID
		}
		n, err := tx.AttachToShuttle(ctx, s.ID, ids)
		if err != nil {
			return storeErr("Failed to update assignments", err)
		}
		if n == 0 {
			// another filler took them between the lock and the update
			return ErrNoPendingAssignments
		}
		count = int(n)
		ev = queue.ManifestFilledEvent{ShuttleID: s.ID, DepartureTime: s.DepartureTime, AssignmentIDs: ids}
		return nil
	})
	if err != nil {
		var de *Error
		if !errors.As(err, &de) {
			err = storeErr("Failed to update assignments", err)
		}
		return 0, ev, err
	}
	return count, ev, nil
}

// Manifest returns the shuttle and the pairs placed on it.
func (f *ManifestFiller) Manifest(ctx context.Context, shuttleID uint64) (model.Shuttle, []model.ManifestEntry, error) {
	s, err := f.store.GetShuttle(ctx, shuttleID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Shuttle{}, nil, ErrShuttleNotFound
	}
	if err != nil {
		return model.Shuttle{}, nil, storeErr("Failed to load shuttle", err)
	}
	entries, err := f.store.ManifestEntries(ctx, shuttleID)
	if err != nil {
		return model.Shuttle{}, nil, storeErr("Failed to load manifest", err)
	}
	return s, entries, nil
}

// Wait blocks until pending event publishes complete.
func (f *ManifestFiller) Wait() { f.events.wait() }
