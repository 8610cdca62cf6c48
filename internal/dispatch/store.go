package dispatch

import (
	"context"

	"github.com/iliyamo/flightdesk/internal/model"
)

// Store is the backing database as seen by the dispatch core.  Lookups of
// missing rows return sql.ErrNoRows.
type Store interface {
	// InTx runs fn in one transaction, committing when fn returns nil
	// and rolling back otherwise.  fn's error is returned unchanged.
	InTx(ctx context.Context, fn func(tx Tx) error) error

	CapacityStore

	ListPilots(ctx context.Context) ([]model.Pilot, error)
	ResetDailyFlightCounts(ctx context.Context) (int64, error)
	InsertShuttle(ctx context.Context, s *model.Shuttle) error
	GetShuttle(ctx context.Context, id uint64) (model.Shuttle, error)
	ManifestEntries(ctx context.Context, shuttleID uint64) ([]model.ManifestEntry, error)
}

// CapacityStore is the read-only subset used by the capacity checker.
type CapacityStore interface {
	// ActivePilots returns every pilot with status active.
	ActivePilots(ctx context.Context) ([]model.Pilot, error)
	// BusyPilotIDs returns pilots holding an active assignment on a
	// booking in the given slot.
	BusyPilotIDs(ctx context.Context, date, slot string) ([]uint64, error)
}

// Tx is a unit of work.  Methods suffixed ForUpdate lock the rows they
// return until the transaction ends.
type Tx interface {
	BookingForUpdate(ctx context.Context, id uint64) (model.Booking, error)
	HasActiveAssignment(ctx context.Context, bookingID uint64) (bool, error)
	EligiblePilotsForUpdate(ctx context.Context, weight float64) ([]model.Pilot, error)
	InsertAssignment(ctx context.Context, a *model.Assignment) error
	IncrementFlightCount(ctx context.Context, pilotID uint64) error

	ShuttleForUpdate(ctx context.Context, id uint64) (model.Shuttle, error)
	CountOnShuttle(ctx context.Context, shuttleID uint64) (int, error)
	PendingAssignmentsForUpdate(ctx context.Context, limit int) ([]model.Assignment, error)
	AttachToShuttle(ctx context.Context, shuttleID uint64, assignmentIDs []uint64) (int64, error)

	UpdateBookingStatus(ctx context.Context, bookingID uint64, status string) error
	CancelActiveAssignments(ctx context.Context, bookingID uint64) ([]uint64, error)
}
