package repository

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/iliyamo/flightdesk/internal/dispatch"
    "github.com/iliyamo/flightdesk/internal/model"
)

// Store bundles the MySQL repositories behind the dispatch.Store
// interface.  Repositories remain usable on their own.
type Store struct {
    db          *sql.DB
    Pilots      *PilotRepo
    Bookings    *BookingRepo
    Assignments *AssignmentRepo
    Shuttles    *ShuttleRepo
}

var _ dispatch.Store = (*Store)(nil)

// NewStore wires every repository to db.
func NewStore(db *sql.DB) *Store {
    return &Store{
        db:          db,
        Pilots:      NewPilotRepo(db),
        Bookings:    NewBookingRepo(db),
        Assignments: NewAssignmentRepo(db),
        Shuttles:    NewShuttleRepo(db),
    }
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// InTx begins a transaction, hands fn a Tx bound to it and commits when fn
// succeeds.  Any error from fn rolls back and is returned unchanged.
func (s *Store) InTx(ctx context.Context, fn func(tx dispatch.Tx) error) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return fmt.Errorf("begin tx: %w", err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := fn(&mysqlTx{tx: tx, s: s}); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("commit tx: %w", err)
    }
    committed = true
    return nil
}

func (s *Store) ActivePilots(ctx context.Context) ([]model.Pilot, error) {
    return s.Pilots.ListActive(ctx)
}

func (s *Store) BusyPilotIDs(ctx context.Context, date, slot string) ([]uint64, error) {
    return s.Bookings.BusyPilotIDs(ctx, date, slot)
}

func (s *Store) ListPilots(ctx context.Context) ([]model.Pilot, error) {
    return s.Pilots.ListAll(ctx)
}

func (s *Store) ResetDailyFlightCounts(ctx context.Context) (int64, error) {
    return s.Pilots.ResetDailyFlightCounts(ctx)
}

func (s *Store) InsertShuttle(ctx context.Context, sh *model.Shuttle) error {
    return s.Shuttles.Create(ctx, sh)
}

func (s *Store) GetShuttle(ctx context.Context, id uint64) (model.Shuttle, error) {
    return s.Shuttles.GetByID(ctx, id)
}

func (s *Store) ManifestEntries(ctx context.Context, shuttleID uint64) ([]model.ManifestEntry, error) {
    return s.Assignments.ManifestEntries(ctx, shuttleID)
}

// mysqlTx adapts the repositories' ...Tx methods to dispatch.Tx.
type mysqlTx struct {
    tx *sql.Tx
    s  *Store
}

func (t *mysqlTx) BookingForUpdate(ctx context.Context, id uint64) (model.Booking, error) {
    return t.s.Bookings.GetForUpdateTx(ctx, t.tx, id)
}

func (t *mysqlTx) HasActiveAssignment(ctx context.Context, bookingID uint64) (bool, error) {
    return t.s.Assignments.HasActiveTx(ctx, t.tx, bookingID)
}

func (t *mysqlTx) EligiblePilotsForUpdate(ctx context.Context, weight float64) ([]model.Pilot, error) {
    return t.s.Pilots.EligibleForUpdateTx(ctx, t.tx, weight)
}

func (t *mysqlTx) InsertAssignment(ctx context.Context, a *model.Assignment) error {
    return t.s.Assignments.CreateTx(ctx, t.tx, a)
}

func (t *mysqlTx) IncrementFlightCount(ctx context.Context, pilotID uint64) error {
    return t.s.Pilots.IncrementFlightCountTx(ctx, t.tx, pilotID)
}

func (t *mysqlTx) ShuttleForUpdate(ctx context.Context, id uint64) (model.Shuttle, error) {
    return t.s.Shuttles.GetForUpdateTx(ctx, t.tx, id)
}

func (t *mysqlTx) CountOnShuttle(ctx context.Context, shuttleID uint64) (int, error) {
    return t.s.Assignments.CountOnShuttleTx(ctx, t.tx, shuttleID)
}

func (t *mysqlTx) PendingAssignmentsForUpdate(ctx context.Context, limit int) ([]model.Assignment, error) {
    return t.s.Assignments.PendingForUpdateTx(ctx, t.tx, limit)
}

func (t *mysqlTx) AttachToShuttle(ctx context.Context, shuttleID uint64, ids []uint64) (int64, error) {
    return t.s.Assignments.AttachToShuttleTx(ctx, t.tx, shuttleID, ids)
}

func (t *mysqlTx) UpdateBookingStatus(ctx context.Context, bookingID uint64, status string) error {
    return t.s.Bookings.UpdateStatusTx(ctx, t.tx, bookingID, status)
}

func (t *mysqlTx) CancelActiveAssignments(ctx context.Context, bookingID uint64) ([]uint64, error) {
    return t.s.Assignments.CancelActiveTx(ctx, t.tx, bookingID)
}
