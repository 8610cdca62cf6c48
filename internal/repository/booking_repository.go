package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/iliyamo/flightdesk/internal/model"
)

// BookingRepo reads bookings and applies status transitions.  Bookings are
// created by the reservation flow, never here.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// GetForUpdateTx loads a booking and locks its row.  sql.ErrNoRows is
// returned when it does not exist.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
    const q = `SELECT id, customer_name, customer_weight, booking_date, booking_time, adults, children, status, created_at
               FROM bookings WHERE id = ? FOR UPDATE`
    var (
        b      model.Booking
        weight sql.NullFloat64
        date   time.Time
    )
    err := tx.QueryRowContext(ctx, q, id).Scan(
        &b.ID, &b.CustomerName, &weight, &date, &b.Time, &b.Adults, &b.Children, &b.Status, &b.CreatedAt,
    )
    if err != nil {
        return model.Booking{}, err
    }
    if weight.Valid {
        w := weight.Float64
        b.CustomerWeight = &w
    }
    b.Date = date.Format(time.DateOnly)
    return b, nil
}

// UpdateStatusTx sets the booking status.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
    _, err := tx.ExecContext(ctx, `UPDATE bookings SET status = ? WHERE id = ?`, status, id)
    return err
}

// BusyPilotIDs returns the pilots holding an active assignment on any
// booking in the slot.
func (r *BookingRepo) BusyPilotIDs(ctx context.Context, date, slot string) ([]uint64, error) {
    const q = `SELECT DISTINCT a.pilot_id
               FROM assignments a
               JOIN bookings b ON b.id = a.booking_id
               WHERE b.booking_date = ? AND b.booking_time = ?
                 AND a.status IN (?, ?)`
    rows, err := r.db.QueryContext(ctx, q, date, slot, model.AssignmentAssigned, model.AssignmentAccepted)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    ids := []uint64{}
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return ids, nil
}
