package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/flightdesk/internal/model"
)

// AssignmentRepo encapsulates database operations for assignments.  Every
// write goes through a caller-owned transaction so that the booking and
// pilot row locks taken before it stay in force.
type AssignmentRepo struct {
    db *sql.DB
}

// NewAssignmentRepo constructs an AssignmentRepo given a DB handle.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo {
    return &AssignmentRepo{db: db}
}

// HasActiveTx reports whether the booking already holds an assignment
// that has not been cancelled.
func (r *AssignmentRepo) HasActiveTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (bool, error) {
    var n int
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM assignments WHERE booking_id = ? AND status <> ?`,
        bookingID, model.AssignmentCancelled).Scan(&n)
    if err != nil {
        return false, err
    }
    return n > 0, nil
}

// CreateTx inserts a and fills in its ID.
func (r *AssignmentRepo) CreateTx(ctx context.Context, tx *sql.Tx, a *model.Assignment) error {
    res, err := tx.ExecContext(ctx,
        `INSERT INTO assignments (booking_id, pilot_id, status, shuttle_id, assigned_at) VALUES (?, ?, ?, ?, ?)`,
        a.BookingID, a.PilotID, a.Status, a.ShuttleID, a.AssignedAt)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    a.ID = uint64(id)
    return nil
}

// CountOnShuttleTx returns how many assignments are already placed on
// the shuttle.
func (r *AssignmentRepo) CountOnShuttleTx(ctx context.Context, tx *sql.Tx, shuttleID uint64) (int, error) {
    var n int
    err := tx.QueryRowContext(ctx,
        `SELECT COUNT(*) FROM assignments WHERE shuttle_id = ?`, shuttleID).Scan(&n)
    return n, err
}

// PendingForUpdateTx returns at most limit active assignments with no
// shuttle, oldest first, and locks them.
func (r *AssignmentRepo) PendingForUpdateTx(ctx context.Context, tx *sql.Tx, limit int) ([]model.Assignment, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT id, booking_id, pilot_id, status, shuttle_id, assigned_at
         FROM assignments
         WHERE shuttle_id IS NULL AND status IN (?, ?)
         ORDER BY assigned_at ASC, id ASC
         LIMIT ?
         FOR UPDATE`,
        model.AssignmentAssigned, model.AssignmentAccepted, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.Assignment{}
    for rows.Next() {
        var (
            a       model.Assignment
            shuttle sql.NullInt64
        )
        if err := rows.Scan(&a.ID, &a.BookingID, &a.PilotID, &a.Status, &shuttle, &a.AssignedAt); err != nil {
            return nil, err
        }
        if shuttle.Valid {
            id := uint64(shuttle.Int64)
            a.ShuttleID = &id
        }
        out = append(out, a)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// AttachToShuttleTx places the given assignments on the shuttle in one
// statement.  Rows that gained a shuttle in the meantime are skipped; the
// number actually attached is returned.
func (r *AssignmentRepo) AttachToShuttleTx(ctx context.Context, tx *sql.Tx, shuttleID uint64, ids []uint64) (int64, error) {
    if len(ids) == 0 {
        return 0, nil
    }
    args := make([]interface{}, 0, len(ids)+1)
    args = append(args, shuttleID)
    for _, id := range ids {
        args = append(args, id)
    }
    query := `UPDATE assignments SET shuttle_id = ? WHERE shuttle_id IS NULL AND id IN (` +
        placeholders(len(ids)) + `)`
    res, err := tx.ExecContext(ctx, query, args...)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}

// CancelActiveTx cancels the booking's active assignments, detaches them
// from any shuttle and returns their ids.
func (r *AssignmentRepo) CancelActiveTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]uint64, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT id FROM assignments
         WHERE booking_id = ? AND status IN (?, ?)
         ORDER BY id
         FOR UPDATE`,
        bookingID, model.AssignmentAssigned, model.AssignmentAccepted)
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
    if len(ids) == 0 {
        return ids, nil
    }
    args := make([]interface{}, 0, len(ids)+1)
    args = append(args, model.AssignmentCancelled)
    for _, id := range ids {
        args = append(args, id)
    }
    _, err = tx.ExecContext(ctx,
        `UPDATE assignments SET status = ?, shuttle_id = NULL WHERE id IN (`+placeholders(len(ids))+`)`,
        args...)
    if err != nil {
        return nil, err
    }
    return ids, nil
}

// ManifestEntries lists the pilot/customer pairs placed on a shuttle in
// boarding order.
func (r *AssignmentRepo) ManifestEntries(ctx context.Context, shuttleID uint64) ([]model.ManifestEntry, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT a.id, a.booking_id, a.pilot_id, p.name, b.customer_name, a.status, a.assigned_at
         FROM assignments a
         JOIN pilots p ON p.id = a.pilot_id
         JOIN bookings b ON b.id = a.booking_id
         WHERE a.shuttle_id = ?
         ORDER BY a.assigned_at ASC, a.id ASC`, shuttleID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := []model.ManifestEntry{}
    for rows.Next() {
        var e model.ManifestEntry
        if err := rows.Scan(&e.AssignmentID, &e.BookingID, &e.PilotID, &e.PilotName,
            &e.CustomerName, &e.Status, &e.AssignedAt); err != nil {
            return nil, err
        }
        out = append(out, e)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// placeholders returns n comma separated bind markers.
func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
