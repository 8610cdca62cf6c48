package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/flightdesk/internal/model"
)

// ShuttleRepo encapsulates database operations for shuttles.
type ShuttleRepo struct {
    db *sql.DB
}

// NewShuttleRepo constructs a ShuttleRepo given a DB handle.
func NewShuttleRepo(db *sql.DB) *ShuttleRepo {
    return &ShuttleRepo{db: db}
}

const shuttleSelect = `SELECT id, departure_time, capacity, status, created_at FROM shuttles WHERE id = ?`

// Create inserts s and reloads it so that ID and CreatedAt reflect the
// stored row.
func (r *ShuttleRepo) Create(ctx context.Context, s *model.Shuttle) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO shuttles (departure_time, capacity, status) VALUES (?, ?, ?)`,
        s.DepartureTime.UTC(), s.Capacity, s.Status)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    stored, err := r.GetByID(ctx, uint64(id))
    if err != nil {
        return err
    }
    *s = stored
    return nil
}

// GetByID returns the shuttle or sql.ErrNoRows.
func (r *ShuttleRepo) GetByID(ctx context.Context, id uint64) (model.Shuttle, error) {
    var s model.Shuttle
    err := r.db.QueryRowContext(ctx, shuttleSelect, id).
        Scan(&s.ID, &s.DepartureTime, &s.Capacity, &s.Status, &s.CreatedAt)
    return s, err
}

// GetForUpdateTx returns the shuttle and locks its row so that concurrent
// fills of the same shuttle run one after another.
func (r *ShuttleRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Shuttle, error) {
    var s model.Shuttle
    err := tx.QueryRowContext(ctx, shuttleSelect+` FOR UPDATE`, id).
        Scan(&s.ID, &s.DepartureTime, &s.Capacity, &s.Status, &s.CreatedAt)
    return s, err
}
