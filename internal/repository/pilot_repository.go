package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/iliyamo/flightdesk/internal/model"
)

// PilotRepo provides data access to the pilots table.  The roster itself
// (status, limits, skills) is maintained elsewhere; this repository only
// reads it and moves the daily flight counter.
type PilotRepo struct {
    db *sql.DB
}

// NewPilotRepo returns a new PilotRepo bound to the given database.
func NewPilotRepo(db *sql.DB) *PilotRepo { return &PilotRepo{db: db} }

const pilotColumns = `id, name, status, weight_limit_min, weight_limit_max, daily_flight_count, skills, created_at`

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
    Scan(dest ...any) error
}

func scanPilot(s scanner) (model.Pilot, error) {
    var p model.Pilot
    var skills string
    if err := s.Scan(&p.ID, &p.Name, &p.Status, &p.WeightLimitMin, &p.WeightLimitMax,
        &p.DailyFlightCount, &skills, &p.CreatedAt); err != nil {
        return model.Pilot{}, err
    }
    p.Skills = splitSkills(skills)
    return p, nil
}

func splitSkills(raw string) []string {
    out := []string{}
    for _, s := range strings.Split(raw, ",") {
        if s = strings.TrimSpace(s); s != "" {
            out = append(out, s)
        }
    }
    return out
}

func collectPilots(rows *sql.Rows) ([]model.Pilot, error) {
    defer rows.Close()
    pilots := []model.Pilot{}
    for rows.Next() {
        p, err := scanPilot(rows)
        if err != nil {
            return nil, err
        }
        pilots = append(pilots, p)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return pilots, nil
}

// ListAll returns every pilot ordered by id.
func (r *PilotRepo) ListAll(ctx context.Context) ([]model.Pilot, error) {
    rows, err := r.db.QueryContext(ctx, `SELECT `+pilotColumns+` FROM pilots ORDER BY id`)
    if err != nil {
        return nil, err
    }
    return collectPilots(rows)
}

// ListActive returns active pilots ordered by id.
func (r *PilotRepo) ListActive(ctx context.Context) ([]model.Pilot, error) {
    rows, err := r.db.QueryContext(ctx,
        `SELECT `+pilotColumns+` FROM pilots WHERE status = ? ORDER BY id`, model.PilotActive)
    if err != nil {
        return nil, err
    }
    return collectPilots(rows)
}

// EligibleForUpdateTx returns active pilots whose envelope covers weight,
// least-flown first with id breaking ties, and locks those rows until the
// transaction ends.  Concurrent dispatches queue on the lock instead of
// reading the same counters.
func (r *PilotRepo) EligibleForUpdateTx(ctx context.Context, tx *sql.Tx, weight float64) ([]model.Pilot, error) {
    rows, err := tx.QueryContext(ctx,
        `SELECT `+pilotColumns+` FROM pilots
         WHERE status = ? AND weight_limit_min <= ? AND weight_limit_max >= ?
         ORDER BY daily_flight_count ASC, id ASC
         FOR UPDATE`,
        model.PilotActive, weight, weight)
    if err != nil {
        return nil, err
    }
    return collectPilots(rows)
}

// IncrementFlightCountTx adds one flight to the pilot's daily counter.
func (r *PilotRepo) IncrementFlightCountTx(ctx context.Context, tx *sql.Tx, pilotID uint64) error {
    res, err := tx.ExecContext(ctx,
        `UPDATE pilots SET daily_flight_count = daily_flight_count + 1 WHERE id = ?`, pilotID)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        return sql.ErrNoRows
    }
    return nil
}

// ResetDailyFlightCounts zeroes every non-zero counter and returns how
// many pilots were touched.
func (r *PilotRepo) ResetDailyFlightCounts(ctx context.Context) (int64, error) {
    res, err := r.db.ExecContext(ctx, `UPDATE pilots SET daily_flight_count = 0 WHERE daily_flight_count <> 0`)
    if err != nil {
        return 0, err
    }
    return res.RowsAffected()
}
