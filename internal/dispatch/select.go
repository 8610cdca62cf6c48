package dispatch

import (
	"sort"

	"github.com/iliyamo/flightdesk/internal/model"
)

// SelectPilot returns the fairest pilot able to carry weight: active,
// envelope covering weight, lowest daily flight count, lowest id on ties.
// The candidates are filtered again here so a loose store query can never
// produce an ineligible pick.
func SelectPilot(pilots []model.Pilot, weight float64) (model.Pilot, bool) {
	var best model.Pilot
	found := false
	for _, p := range pilots {
		if !p.Eligible(weight) {
			continue
		}
		if !found || p.DailyFlightCount < best.DailyFlightCount ||
			(p.DailyFlightCount == best.DailyFlightCount && p.ID < best.ID) {
			best = p
			found = true
		}
	}
	return best, found
}

// SpareSeats counts pilots able to take one more passenger of the given
// weight in a slot: eligible, below the daily ceiling and not already
// flying in that slot.  Each such pilot contributes one seat.
func SpareSeats(pilots []model.Pilot, busy []uint64, weight float64, maxDaily int) int {
	taken := make(map[uint64]struct{}, len(busy))
	for _, id := range busy {
		taken[id] = struct{}{}
	}
	seats := 0
	for _, p := range pilots {
		if !p.Eligible(weight) || p.DailyFlightCount >= maxDaily {
			continue
		}
		if _, ok := taken[p.ID]; ok {
			continue
		}
		seats++
	}
	return seats
}

// OldestPending keeps assignments still waiting for a shuttle, oldest
// assigned_at first (id breaks ties), capped at limit.
func OldestPending(as []model.Assignment, limit int) []model.Assignment {
	if limit <= 0 {
		return nil
	}
	out := make([]model.Assignment, 0, len(as))
	for _, a := range as {
		if a.Pending() {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AssignedAt.Before(out[j].AssignedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
