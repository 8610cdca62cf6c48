package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"

	"github.com/iliyamo/flightdesk/internal/model"
	"github.com/iliyamo/flightdesk/internal/queue"
)

// memStore is an in-memory Store.  InTx holds a single mutex, which gives
// the same serialization the row locks give in MySQL.  Writes made inside
// a failed transaction are rolled back from a snapshot.
type memStore struct {
	mu          sync.Mutex
	pilots      map[uint64]*model.Pilot
	bookings    map[uint64]*model.Booking
	assignments map[uint64]*model.Assignment
	shuttles    map[uint64]*model.Shuttle
	nextID      uint64

	failIncrement bool
	failInsert    bool
	failAttach    bool
	attachNone    bool
	failRead      error
}

func newMemStore() *memStore {
	return &memStore{
		pilots:      map[uint64]*model.Pilot{},
		bookings:    map[uint64]*model.Booking{},
		assignments: map[uint64]*model.Assignment{},
		shuttles:    map[uint64]*model.Shuttle{},
		nextID:      1000,
	}
}

func (s *memStore) addPilot(p model.Pilot) {
	if p.Status == "" {
		p.Status = model.PilotActive
	}
	s.pilots[p.ID] = &p
}

func (s *memStore) addBooking(b model.Booking) {
	if b.Status == "" {
		b.Status = model.BookingPending
	}
	s.bookings[b.ID] = &b
}

func (s *memStore) addAssignment(a model.Assignment) {
	s.assignments[a.ID] = &a
}

func (s *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snapshot()
	if err := fn(memTx{s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	pilots      map[uint64]model.Pilot
	bookings    map[uint64]model.Booking
	assignments map[uint64]model.Assignment
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		pilots:      map[uint64]model.Pilot{},
		bookings:    map[uint64]model.Booking{},
		assignments: map[uint64]model.Assignment{},
	}
	for k, v := range s.pilots {
		snap.pilots[k] = *v
	}
	for k, v := range s.bookings {
		snap.bookings[k] = *v
	}
	for k, v := range s.assignments {
		snap.assignments[k] = *v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.pilots = map[uint64]*model.Pilot{}
	for k, v := range snap.pilots {
		v := v
		s.pilots[k] = &v
	}
	s.bookings = map[uint64]*model.Booking{}
	for k, v := range snap.bookings {
		v := v
		s.bookings[k] = &v
	}
	s.assignments = map[uint64]*model.Assignment{}
	for k, v := range snap.assignments {
		v := v
		s.assignments[k] = &v
	}
}

func (s *memStore) ActivePilots(ctx context.Context) ([]model.Pilot, error) {
	if s.failRead != nil {
		return nil, s.failRead
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Pilot
	for _, p := range s.pilots {
		if p.Status == model.PilotActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *memStore) BusyPilotIDs(ctx context.Context, date, slot string) ([]uint64, error) {
	if s.failRead != nil {
		return nil, s.failRead
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uint64
	for _, a := range s.assignments {
		b := s.bookings[a.BookingID]
		if b == nil || b.Date != date || b.Time != slot {
			continue
		}
		if a.Status == model.AssignmentAssigned || a.Status == model.AssignmentAccepted {
			out = append(out, a.PilotID)
		}
	}
	return out, nil
}

func (s *memStore) ListPilots(ctx context.Context) ([]model.Pilot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Pilot, 0, len(s.pilots))
	for _, p := range s.pilots {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ResetDailyFlightCounts(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pilots {
		p.DailyFlightCount = 0
	}
	return int64(len(s.pilots)), nil
}

func (s *memStore) InsertShuttle(ctx context.Context, sh *model.Shuttle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sh.ID = s.nextID
	cp := *sh
	s.shuttles[sh.ID] = &cp
	return nil
}

func (s *memStore) GetShuttle(ctx context.Context, id uint64) (model.Shuttle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.shuttles[id]
	if !ok {
		return model.Shuttle{}, sql.ErrNoRows
	}
	return *sh, nil
}

func (s *memStore) ManifestEntries(ctx context.Context, shuttleID uint64) ([]model.ManifestEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ManifestEntry
	for _, a := range s.assignments {
		if a.ShuttleID == nil || *a.ShuttleID != shuttleID {
			continue
		}
		e := model.ManifestEntry{AssignmentID: a.ID, BookingID: a.BookingID, PilotID: a.PilotID, Status: a.Status, AssignedAt: a.AssignedAt}
		if p := s.pilots[a.PilotID]; p != nil {
			e.PilotName = p.Name
		}
		if b := s.bookings[a.BookingID]; b != nil {
			e.CustomerName = b.CustomerName
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.Before(out[j].AssignedAt) })
	return out, nil
}

func (s *memStore) onShuttle(id uint64) int {
	n := 0
	for _, a := range s.assignments {
		if a.ShuttleID != nil && *a.ShuttleID == id {
			n++
		}
	}
	return n
}

// memTx runs with memStore.mu already held.
type memTx struct{ s *memStore }

func (t memTx) BookingForUpdate(ctx context.Context, id uint64) (model.Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return model.Booking{}, sql.ErrNoRows
	}
	return *b, nil
}

func (t memTx) HasActiveAssignment(ctx context.Context, bookingID uint64) (bool, error) {
	for _, a := range t.s.assignments {
		if a.BookingID == bookingID && a.Status != model.AssignmentCancelled {
			return true, nil
		}
	}
	return false, nil
}

// EligiblePilotsForUpdate deliberately returns every pilot so the
// selection logic, not the store, is what enforces eligibility.
func (t memTx) EligiblePilotsForUpdate(ctx context.Context, weight float64) ([]model.Pilot, error) {
	out := make([]model.Pilot, 0, len(t.s.pilots))
	for _, p := range t.s.pilots {
		out = append(out, *p)
	}
	return out, nil
}

func (t memTx) InsertAssignment(ctx context.Context, a *model.Assignment) error {
	if t.s.failInsert {
		return errors.New("insert failed")
	}
	t.s.nextID++
	a.ID = t.s.nextID
	cp := *a
	t.s.assignments[a.ID] = &cp
	return nil
}

func (t memTx) IncrementFlightCount(ctx context.Context, pilotID uint64) error {
	if t.s.failIncrement {
		return errors.New("lock wait timeout")
	}
	t.s.pilots[pilotID].DailyFlightCount++
	return nil
}

func (t memTx) ShuttleForUpdate(ctx context.Context, id uint64) (model.Shuttle, error) {
	sh, ok := t.s.shuttles[id]
	if !ok {
		return model.Shuttle{}, sql.ErrNoRows
	}
	return *sh, nil
}

func (t memTx) CountOnShuttle(ctx context.Context, shuttleID uint64) (int, error) {
	return t.s.onShuttle(shuttleID), nil
}

func (t memTx) PendingAssignmentsForUpdate(ctx context.Context, limit int) ([]model.Assignment, error) {
	var out []model.Assignment
	for _, a := range t.s.assignments {
		if a.Pending() {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.Before(out[j].AssignedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t memTx) AttachToShuttle(ctx context.Context, shuttleID uint64, ids []uint64) (int64, error) {
	if t.s.failAttach {
		return 0, errors.New("update failed")
	}
	if t.s.attachNone {
		return 0, nil
	}
	var n int64
	for _, id := range ids {
		a := t.s.assignments[id]
		if a == nil || a.ShuttleID != nil {
			continue
		}
		sid := shuttleID
		a.ShuttleID = &sid
		n++
	}
	return n, nil
}

func (t memTx) UpdateBookingStatus(ctx context.Context, bookingID uint64, status string) error {
	t.s.bookings[bookingID].Status = status
	return nil
}

func (t memTx) CancelActiveAssignments(ctx context.Context, bookingID uint64) ([]uint64, error) {
	ids := []uint64{}
	for _, a := range t.s.assignments {
		if a.BookingID == bookingID && (a.Status == model.AssignmentAssigned || a.Status == model.AssignmentAccepted) {
			a.Status = model.AssignmentCancelled
			a.ShuttleID = nil
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) all() []queue.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.Event(nil), p.events...)
}
