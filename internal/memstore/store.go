// Package memstore is an in-memory implementation of every repository of the
// seat inventory core. It backs STORAGE_DRIVER=memory and the service tests.
package memstore

import (
	"sync"
	"time"

	"ticketing/internal/events"
	"ticketing/internal/holds"
	"ticketing/internal/payments"
	"ticketing/internal/pricing"
	"ticketing/internal/seats"
	"ticketing/internal/venues"

	"github.com/google/uuid"
)

// Store holds all records behind one lock. Hold transactions are serialized
// by txMu and undone from an undo log on failure. Writes made outside a
// transaction also take txMu, so they never observe or overwrite the
// uncommitted state of a running transaction.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	venues   map[uuid.UUID]venues.Venue
	events   map[uuid.UUID]events.Event
	tiers    map[uuid.UUID]pricing.PricingTier
	seats    map[uuid.UUID]seats.Seat
	holds    map[uuid.UUID]holds.Hold
	holdSeq  map[uuid.UUID]int64
	payments map[string]payments.Payment

	seq int64
	now func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		venues:   make(map[uuid.UUID]venues.Venue),
		events:   make(map[uuid.UUID]events.Event),
		tiers:    make(map[uuid.UUID]pricing.PricingTier),
		seats:    make(map[uuid.UUID]seats.Seat),
		holds:    make(map[uuid.UUID]holds.Hold),
		holdSeq:  make(map[uuid.UUID]int64),
		payments: make(map[string]payments.Payment),
		now:      time.Now,
	}
}

// WithClock sets the clock used for record timestamps
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Events() events.Repository     { return &eventRepo{s: s} }
func (s *Store) Venues() venues.Repository     { return &venueRepo{s: s} }
func (s *Store) Pricing() pricing.Repository   { return &pricingRepo{s: s} }
func (s *Store) Seats() seats.Repository       { return &seatRepo{s: s} }
func (s *Store) Holds() holds.Repository       { return &holdRepo{s: s} }
func (s *Store) Payments() payments.Repository { return &paymentRepo{s: s} }

// undoLog remembers the first prior value of every record a transaction
// touches. A nil entry means the record did not exist.
type undoLog struct {
	seats map[uuid.UUID]*seats.Seat
	holds map[uuid.UUID]*holds.Hold
}

func newUndoLog() *undoLog {
	return &undoLog{
		seats: make(map[uuid.UUID]*seats.Seat),
		holds: make(map[uuid.UUID]*holds.Hold),
	}
}

// must be called with s.mu held
func (u *undoLog) saveSeat(s *Store, id uuid.UUID) {
	if u == nil {
		return
	}
	if _, ok := u.seats[id]; ok {
		return
	}
	if seat, ok := s.seats[id]; ok {
		u.seats[id] = &seat
		return
	}
	u.seats[id] = nil
}

// must be called with s.mu held
func (u *undoLog) saveHold(s *Store, id uuid.UUID) {
	if u == nil {
		return
	}
	if _, ok := u.holds[id]; ok {
		return
	}
	if hold, ok := s.holds[id]; ok {
		copied := copyHold(hold)
		u.holds[id] = &copied
		return
	}
	u.holds[id] = nil
}

// lockWrite takes txMu for a write outside a transaction and returns the
// matching unlock. Inside a transaction txMu is already held.
func (s *Store) lockWrite(u *undoLog) func() {
	if u != nil {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

func (s *Store) rollback(u *undoLog) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, seat := range u.seats {
		if seat == nil {
			delete(s.seats, id)
			continue
		}
		s.seats[id] = *seat
	}
	for id, hold := range u.holds {
		if hold == nil {
			delete(s.holds, id)
			delete(s.holdSeq, id)
			continue
		}
		s.holds[id] = *hold
	}
}

func copyHold(h holds.Hold) holds.Hold {
	h.Seats = append([]holds.HoldSeat(nil), h.Seats...)
	return h
}
