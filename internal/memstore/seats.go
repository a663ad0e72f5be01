package memstore

import (
	"context"
	"fmt"
	"sort"

	"ticketing/internal/seats"
	"ticketing/internal/shared/apperr"

	"github.com/google/uuid"
)

// AddSeats inserts seats directly, bypassing layout validation
func (s *Store) AddSeats(list ...seats.Seat) []seats.Seat {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]seats.Seat, 0, len(list))
	for _, seat := range list {
		if seat.ID == uuid.Nil {
			seat.ID = uuid.New()
		}
		if seat.Status == "" {
			seat.Status = seats.StatusAvailable
		}
		if seat.CreatedAt.IsZero() {
			seat.CreatedAt = s.now()
			seat.UpdatedAt = seat.CreatedAt
		}
		s.seats[seat.ID] = seat
		out = append(out, seat)
	}
	return out
}

// Seat returns a copy of the stored seat
func (s *Store) Seat(id uuid.UUID) (seats.Seat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seat, ok := s.seats[id]
	return seat, ok
}

type seatRepo struct {
	s    *Store
	undo *undoLog
}

func (r *seatRepo) CreateSeats(ctx context.Context, list []seats.Seat) error {
	defer r.s.lockWrite(r.undo)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	type position struct {
		event               uuid.UUID
		section, row, label string
	}
	taken := make(map[position]bool, len(r.s.seats)+len(list))
	for _, seat := range r.s.seats {
		taken[position{seat.EventID, seat.Section, seat.Row, seat.Label}] = true
	}
	for _, seat := range list {
		pos := position{seat.EventID, seat.Section, seat.Row, seat.Label}
		if taken[pos] {
			return apperr.Conflict("a seat with the same section, row and label already exists for this event")
		}
		taken[pos] = true
	}

	now := r.s.now()
	for i := range list {
		if list[i].ID == uuid.Nil {
			list[i].ID = uuid.New()
		}
		list[i].CreatedAt, list[i].UpdatedAt = now, now
		r.undo.saveSeat(r.s, list[i].ID)
		r.s.seats[list[i].ID] = list[i]
	}
	return nil
}

func (r *seatRepo) GetSeatsByIDs(ctx context.Context, ids []uuid.UUID) ([]seats.Seat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []seats.Seat
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if seat, ok := r.s.seats[id]; ok {
			out = append(out, seat)
		}
	}
	sortSeats(out)
	return out, nil
}

// filtered must be called with s.mu held
func (r *seatRepo) filtered(eventID uuid.UUID, filter seats.Filter) []seats.Seat {
	var out []seats.Seat
	for _, seat := range r.s.seats {
		if seat.EventID == eventID && filter.Matches(&seat) {
			out = append(out, seat)
		}
	}
	sortSeats(out)
	return out
}

func (r *seatRepo) LoadSeats(ctx context.Context, eventID uuid.UUID, filter seats.Filter) ([]seats.Seat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := r.filtered(eventID, filter)
	if filter.Limit > 0 {
		out = page(out, filter.Offset, filter.Limit)
	}
	return out, nil
}

func (r *seatRepo) CountSeats(ctx context.Context, eventID uuid.UUID, filter seats.Filter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return int64(len(r.filtered(eventID, filter))), nil
}

func (r *seatRepo) CountByStatus(ctx context.Context, eventID uuid.UUID, filter seats.Filter) ([]seats.StatusCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byStatus := make(map[seats.SeatStatus]*seats.StatusCount)
	for _, seat := range r.filtered(eventID, filter) {
		row, ok := byStatus[seat.Status]
		if !ok {
			row = &seats.StatusCount{Status: seat.Status}
			byStatus[seat.Status] = row
		}
		row.Count++
		switch {
		case seat.Price != nil:
			row.Value += *seat.Price
		case seat.TierID != nil:
			if t, ok := r.s.tiers[*seat.TierID]; ok {
				row.Value += t.Price
			}
		}
	}

	out := make([]seats.StatusCount, 0, len(byStatus))
	for _, row := range byStatus {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (r *seatRepo) Transition(ctx context.Context, t seats.Transition) error {
	if err := t.Validate(); err != nil {
		return err
	}

	defer r.s.lockWrite(r.undo)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	seat, ok := r.s.seats[t.SeatID]
	if !ok || !t.Guard(&seat) {
		return apperr.Conflict(fmt.Sprintf("seat is no longer %s", t.From), t.SeatID.String())
	}

	r.undo.saveSeat(r.s, t.SeatID)
	t.Apply(&seat)
	seat.UpdatedAt = r.s.now()
	r.s.seats[t.SeatID] = seat
	return nil
}

func sortSeats(list []seats.Seat) {
	sort.SliceStable(list, func(i, j int) bool { return seats.Less(&list[i], &list[j]) })
}

func page[T any](list []T, offset, limit int) []T {
	if offset >= len(list) {
		return nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}
