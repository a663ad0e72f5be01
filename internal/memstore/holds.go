package memstore

import (
	"context"
	"sort"
	"time"

	"ticketing/internal/holds"
	"ticketing/internal/seats"
	"ticketing/internal/shared/apperr"

	"github.com/google/uuid"
)

// Hold returns a copy of the stored hold
func (s *Store) Hold(id uuid.UUID) (holds.Hold, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holds[id]
	if !ok {
		return holds.Hold{}, false
	}
	return copyHold(h), true
}

type holdRepo struct {
	s    *Store
	undo *undoLog
}

func (r *holdRepo) RunInTx(ctx context.Context, fn func(tx holds.Repository) error) error {
	if r.undo != nil {
		// Already inside a transaction
		return fn(r)
	}

	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()

	undo := newUndoLog()
	if err := fn(&holdRepo{s: r.s, undo: undo}); err != nil {
		r.s.rollback(undo)
		return err
	}
	return nil
}

func (r *holdRepo) Seats() seats.Repository {
	return &seatRepo{s: r.s, undo: r.undo}
}

func (r *holdRepo) CreateHold(ctx context.Context, hold *holds.Hold) error {
	defer r.s.lockWrite(r.undo)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if hold.ID == uuid.Nil {
		hold.ID = uuid.New()
	}
	if _, exists := r.s.holds[hold.ID]; exists {
		return apperr.Conflict("reservation already exists")
	}
	now := r.s.now()
	hold.CreatedAt, hold.UpdatedAt = now, now
	for i := range hold.Seats {
		hold.Seats[i].HoldID = hold.ID
	}

	r.undo.saveHold(r.s, hold.ID)
	r.s.seq++
	r.s.holds[hold.ID] = copyHold(*hold)
	r.s.holdSeq[hold.ID] = r.s.seq
	return nil
}

func (r *holdRepo) GetHold(ctx context.Context, id uuid.UUID) (*holds.Hold, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	h, ok := r.s.holds[id]
	if !ok {
		return nil, apperr.NotFound("reservation not found")
	}
	copied := copyHold(h)
	return &copied, nil
}

func (r *holdRepo) ChangeState(ctx context.Context, change holds.StateChange) error {
	defer r.s.lockWrite(r.undo)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	h, ok := r.s.holds[change.HoldID]
	if !ok || h.State != holds.StatePending {
		return apperr.Conflict("reservation is no longer pending")
	}
	if change.DueBy != nil && h.ExpiresAt.After(*change.DueBy) {
		return apperr.Conflict("reservation is no longer pending")
	}

	at := change.At
	switch change.To {
	case holds.StateConfirmed:
		if h.PaymentID != nil && *h.PaymentID != change.PaymentID {
			return apperr.Conflict("reservation is no longer pending")
		}
		payment := change.PaymentID
		h.PaymentID = &payment
		h.ConfirmedAt = &at
	case holds.StateReleased:
		h.ReleasedAt = &at
	case holds.StateExpired:
		h.ExpiredAt = &at
	default:
		return apperr.Invalid("holds cannot move to %s", change.To)
	}

	r.undo.saveHold(r.s, h.ID)
	h.State = change.To
	h.UpdatedAt = r.s.now()
	r.s.holds[h.ID] = h
	return nil
}

func (r *holdRepo) BindPayment(ctx context.Context, id uuid.UUID, paymentID string) error {
	defer r.s.lockWrite(r.undo)()
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	h, ok := r.s.holds[id]
	if !ok || h.State != holds.StatePending || (h.PaymentID != nil && *h.PaymentID != paymentID) {
		return apperr.Conflict("reservation is not pending or is bound to another payment")
	}

	r.undo.saveHold(r.s, id)
	h.PaymentID = &paymentID
	h.UpdatedAt = r.s.now()
	r.s.holds[id] = h
	return nil
}

// newestFirst must be called with s.mu held
func (r *holdRepo) newestFirst(list []holds.Hold) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return r.s.holdSeq[list[i].ID] > r.s.holdSeq[list[j].ID]
	})
}

func (r *holdRepo) FindLatestByPayment(ctx context.Context, userID uuid.UUID, paymentID string, state holds.HoldState) (*holds.Hold, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matches []holds.Hold
	for _, h := range r.s.holds {
		if h.UserID != userID || !h.PaymentMatches(paymentID) {
			continue
		}
		if state != "" && h.State != state {
			continue
		}
		matches = append(matches, h)
	}
	if len(matches) == 0 {
		return nil, apperr.NotFound("no reservation found for payment")
	}
	r.newestFirst(matches)
	latest := copyHold(matches[0])
	return &latest, nil
}

func (r *holdRepo) ListUserHolds(ctx context.Context, userID uuid.UUID, query holds.ListQuery) ([]holds.Hold, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matches []holds.Hold
	for _, h := range r.s.holds {
		if h.UserID != userID {
			continue
		}
		if query.State != "" && h.State != query.State {
			continue
		}
		matches = append(matches, copyHold(h))
	}
	r.newestFirst(matches)

	total := int64(len(matches))
	if query.Limit > 0 {
		matches = page(matches, query.Offset(), query.Limit)
	}
	return matches, total, nil
}

func (r *holdRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]holds.Hold, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var due []holds.Hold
	for _, h := range r.s.holds {
		if h.State == holds.StatePending && !h.ExpiresAt.After(now) {
			due = append(due, copyHold(h))
		}
	}
	sort.SliceStable(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *holdRepo) ListOrphanedSeats(ctx context.Context, limit int) ([]seats.Seat, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var orphans []seats.Seat
	for _, seat := range r.s.seats {
		if seat.Status != seats.StatusHeld {
			continue
		}
		if seat.HoldID != nil {
			if h, ok := r.s.holds[*seat.HoldID]; ok && h.State == holds.StatePending {
				continue
			}
		}
		orphans = append(orphans, seat)
	}
	sortSeats(orphans)
	if limit > 0 && len(orphans) > limit {
		orphans = orphans[:limit]
	}
	return orphans, nil
}
