package seats

import (
	"time"

	"ticketing/internal/shared/apperr"

	"github.com/google/uuid"
)

// Transition is a single-seat conditional status change. It applies only if
// the seat is currently in From and, when ExpectHoldID is set, still belongs
// to that hold. Stamps are rewritten in the same write.
type Transition struct {
	SeatID       uuid.UUID
	From         SeatStatus
	To           SeatStatus
	ExpectHoldID *uuid.UUID

	// UserID is the holder when moving to held and the buyer when moving to sold
	UserID    uuid.UUID
	HoldID    uuid.UUID
	PaymentID string
	At        time.Time
}

// Hold moves an available seat into a hold
func Hold(seatID, holdID, userID uuid.UUID, at time.Time) Transition {
	return Transition{SeatID: seatID, From: StatusAvailable, To: StatusHeld, HoldID: holdID, UserID: userID, At: at}
}

// Free returns a seat held by holdID to available
func Free(seatID, holdID uuid.UUID) Transition {
	return Transition{SeatID: seatID, From: StatusHeld, To: StatusAvailable, ExpectHoldID: &holdID}
}

// Sell finalizes a seat held by holdID
func Sell(seatID, holdID, buyerID uuid.UUID, paymentID string, at time.Time) Transition {
	return Transition{SeatID: seatID, From: StatusHeld, To: StatusSold, ExpectHoldID: &holdID, UserID: buyerID, PaymentID: paymentID, At: at}
}

// Validate rejects transitions the reservation core may not perform
func (t Transition) Validate() error {
	if !t.From.IsValid() || !t.To.IsValid() {
		return apperr.Invalid("unknown seat status")
	}
	if t.From == StatusSold {
		return apperr.Invalid("sold seats cannot be transitioned by the reservation core")
	}
	switch t.To {
	case StatusHeld:
		if t.HoldID == uuid.Nil || t.UserID == uuid.Nil {
			return apperr.Invalid("held transition requires a hold and a holder")
		}
	case StatusSold:
		if t.UserID == uuid.Nil || t.PaymentID == "" {
			return apperr.Invalid("sold transition requires a buyer and a payment")
		}
	}
	return nil
}

// Columns returns the full column set written by the transition. Every stamp
// column is present so stale ownership is cleared in the same statement.
func (t Transition) Columns() map[string]interface{} {
	cols := map[string]interface{}{
		"status":     t.To,
		"holder_id":  nil,
		"hold_id":    nil,
		"held_at":    nil,
		"sold_to":    nil,
		"sold_at":    nil,
		"payment_id": nil,
	}
	switch t.To {
	case StatusHeld:
		cols["holder_id"] = t.UserID
		cols["hold_id"] = t.HoldID
		cols["held_at"] = t.At
	case StatusSold:
		cols["sold_to"] = t.UserID
		cols["sold_at"] = t.At
		cols["payment_id"] = t.PaymentID
	}
	return cols
}

// Apply writes the transition onto an in-memory seat. Callers must have
// checked the guard.
func (t Transition) Apply(seat *Seat) {
	seat.Status = t.To
	seat.HolderID, seat.HoldID, seat.HeldAt = nil, nil, nil
	seat.SoldTo, seat.SoldAt, seat.PaymentID = nil, nil, nil
	switch t.To {
	case StatusHeld:
		user, hold, at := t.UserID, t.HoldID, t.At
		seat.HolderID, seat.HoldID, seat.HeldAt = &user, &hold, &at
	case StatusSold:
		user, at, payment := t.UserID, t.At, t.PaymentID
		seat.SoldTo, seat.SoldAt, seat.PaymentID = &user, &at, &payment
	}
}

// Guard reports whether seat currently satisfies the transition precondition
func (t Transition) Guard(seat *Seat) bool {
	if seat.Status != t.From {
		return false
	}
	if t.ExpectHoldID != nil && (seat.HoldID == nil || *seat.HoldID != *t.ExpectHoldID) {
		return false
	}
	return true
}
