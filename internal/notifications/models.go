package notifications

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// HoldEventType names a hold lifecycle transition
type HoldEventType string

const (
	HoldEventReserved  HoldEventType = "hold.reserved"
	HoldEventReleased  HoldEventType = "hold.released"
	HoldEventConfirmed HoldEventType = "hold.confirmed"
	HoldEventExpired   HoldEventType = "hold.expired"
)

// HoldEvent is published after a hold transition has committed
type HoldEvent struct {
	ID         uuid.UUID     `json:"id"`
	Type       HoldEventType `json:"type"`
	HoldID     uuid.UUID     `json:"hold_id"`
	EventID    uuid.UUID     `json:"event_id"`
	UserID     uuid.UUID     `json:"user_id"`
	SeatIDs    []uuid.UUID   `json:"seat_ids"`
	PaymentID  *string       `json:"payment_id,omitempty"`
	TotalPrice float64       `json:"total_price"`
	Currency   string        `json:"currency,omitempty"`
	ExpiresAt  *time.Time    `json:"expires_at,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// NewHoldEvent stamps a fresh event identity and occurrence time
func NewHoldEvent(eventType HoldEventType, holdID, eventID, userID uuid.UUID, seatIDs []uuid.UUID) *HoldEvent {
	return &HoldEvent{
		ID:         uuid.New(),
		Type:       eventType,
		HoldID:     holdID,
		EventID:    eventID,
		UserID:     userID,
		SeatIDs:    seatIDs,
		OccurredAt: time.Now(),
	}
}

func (e *HoldEvent) WithPayment(paymentID string) *HoldEvent {
	e.PaymentID = &paymentID
	return e
}

func (e *HoldEvent) WithPrice(total float64, currency string) *HoldEvent {
	e.TotalPrice = total
	e.Currency = currency
	return e
}

func (e *HoldEvent) WithExpiry(expiresAt time.Time) *HoldEvent {
	e.ExpiresAt = &expiresAt
	return e
}

// GetPartitionKey keeps all events of one event's seat inventory on a
// single partition so consumers observe them in commit order.
func (e *HoldEvent) GetPartitionKey() string {
	return e.EventID.String()
}

func (e *HoldEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
