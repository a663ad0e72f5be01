package payments

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment mirrors the payment subsystem's record of a gateway payment.
// Only its status and owner matter here.
type Payment struct {
	ID          string        `gorm:"type:varchar(255);primaryKey" json:"id"`
	UserID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount      float64       `gorm:"type:numeric(12,2);not null;default:0" json:"amount"`
	Currency    string        `gorm:"size:3" json:"currency"`
	Provider    string        `gorm:"size:50" json:"provider"`
	Status      PaymentStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) IsCompleted() bool {
	return p.Status == PaymentStatusCompleted
}

// PaymentCompletedEvent is the message the payment subsystem emits once a
// payment settles
type PaymentCompletedEvent struct {
	PaymentID  string        `json:"payment_id"`
	UserID     uuid.UUID     `json:"user_id"`
	Status     PaymentStatus `json:"status"`
	Amount     float64       `json:"amount"`
	Currency   string        `json:"currency"`
	Provider   string        `json:"provider"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// ParsePaymentCompletedEvent decodes and checks a message value
func ParsePaymentCompletedEvent(value []byte) (*PaymentCompletedEvent, error) {
	var event PaymentCompletedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment event: %w", err)
	}
	if event.PaymentID == "" {
		return nil, fmt.Errorf("payment event has no payment_id")
	}
	if event.UserID == uuid.Nil {
		return nil, fmt.Errorf("payment event %s has no user_id", event.PaymentID)
	}
	if event.Status == "" {
		event.Status = PaymentStatusCompleted
	}
	return &event, nil
}

// ToPayment converts the event into the stored payment record
func (e *PaymentCompletedEvent) ToPayment() *Payment {
	p := &Payment{
		ID:       e.PaymentID,
		UserID:   e.UserID,
		Amount:   e.Amount,
		Currency: e.Currency,
		Provider: e.Provider,
		Status:   e.Status,
	}
	if e.Status == PaymentStatusCompleted {
		at := e.OccurredAt
		if at.IsZero() {
			at = time.Now()
		}
		p.CompletedAt = &at
	}
	return p
}
