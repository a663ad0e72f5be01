package holds

import (
	"time"

	"github.com/google/uuid"
)

type ReserveRequest struct {
	EventID uuid.UUID   `json:"eventId" binding:"required"`
	SeatIDs []uuid.UUID `json:"seatIds" binding:"required"`
	// PaymentID binds the payment expected to confirm this hold
	PaymentID *string `json:"paymentId,omitempty" binding:"omitempty,max=255"`

	// TTL overrides the configured hold lifetime. Not accepted over HTTP.
	TTL *time.Duration `json:"-"`
}

type ReleaseRequest struct {
	ReservationID uuid.UUID `json:"reservationId" binding:"required"`
}

type ConfirmRequest struct {
	ReservationID uuid.UUID `json:"reservationId" binding:"required"`
	PaymentID     string    `json:"paymentId" binding:"required,max=255"`
}

type AttachPaymentRequest struct {
	PaymentID string `json:"paymentId" binding:"required,max=255"`
}

type ListReservationsQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending confirmed released expired"`
	Page   int    `form:"page,default=1" binding:"min=1"`
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
}
