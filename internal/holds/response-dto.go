package holds

import (
	"sort"
	"time"

	"ticketing/internal/shared/utils/response"

	"github.com/google/uuid"
)

type ReservedSeat struct {
	SeatID uuid.UUID `json:"seatId"`
	Price  float64   `json:"price"`
}

type ReserveResponse struct {
	ReservationID uuid.UUID      `json:"reservationId"`
	Seats         []ReservedSeat `json:"seats"`
	ExpiresAt     time.Time      `json:"expiresAt"`
	TotalPrice    float64        `json:"totalPrice"`
	Currency      string         `json:"currency"`
}

type ReleaseResponse struct {
	ReleasedSeatsCount int       `json:"releasedSeatsCount"`
	State              HoldState `json:"status"`
}

type ConfirmResponse struct {
	ConfirmedSeatsCount int    `json:"confirmedSeatsCount"`
	PaymentID           string `json:"paymentId"`
}

type ReservationView struct {
	ReservationID uuid.UUID      `json:"reservationId"`
	EventID       uuid.UUID      `json:"eventId"`
	UserID        uuid.UUID      `json:"userId"`
	State         HoldState      `json:"status"`
	Seats         []ReservedSeat `json:"seats"`
	TotalPrice    float64        `json:"totalPrice"`
	Currency      string         `json:"currency"`
	PaymentID     *string        `json:"paymentId,omitempty"`
	ExpiresAt     time.Time      `json:"expiresAt"`
	CreatedAt     time.Time      `json:"createdAt"`
	ConfirmedAt   *time.Time     `json:"confirmedAt,omitempty"`
	ReleasedAt    *time.Time     `json:"releasedAt,omitempty"`
	ExpiredAt     *time.Time     `json:"expiredAt,omitempty"`
}

type ListReservationsResponse struct {
	Reservations []ReservationView   `json:"reservations"`
	Pagination   response.Pagination `json:"pagination"`
}

func reservedSeats(hold *Hold) []ReservedSeat {
	out := make([]ReservedSeat, 0, len(hold.Seats))
	for _, s := range hold.Seats {
		out = append(out, ReservedSeat{SeatID: s.SeatID, Price: s.Price})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SeatID.String() < out[j].SeatID.String()
	})
	return out
}

// NewReservationView renders a hold for API clients
func NewReservationView(hold *Hold) ReservationView {
	return ReservationView{
		ReservationID: hold.ID,
		EventID:       hold.EventID,
		UserID:        hold.UserID,
		State:         hold.State,
		Seats:         reservedSeats(hold),
		TotalPrice:    hold.TotalPrice,
		Currency:      hold.Currency,
		PaymentID:     hold.PaymentID,
		ExpiresAt:     hold.ExpiresAt,
		CreatedAt:     hold.CreatedAt,
		ConfirmedAt:   hold.ConfirmedAt,
		ReleasedAt:    hold.ReleasedAt,
		ExpiredAt:     hold.ExpiredAt,
	}
}
