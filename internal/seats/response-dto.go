package seats

import (
	"ticketing/internal/pricing"
	"ticketing/internal/shared/utils/response"

	"github.com/google/uuid"
)

// SeatView is a seat as served to buyers, with its price resolved
type SeatView struct {
	ID           uuid.UUID  `json:"id"`
	EventID      uuid.UUID  `json:"event_id"`
	Section      string     `json:"section"`
	Row          string     `json:"row"`
	SeatLabel    string     `json:"seat_label"`
	Status       SeatStatus `json:"status"`
	IsAccessible bool       `json:"is_accessible"`
	TierID       *uuid.UUID `json:"tier_id,omitempty"`
	TierName     string     `json:"tier_name,omitempty"`
	Color        string     `json:"color,omitempty"`
	Price        float64    `json:"price"`
}

type ListSeatsResponse struct {
	Seats      []SeatView `json:"seats"`
	TotalSeats int        `json:"totalSeats"`
}

type CreateSeatsResponse struct {
	Seats []Seat `json:"seats"`
	Count int    `json:"count"`
}

type StatsResponse struct {
	Stats
	OccupancyRate float64 `json:"occupancy_rate"`
	Currency      string  `json:"currency"`
}

type SeatMapResponse struct {
	Seats        map[string][]SeatView   `json:"seats"`
	PricingTiers *pricing.EffectiveTiers `json:"pricingTiers"`
	Statistics   StatsResponse           `json:"statistics"`
}

type SectionSeatsResponse struct {
	Section    string              `json:"section"`
	Seats      []SeatView          `json:"seats"`
	Counts     Stats               `json:"counts"`
	Pagination response.Pagination `json:"pagination"`
}
