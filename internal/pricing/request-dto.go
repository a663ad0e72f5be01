package pricing

import "github.com/google/uuid"

// TierInput is one tier in a catalog write
type TierInput struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	Name        string     `json:"name" validate:"required,max=100"`
	Price       float64    `json:"price" validate:"gte=0"`
	Color       string     `json:"color" validate:"omitempty,max=20"`
	Section     string     `json:"section" validate:"omitempty,max=100"`
	Description string     `json:"description" validate:"omitempty,max=1000"`
}

type ReplaceVenueTiersRequest struct {
	Tiers []TierInput `json:"tiers"`
	// ExpectedTierIDs is the catalog the caller last saw; the write fails with a
	// conflict if the live catalog differs.
	ExpectedTierIDs []uuid.UUID `json:"expectedTierIds,omitempty"`
}

type UpsertEventTiersRequest struct {
	Tiers []TierInput `json:"tiers"`
}
