package seats

import "github.com/google/uuid"

// SeatDescriptor authors one seat of an event layout
type SeatDescriptor struct {
	Section      string     `json:"section" binding:"required,max=100" validate:"required,max=100"`
	Row          string     `json:"row" binding:"required,max=20" validate:"required,max=20"`
	SeatLabel    string     `json:"seatLabel" binding:"required,max=20" validate:"required,max=20"`
	Price        *float64   `json:"price,omitempty" binding:"omitempty,gte=0" validate:"omitempty,gte=0"`
	TierID       *uuid.UUID `json:"tierId,omitempty"`
	IsAccessible bool       `json:"isAccessible"`
}

type CreateSeatsRequest struct {
	EventID   uuid.UUID        `json:"eventId" binding:"required"`
	SeatsData []SeatDescriptor `json:"seatsData" binding:"required,min=1,max=5000,dive"`
}

// ListSeatsQuery binds the optional filters of GET /seats/event/:eventId
type ListSeatsQuery struct {
	Section string `form:"section"`
	Row     string `form:"row"`
	Status  string `form:"status"`
}

type SectionSeatsQuery struct {
	Page  int `form:"page,default=1" binding:"min=1"`
	Limit int `form:"limit,default=100" binding:"min=1,max=500"`
}
